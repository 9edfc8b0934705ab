package registry

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/windriver/connectivity"
	"github.com/hazyhaar/windriver/driver"
)

type verboseArgs struct {
	WindowID int64 `json:"windowId"`
	Verbose  bool  `json:"verbose"`
}

type listArgs struct {
	State string `json:"state"`
}

// RegisterConnectivity serves the registry as driver.RegistryServiceName
// on router.
//
// Methods:
//
//	registerWindowDriver {windowId}          → {verbose}
//	reloadWindowDriver   {windowId}
//	setVerbose           {windowId, verbose}
//	listWindows          {state?}            → [window]
func (r *Registry) RegisterConnectivity(router *connectivity.Router) {
	h := connectivity.Chain(
		connectivity.Recovery(r.logger),
		connectivity.WithCallLogging(r.logger, driver.RegistryServiceName),
	)(connectivity.ServeMethods(r.methods()))
	router.RegisterLocal(driver.RegistryServiceName, h)
}

func (r *Registry) methods() connectivity.Methods {
	return connectivity.Methods{
		"registerWindowDriver": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a driver.WindowArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return r.RegisterWindowDriver(ctx, a.WindowID)
		},
		"reloadWindowDriver": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a driver.WindowArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return nil, r.ReloadWindowDriver(ctx, a.WindowID)
		},
		"setVerbose": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a verboseArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			return nil, r.SetVerbose(ctx, a.WindowID, a.Verbose)
		},
		"listWindows": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a listArgs
			if err := decode(raw, &a); err != nil {
				return nil, err
			}
			ws, err := r.Windows(ctx, a.State)
			if err != nil {
				return nil, err
			}
			if ws == nil {
				ws = []*Window{}
			}
			return ws, nil
		},
	}
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}
