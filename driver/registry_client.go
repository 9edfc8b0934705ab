package driver

import (
	"context"

	"github.com/hazyhaar/windriver/connectivity"
)

// RegistryServiceName is the channel service of the window registry.
const RegistryServiceName = "windowDriverRegistry"

// RegistryOptions is the registry's answer to a registration.
type RegistryOptions struct {
	Verbose bool `json:"verbose"`
}

// WindowArgs identifies a window in registry calls.
type WindowArgs struct {
	WindowID int64 `json:"windowId"`
}

// RegistryClient calls the window registry over the channel.
type RegistryClient struct {
	caller connectivity.Caller
}

// NewRegistryClient returns a RegistryClient calling RegistryServiceName
// through c.
func NewRegistryClient(c connectivity.Caller) *RegistryClient {
	return &RegistryClient{caller: c}
}

// RegisterWindowDriver associates windowID with the caller's driver.
func (r *RegistryClient) RegisterWindowDriver(ctx context.Context, windowID int64) (RegistryOptions, error) {
	var opts RegistryOptions
	err := connectivity.CallMethod(ctx, r.caller, RegistryServiceName, "registerWindowDriver", WindowArgs{WindowID: windowID}, &opts)
	return opts, err
}

// ReloadWindowDriver marks windowID as needing a fresh driver.
func (r *RegistryClient) ReloadWindowDriver(ctx context.Context, windowID int64) error {
	return connectivity.CallMethod(ctx, r.caller, RegistryServiceName, "reloadWindowDriver", WindowArgs{WindowID: windowID}, nil)
}
