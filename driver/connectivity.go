package driver

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/windriver/connectivity"
)

// ServiceName is the channel service a registered driver answers on.
const ServiceName = "windowDriver"

type selectorArgs struct {
	Selector string `json:"selector"`
}

type clickArgs struct {
	Selector string   `json:"selector"`
	XOffset  *float64 `json:"xoffset,omitempty"`
	YOffset  *float64 `json:"yoffset,omitempty"`
}

type textArgs struct {
	Selector string `json:"selector"`
	Text     string `json:"text"`
}

type elementsArgs struct {
	Selector  string `json:"selector"`
	Recursive bool   `json:"recursive"`
}

// offset enforces the both-or-neither rule for click offsets.
func (a clickArgs) offset(method string) (*Offset, error) {
	switch {
	case a.XOffset == nil && a.YOffset == nil:
		return nil, nil
	case a.XOffset == nil || a.YOffset == nil:
		return nil, &ErrInvalidArgument{Method: method, Reason: "xoffset and yoffset must be given together"}
	}
	return &Offset{X: *a.XOffset, Y: *a.YOffset}, nil
}

func decodeArgs(method string, raw json.RawMessage, v any, needSelector func() string) error {
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, v); err != nil {
			return &ErrInvalidArgument{Method: method, Reason: err.Error()}
		}
	}
	if needSelector != nil && needSelector() == "" {
		return &ErrInvalidArgument{Method: method, Reason: "selector required"}
	}
	return nil
}

// Methods returns the channel method table for ops.
func Methods(ops Operations) connectivity.Methods {
	return connectivity.Methods{
		"click": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a clickArgs
			if err := decodeArgs("click", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			off, err := a.offset("click")
			if err != nil {
				return nil, err
			}
			return nil, ops.Click(ctx, a.Selector, off)
		},
		"doubleClick": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a clickArgs
			if err := decodeArgs("doubleClick", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			if a.XOffset != nil || a.YOffset != nil {
				return nil, &ErrInvalidArgument{Method: "doubleClick", Reason: "offsets are not accepted"}
			}
			return nil, ops.DoubleClick(ctx, a.Selector)
		},
		"setValue": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a textArgs
			if err := decodeArgs("setValue", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			return nil, ops.SetValue(ctx, a.Selector, a.Text)
		},
		"typeInEditor": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a textArgs
			if err := decodeArgs("typeInEditor", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			return nil, ops.TypeInEditor(ctx, a.Selector, a.Text)
		},
		"getTitle": func(ctx context.Context, _ json.RawMessage) (any, error) {
			return ops.GetTitle(ctx)
		},
		"isActiveElement": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a selectorArgs
			if err := decodeArgs("isActiveElement", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			return ops.IsActiveElement(ctx, a.Selector)
		},
		"getElements": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a elementsArgs
			if err := decodeArgs("getElements", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			return ops.GetElements(ctx, a.Selector, a.Recursive)
		},
		"getTerminalBuffer": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a selectorArgs
			if err := decodeArgs("getTerminalBuffer", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			return ops.GetTerminalBuffer(ctx, a.Selector)
		},
		"writeInTerminal": func(ctx context.Context, raw json.RawMessage) (any, error) {
			var a textArgs
			if err := decodeArgs("writeInTerminal", raw, &a, func() string { return a.Selector }); err != nil {
				return nil, err
			}
			return nil, ops.WriteInTerminal(ctx, a.Selector, a.Text)
		},
		"openDevTools": func(ctx context.Context, _ json.RawMessage) (any, error) {
			return nil, ops.OpenDevTools(ctx)
		},
	}
}
