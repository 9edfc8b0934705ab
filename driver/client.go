package driver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hazyhaar/windriver/connectivity"
)

// Client drives a window over the channel. Coded errors from the remote
// driver are turned back into the typed errors of this package.
type Client struct {
	caller  connectivity.Caller
	service string
}

// NewClient returns a Client calling ServiceName through c.
func NewClient(c connectivity.Caller) *Client {
	return &Client{caller: c, service: ServiceName}
}

var _ Operations = (*Client)(nil)

func (c *Client) call(ctx context.Context, method string, args, out any) error {
	return decodeError(connectivity.CallMethod(ctx, c.caller, c.service, method, args, out))
}

func (c *Client) Click(ctx context.Context, selector string, offset *Offset) error {
	a := clickArgs{Selector: selector}
	if offset != nil {
		a.XOffset, a.YOffset = &offset.X, &offset.Y
	}
	return c.call(ctx, "click", a, nil)
}

func (c *Client) DoubleClick(ctx context.Context, selector string) error {
	return c.call(ctx, "doubleClick", selectorArgs{Selector: selector}, nil)
}

func (c *Client) SetValue(ctx context.Context, selector, text string) error {
	return c.call(ctx, "setValue", textArgs{Selector: selector, Text: text}, nil)
}

func (c *Client) TypeInEditor(ctx context.Context, selector, text string) error {
	return c.call(ctx, "typeInEditor", textArgs{Selector: selector, Text: text}, nil)
}

func (c *Client) GetTitle(ctx context.Context) (string, error) {
	var title string
	err := c.call(ctx, "getTitle", nil, &title)
	return title, err
}

func (c *Client) IsActiveElement(ctx context.Context, selector string) (bool, error) {
	var active bool
	err := c.call(ctx, "isActiveElement", selectorArgs{Selector: selector}, &active)
	return active, err
}

func (c *Client) GetElements(ctx context.Context, selector string, recursive bool) ([]ElementSnapshot, error) {
	out := []ElementSnapshot{}
	if err := c.call(ctx, "getElements", elementsArgs{Selector: selector, Recursive: recursive}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetTerminalBuffer(ctx context.Context, selector string) ([]string, error) {
	out := []string{}
	if err := c.call(ctx, "getTerminalBuffer", selectorArgs{Selector: selector}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) WriteInTerminal(ctx context.Context, selector, text string) error {
	return c.call(ctx, "writeInTerminal", textArgs{Selector: selector, Text: text}, nil)
}

func (c *Client) OpenDevTools(ctx context.Context) error {
	return c.call(ctx, "openDevTools", nil, nil)
}

// decodeError maps a wire CallError back to its typed error. Unknown
// codes and errors without a code are returned as they are.
func decodeError(err error) error {
	var ce *connectivity.CallError
	if !errors.As(err, &ce) {
		return err
	}
	var typed error
	switch ce.Code {
	case "ElementNotFound":
		typed = &ErrElementNotFound{}
	case "EditorNotFound":
		typed = &ErrEditorNotFound{}
	case "TerminalNotFound":
		typed = &ErrTerminalNotFound{}
	case "ActiveElementMismatch":
		typed = &ErrActiveElementMismatch{}
	case "InvalidArgument":
		typed = &ErrInvalidArgument{}
	default:
		return err
	}
	if len(ce.Details) == 0 || json.Unmarshal(ce.Details, typed) != nil {
		return err
	}
	return typed
}
