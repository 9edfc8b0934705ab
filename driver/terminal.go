package driver

import (
	"context"
	"fmt"
)

// GetTerminalBuffer returns the visible lines of the terminal attached to
// the element, top to bottom.
func (d *Driver) GetTerminalBuffer(ctx context.Context, selector string) ([]string, error) {
	term, err := d.terminal(ctx, selector)
	if err != nil {
		return nil, err
	}
	lines, err := term.BufferLines(ctx)
	if err != nil {
		return nil, fmt.Errorf("driver: terminal buffer: %w", err)
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// WriteInTerminal types text into the terminal attached to the element.
func (d *Driver) WriteInTerminal(ctx context.Context, selector, text string) error {
	term, err := d.terminal(ctx, selector)
	if err != nil {
		return err
	}
	if err := term.Input(ctx, text); err != nil {
		return fmt.Errorf("driver: terminal input: %w", err)
	}
	return nil
}

func (d *Driver) terminal(ctx context.Context, selector string) (Terminal, error) {
	el, ok, err := d.find(ctx, selector)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ErrElementNotFound{Selector: selector}
	}
	term, err := el.Terminal(ctx)
	if err != nil {
		return nil, fmt.Errorf("driver: terminal: %w", err)
	}
	if term == nil {
		return nil, &ErrTerminalNotFound{Selector: selector}
	}
	return term, nil
}
