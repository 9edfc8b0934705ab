package driver

import (
	"context"
	"fmt"
)

// SetValue replaces the element's value and fires a bubbling input event.
func (d *Driver) SetValue(ctx context.Context, selector, text string) error {
	el, ok, err := d.find(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return &ErrElementNotFound{Selector: selector}
	}
	if err := el.SetValue(ctx, text); err != nil {
		return fmt.Errorf("driver: set value: %w", err)
	}
	return dispatchInput(ctx, el)
}

// TypeInEditor inserts text at the caret, moves the caret after the
// inserted text and fires a bubbling input event. A selection is not
// replaced.
func (d *Driver) TypeInEditor(ctx context.Context, selector, text string) error {
	el, ok, err := d.find(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return &ErrEditorNotFound{Selector: selector}
	}
	start, err := el.SelectionStart(ctx)
	if err != nil {
		return fmt.Errorf("driver: selection start: %w", err)
	}
	value, err := el.Value(ctx)
	if err != nil {
		return fmt.Errorf("driver: value: %w", err)
	}
	spliced, caret := splice(value, start, text)
	if err := el.SetValue(ctx, spliced); err != nil {
		return fmt.Errorf("driver: set value: %w", err)
	}
	if err := el.SetSelectionRange(ctx, caret, caret); err != nil {
		return fmt.Errorf("driver: set selection: %w", err)
	}
	return dispatchInput(ctx, el)
}

// splice inserts text at rune index at (clamped to the value) and returns
// the new value and the caret just after the insertion.
func splice(value string, at int, text string) (string, int) {
	r := []rune(value)
	at = min(max(at, 0), len(r))
	ins := []rune(text)
	out := make([]rune, 0, len(r)+len(ins))
	out = append(out, r[:at]...)
	out = append(out, ins...)
	out = append(out, r[at:]...)
	return string(out), at + len(ins)
}

func dispatchInput(ctx context.Context, el Element) error {
	if err := el.DispatchEvent(ctx, InputEvent); err != nil {
		return fmt.Errorf("driver: dispatch input: %w", err)
	}
	return nil
}
