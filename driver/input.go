package driver

import (
	"context"
	"fmt"
)

// Click clicks the element once, at offset from its top-left corner or
// at its center when offset is nil.
func (d *Driver) Click(ctx context.Context, selector string, offset *Offset) error {
	p, err := d.resolvePoint(ctx, selector, offset)
	if err != nil {
		return err
	}
	return d.dispatchClick(ctx, p, 1)
}

// DoubleClick double-clicks the center of the element.
func (d *Driver) DoubleClick(ctx context.Context, selector string) error {
	p, err := d.resolvePoint(ctx, selector, nil)
	if err != nil {
		return err
	}
	return d.dispatchClick(ctx, p, 2)
}

// dispatchClick sends mouseDown, waits the mouse-up delay, sends mouseUp
// at the same point, then waits the settle delay. Once mouseDown is sent
// the sequence ignores cancellation so the button is always released.
func (d *Driver) dispatchClick(ctx context.Context, p Point, count int) error {
	ev := MouseEvent{Type: MouseDown, X: p.X, Y: p.Y, Button: ButtonLeft, ClickCount: count}
	if err := d.input.SendInputEvent(ctx, ev); err != nil {
		return fmt.Errorf("driver: mouse down: %w", err)
	}
	ctx = context.WithoutCancel(ctx)
	if err := d.sched.Sleep(ctx, d.mouseUpDelay); err != nil {
		return fmt.Errorf("driver: mouse up delay: %w", err)
	}
	ev.Type = MouseUp
	if err := d.input.SendInputEvent(ctx, ev); err != nil {
		return fmt.Errorf("driver: mouse up: %w", err)
	}
	if err := d.sched.Sleep(ctx, d.settleDelay); err != nil {
		return fmt.Errorf("driver: settle delay: %w", err)
	}
	d.logger.DebugContext(ctx, "driver: click dispatched", "x", p.X, "y", p.Y, "count", count)
	return nil
}
