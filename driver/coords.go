package driver

import (
	"context"
	"fmt"
	"math"
)

// Offset is a click position relative to the element's top-left corner.
// Both axes are always given together.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point is a window coordinate in whole pixels.
type Point struct {
	X int
	Y int
}

// resolvePoint maps selector and offset to a window point. Without an
// offset the point is the center of the element's client box.
func (d *Driver) resolvePoint(ctx context.Context, selector string, off *Offset) (Point, error) {
	el, ok, err := d.find(ctx, selector)
	if err != nil {
		return Point{}, err
	}
	if !ok {
		return Point{}, &ErrElementNotFound{Selector: selector}
	}
	left, top, err := topLeft(ctx, el)
	if err != nil {
		return Point{}, err
	}
	var x, y float64
	if off != nil {
		x, y = left+off.X, top+off.Y
	} else {
		box, err := el.Box(ctx)
		if err != nil {
			return Point{}, fmt.Errorf("driver: box: %w", err)
		}
		x, y = left+box.ClientWidth/2, top+box.ClientHeight/2
	}
	return Point{X: roundPixel(x), Y: roundPixel(y)}, nil
}

// roundPixel rounds to the nearest integer, halves toward +Inf.
func roundPixel(v float64) int {
	return int(math.Floor(v + 0.5))
}

// topLeft is the document-relative position of el: its own offset plus,
// for each offset parent, that parent's offset and border.
func topLeft(ctx context.Context, el Element) (left, top float64, err error) {
	box, err := el.Box(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("driver: box: %w", err)
	}
	left, top = box.OffsetLeft, box.OffsetTop
	p, err := el.OffsetParent(ctx)
	for err == nil && p != nil {
		pb, berr := p.Box(ctx)
		if berr != nil {
			return 0, 0, fmt.Errorf("driver: offset parent box: %w", berr)
		}
		left += pb.OffsetLeft + pb.ClientLeft
		top += pb.OffsetTop + pb.ClientTop
		p, err = p.OffsetParent(ctx)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("driver: offset parent: %w", err)
	}
	return left, top, nil
}
