package driver

import (
	"context"
	"fmt"
)

// ElementSnapshot is a serializable copy of one element taken at capture
// time.
type ElementSnapshot struct {
	TagName     string            `json:"tagName"`
	ClassName   string            `json:"className"`
	TextContent string            `json:"textContent"`
	Attributes  map[string]string `json:"attributes"`
	Children    []ElementSnapshot `json:"children"`
	Left        float64           `json:"left"`
	Top         float64           `json:"top"`
}

// GetElements snapshots every element matching selector, in document
// order. No match yields an empty list.
func (d *Driver) GetElements(ctx context.Context, selector string, recursive bool) ([]ElementSnapshot, error) {
	els, err := d.doc.QuerySelectorAll(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("driver: query %q: %w", selector, err)
	}
	out := make([]ElementSnapshot, 0, len(els))
	for _, el := range els {
		s, err := Snapshot(ctx, el, recursive)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Snapshot captures el. Children are captured depth first only when
// recursive is set.
func Snapshot(ctx context.Context, el Element, recursive bool) (ElementSnapshot, error) {
	desc, err := el.Describe(ctx)
	if err != nil {
		return ElementSnapshot{}, fmt.Errorf("driver: describe: %w", err)
	}
	attrs := make(map[string]string, len(desc.Attributes))
	for _, a := range desc.Attributes {
		attrs[a.Name] = a.Value
	}
	left, top, err := topLeft(ctx, el)
	if err != nil {
		return ElementSnapshot{}, err
	}
	s := ElementSnapshot{
		TagName:     desc.TagName,
		ClassName:   desc.ClassName,
		TextContent: desc.TextContent,
		Attributes:  attrs,
		Children:    []ElementSnapshot{},
		Left:        left,
		Top:         top,
	}
	if !recursive {
		return s, nil
	}
	children, err := el.Children(ctx)
	if err != nil {
		return ElementSnapshot{}, fmt.Errorf("driver: children: %w", err)
	}
	for _, c := range children {
		cs, err := Snapshot(ctx, c, true)
		if err != nil {
			return ElementSnapshot{}, err
		}
		s.Children = append(s.Children, cs)
	}
	return s, nil
}
