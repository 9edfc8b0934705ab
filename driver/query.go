package driver

import (
	"context"
	"fmt"
	"strings"
)

// GetTitle returns the document title.
func (d *Driver) GetTitle(ctx context.Context) (string, error) {
	t, err := d.doc.Title(ctx)
	if err != nil {
		return "", fmt.Errorf("driver: title: %w", err)
	}
	return t, nil
}

// IsActiveElement reports true when selector resolves to the focused
// element. Any other outcome, a selector that matches nothing included, is
// an *ErrActiveElementMismatch naming the focused element's ancestry.
func (d *Driver) IsActiveElement(ctx context.Context, selector string) (bool, error) {
	el, ok, err := d.find(ctx, selector)
	if err != nil {
		return false, err
	}
	active, err := d.doc.ActiveElement(ctx)
	if err != nil {
		return false, fmt.Errorf("driver: active element: %w", err)
	}
	if ok && active != nil {
		same, err := el.SameAs(ctx, active)
		if err != nil {
			return false, fmt.Errorf("driver: compare: %w", err)
		}
		if same {
			return true, nil
		}
	}
	chain, err := ancestryChain(ctx, active)
	if err != nil {
		return false, err
	}
	return false, &ErrActiveElementMismatch{Selector: selector, Chain: chain}
}

// ancestryChain renders el and its ancestors root first, as
// "TAG#id.c1.c2 > ...". A nil el renders as "".
func ancestryChain(ctx context.Context, el Element) (string, error) {
	var chain []string
	for el != nil {
		desc, err := el.Describe(ctx)
		if err != nil {
			return "", fmt.Errorf("driver: describe: %w", err)
		}
		chain = append(chain, renderNode(desc))
		if el, err = el.Parent(ctx); err != nil {
			return "", fmt.Errorf("driver: parent: %w", err)
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return strings.Join(chain, " > "), nil
}

func renderNode(desc Description) string {
	var b strings.Builder
	b.WriteString(desc.TagName)
	if desc.ID != "" {
		b.WriteString("#" + desc.ID)
	}
	for _, c := range strings.Fields(desc.ClassName) {
		b.WriteString("." + c)
	}
	return b.String()
}

// OpenDevTools asks the window to open detached developer tools.
func (d *Driver) OpenDevTools(ctx context.Context) error {
	if err := d.window.OpenDevTools(ctx, DevToolsOptions{Mode: "detach"}); err != nil {
		return fmt.Errorf("driver: open devtools: %w", err)
	}
	return nil
}
