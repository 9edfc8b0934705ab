package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"

	"github.com/hazyhaar/windriver/driver"
)

// element adapts a Rod element. Caret positions cross the boundary as
// code point counts; the page converts them to and from UTF-16 offsets.
type element struct {
	el *rod.Element
	w  *Window
}

var _ driver.Element = (*element)(nil)

const describeJS = `() => JSON.stringify({
	tagName: this.tagName,
	id: this.id || "",
	className: typeof this.className === "string" ? this.className : (this.getAttribute("class") || ""),
	textContent: this.textContent || "",
	attributes: Array.from(this.attributes, a => ({name: a.name, value: a.value})),
})`

func (e *element) Describe(ctx context.Context) (driver.Description, error) {
	var d struct {
		TagName     string `json:"tagName"`
		ID          string `json:"id"`
		ClassName   string `json:"className"`
		TextContent string `json:"textContent"`
		Attributes  []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"attributes"`
	}
	if err := evalJSON(ctx, e.el, &d, describeJS); err != nil {
		return driver.Description{}, fmt.Errorf("browser: describe: %w", err)
	}
	desc := driver.Description{
		TagName:     d.TagName,
		ID:          d.ID,
		ClassName:   d.ClassName,
		TextContent: d.TextContent,
		Attributes:  make([]driver.Attribute, len(d.Attributes)),
	}
	for i, a := range d.Attributes {
		desc.Attributes[i] = driver.Attribute{Name: a.Name, Value: a.Value}
	}
	return desc, nil
}

func (e *element) Children(ctx context.Context) ([]driver.Element, error) {
	els, err := e.el.Context(ctx).Elements(":scope > *")
	if err != nil {
		return nil, err
	}
	return wrapAll(e.w, els), nil
}

func (e *element) Parent(ctx context.Context) (driver.Element, error) {
	return e.related(ctx, `() => this.parentElement`)
}

func (e *element) OffsetParent(ctx context.Context) (driver.Element, error) {
	return e.related(ctx, `() => this.offsetParent`)
}

func (e *element) related(ctx context.Context, js string) (driver.Element, error) {
	el, err := e.el.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(js))
	return optional(e.w, el, err)
}

func (e *element) Box(ctx context.Context) (driver.Box, error) {
	var b struct {
		OffsetLeft   float64 `json:"offsetLeft"`
		OffsetTop    float64 `json:"offsetTop"`
		ClientLeft   float64 `json:"clientLeft"`
		ClientTop    float64 `json:"clientTop"`
		ClientWidth  float64 `json:"clientWidth"`
		ClientHeight float64 `json:"clientHeight"`
	}
	err := evalJSON(ctx, e.el, &b, `() => JSON.stringify({
		offsetLeft: this.offsetLeft || 0,
		offsetTop: this.offsetTop || 0,
		clientLeft: this.clientLeft || 0,
		clientTop: this.clientTop || 0,
		clientWidth: this.clientWidth || 0,
		clientHeight: this.clientHeight || 0,
	})`)
	if err != nil {
		return driver.Box{}, fmt.Errorf("browser: box: %w", err)
	}
	return driver.Box(b), nil
}

func (e *element) SameAs(ctx context.Context, other driver.Element) (bool, error) {
	o, ok := other.(*element)
	if !ok {
		return false, nil
	}
	return e.el.Context(ctx).Equal(o.el)
}

func (e *element) Value(ctx context.Context) (string, error) {
	res, err := e.el.Context(ctx).Eval(`() => this.value ?? ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (e *element) SetValue(ctx context.Context, value string) error {
	_, err := e.el.Context(ctx).Eval(`(v) => { this.value = v }`, value)
	return err
}

func (e *element) SelectionStart(ctx context.Context) (int, error) {
	res, err := e.el.Context(ctx).Eval(`() => {
		const v = this.value ?? "";
		const s = typeof this.selectionStart === "number" ? this.selectionStart : v.length;
		return Array.from(v.slice(0, s)).length;
	}`)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (e *element) SetSelectionRange(ctx context.Context, start, end int) error {
	_, err := e.el.Context(ctx).Eval(`(s, e) => {
		if (typeof this.setSelectionRange !== "function") return;
		const cps = Array.from(this.value ?? "");
		const u = n => cps.slice(0, n).join("").length;
		this.setSelectionRange(u(s), u(e));
	}`, start, end)
	return err
}

func (e *element) DispatchEvent(ctx context.Context, ev driver.Event) error {
	_, err := e.el.Context(ctx).Eval(`(type, bubbles, cancelable) => {
		this.dispatchEvent(new Event(type, {bubbles, cancelable}));
	}`, ev.Type, ev.Bubbles, ev.Cancelable)
	return err
}

func (e *element) Terminal(ctx context.Context) (driver.Terminal, error) {
	for _, b := range e.w.terminalBindings() {
		res, err := e.el.Context(ctx).Eval(`sel => this.matches(sel)`, b.selector)
		if err != nil {
			return nil, fmt.Errorf("browser: terminal binding %q: %w", b.selector, err)
		}
		if res.Value.Bool() {
			return b.term, nil
		}
	}
	res, err := e.el.Context(ctx).Eval(`() => { ` + xtermOf + ` return xtermOf(this) !== null; }`)
	if err != nil {
		return nil, fmt.Errorf("browser: terminal lookup: %w", err)
	}
	if !res.Value.Bool() {
		return nil, nil
	}
	return &xterm{el: e.el}, nil
}
