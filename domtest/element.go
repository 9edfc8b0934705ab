package domtest

import (
	"context"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/windriver/driver"
)

// Listener observes an event at one element of its propagation path.
type Listener func(ev driver.Event, target *Element)

// Element implements driver.Element. Elements are unique per node, so
// pointer equality is node identity.
type Element struct {
	doc  *Document
	node *html.Node

	// Guarded by doc.mu.
	box          driver.Box
	offsetParent *Element
	value        *string
	selStart     int
	selEnd       int
	listeners    map[string][]Listener
	terminal     driver.Terminal
}

var _ driver.Element = (*Element)(nil)

// SetBox sets the layout metrics.
func (e *Element) SetBox(b driver.Box) *Element {
	e.doc.mu.Lock()
	e.box = b
	e.doc.mu.Unlock()
	return e
}

// SetOffsetParent sets the layout offset parent; nil detaches it.
func (e *Element) SetOffsetParent(p *Element) *Element {
	e.doc.mu.Lock()
	e.offsetParent = p
	e.doc.mu.Unlock()
	return e
}

// Focus makes e the document's active element.
func (e *Element) Focus() *Element {
	e.doc.mu.Lock()
	e.doc.active = e
	e.doc.mu.Unlock()
	return e
}

// SetSelection places the caret (start == end) or a selection.
func (e *Element) SetSelection(start, end int) *Element {
	e.SetSelectionRange(context.Background(), start, end)
	return e
}

// AttachTerminal attaches an emulator to e.
func (e *Element) AttachTerminal(t driver.Terminal) *Element {
	e.doc.mu.Lock()
	e.terminal = t
	e.doc.mu.Unlock()
	return e
}

// AddEventListener registers fn for events of type typ reaching e.
func (e *Element) AddEventListener(typ string, fn Listener) *Element {
	e.doc.mu.Lock()
	e.listeners[typ] = append(e.listeners[typ], fn)
	e.doc.mu.Unlock()
	return e
}

// Selection returns the current selection range.
func (e *Element) Selection() (start, end int) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.selStart, e.selEnd
}

// CurrentValue is Value without a context.
func (e *Element) CurrentValue() string {
	v, _ := e.Value(context.Background())
	return v
}

func (e *Element) Describe(context.Context) (driver.Description, error) {
	n := e.node
	desc := driver.Description{
		TagName:     strings.ToUpper(n.Data),
		ID:          getAttr(n, "id"),
		ClassName:   getAttr(n, "class"),
		TextContent: collectText(n),
		Attributes:  make([]driver.Attribute, 0, len(n.Attr)),
	}
	for _, a := range n.Attr {
		name := a.Key
		if a.Namespace != "" {
			name = a.Namespace + ":" + a.Key
		}
		desc.Attributes = append(desc.Attributes, driver.Attribute{Name: name, Value: a.Val})
	}
	return desc, nil
}

func (e *Element) Children(context.Context) ([]driver.Element, error) {
	var out []driver.Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.wrap(c))
		}
	}
	return out, nil
}

func (e *Element) Parent(context.Context) (driver.Element, error) {
	p := parentElement(e.node)
	if p == nil {
		return nil, nil
	}
	return e.doc.wrap(p), nil
}

func (e *Element) OffsetParent(context.Context) (driver.Element, error) {
	e.doc.mu.Lock()
	p := e.offsetParent
	e.doc.mu.Unlock()
	if p == nil {
		return nil, nil
	}
	return p, nil
}

func (e *Element) Box(context.Context) (driver.Box, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.box, nil
}

func (e *Element) SameAs(_ context.Context, other driver.Element) (bool, error) {
	o, ok := other.(*Element)
	return ok && o == e, nil
}

// Value is the edited value, or the initial one: the text of a
// <textarea>, the value attribute otherwise.
func (e *Element) Value(context.Context) (string, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	if e.value != nil {
		return *e.value, nil
	}
	if e.node.DataAtom == atom.Textarea {
		return collectText(e.node), nil
	}
	return getAttr(e.node, "value"), nil
}

// SetValue replaces the value and, like a browser, moves the caret to the
// end.
func (e *Element) SetValue(_ context.Context, v string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	e.value = &v
	n := len([]rune(v))
	e.selStart, e.selEnd = n, n
	return nil
}

func (e *Element) SelectionStart(context.Context) (int, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.selStart, nil
}

func (e *Element) SetSelectionRange(ctx context.Context, start, end int) error {
	v, _ := e.Value(ctx)
	n := len([]rune(v))
	start = min(max(start, 0), n)
	end = min(max(end, start), n)
	e.doc.mu.Lock()
	e.selStart, e.selEnd = start, end
	e.doc.mu.Unlock()
	return nil
}

// DispatchEvent runs the target's listeners, then its ancestors' when the
// event bubbles.
func (e *Element) DispatchEvent(_ context.Context, ev driver.Event) error {
	path := []*Element{e}
	if ev.Bubbles {
		for p := parentElement(e.node); p != nil; p = parentElement(p) {
			path = append(path, e.doc.wrap(p))
		}
	}
	for _, cur := range path {
		e.doc.mu.Lock()
		ls := append([]Listener(nil), cur.listeners[ev.Type]...)
		e.doc.events = append(e.doc.events, DispatchedEvent{Event: ev, Target: e, Current: cur})
		e.doc.mu.Unlock()
		for _, fn := range ls {
			fn(ev, e)
		}
	}
	return nil
}

func (e *Element) Terminal(context.Context) (driver.Terminal, error) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	return e.terminal, nil
}
