// Package domtest is a fabricated window for driver tests: an HTML tree
// parsed with golang.org/x/net/html plus the layout, focus, caret, event
// and terminal state a real renderer would hold.
//
//	doc := domtest.MustParse(`<div id="box" class="a b">hi</div>`)
//	doc.MustQuery("#box").SetBox(driver.Box{OffsetLeft: 10, ClientWidth: 100})
//	clock := &domtest.Clock{}
//	d := driver.New(doc, domtest.NewInput(clock), &domtest.Window{},
//		driver.WithScheduler(clock))
package domtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/windriver/driver"
)

// Document implements driver.Document over a parsed HTML tree.
type Document struct {
	mu     sync.Mutex
	root   *html.Node
	els    map[*html.Node]*Element
	active *Element
	title  *string
	events []DispatchedEvent
}

// DispatchedEvent records one listener invocation.
type DispatchedEvent struct {
	Event   driver.Event
	Target  *Element
	Current *Element
}

var _ driver.Document = (*Document)(nil)

// Parse parses a document. Fragments are wrapped in html/body as
// browsers do.
func Parse(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("domtest: parse: %w", err)
	}
	return &Document{root: root, els: make(map[*html.Node]*Element)}, nil
}

// MustParse is Parse for fixtures; it panics on error.
func MustParse(src string) *Document {
	d, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return d
}

// Query returns the first element matching selector, or nil.
func (d *Document) Query(selector string) *Element {
	l, err := parseSelector(selector)
	if err != nil {
		panic(err)
	}
	nodes := querySelectorAll(d.root, l, true)
	if len(nodes) == 0 {
		return nil
	}
	return d.wrap(nodes[0])
}

// MustQuery is Query that panics when nothing matches.
func (d *Document) MustQuery(selector string) *Element {
	el := d.Query(selector)
	if el == nil {
		panic(fmt.Sprintf("domtest: no element matches %q", selector))
	}
	return el
}

// SetTitle overrides the <title> text.
func (d *Document) SetTitle(t string) {
	d.mu.Lock()
	d.title = &t
	d.mu.Unlock()
}

// Events returns the listener invocations so far, in order.
func (d *Document) Events() []DispatchedEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DispatchedEvent(nil), d.events...)
}

func (d *Document) QuerySelector(_ context.Context, selector string) (driver.Element, error) {
	l, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	nodes := querySelectorAll(d.root, l, true)
	if len(nodes) == 0 {
		return nil, nil
	}
	return d.wrap(nodes[0]), nil
}

func (d *Document) QuerySelectorAll(_ context.Context, selector string) ([]driver.Element, error) {
	l, err := parseSelector(selector)
	if err != nil {
		return nil, err
	}
	nodes := querySelectorAll(d.root, l, false)
	out := make([]driver.Element, len(nodes))
	for i, n := range nodes {
		out[i] = d.wrap(n)
	}
	return out, nil
}

// Title is the <title> text with whitespace collapsed, unless overridden.
func (d *Document) Title(context.Context) (string, error) {
	d.mu.Lock()
	override := d.title
	d.mu.Unlock()
	if override != nil {
		return *override, nil
	}
	titles := findAll(d.root, atom.Title)
	if len(titles) == 0 {
		return "", nil
	}
	return strings.Join(strings.Fields(collectText(titles[0])), " "), nil
}

// ActiveElement is the focused element, or <body> when nothing has focus.
func (d *Document) ActiveElement(context.Context) (driver.Element, error) {
	d.mu.Lock()
	active := d.active
	d.mu.Unlock()
	if active != nil {
		return active, nil
	}
	if bodies := findAll(d.root, atom.Body); len(bodies) > 0 {
		return d.wrap(bodies[0]), nil
	}
	return nil, nil
}

// wrap returns the stable Element for n.
func (d *Document) wrap(n *html.Node) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.els[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n, listeners: make(map[string][]Listener)}
	d.els[n] = el
	return el
}

func findAll(root *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == a {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}
