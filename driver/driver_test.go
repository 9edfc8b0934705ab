package driver_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hazyhaar/windriver/domtest"
	"github.com/hazyhaar/windriver/driver"
)

type fixture struct {
	d      *driver.Driver
	doc    *domtest.Document
	input  *domtest.Input
	window *domtest.Window
	clock  *domtest.Clock
}

func newFixture(t *testing.T, src string, opts ...driver.Option) *fixture {
	t.Helper()
	f := &fixture{
		doc:    domtest.MustParse(src),
		clock:  &domtest.Clock{},
		window: &domtest.Window{},
	}
	f.input = domtest.NewInput(f.clock)
	opts = append([]driver.Option{driver.WithScheduler(f.clock)}, opts...)
	f.d = driver.New(f.doc, f.input, f.window, opts...)
	return f
}

func wantPoint(t *testing.T, evs []domtest.RecordedEvent, x, y, count int) {
	t.Helper()
	if len(evs) != 2 {
		t.Fatalf("got %d events, want 2", len(evs))
	}
	if evs[0].Type != driver.MouseDown || evs[1].Type != driver.MouseUp {
		t.Fatalf("event order: %s, %s", evs[0].Type, evs[1].Type)
	}
	for _, ev := range evs {
		if ev.X != x || ev.Y != y || ev.ClickCount != count || ev.Button != driver.ButtonLeft {
			t.Fatalf("got %+v, want (%d,%d) count %d left", ev.MouseEvent, x, y, count)
		}
	}
}

func TestClick_Center(t *testing.T) {
	f := newFixture(t, `<button id="ok">OK</button>`)
	f.doc.MustQuery("#ok").SetBox(driver.Box{OffsetLeft: 10, OffsetTop: 20, ClientWidth: 100, ClientHeight: 50})

	if err := f.d.Click(context.Background(), "#ok", nil); err != nil {
		t.Fatal(err)
	}
	wantPoint(t, f.input.Events(), 60, 45, 1)
}

func TestClick_Offset(t *testing.T) {
	f := newFixture(t, `<button id="ok">OK</button>`)
	f.doc.MustQuery("#ok").SetBox(driver.Box{OffsetLeft: 10, OffsetTop: 20, ClientWidth: 100, ClientHeight: 50})

	if err := f.d.Click(context.Background(), "#ok", &driver.Offset{X: 5, Y: 7}); err != nil {
		t.Fatal(err)
	}
	wantPoint(t, f.input.Events(), 15, 27, 1)
}

func TestClick_OffsetParentChain(t *testing.T) {
	f := newFixture(t, `<div id="outer"><div id="inner"><span id="target">x</span></div></div>`)
	outer := f.doc.MustQuery("#outer").SetBox(driver.Box{OffsetLeft: 1000, OffsetTop: 500})
	inner := f.doc.MustQuery("#inner").
		SetBox(driver.Box{OffsetLeft: 100, OffsetTop: 50, ClientLeft: 2, ClientTop: 3}).
		SetOffsetParent(outer)
	f.doc.MustQuery("#target").
		SetBox(driver.Box{OffsetLeft: 10, OffsetTop: 20, ClientWidth: 20, ClientHeight: 10}).
		SetOffsetParent(inner)

	if err := f.d.Click(context.Background(), "#target", nil); err != nil {
		t.Fatal(err)
	}
	// x: 10 + (100+2) + (1000+0) + 20/2; y: 20 + (50+3) + (500+0) + 10/2
	wantPoint(t, f.input.Events(), 1122, 578, 1)
}

func TestClick_Rounding(t *testing.T) {
	cases := []struct {
		box  driver.Box
		off  *driver.Offset
		x, y int
	}{
		{driver.Box{ClientWidth: 3, ClientHeight: 5}, nil, 2, 3},
		{driver.Box{OffsetLeft: 0.25, OffsetTop: 0.2}, &driver.Offset{X: 0.25, Y: 0.2}, 1, 0},
		{driver.Box{OffsetLeft: 10}, &driver.Offset{X: -10.5, Y: -0.5}, 0, 0},
	}
	for i, tc := range cases {
		f := newFixture(t, `<div id="t"></div>`)
		f.doc.MustQuery("#t").SetBox(tc.box)
		if err := f.d.Click(context.Background(), "#t", tc.off); err != nil {
			t.Fatal(err)
		}
		evs := f.input.Events()
		if evs[0].X != tc.x || evs[0].Y != tc.y {
			t.Errorf("case %d: got (%d,%d), want (%d,%d)", i, evs[0].X, evs[0].Y, tc.x, tc.y)
		}
	}
}

func TestClick_Timing(t *testing.T) {
	f := newFixture(t, `<button id="ok">OK</button>`)
	if err := f.d.Click(context.Background(), "#ok", nil); err != nil {
		t.Fatal(err)
	}
	evs := f.input.Events()
	if gap := evs[1].At - evs[0].At; gap < 10*time.Millisecond {
		t.Fatalf("mouseDown to mouseUp: %v, want >= 10ms", gap)
	}
	if total := f.clock.Now(); total < 110*time.Millisecond {
		t.Fatalf("click returned after %v, want >= 110ms", total)
	}
}

func TestClick_TimingOption(t *testing.T) {
	cases := []struct {
		up, settle time.Duration
		want       []time.Duration
	}{
		{time.Millisecond, time.Millisecond, []time.Duration{10 * time.Millisecond, 100 * time.Millisecond}},
		{20 * time.Millisecond, 300 * time.Millisecond, []time.Duration{20 * time.Millisecond, 300 * time.Millisecond}},
	}
	for _, tc := range cases {
		f := newFixture(t, `<button id="ok">OK</button>`, driver.WithClickTiming(tc.up, tc.settle))
		if err := f.d.Click(context.Background(), "#ok", nil); err != nil {
			t.Fatal(err)
		}
		got := f.clock.Sleeps()
		if len(got) != 2 || got[0] != tc.want[0] || got[1] != tc.want[1] {
			t.Errorf("WithClickTiming(%v, %v): sleeps %v, want %v", tc.up, tc.settle, got, tc.want)
		}
	}
}

func TestClick_ReleasesAfterCancel(t *testing.T) {
	f := newFixture(t, `<button id="ok">OK</button>`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.d.Click(ctx, "#ok", nil); err != nil {
		t.Fatal(err)
	}
	if n := len(f.input.Events()); n != 2 {
		t.Fatalf("got %d events, want mouseDown and mouseUp", n)
	}
}

func TestClick_InputError(t *testing.T) {
	f := newFixture(t, `<button id="ok">OK</button>`)
	boom := errors.New("detached")
	f.input.Err = boom
	if err := f.d.Click(context.Background(), "#ok", nil); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

func TestClick_NotFound(t *testing.T) {
	f := newFixture(t, `<button id="ok">OK</button>`)
	err := f.d.Click(context.Background(), "#missing", nil)
	var nf *driver.ErrElementNotFound
	if !errors.As(err, &nf) || nf.Selector != "#missing" {
		t.Fatalf("got %T: %v", err, err)
	}
	if err.Error() != "driver: element not found: #missing" {
		t.Fatalf("message: %q", err.Error())
	}
	if n := len(f.input.Events()); n != 0 {
		t.Fatalf("%d events sent for a missing element", n)
	}
	if err := f.d.DoubleClick(context.Background(), "#missing"); !errors.As(err, &nf) {
		t.Fatalf("double click: got %T: %v", err, err)
	}
}

func TestDoubleClick(t *testing.T) {
	f := newFixture(t, `<div id="cell"></div>`)
	f.doc.MustQuery("#cell").SetBox(driver.Box{OffsetLeft: 4, OffsetTop: 4, ClientWidth: 10, ClientHeight: 10})
	if err := f.d.DoubleClick(context.Background(), "#cell"); err != nil {
		t.Fatal(err)
	}
	wantPoint(t, f.input.Events(), 9, 9, 2)
}

const listHTML = `<ul id="list" class="items" data-k="v"><li class="a">one</li><li>two<b>!</b></li></ul>`

func TestGetElements_Flat(t *testing.T) {
	f := newFixture(t, listHTML)
	ul := f.doc.MustQuery("#list").SetBox(driver.Box{OffsetLeft: 8, OffsetTop: 8, ClientLeft: 1, ClientTop: 1})
	f.doc.MustQuery("li.a").SetBox(driver.Box{OffsetTop: 20}).SetOffsetParent(ul)

	got, err := f.d.GetElements(context.Background(), "li", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d snapshots", len(got))
	}
	first, second := got[0], got[1]
	if first.TagName != "LI" || first.ClassName != "a" || first.TextContent != "one" {
		t.Fatalf("first: %+v", first)
	}
	if len(first.Attributes) != 1 || first.Attributes["class"] != "a" {
		t.Fatalf("first attributes: %v", first.Attributes)
	}
	if first.Left != 9 || first.Top != 29 {
		t.Fatalf("first position: %v,%v want 9,29", first.Left, first.Top)
	}
	if len(first.Children) != 0 || first.Children == nil {
		t.Fatalf("flat snapshot should have an empty, non-nil children list: %#v", first.Children)
	}
	if second.TextContent != "two!" || len(second.Attributes) != 0 {
		t.Fatalf("second: %+v", second)
	}

	raw, _ := json.Marshal(second)
	var m map[string]json.RawMessage
	json.Unmarshal(raw, &m)
	if string(m["attributes"]) != "{}" || string(m["children"]) != "[]" {
		t.Fatalf("json: %s", raw)
	}
}

func TestGetElements_Recursive(t *testing.T) {
	f := newFixture(t, listHTML)
	got, err := f.d.GetElements(context.Background(), "#list", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d snapshots", len(got))
	}
	ul := got[0]
	want := map[string]string{"id": "list", "class": "items", "data-k": "v"}
	if len(ul.Attributes) != len(want) {
		t.Fatalf("attributes: %v", ul.Attributes)
	}
	for k, v := range want {
		if ul.Attributes[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, ul.Attributes[k], v)
		}
	}
	if len(ul.Children) != 2 {
		t.Fatalf("children: %d", len(ul.Children))
	}
	b := ul.Children[1].Children
	if len(b) != 1 || b[0].TagName != "B" || b[0].TextContent != "!" {
		t.Fatalf("grandchildren: %+v", b)
	}
}

func TestGetElements_None(t *testing.T) {
	f := newFixture(t, listHTML)
	got, err := f.d.GetElements(context.Background(), ".none", true)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := json.Marshal(got)
	if string(raw) != "[]" {
		t.Fatalf("got %s", raw)
	}
}

const focusHTML = `<body><div id="app" class="shell main"><input id="a"><textarea id="b" class="editor"></textarea></div></body>`

func TestIsActiveElement(t *testing.T) {
	f := newFixture(t, focusHTML)
	ctx := context.Background()
	f.doc.MustQuery("#a").Focus()

	ok, err := f.d.IsActiveElement(ctx, "#a")
	if err != nil || !ok {
		t.Fatalf("got %v, %v", ok, err)
	}
	if ok, err := f.d.IsActiveElement(ctx, "div > input"); err != nil || !ok {
		t.Fatalf("equivalent selector: %v, %v", ok, err)
	}
}

func TestIsActiveElement_Mismatch(t *testing.T) {
	f := newFixture(t, focusHTML)
	ctx := context.Background()
	f.doc.MustQuery("#b").Focus()

	ok, err := f.d.IsActiveElement(ctx, "#a")
	if ok {
		t.Fatal("reported active")
	}
	var mm *driver.ErrActiveElementMismatch
	if !errors.As(err, &mm) {
		t.Fatalf("got %T: %v", err, err)
	}
	const chain = "HTML > BODY > DIV#app.shell.main > TEXTAREA#b.editor"
	if mm.Chain != chain || mm.Selector != "#a" {
		t.Fatalf("got %+v", mm)
	}
	want := "driver: active element mismatch: current active element is '" + chain + "', looking for #a"
	if err.Error() != want {
		t.Fatalf("message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestIsActiveElement_NothingFocused(t *testing.T) {
	f := newFixture(t, focusHTML)
	_, err := f.d.IsActiveElement(context.Background(), "#a")
	var mm *driver.ErrActiveElementMismatch
	if !errors.As(err, &mm) || mm.Chain != "HTML > BODY" {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestIsActiveElement_NoMatchIsMismatch(t *testing.T) {
	f := newFixture(t, focusHTML)
	f.doc.MustQuery("#b").Focus()

	ok, err := f.d.IsActiveElement(context.Background(), "#zzz")
	if ok {
		t.Fatal("reported active")
	}
	var mm *driver.ErrActiveElementMismatch
	if !errors.As(err, &mm) {
		t.Fatalf("got %T: %v", err, err)
	}
	const chain = "HTML > BODY > DIV#app.shell.main > TEXTAREA#b.editor"
	if mm.Chain != chain || mm.Selector != "#zzz" {
		t.Fatalf("got %+v", mm)
	}
	want := "driver: active element mismatch: current active element is '" + chain + "', looking for #zzz"
	if err.Error() != want {
		t.Fatalf("message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestSetValue(t *testing.T) {
	f := newFixture(t, `<form id="f"><input id="name" value="old"></form>`)
	ctx := context.Background()
	var seen []string
	f.doc.MustQuery("#f").AddEventListener("input", func(ev driver.Event, target *domtest.Element) {
		if !ev.Bubbles || !ev.Cancelable {
			t.Errorf("event flags: %+v", ev)
		}
		seen = append(seen, target.CurrentValue())
	})

	if err := f.d.SetValue(ctx, "#name", "new value"); err != nil {
		t.Fatal(err)
	}
	if got := f.doc.MustQuery("#name").CurrentValue(); got != "new value" {
		t.Fatalf("value: %q", got)
	}
	if len(seen) != 1 || seen[0] != "new value" {
		t.Fatalf("ancestor listener saw %v", seen)
	}

	err := f.d.SetValue(ctx, "#nope", "x")
	var nf *driver.ErrElementNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestTypeInEditor(t *testing.T) {
	f := newFixture(t, `<div class="editor"><textarea id="ed">abcdef</textarea></div>`)
	ctx := context.Background()
	ed := f.doc.MustQuery("#ed").SetSelection(3, 3)
	fired := 0
	f.doc.MustQuery("div.editor").AddEventListener("input", func(driver.Event, *domtest.Element) { fired++ })

	if err := f.d.TypeInEditor(ctx, "#ed", "Z"); err != nil {
		t.Fatal(err)
	}
	if got := ed.CurrentValue(); got != "abcZdef" {
		t.Fatalf("value: %q", got)
	}
	if start, end := ed.Selection(); start != 4 || end != 4 {
		t.Fatalf("caret: %d,%d want 4,4", start, end)
	}
	if fired != 1 {
		t.Fatalf("input events: %d", fired)
	}
}

func TestTypeInEditor_SelectionNotReplaced(t *testing.T) {
	f := newFixture(t, `<textarea id="ed">abcdef</textarea>`)
	ed := f.doc.MustQuery("#ed").SetSelection(1, 4)
	if err := f.d.TypeInEditor(context.Background(), "#ed", "X"); err != nil {
		t.Fatal(err)
	}
	if got := ed.CurrentValue(); got != "aXbcdef" {
		t.Fatalf("value: %q", got)
	}
	if start, end := ed.Selection(); start != 2 || end != 2 {
		t.Fatalf("caret: %d,%d want 2,2", start, end)
	}
}

func TestTypeInEditor_Unicode(t *testing.T) {
	f := newFixture(t, `<input id="in" value="héllo">`)
	in := f.doc.MustQuery("#in").SetSelection(2, 2)
	if err := f.d.TypeInEditor(context.Background(), "#in", "ü"); err != nil {
		t.Fatal(err)
	}
	if got := in.CurrentValue(); got != "héüllo" {
		t.Fatalf("value: %q", got)
	}
	if start, _ := in.Selection(); start != 3 {
		t.Fatalf("caret: %d", start)
	}
}

func TestTypeInEditor_NotFound(t *testing.T) {
	f := newFixture(t, `<textarea id="ed"></textarea>`)
	err := f.d.TypeInEditor(context.Background(), ".missing", "x")
	var ne *driver.ErrEditorNotFound
	if !errors.As(err, &ne) || ne.Selector != ".missing" {
		t.Fatalf("got %T: %v", err, err)
	}
}

func TestTerminal(t *testing.T) {
	f := newFixture(t, `<div id="term"></div><div id="plain"></div>`)
	ctx := context.Background()
	term := domtest.NewTerminal("$ ls", "a.txt  b.txt", "$ ")
	f.doc.MustQuery("#term").AttachTerminal(term)

	lines, err := f.d.GetTerminalBuffer(ctx, "#term")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"$ ls", "a.txt  b.txt", "$ "}
	if len(lines) != len(want) {
		t.Fatalf("got %q", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}

	if err := f.d.WriteInTerminal(ctx, "#term", "echo hi\r"); err != nil {
		t.Fatal(err)
	}
	if w := term.Writes(); len(w) != 1 || w[0] != "echo hi\r" {
		t.Fatalf("writes: %q", w)
	}

	var tn *driver.ErrTerminalNotFound
	if _, err := f.d.GetTerminalBuffer(ctx, "#plain"); !errors.As(err, &tn) || tn.Selector != "#plain" {
		t.Fatalf("got %T: %v", err, err)
	}
	if err := f.d.WriteInTerminal(ctx, "#plain", "x"); !errors.As(err, &tn) {
		t.Fatalf("got %T: %v", err, err)
	}
	var nf *driver.ErrElementNotFound
	if _, err := f.d.GetTerminalBuffer(ctx, "#zz"); !errors.As(err, &nf) || nf.Selector != "#zz" {
		t.Fatalf("got %T: %v", err, err)
	}
	nf = nil
	if err := f.d.WriteInTerminal(ctx, "#zz", "x"); !errors.As(err, &nf) || nf.Selector != "#zz" {
		t.Fatalf("got %T: %v", err, err)
	}
	if w := term.Writes(); len(w) != 1 {
		t.Fatalf("missing element received input: %q", w)
	}
}

func TestTerminal_EmptyBuffer(t *testing.T) {
	f := newFixture(t, `<div id="term"></div>`)
	f.doc.MustQuery("#term").AttachTerminal(domtest.NewTerminal())
	lines, err := f.d.GetTerminalBuffer(context.Background(), "#term")
	if err != nil {
		t.Fatal(err)
	}
	if lines == nil || len(lines) != 0 {
		t.Fatalf("got %#v", lines)
	}
}

func TestGetTitle(t *testing.T) {
	f := newFixture(t, `<title>Editor - project</title><p>x</p>`)
	title, err := f.d.GetTitle(context.Background())
	if err != nil || title != "Editor - project" {
		t.Fatalf("got %q, %v", title, err)
	}
}

func TestOpenDevTools(t *testing.T) {
	f := newFixture(t, `<p>x</p>`)
	if err := f.d.OpenDevTools(context.Background()); err != nil {
		t.Fatal(err)
	}
	dt := f.window.DevTools()
	if len(dt) != 1 || dt[0].Mode != "detach" {
		t.Fatalf("got %+v", dt)
	}

	boom := errors.New("no window")
	f.window.Err = boom
	if err := f.d.OpenDevTools(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}
