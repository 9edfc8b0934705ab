package driver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/windriver/connectivity"
	"github.com/hazyhaar/windriver/dbopen"
	"github.com/hazyhaar/windriver/domtest"
	"github.com/hazyhaar/windriver/driver"
)

const channelHTML = `<title>Remote</title>
<div id="app"><input id="a" value="abc"><button id="go">Go</button></div>
<div id="term"></div>`

// remoteClient serves f's driver over HTTP and returns a Client reaching it
// through an http route.
func remoteClient(t *testing.T, f *fixture) *driver.Client {
	t.Helper()
	ctx := context.Background()

	server := connectivity.New()
	server.RegisterLocal(driver.ServiceName, connectivity.ServeMethods(driver.Methods(f.d)))
	ts := httptest.NewServer(connectivity.NewHTTPHandler(server))
	t.Cleanup(ts.Close)

	db := dbopen.OpenMemory(t, dbopen.WithSchema(connectivity.Schema))
	if err := connectivity.NewAdmin(db).UpsertRoute(ctx, driver.ServiceName, "http", ts.URL+"/v1/"+driver.ServiceName, nil); err != nil {
		t.Fatal(err)
	}
	client := connectivity.New()
	client.RegisterTransport("http", connectivity.HTTPFactory())
	if err := client.Reload(ctx, db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })
	return driver.NewClient(client)
}

func TestClient_OverHTTP(t *testing.T) {
	f := newFixture(t, channelHTML)
	f.doc.MustQuery("#go").SetBox(driver.Box{OffsetLeft: 10, OffsetTop: 10, ClientWidth: 20, ClientHeight: 20})
	f.doc.MustQuery("#term").AttachTerminal(domtest.NewTerminal("$ "))
	f.doc.MustQuery("#a").Focus()
	c := remoteClient(t, f)
	ctx := context.Background()

	if title, err := c.GetTitle(ctx); err != nil || title != "Remote" {
		t.Fatalf("title: %q, %v", title, err)
	}
	if err := c.Click(ctx, "#go", &driver.Offset{X: 1, Y: 2}); err != nil {
		t.Fatal(err)
	}
	wantPoint(t, f.input.Events(), 11, 12, 1)

	if ok, err := c.IsActiveElement(ctx, "#a"); err != nil || !ok {
		t.Fatalf("active: %v, %v", ok, err)
	}
	if err := c.SetValue(ctx, "#a", "xyz"); err != nil {
		t.Fatal(err)
	}
	f.doc.MustQuery("#a").SetSelection(0, 0)
	if err := c.TypeInEditor(ctx, "#a", ">"); err != nil {
		t.Fatal(err)
	}
	if got := f.doc.MustQuery("#a").CurrentValue(); got != ">xyz" {
		t.Fatalf("value: %q", got)
	}

	els, err := c.GetElements(ctx, "#app", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(els) != 1 || len(els[0].Children) != 2 || els[0].Children[1].TextContent != "Go" {
		t.Fatalf("elements: %+v", els)
	}
	if none, err := c.GetElements(ctx, ".none", false); err != nil || none == nil || len(none) != 0 {
		t.Fatalf("empty result: %#v, %v", none, err)
	}

	lines, err := c.GetTerminalBuffer(ctx, "#term")
	if err != nil || len(lines) != 1 || lines[0] != "$ " {
		t.Fatalf("buffer: %q, %v", lines, err)
	}
	if err := c.WriteInTerminal(ctx, "#term", "ls\r"); err != nil {
		t.Fatal(err)
	}
	if err := c.OpenDevTools(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(f.window.DevTools()); n != 1 {
		t.Fatalf("devtools: %d", n)
	}
}

func TestClient_TypedErrorsOverHTTP(t *testing.T) {
	f := newFixture(t, channelHTML)
	f.doc.MustQuery("#go").Focus()
	c := remoteClient(t, f)
	ctx := context.Background()

	var nf *driver.ErrElementNotFound
	if err := c.Click(ctx, "#missing", nil); !errors.As(err, &nf) || nf.Selector != "#missing" {
		t.Fatalf("click: %T: %v", err, err)
	}
	var ne *driver.ErrEditorNotFound
	if err := c.TypeInEditor(ctx, "#missing", "x"); !errors.As(err, &ne) || ne.Selector != "#missing" {
		t.Fatalf("type: %T: %v", err, err)
	}
	var tn *driver.ErrTerminalNotFound
	if _, err := c.GetTerminalBuffer(ctx, "#app"); !errors.As(err, &tn) || tn.Selector != "#app" {
		t.Fatalf("terminal: %T: %v", err, err)
	}
	var mm *driver.ErrActiveElementMismatch
	_, err := c.IsActiveElement(ctx, "#a")
	if !errors.As(err, &mm) || mm.Chain != "HTML > BODY > DIV#app > BUTTON#go" {
		t.Fatalf("active: %T: %v", err, err)
	}
}

func TestMethods_OneSidedOffset(t *testing.T) {
	f := newFixture(t, channelHTML)
	c := remoteClient(t, f)
	h := connectivity.ServeMethods(driver.Methods(f.d))
	ctx := context.Background()

	_, err := h(ctx, []byte(`{"method":"click","args":{"selector":"#go","xoffset":3}}`))
	var ia *driver.ErrInvalidArgument
	if !errors.As(err, &ia) || ia.Method != "click" {
		t.Fatalf("got %T: %v", err, err)
	}
	if n := len(f.input.Events()); n != 0 {
		t.Fatalf("%d events sent for a rejected click", n)
	}

	_, err = h(ctx, []byte(`{"method":"doubleClick","args":{"selector":"#go","xoffset":1,"yoffset":1}}`))
	if !errors.As(err, &ia) || ia.Method != "doubleClick" {
		t.Fatalf("got %T: %v", err, err)
	}

	_, err = h(ctx, []byte(`{"method":"setValue","args":{"text":"x"}}`))
	if !errors.As(err, &ia) || ia.Reason != "selector required" {
		t.Fatalf("got %T: %v", err, err)
	}

	// Through HTTP the argument error decodes back to its type.
	err = c.Click(ctx, "", nil)
	if !errors.As(err, &ia) {
		t.Fatalf("remote: %T: %v", err, err)
	}
}

func TestMethods_Table(t *testing.T) {
	m := driver.Methods(newFixture(t, channelHTML).d)
	for _, name := range []string{
		"click", "doubleClick", "setValue", "typeInEditor", "getTitle",
		"isActiveElement", "getElements", "getTerminalBuffer", "writeInTerminal", "openDevTools",
	} {
		if m[name] == nil {
			t.Errorf("method %s missing", name)
		}
	}
	if len(m) != 10 {
		t.Errorf("got %d methods", len(m))
	}
}

func mcpSession(t *testing.T, ops driver.Operations) *mcp.ClientSession {
	t.Helper()
	impl := &mcp.Implementation{Name: "driver-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)
	driver.RegisterMCP(srv, ops)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, s *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := s.CallTool(context.Background(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	tc, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent, got %T", name, res.Content[0])
	}
	return tc.Text, res.IsError
}

func TestMCP_Tools(t *testing.T) {
	f := newFixture(t, channelHTML)
	f.doc.MustQuery("#a").Focus()
	s := mcpSession(t, f.d)

	res, err := s.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Tools) != 10 {
		t.Fatalf("got %d tools", len(res.Tools))
	}

	text, isErr := callTool(t, s, "window_get_title", nil)
	if isErr || text != `{"title":"Remote"}` {
		t.Fatalf("title: %s", text)
	}
	text, isErr = callTool(t, s, "window_click", map[string]any{"selector": "#go", "xoffset": 2, "yoffset": 3})
	if isErr || text != `{"status":"ok"}` {
		t.Fatalf("click: %s", text)
	}
	wantPoint(t, f.input.Events(), 2, 3, 1)

	text, isErr = callTool(t, s, "window_is_active_element", map[string]any{"selector": "#a"})
	if isErr || text != `{"active":true}` {
		t.Fatalf("active: %s", text)
	}

	text, _ = callTool(t, s, "window_get_elements", map[string]any{"selector": "button"})
	var snaps []driver.ElementSnapshot
	if err := json.Unmarshal([]byte(text), &snaps); err != nil || len(snaps) != 1 || snaps[0].TagName != "BUTTON" {
		t.Fatalf("elements: %s", text)
	}
}

func TestMCP_ToolErrors(t *testing.T) {
	f := newFixture(t, channelHTML)
	s := mcpSession(t, f.d)

	text, isErr := callTool(t, s, "window_set_value", map[string]any{"selector": "#nope", "text": "x"})
	if !isErr || !strings.HasPrefix(text, "ElementNotFound: ") {
		t.Fatalf("got %v %q", isErr, text)
	}
	text, isErr = callTool(t, s, "window_click", map[string]any{"selector": "#go", "yoffset": 1})
	if !isErr || !strings.HasPrefix(text, "InvalidArgument: ") {
		t.Fatalf("got %v %q", isErr, text)
	}
	text, isErr = callTool(t, s, "window_write_in_terminal", map[string]any{"selector": "#app", "text": "x"})
	if !isErr || !strings.HasPrefix(text, "TerminalNotFound: ") {
		t.Fatalf("got %v %q", isErr, text)
	}
}
