package kit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestChain_Order(t *testing.T) {
	var order []string

	mw := func(name string) Middleware {
		return func(next Endpoint) Endpoint {
			return func(ctx context.Context, req any) (any, error) {
				order = append(order, name+"_before")
				resp, err := next(ctx, req)
				order = append(order, name+"_after")
				return resp, err
			}
		}
	}

	base := func(_ context.Context, _ any) (any, error) {
		order = append(order, "endpoint")
		return "ok", nil
	}

	resp, err := Chain(mw("a"), mw("b"))(base)(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp != "ok" {
		t.Fatalf("response: got %v", resp)
	}

	expected := []string{"a_before", "b_before", "endpoint", "b_after", "a_after"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Fatalf("order: got %v, want %v", order, expected)
	}
}

func TestContext_Transport(t *testing.T) {
	if v := GetTransport(context.Background()); v != "local" {
		t.Fatalf("default transport: got %q, want local", v)
	}
	ctx := WithTransport(context.Background(), "mcp_quic")
	if v := GetTransport(ctx); v != "mcp_quic" {
		t.Fatalf("transport: got %q", v)
	}
}

func TestContext_Values(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req_abc")
	ctx = WithSessionID(ctx, "quic_1")
	ctx = WithWindowID(ctx, 7)
	if v := GetRequestID(ctx); v != "req_abc" {
		t.Fatalf("request_id: got %q", v)
	}
	if v := GetSessionID(ctx); v != "quic_1" {
		t.Fatalf("session_id: got %q", v)
	}
	if v, ok := GetWindowID(ctx); !ok || v != 7 {
		t.Fatalf("window_id: got %d, %v", v, ok)
	}
	if _, ok := GetWindowID(context.Background()); ok {
		t.Fatal("window_id should be absent")
	}
}

type codedErr struct{}

func (codedErr) Error() string { return "boom" }
func (codedErr) Code() string  { return "Boom" }

func TestRegisterMCPTool_CodedError(t *testing.T) {
	impl := &mcp.Implementation{Name: "kit-test", Version: "0.1.0"}
	srv := mcp.NewServer(impl, nil)

	type req struct {
		Fail bool `json:"fail"`
	}
	RegisterMCPTool(srv, &mcp.Tool{
		Name:        "probe",
		InputSchema: map[string]any{"type": "object"},
	}, func(ctx context.Context, r any) (any, error) {
		if r.(*req).Fail {
			return nil, codedErr{}
		}
		return map[string]string{"transport": GetTransport(ctx)}, nil
	}, func(cr *mcp.CallToolRequest) (*MCPDecodeResult, error) {
		var r req
		if err := json.Unmarshal(cr.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &MCPDecodeResult{Request: &r}, nil
	})

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	session, err := mcp.NewClient(impl, nil).Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer session.Close()

	ok, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "probe", Arguments: map[string]any{}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if ok.IsError {
		t.Fatalf("unexpected tool error: %+v", ok.Content)
	}
	text := ok.Content[0].(*mcp.TextContent).Text
	if !strings.Contains(text, `"transport":"mcp"`) {
		t.Fatalf("got %s", text)
	}

	bad, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "probe", Arguments: map[string]any{"fail": true}})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !bad.IsError {
		t.Fatal("expected tool error")
	}
	msg := bad.Content[0].(*mcp.TextContent).Text
	if !strings.HasPrefix(msg, "Boom: ") {
		t.Fatalf("error text = %q, want Boom: prefix", msg)
	}
}
