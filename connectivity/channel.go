package connectivity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/windriver/kit"
)

// Envelope is the payload of a method-style service: one named method and
// its JSON arguments.
type Envelope struct {
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// MethodHandler serves one method of a service. The result is JSON encoded;
// a nil result yields an empty response.
type MethodHandler func(ctx context.Context, args json.RawMessage) (any, error)

// Methods maps method names to handlers.
type Methods map[string]MethodHandler

// Caller is satisfied by *Router.
type Caller interface {
	Call(ctx context.Context, service string, payload []byte) ([]byte, error)
}

// ServeMethods turns a method table into a Handler that decodes an
// Envelope and dispatches on its method. Handler errors are returned
// unchanged so typed errors stay typed on in-process calls.
func ServeMethods(methods Methods) Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var env Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("connectivity: decode envelope: %w", err)
		}
		h, ok := methods[env.Method]
		if !ok {
			return nil, &ErrUnknownMethod{Method: env.Method}
		}
		res, err := h(ctx, env.Args)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, nil
		}
		out, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("connectivity: encode %s result: %w", env.Method, err)
		}
		return out, nil
	}
}

// CallMethod sends method with args to service and decodes the response
// into out. args and out may be nil.
func CallMethod(ctx context.Context, c Caller, service, method string, args, out any) error {
	env := Envelope{Method: method}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("connectivity: encode %s args: %w", method, err)
		}
		env.Args = raw
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("connectivity: encode envelope: %w", err)
	}
	resp, err := c.Call(ctx, service, payload)
	if err != nil {
		return err
	}
	if out == nil || len(resp) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("connectivity: decode %s result: %w", method, err)
	}
	return nil
}

// RegisterMCPService exposes a router service as one MCP tool named after
// the service. The tool arguments are the service payload, so an
// MCPFactory route with tool_name set to the service reaches it.
func RegisterMCPService(srv *mcp.Server, c Caller, service, description string) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        service,
		Description: description,
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"method": map[string]any{"type": "string"},
				"args":   map[string]any{"type": "object"},
			},
			"required": []string{"method"},
		},
	}, func(ctx context.Context, req any) (any, error) {
		resp, err := c.Call(ctx, service, req.(json.RawMessage))
		if err != nil {
			return nil, err
		}
		return json.RawMessage(resp), nil
	}, func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: req.Params.Arguments}, nil
	})
}
