package registry

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/windriver/kit"
)

// RegisterMCP registers the registry tools on an MCP server.
func (r *Registry) RegisterMCP(srv *mcp.Server) {
	r.registerListWindowsTool(srv)
	r.registerSetVerboseTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (r *Registry) registerListWindowsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "registry_list_windows",
		Description: "List the windows known to the driver registry with their state and counters.",
		InputSchema: inputSchema(map[string]any{
			"state": map[string]any{"type": "string", "enum": []any{StatePending, StateRegistered, StateReload}, "description": "Filter by state"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		ws, err := r.Windows(ctx, req.(*listArgs).State)
		if err != nil {
			return nil, err
		}
		if ws == nil {
			ws = []*Window{}
		}
		return ws, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var a listArgs
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &a); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &a}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (r *Registry) registerSetVerboseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "registry_set_verbose",
		Description: "Set whether a window's driver runs in verbose mode (devtools open) from its next registration.",
		InputSchema: inputSchema(map[string]any{
			"windowId": map[string]any{"type": "integer", "description": "Window id"},
			"verbose":  map[string]any{"type": "boolean"},
		}, []string{"windowId", "verbose"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		a := req.(*verboseArgs)
		if err := r.SetVerbose(ctx, a.WindowID, a.Verbose); err != nil {
			return nil, err
		}
		return r.Window(ctx, a.WindowID)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var a verboseArgs
		if err := json.Unmarshal(req.Params.Arguments, &a); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &a}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
