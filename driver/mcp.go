package driver

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/windriver/kit"
)

// RegisterMCP exposes ops as MCP tools. Failures are tool errors of the
// form "Code: message".
func RegisterMCP(srv *mcp.Server, ops Operations) {
	selector := map[string]any{"type": "string", "description": "CSS selector of the target element"}
	text := map[string]any{"type": "string", "description": "Text to write"}

	register(srv, "window_click",
		"Click an element once. Without offsets the center of its client box is clicked; offsets are relative to its top-left corner and must be given together.",
		inputSchema(map[string]any{
			"selector": selector,
			"xoffset":  map[string]any{"type": "number"},
			"yoffset":  map[string]any{"type": "number"},
		}, []string{"selector"}),
		func(ctx context.Context, a *clickArgs) (any, error) {
			off, err := a.offset("window_click")
			if err != nil {
				return nil, err
			}
			return done(ops.Click(ctx, a.Selector, off))
		})

	register(srv, "window_double_click", "Double-click the center of an element.",
		inputSchema(map[string]any{"selector": selector}, []string{"selector"}),
		func(ctx context.Context, a *selectorArgs) (any, error) {
			return done(ops.DoubleClick(ctx, a.Selector))
		})

	register(srv, "window_set_value", "Replace the value of an input and fire an input event.",
		inputSchema(map[string]any{"selector": selector, "text": text}, []string{"selector", "text"}),
		func(ctx context.Context, a *textArgs) (any, error) {
			return done(ops.SetValue(ctx, a.Selector, a.Text))
		})

	register(srv, "window_type_in_editor", "Insert text at the caret of an editor and fire an input event.",
		inputSchema(map[string]any{"selector": selector, "text": text}, []string{"selector", "text"}),
		func(ctx context.Context, a *textArgs) (any, error) {
			return done(ops.TypeInEditor(ctx, a.Selector, a.Text))
		})

	register(srv, "window_get_title", "Return the document title.",
		inputSchema(map[string]any{}, nil),
		func(ctx context.Context, _ *struct{}) (any, error) {
			title, err := ops.GetTitle(ctx)
			if err != nil {
				return nil, err
			}
			return map[string]string{"title": title}, nil
		})

	register(srv, "window_is_active_element", "Check that an element holds focus. Fails with the focused element's ancestry otherwise.",
		inputSchema(map[string]any{"selector": selector}, []string{"selector"}),
		func(ctx context.Context, a *selectorArgs) (any, error) {
			active, err := ops.IsActiveElement(ctx, a.Selector)
			if err != nil {
				return nil, err
			}
			return map[string]bool{"active": active}, nil
		})

	register(srv, "window_get_elements", "Snapshot every element matching a selector.",
		inputSchema(map[string]any{
			"selector":  selector,
			"recursive": map[string]any{"type": "boolean", "description": "Include descendants"},
		}, []string{"selector"}),
		func(ctx context.Context, a *elementsArgs) (any, error) {
			return ops.GetElements(ctx, a.Selector, a.Recursive)
		})

	register(srv, "window_get_terminal_buffer", "Return the buffered lines of the terminal attached to an element.",
		inputSchema(map[string]any{"selector": selector}, []string{"selector"}),
		func(ctx context.Context, a *selectorArgs) (any, error) {
			return ops.GetTerminalBuffer(ctx, a.Selector)
		})

	register(srv, "window_write_in_terminal", "Type text into the terminal attached to an element.",
		inputSchema(map[string]any{"selector": selector, "text": text}, []string{"selector", "text"}),
		func(ctx context.Context, a *textArgs) (any, error) {
			return done(ops.WriteInTerminal(ctx, a.Selector, a.Text))
		})

	register(srv, "window_open_devtools", "Open the window's developer tools in a detached panel.",
		inputSchema(map[string]any{}, nil),
		func(ctx context.Context, _ *struct{}) (any, error) {
			return done(ops.OpenDevTools(ctx))
		})
}

// inputSchema builds a JSON Schema object with type "object".
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

func done(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]string{"status": "ok"}, nil
}

// register binds a typed handler to a tool. Arguments are decoded into a
// fresh *T per call.
func register[T any](srv *mcp.Server, name, description string, schema map[string]any, fn func(context.Context, *T) (any, error)) {
	tool := &mcp.Tool{Name: name, Description: description, InputSchema: schema}
	endpoint := func(ctx context.Context, req any) (any, error) {
		return fn(ctx, req.(*T))
	}
	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r T
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
