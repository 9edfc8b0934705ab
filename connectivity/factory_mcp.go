package connectivity

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/windriver/mcpquic"
)

// mcpConfig is the per-route config JSON for MCP-over-QUIC routes.
type mcpConfig struct {
	ToolName    string `json:"tool_name"`
	InsecureTLS bool   `json:"insecure_tls"`
}

// MCPFactory builds Handlers that invoke one MCP tool over QUIC. The payload
// must be a JSON object; it becomes the tool arguments. The tool's text
// content is returned as the response. Tool errors of the form
// "Code: message" come back as *CallError.
//
// The endpoint is a QUIC address and the config names the tool:
//
//	{"tool_name": "windowDriverRegistry", "insecure_tls": true}
//
// A service exposed with RegisterMCPService pairs with this factory.
func MCPFactory() TransportFactory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		var cfg mcpConfig
		if len(config) > 0 {
			if err := json.Unmarshal(config, &cfg); err != nil {
				return nil, nil, fmt.Errorf("connectivity/mcp: parse config: %w", err)
			}
		}
		if cfg.ToolName == "" {
			return nil, nil, fmt.Errorf("connectivity/mcp: tool_name required in config")
		}

		var tlsCfg *tls.Config
		if cfg.InsecureTLS {
			tlsCfg = mcpquic.ClientTLSConfig(true)
		}
		client := mcpquic.NewClient(endpoint, tlsCfg)

		// Connect eagerly so a bad route fails during Reload.
		if err := client.Connect(context.Background()); err != nil {
			return nil, nil, fmt.Errorf("connectivity/mcp: connect to %s: %w", endpoint, err)
		}

		handler := func(ctx context.Context, payload []byte) ([]byte, error) {
			var args map[string]any
			if len(payload) > 0 {
				if err := json.Unmarshal(payload, &args); err != nil {
					return nil, fmt.Errorf("connectivity/mcp: unmarshal args: %w", err)
				}
			}
			result, err := client.CallTool(ctx, cfg.ToolName, args)
			if err != nil {
				return nil, fmt.Errorf("connectivity/mcp: call %s: %w", cfg.ToolName, err)
			}
			text := toolText(result)
			if result.IsError {
				return nil, parseToolError(text)
			}
			return []byte(text), nil
		}

		return handler, func() { client.Close() }, nil
	}
}

func toolText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// parseToolError reverses kit.RegisterMCPTool's "Code: message" rendering.
// Codes are CamelCase identifiers; lowercase "pkg: ..." prefixes are plain
// error text.
func parseToolError(text string) error {
	code, msg, ok := strings.Cut(text, ": ")
	if ok && isCode(code) {
		return &CallError{Code: code, Message: msg}
	}
	return fmt.Errorf("connectivity/mcp: tool error: %s", text)
}

func isCode(s string) bool {
	for i, r := range s {
		if i == 0 && !unicode.IsUpper(r) {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
