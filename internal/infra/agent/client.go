package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ToolCaller is the slice of the MCP client the workflow needs.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error)
}

// Client drives the tool server over an MCP session.
type Client struct {
	session *mcp.ClientSession
	logger  *zap.Logger
}

// Connect spawns the tool server binary and performs the MCP
// handshake over its stdio.
func Connect(ctx context.Context, serverCmd string, serverArgs []string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cmd := exec.CommandContext(ctx, serverCmd, serverArgs...)
	transport := &mcp.CommandTransport{Command: cmd}

	client := mcp.NewClient(&mcp.Implementation{Name: "seisagent", Version: "dev"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect tool server: %w", err)
	}
	logger.Info("tool server connected", zap.String("command", serverCmd))
	return &Client{session: session, logger: logger.Named("mcp")}, nil
}

// NewSessionClient wraps an existing session, used by tests with
// in-memory transports.
func NewSessionClient(session *mcp.ClientSession, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{session: session, logger: logger.Named("mcp")}
}

// CallTool invokes one tool and decodes its JSON payload. Transport
// errors come back as errors; tool-level rejections come back as
// payloads with ok=false for the workflow to inspect.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", name, err)
	}

	for _, content := range result.Content {
		text, ok := content.(*mcp.TextContent)
		if !ok {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(text.Text), &payload); err != nil {
			return nil, fmt.Errorf("call %s: unparseable payload: %w", name, err)
		}
		return payload, nil
	}
	return nil, fmt.Errorf("call %s: no text content in result", name)
}

// Close tears down the session.
func (c *Client) Close() error {
	return c.session.Close()
}

// payloadOK reports whether a tool payload succeeded.
func payloadOK(payload map[string]any) bool {
	ok, _ := payload["ok"].(bool)
	return ok
}

// payloadError extracts the error code and message from a rejection.
func payloadError(payload map[string]any) string {
	code, _ := payload["error"].(string)
	msg, _ := payload["message"].(string)
	if code == "" {
		return msg
	}
	if msg == "" {
		return code
	}
	return code + ": " + msg
}
