// Package mcptools exposes calculator sessions as Model Context Protocol
// tools so that agents can drive the same keypad as HTTP clients.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"pocket-calc/internal/engine"
	"pocket-calc/internal/session"
)

const (
	serverName    = "pocket-calc"
	serverVersion = "0.1.0"
)

// Tools holds the state shared by the tool handlers.
type Tools struct {
	store  *session.Store
	logger *zap.Logger
}

// SessionResult is the structured payload returned by every tool.
type SessionResult struct {
	ID      string         `json:"id"`
	View    engine.View    `json:"view"`
	Ignored []string       `json:"ignored,omitempty"`
	History []engine.Entry `json:"history,omitempty"`
}

// NewServer builds an MCP server with all calculator tools registered.
func NewServer(store *session.Store, logger *zap.Logger) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	t := &Tools{store: store, logger: logger}
	t.Register(s)
	return s
}

// Handler serves the MCP streamable HTTP transport.
func Handler(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s)
}

// Register wires every calculator tool into s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool("calculator_open",
		mcp.WithDescription("Open a new pocket calculator session and return its id and display"),
	), t.open)

	s.AddTool(mcp.NewTool("calculator_press",
		mcp.WithDescription("Press keys on a calculator session. Keys: 0-9 . + - × ÷ = C ± %; ASCII * / AC +/- are accepted"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by calculator_open"),
		),
		mcp.WithString("keys",
			mcp.Required(),
			mcp.Description("Keys separated by spaces, e.g. '12 + 7 =' or '12+7='"),
		),
	), t.press)

	s.AddTool(mcp.NewTool("calculator_view",
		mcp.WithDescription("Return the current display and completed calculations of a session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by calculator_open"),
		),
	), t.view)

	s.AddTool(mcp.NewTool("calculator_close",
		mcp.WithDescription("Close a calculator session"),
		mcp.WithString("session_id",
			mcp.Required(),
			mcp.Description("Session id returned by calculator_open"),
		),
	), t.closeSession)
}

func (t *Tools) open(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := t.store.Create()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error opening session: %v", err)), nil
	}

	t.logger.Info("mcp session opened", zap.String("session_id", sess.ID))
	return jsonResult(SessionResult{ID: sess.ID, View: sess.View()})
}

func (t *Tools) press(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	sess, errResult := t.session(args)
	if errResult != nil {
		return errResult, nil
	}

	raw, ok := args["keys"].(string)
	if !ok || strings.TrimSpace(raw) == "" {
		return mcp.NewToolResultError("keys is required"), nil
	}

	view, ignored := sess.Press(SplitKeys(raw)...)

	t.logger.Info("mcp keys applied",
		zap.String("session_id", sess.ID),
		zap.String("keys", raw),
		zap.String("result", view.Result),
	)
	return jsonResult(SessionResult{ID: sess.ID, View: view, Ignored: ignored})
}

func (t *Tools) view(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, errResult := t.session(request.GetArguments())
	if errResult != nil {
		return errResult, nil
	}

	return jsonResult(SessionResult{ID: sess.ID, View: sess.View(), History: sess.History()})
}

func (t *Tools) closeSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, _ := request.GetArguments()["session_id"].(string)
	if id == "" {
		return mcp.NewToolResultError("session_id is required"), nil
	}

	if err := t.store.Delete(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error closing session %s: %v", id, err)), nil
	}

	t.logger.Info("mcp session closed", zap.String("session_id", id))
	return mcp.NewToolResultText(fmt.Sprintf("Session %s closed", id)), nil
}

func (t *Tools) session(args map[string]any) (*session.Session, *mcp.CallToolResult) {
	id, ok := args["session_id"].(string)
	if !ok || id == "" {
		return nil, mcp.NewToolResultError("session_id is required")
	}

	sess, err := t.store.Get(id)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("Error loading session %s: %v", id, err))
	}
	return sess, nil
}

// SplitKeys turns free-form key input into keypad labels. Space-separated
// fields that are labels on their own are kept whole, anything else is split
// into single characters.
func SplitKeys(raw string) []string {
	var keys []string

	for _, field := range strings.Fields(raw) {
		if _, ok := engine.ParseToken(field); ok {
			keys = append(keys, field)
			continue
		}

		for len(field) > 0 {
			r, size := utf8.DecodeRuneInString(field)
			keys = append(keys, string(r))
			field = field[size:]
		}
	}

	return keys
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
