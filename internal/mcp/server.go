package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/gesture-agent/internal/note"
	"github.com/danielpatrickdp/gesture-agent/internal/session"
	"github.com/danielpatrickdp/gesture-agent/internal/store"
)

// Controller is the part of a live session the tools drive.
type Controller interface {
	Status() session.Status
	SetHotness(h float64)
	Notes(source note.Source) []note.Note
}

// PhraseLog lists persisted phrase decisions.
type PhraseLog interface {
	ListPhraseLog(sessionID string, limit int) ([]store.PhraseRow, error)
}

// Server exposes a session as MCP tools.
type Server struct {
	ctrl      Controller
	phrases   PhraseLog
	mcpServer *server.MCPServer
	logger    *zap.Logger
}

// NewServer registers the tools. phrases may be nil when nothing is persisted.
func NewServer(ctrl Controller, phrases PhraseLog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{ctrl: ctrl, phrases: phrases, logger: logger}
	s.mcpServer = server.NewMCPServer(
		"Gesture Agent",
		"1.0.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_status",
		Description: "Current phrase, hotness, mutation probability and note counts of the live session",
		InputSchema: mcp.ToolInputSchema{Type: "object", Properties: map[string]any{}},
	}, s.handleGetStatus)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "set_hotness",
		Description: "Override the agent's hotness until the next phrase end. 0 imitates, 1 mutates freely.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"hotness": map[string]any{
					"type":        "number",
					"description": "New hotness in [0,1]; values outside are clamped",
				},
			},
			Required: []string{"hotness"},
		},
	}, s.handleSetHotness)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_notes",
		Description: "List recorded notes, optionally only human or only ai",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"source": map[string]any{
					"type":        "string",
					"enum":        []string{"human", "ai"},
					"description": "Restrict to one source. Omit for both.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Return at most this many of the most recent notes (default 50)",
				},
			},
		},
	}, s.handleListNotes)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_phrases",
		Description: "List the persisted phrase-end decisions of the session, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum rows (default 20)",
				},
			},
		},
	}, s.handleListPhrases)
}

// #region handlers

// parseParams converts MCP request arguments to a struct.
func parseParams(args any, target any) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.ctrl.Status())
}

func (s *Server) handleSetHotness(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Hotness *float64 `json:"hotness"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if params.Hotness == nil {
		return mcp.NewToolResultError("hotness is required"), nil
	}
	s.ctrl.SetHotness(*params.Hotness)
	st := s.ctrl.Status()
	s.logger.Info("hotness set over mcp", zap.Float64("hotness", st.Hotness))
	return jsonResult(map[string]any{
		"hotness":              st.Hotness,
		"mutation_probability": st.MutationProbability,
	})
}

func (s *Server) handleListNotes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params struct {
		Source string `json:"source"`
		Limit  int    `json:"limit"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	src := note.Source(params.Source)
	if src != "" && !src.Valid() {
		return mcp.NewToolResultError(fmt.Sprintf("unknown source %q", params.Source)), nil
	}
	if params.Limit <= 0 {
		params.Limit = 50
	}
	notes := s.ctrl.Notes(src)
	if len(notes) > params.Limit {
		notes = notes[len(notes)-params.Limit:]
	}
	return jsonResult(map[string]any{"count": len(notes), "notes": notes})
}

func (s *Server) handleListPhrases(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.phrases == nil {
		return mcp.NewToolResultError("no store attached"), nil
	}
	var params struct {
		Limit int `json:"limit"`
	}
	if err := parseParams(request.Params.Arguments, &params); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if params.Limit <= 0 {
		params.Limit = 20
	}
	rows, err := s.phrases.ListPhraseLog(s.ctrl.Status().SessionID, params.Limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list phrases: %v", err)), nil
	}
	return jsonResult(map[string]any{"count": len(rows), "phrases": rows})
}

// #endregion handlers

// Serve runs the tools over stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// GetMCPServer returns the underlying server for other transports (SSE).
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
