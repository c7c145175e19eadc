package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nmarks/snapvault/internal/config"
	"github.com/nmarks/snapvault/internal/errors"
	"github.com/nmarks/snapvault/internal/ops"
	"github.com/nmarks/snapvault/internal/snapshot"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config) *Handlers {
	return &Handlers{db: db, cfg: cfg}
}

// Request types for each tool

// SaveRequest represents the arguments for memory_save.
type SaveRequest struct {
	Summary           string         `json:"summary"`
	Context           string         `json:"context,omitempty"`
	StructuredContext map[string]any `json:"structured_context,omitempty"`
	SessionID         *string        `json:"session_id,omitempty"`
	ProjectPath       *string        `json:"project_path,omitempty"`
	FilesTouched      []string       `json:"files_touched,omitempty"`
	Decisions         []string       `json:"decisions,omitempty"`
	NextSteps         *string        `json:"next_steps,omitempty"`
	Importance        string         `json:"importance,omitempty"`
}

// ListRequest represents the arguments for memory_list.
type ListRequest struct {
	SessionID *string `json:"session_id,omitempty"`
	Limit     int     `json:"limit,omitempty"`
}

// RestoreRequest represents the arguments for memory_restore.
type RestoreRequest struct {
	SessionID *string `json:"session_id,omitempty"`
	MaxTokens int     `json:"max_tokens,omitempty"`
}

// InjectRequest represents the arguments for memory_inject.
type InjectRequest struct {
	SessionID       *string `json:"session_id,omitempty"`
	Topic           *string `json:"topic,omitempty"`
	IncludeCritical *bool   `json:"include_critical,omitempty"`
	MaxTokens       int     `json:"max_tokens,omitempty"`
}

// SearchRequest represents the arguments for memory_search.
type SearchRequest struct {
	Query           string  `json:"query"`
	SessionID       *string `json:"session_id,omitempty"`
	ImportanceFloor *string `json:"importance_floor,omitempty"`
	MaxResults      int     `json:"max_results,omitempty"`
	Strategy        string  `json:"strategy,omitempty"`
}

// StatsRequest represents the arguments for memory_stats.
type StatsRequest struct {
	SessionID string `json:"session_id"`
}

// CleanupRequest represents the arguments for memory_cleanup.
type CleanupRequest struct {
	SessionID  *string `json:"session_id,omitempty"`
	BeforeID   *int64  `json:"before_id,omitempty"`
	KeepRecent *int    `json:"keep_recent,omitempty"`
}

// ClearRequest represents the arguments for memory_clear.
type ClearRequest struct {
	SessionID string `json:"session_id"`
}

// SessionsRequest represents the arguments for memory_sessions.
type SessionsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// Handler implementations

// HandleSave handles the memory_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Save(ctx, h.db, h.cfg, ops.SaveInput{
		SessionID:    input.SessionID,
		ProjectPath:  input.ProjectPath,
		Summary:      input.Summary,
		Context:      toContext(input.Context, input.StructuredContext),
		FilesTouched: input.FilesTouched,
		Decisions:    input.Decisions,
		NextSteps:    input.NextSteps,
		Importance:   input.Importance,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the memory_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.List(h.db, ops.ListInput{
		SessionID: input.SessionID,
		Limit:     input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the memory_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AssembleContext(h.db, h.cfg, ops.AssembleInput{
		SessionID: input.SessionID,
		MaxTokens: input.MaxTokens,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleInject handles the memory_inject tool call.
func (h *Handlers) HandleInject(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InjectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AssembleForInjection(h.db, h.cfg, ops.InjectInput{
		SessionID:       input.SessionID,
		Topic:           input.Topic,
		IncludeCritical: input.IncludeCritical,
		MaxTokens:       input.MaxTokens,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSearch handles the memory_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SearchAbout(h.db, ops.SearchInput{
		Query:           input.Query,
		SessionID:       input.SessionID,
		ImportanceFloor: input.ImportanceFloor,
		MaxResults:      input.MaxResults,
		Strategy:        ops.ScoreStrategy(input.Strategy),
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleStats handles the memory_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[StatsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Stats(h.db, ops.StatsInput{SessionID: input.SessionID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCleanup handles the memory_cleanup tool call.
func (h *Handlers) HandleCleanup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CleanupRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Cleanup(h.db, ops.CleanupInput{
		SessionID:  input.SessionID,
		BeforeID:   input.BeforeID,
		KeepRecent: input.KeepRecent,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the memory_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Clear(ctx, h.db, ops.ClearInput{SessionID: input.SessionID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSessions handles the memory_sessions tool call.
func (h *Handlers) HandleSessions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SessionsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListSessions(h.db, ops.ListSessionsInput{Limit: input.Limit})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleHealth handles the memory_health tool call.
func (h *Handlers) HandleHealth(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.HealthCheck(h.db)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// toContext builds the context union from the save arguments. A
// structured payload takes precedence; its unknown keys become free-form
// extra sections.
func toContext(freeText string, structured map[string]any) snapshot.Context {
	if len(structured) == 0 {
		return snapshot.Context{FreeText: freeText}
	}

	sc := &snapshot.StructuredContext{}
	extra := make(map[string]string)
	for key, value := range structured {
		switch key {
		case "description":
			sc.Description = toString(value)
		case "files":
			sc.Files = toStringList(value)
		case "decisions":
			sc.Decisions = toStringList(value)
		case "blockers":
			sc.Blockers = toStringList(value)
		case "errors_fixed":
			sc.ErrorsFixed = toStringList(value)
		case "tests":
			sc.Tests = toString(value)
		default:
			if s := toString(value); s != "" {
				extra[key] = s
			}
		}
	}
	if len(extra) > 0 {
		sc.Extra = extra
	}
	return snapshot.Context{Structured: sc}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func toStringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	list := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			list = append(list, s)
		}
	}
	return list
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if vErr, ok := err.(*errors.VaultError); ok {
		errorObj := map[string]any{
			"code":    vErr.Code,
			"message": vErr.Message,
			"status":  vErr.Status,
		}
		if vErr.Code != errors.ErrInternal && vErr.Details != nil {
			errorObj["details"] = vErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
