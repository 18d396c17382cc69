package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	ws     *ops.Workspace
	logger *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ws *ops.Workspace, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{ws: ws, logger: logger}
}

// ListRequest represents the arguments for note_list.
type ListRequest struct {
	Query   string `json:"query,omitempty"`
	Refresh bool   `json:"refresh,omitempty"`
}

// SearchRequest represents the arguments for note_search.
type SearchRequest struct {
	Term string `json:"term"`
}

// TagsRequest represents the arguments for note_tags.
type TagsRequest struct {
	Input *string `json:"input,omitempty"`
}

// ShowRequest represents the arguments for note_show.
type ShowRequest struct {
	ID   string `json:"id"`
	HTML bool   `json:"html,omitempty"`
}

// CreateRequest represents the arguments for note_create.
type CreateRequest struct {
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Content string   `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// UpdateRequest represents the arguments for note_update.
type UpdateRequest struct {
	ID      string    `json:"id"`
	Title   *string   `json:"title,omitempty"`
	Content *string   `json:"content,omitempty"`
	Tags    *[]string `json:"tags,omitempty"`
}

// DeleteRequest represents the arguments for note_delete.
type DeleteRequest struct {
	ID string `json:"id"`
}

// ExportRequest represents the arguments for note_export.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for note_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// NotificationsRequest represents the arguments for note_notifications.
type NotificationsRequest struct {
	Clear bool `json:"clear,omitempty"`
}

// SuggestOutput is the note_tags result when input is given.
type SuggestOutput struct {
	Suggestions []ops.TagView `json:"suggestions"`
}

// NotificationsOutput is the note_notifications result.
type NotificationsOutput struct {
	Notifications []ops.Notification `json:"notifications"`
	Count         int                `json:"count"`
}

// HandleList handles the note_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ws.List(ctx, ops.ListInput{Query: input.Query, Refresh: input.Refresh})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSearch handles the note_search tool call.
func (h *Handlers) HandleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ws.Search(ctx, input.Term)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleTags handles the note_tags tool call.
func (h *Handlers) HandleTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TagsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if input.Input != nil {
		return successResult(SuggestOutput{Suggestions: ops.TagViews(h.ws.Suggest(*input.Input))})
	}

	result, err := h.ws.Tags(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleShow handles the note_show tool call.
func (h *Handlers) HandleShow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ShowRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	result, err := h.ws.Show(ctx, note.ID(input.ID), input.HTML)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCreate handles the note_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	typ, err := note.ParseType(input.Type)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ws.Create(ctx, ops.CreateInput{
		Type:    typ,
		Title:   input.Title,
		Content: input.Content,
		Tags:    note.JoinTags(input.Tags),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the note_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	in := ops.UpdateInput{ID: note.ID(input.ID), Title: input.Title, Content: input.Content}
	if input.Tags != nil {
		in.Tags = append([]string{}, *input.Tags...)
	}

	result, err := h.ws.Update(ctx, in)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the note_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	result, err := h.ws.Delete(ctx, note.ID(input.ID))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleExport handles the note_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ws.ExportFile(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleImport handles the note_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.ws.ImportFile(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNotifications handles the note_notifications tool call.
func (h *Handlers) HandleNotifications(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NotificationsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	n := h.ws.Notifications()
	list := n.List()
	if input.Clear {
		n.Clear()
	}
	return successResult(NotificationsOutput{Notifications: list, Count: len(list)})
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var nErr *errors.NoteError
	if stderrors.As(err, &nErr) {
		errorObj := map[string]any{
			"code":    nErr.Code,
			"message": nErr.Message,
			"status":  nErr.Status,
		}
		// Internal details can carry paths or driver messages.
		if nErr.Code != errors.ErrInternal && nErr.Details != nil {
			errorObj["details"] = nErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
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
