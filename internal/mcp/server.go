// Package mcp exposes the workspace as MCP tools over stdio.
package mcp

import (
	"log/slog"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/fastnote/internal/config"
	"github.com/hpungsan/fastnote/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

var toolRegistry = map[string]toolEntry{
	"note_list": {
		def: mcp.NewTool("note_list",
			mcp.WithDescription("List notes newest first. The optional query filters the cached list: #tag tokens must all match, OR(#a, #b) needs any one, other text matches titles."),
			mcp.WithString("query", mcp.Description("Filter, e.g. \"#work OR(#q1, #q2) meeting\"")),
			mcp.WithBoolean("refresh", mcp.Description("Reload from the note store before filtering")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"note_search": {
		def: mcp.NewTool("note_search",
			mcp.WithDescription("Search notes on the note store and make the result the current list."),
			mcp.WithString("term", mcp.Required(), mcp.Description("Search term")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSearch },
	},
	"note_tags": {
		def: mcp.NewTool("note_tags",
			mcp.WithDescription("List the tag vocabulary with display colours, or complete a partial #tag when input is given."),
			mcp.WithString("input", mcp.Description("Search input whose last token is a #tag prefix")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTags },
	},
	"note_show": {
		def: mcp.NewTool("note_show",
			mcp.WithDescription("Get one note with its content."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
			mcp.WithBoolean("html", mcp.Description("Include an HTML preview (markdown rendered)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleShow },
	},
	"note_create": {
		def: mcp.NewTool("note_create",
			mcp.WithDescription("Create a note. Scene content is a JSON document with elements and appState."),
			mcp.WithString("type", mcp.Required(), mcp.Enum("text", "scene"), mcp.Description("Note type")),
			mcp.WithString("title", mcp.Description("Title (default \"New Note\")")),
			mcp.WithString("content", mcp.Description("Initial content")),
			mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Tags")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCreate },
	},
	"note_update": {
		def: mcp.NewTool("note_update",
			mcp.WithDescription("Edit a note's title, content, or tags and save. Omitted fields are unchanged; an empty tags array clears them."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("content", mcp.Description("New content")),
			mcp.WithArray("tags", mcp.WithStringItems(), mcp.Description("Replacement tags")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleUpdate },
	},
	"note_delete": {
		def: mcp.NewTool("note_delete",
			mcp.WithDescription("Delete a note."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"note_export": {
		def: mcp.NewTool("note_export",
			mcp.WithDescription("Export every note to a .json file in the exports directory."),
			mcp.WithString("path", mcp.Description("Target file (default: notes-<user>-<timestamp>.json)")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleExport },
	},
	"note_import": {
		def: mcp.NewTool("note_import",
			mcp.WithDescription("Import notes from a .json file in the exports directory. Any invalid record rejects the whole file."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Source file")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImport },
	},
	"note_notifications": {
		def: mcp.NewTool("note_notifications",
			mcp.WithDescription("List recent notifications, such as saves that did not reach the note store."),
			mcp.WithBoolean("clear", mcp.Description("Clear the list after reading")),
		),
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNotifications },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names that are not known tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server over ws. Tools listed in
// cfg.DisabledTools are not registered.
func NewServer(ws *ops.Workspace, cfg *config.Config, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer(
		"fastnote",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(ws, logger)

	disabled := make(map[string]bool)
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	for _, name := range ValidateDisabledTools(cfg.DisabledTools) {
		logger.Warn("unknown tool in disabled_tools", "tool", name)
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves ws over stdio until the client disconnects.
func Run(ws *ops.Workspace, cfg *config.Config, version string, logger *slog.Logger) error {
	return server.ServeStdio(NewServer(ws, cfg, version, logger))
}
