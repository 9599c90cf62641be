// ABOUTME: MCP tool implementations for journal entries and their insights.
// ABOUTME: Registers list, search, read, create, save, delete, favorite, insight, and analyze tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/2389-research/freewrite/internal/insights"
	"github.com/2389-research/freewrite/internal/journal"
	"github.com/2389-research/freewrite/internal/models"
	"github.com/2389-research/freewrite/internal/storage"
)

const entryTimeLayout = "2006-01-02 15:04:05"

func (s *Server) registerEntryTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_entries",
		Description: "List freewrite journal entries, newest first, with a short preview of each.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "number", "description": "Maximum number of entries to return (default: 20)"},
				"category": {"type": "string", "enum": ["Vent", "Explore", "Plan"], "description": "Only list entries of this category"},
				"favorites": {"type": "boolean", "description": "Only list favorited entries"}
			}
		}`),
	}, s.handleListEntries)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "search_entries",
		Description: "Find entries whose text contains a phrase, ignoring case.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Phrase to look for"},
				"limit": {"type": "number", "description": "Maximum number of results (default: 10)"}
			},
			"required": ["query"]
		}`),
	}, s.handleSearchEntries)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_entry",
		Description: "Read the full text of an entry by id (or unique id prefix).",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleReadEntry)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "create_entry",
		Description: "Start a new freewrite entry. Without text, the entry is seeded with a category prompt.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"category": {"type": "string", "enum": ["Vent", "Explore", "Plan"], "description": "Kind of session (default: Explore)"},
				"mood": {"type": "string", "description": "Mood name used for the seed emoji, e.g. Happy, Tired"},
				"text": {"type": "string", "description": "Initial body text"}
			}
		}`),
	}, s.handleCreateEntry)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "save_entry",
		Description: "Replace the full text of an entry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique prefix"},
				"text": {"type": "string", "description": "New body text"}
			},
			"required": ["id", "text"]
		}`),
	}, s.handleSaveEntry)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "delete_entry",
		Description: "Delete an entry together with its insights and attachment.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleDeleteEntry)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "toggle_favorite",
		Description: "Flip the favorite flag of an entry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleToggleFavorite)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "read_insights",
		Description: "Read the cached AI insights for an entry.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique prefix"}
			},
			"required": ["id"]
		}`),
	}, s.handleReadInsights)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "analyze_entry",
		Description: "Generate fresh AI insights for an entry, or answer a follow-up question about earlier ones.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "Entry id or unique prefix"},
				"question": {"type": "string", "description": "Follow-up question; omit for a fresh analysis"}
			},
			"required": ["id"]
		}`),
	}, s.handleAnalyzeEntry)
}

type entryArgs struct {
	ID string `json:"id"`
}

func (s *Server) handleListEntries(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Limit     int    `json:"limit"`
		Category  string `json:"category"`
		Favorites bool   `json:"favorites"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 20
	}

	var category models.Category
	if args.Category != "" {
		c, ok := models.ParseCategory(args.Category)
		if !ok {
			return toolError("unknown category %q", args.Category), nil
		}
		category = c
	}

	if err := s.index.WaitForPreviews(ctx); err != nil {
		return toolError("previews not ready: %v", err), nil
	}

	var sb strings.Builder
	n := 0
	for _, e := range s.index.Entries() {
		if category != "" && e.Category != category {
			continue
		}
		if args.Favorites && !e.IsFavorite {
			continue
		}
		star := ""
		if e.IsFavorite {
			star = " *"
		}
		sb.WriteString(fmt.Sprintf("- %s %s [%s]%s %s\n",
			e.ID,
			e.CreatedAt.Format(entryTimeLayout),
			e.Category,
			star,
			e.PreviewText,
		))
		n++
		if n == args.Limit {
			break
		}
	}

	if n == 0 {
		return textResult("No entries found."), nil
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleSearchEntries(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Limit <= 0 {
		args.Limit = 10
	}
	results, err := s.index.Search(ctx, args.Query, args.Limit)
	if err != nil {
		return toolError("search failed: %v", err), nil
	}
	if len(results) == 0 {
		return textResult("No matching entries found."), nil
	}

	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(fmt.Sprintf("- %s %s [%s] %s\n",
			r.Entry.ID,
			r.Entry.CreatedAt.Format(entryTimeLayout),
			r.Entry.Category,
			r.Snippet,
		))
	}
	return textResult(sb.String()), nil
}

func (s *Server) handleReadEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, res := s.resolveEntry(req)
	if res != nil {
		return res, nil
	}
	if err := s.index.Select(entry.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return toolError("entry %s has no body on disk", entry.ID), nil
		}
		return toolError("failed to read entry: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ID: %s\n", entry.ID))
	sb.WriteString(fmt.Sprintf("Date: %s\n", entry.CreatedAt.Format(entryTimeLayout)))
	sb.WriteString(fmt.Sprintf("Category: %s\n", entry.Category))
	if entry.IsFavorite {
		sb.WriteString("Favorite: yes\n")
	}
	if entry.Attachment != "" {
		sb.WriteString(fmt.Sprintf("Attachment: %s\n", entry.Attachment))
	}
	sb.WriteString("\n")
	sb.WriteString(s.index.ActiveText())

	return textResult(sb.String()), nil
}

func (s *Server) handleCreateEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Category string `json:"category"`
		Mood     string `json:"mood"`
		Text     string `json:"text"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	category := models.DefaultCategory
	if args.Category != "" {
		c, ok := models.ParseCategory(args.Category)
		if !ok {
			return toolError("unknown category %q", args.Category), nil
		}
		category = c
	}

	body := args.Text
	if body == "" {
		var emoji string
		if args.Mood != "" {
			mood, ok := models.ParseMood(args.Mood)
			if !ok {
				return toolError("unknown mood %q", args.Mood), nil
			}
			emoji = mood.Emoji
		}
		body = journal.SeedBody(category, emoji)
	}

	entry, err := s.index.Create(category, body, nil)
	if err != nil {
		return toolError("failed to create entry: %v", err), nil
	}
	s.logger.Info("created entry via mcp", "id", entry.ID)
	return textResult(fmt.Sprintf("Created entry %s (%s)", entry.ID, entry.Category)), nil
}

func (s *Server) handleSaveEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID   string  `json:"id"`
		Text *string `json:"text"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.Text == nil {
		return toolError("text is required"), nil
	}
	entry, err := s.index.Find(args.ID)
	if err != nil {
		return toolError("%v", err), nil
	}
	if err := s.index.Save(entry.ID, *args.Text); err != nil {
		return toolError("failed to save entry: %v", err), nil
	}
	saved, _ := s.index.Entry(entry.ID)
	return textResult(fmt.Sprintf("Saved entry %s: %s", entry.ID, saved.PreviewText)), nil
}

func (s *Server) handleDeleteEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, res := s.resolveEntry(req)
	if res != nil {
		return res, nil
	}
	if err := s.index.Delete(entry.ID); err != nil {
		return toolError("failed to delete entry: %v", err), nil
	}
	s.logger.Info("deleted entry via mcp", "id", entry.ID)
	return textResult(fmt.Sprintf("Deleted entry %s", entry.ID)), nil
}

func (s *Server) handleToggleFavorite(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, res := s.resolveEntry(req)
	if res != nil {
		return res, nil
	}
	on, err := s.index.ToggleFavorite(entry.ID)
	if err != nil {
		return toolError("failed to update favorites: %v", err), nil
	}
	if on {
		return textResult(fmt.Sprintf("Entry %s is now a favorite", entry.ID)), nil
	}
	return textResult(fmt.Sprintf("Entry %s is no longer a favorite", entry.ID)), nil
}

func (s *Server) handleReadInsights(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	entry, res := s.resolveEntry(req)
	if res != nil {
		return res, nil
	}
	if err := s.index.Select(entry.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return toolError("failed to load entry: %v", err), nil
	}
	sections := s.index.ActiveInsights()
	if len(sections) == 0 {
		return textResult("No insights yet for this entry."), nil
	}
	return textResult(insights.Render(sections)), nil
}

func (s *Server) handleAnalyzeEntry(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID       string `json:"id"`
		Question string `json:"question"`
	}
	if err := unmarshalArgs(req, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	entry, err := s.index.Find(args.ID)
	if err != nil {
		return toolError("%v", err), nil
	}

	var sections []models.InsightSection
	if strings.TrimSpace(args.Question) == "" {
		sections, err = s.index.Analyze(ctx, entry.ID)
	} else {
		sections, err = s.index.FollowUp(ctx, entry.ID, args.Question)
	}
	switch {
	case errors.Is(err, journal.ErrNoGenerator):
		return toolError("no AI collaborator configured; run `freewrite setup`"), nil
	case errors.Is(err, journal.ErrTooShort):
		return toolError("entry is too short to analyze"), nil
	case errors.Is(err, journal.ErrInFlight):
		return toolError("an analysis is already running for this entry"), nil
	case err != nil:
		return toolError("analysis failed: %v", err), nil
	}
	return textResult(insights.Render(sections)), nil
}

// resolveEntry decodes {"id": ...} and finds the entry, returning a tool error result on failure.
func (s *Server) resolveEntry(req *gomcp.CallToolRequest) (models.Entry, *gomcp.CallToolResult) {
	var args entryArgs
	if err := unmarshalArgs(req, &args); err != nil {
		return models.Entry{}, toolError("invalid arguments: %v", err)
	}
	if strings.TrimSpace(args.ID) == "" {
		return models.Entry{}, toolError("id is required")
	}
	entry, err := s.index.Find(args.ID)
	if err != nil {
		return models.Entry{}, toolError("%v", err)
	}
	return entry, nil
}

func unmarshalArgs(req *gomcp.CallToolRequest, v any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, v)
}

func textResult(text string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: text}},
	}
}

// toolError creates an error result for MCP tool responses.
func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
