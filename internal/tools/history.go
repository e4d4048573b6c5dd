package tools

import (
	"context"
	"fmt"

	"github.com/HendryAvila/openspec/internal/history"
	"github.com/mark3labs/mcp-go/mcp"
)

// HistoryReader is the read side of the archive ledger.
type HistoryReader interface {
	Recent(project string, limit int) ([]history.Entry, error)
	Search(query string, opts history.SearchOptions) ([]history.SearchResult, error)
	Stats() (*history.Stats, error)
}

// HistoryTool handles the openspec_history MCP tool.
type HistoryTool struct {
	reader HistoryReader
}

// NewHistoryTool creates a HistoryTool. reader may be nil when the ledger
// could not be opened; the tool then reports that history is disabled.
func NewHistoryTool(reader HistoryReader) *HistoryTool {
	return &HistoryTool{reader: reader}
}

// Definition returns the MCP tool definition for registration.
func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_history",
		mcp.WithDescription(
			"Search or list previously archived changes of this project. "+
				"Use `query` for full-text search over archived proposals; omit it for the most recent archives.",
		),
		mcp.WithString("query",
			mcp.Description("Full-text search terms."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results (default 10)."),
		),
		mcp.WithBoolean("all_projects",
			mcp.Description("Search every project recorded in the ledger, not just this one."),
		),
		mcp.WithString("detail_level",
			mcp.Description("summary: one line per archive; standard: counts and a proposal snippet; full: whole proposal."),
			mcp.Enum(history.DetailLevelValues()...),
		),
	)
}

// Handle processes the openspec_history tool call.
func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.reader == nil {
		return mcp.NewToolResultError("History is disabled: the archive ledger could not be opened."), nil
	}

	query := req.GetString("query", "")
	limit := int(req.GetFloat("limit", 10))
	detail := history.ParseDetailLevel(req.GetString("detail_level", ""))

	project := ""
	if !req.GetBool("all_projects", false) {
		root, err := findProjectRoot()
		if err != nil {
			return nil, err
		}
		project = root
	}

	results, err := t.reader.Search(query, history.SearchOptions{Project: project, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("searching history: %w", err)
	}
	entries := make([]history.Entry, len(results))
	for i, r := range results {
		entries[i] = r.Entry
	}

	out := "# Archive History\n\n" + history.FormatEntries(entries, detail)
	if query == "" && project == "" {
		if st, err := t.reader.Stats(); err == nil {
			out += history.NavigationHint(len(entries), st.TotalArchives)
		}
	}
	return mcp.NewToolResultText(out), nil
}
