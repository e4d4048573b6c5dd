package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/tasks"
	"github.com/mark3labs/mcp-go/mcp"
)

// ListTool handles the openspec_list MCP tool.
// It lists active changes, canonical specs, or archived changes.
type ListTool struct {
	store changes.Store
}

// NewListTool creates a ListTool with the given change store.
func NewListTool(store changes.Store) *ListTool {
	return &ListTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ListTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_list",
		mcp.WithDescription(
			"List OpenSpec items. By default lists active changes with task progress. "+
				"Use `type: specs` for capabilities or `type: archived` for archived changes.",
		),
		mcp.WithString("type",
			mcp.Description("What to list."),
			mcp.Enum("changes", "specs", "archived"),
		),
		mcp.WithString("sort",
			mcp.Description("Sort order for changes: `recent` (default) or `name`."),
			mcp.Enum(string(changes.SortRecent), string(changes.SortName)),
		),
		mcp.WithBoolean("json",
			mcp.Description("Return JSON instead of markdown."),
		),
	)
}

// Handle processes the openspec_list tool call.
func (t *ListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind := req.GetString("type", "changes")
	asJSON := req.GetBool("json", false)

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	switch kind {
	case "specs":
		specs, err := t.store.ListSpecs(projectRoot)
		if err != nil {
			return errorResult(err), nil
		}
		if asJSON {
			return jsonResult(map[string]any{"specs": specs})
		}
		if len(specs) == 0 {
			return mcp.NewToolResultText("No specs found."), nil
		}
		var b strings.Builder
		b.WriteString("# Specs\n\n| Capability | Title | Requirements |\n|---|---|---|\n")
		for _, s := range specs {
			fmt.Fprintf(&b, "| `%s` | %s | %d |\n", s.ID, s.Title, s.RequirementCount)
		}
		return mcp.NewToolResultText(b.String()), nil

	case "archived":
		archived, err := t.store.ListArchived(projectRoot)
		if err != nil {
			return errorResult(err), nil
		}
		if asJSON {
			return jsonResult(map[string]any{"archived": archived})
		}
		if len(archived) == 0 {
			return mcp.NewToolResultText("No archived changes."), nil
		}
		var b strings.Builder
		b.WriteString("# Archived Changes\n\n")
		for _, a := range archived {
			fmt.Fprintf(&b, "- `%s` (%s, archived %s)\n", a.Name, a.ChangeID, a.Date)
		}
		return mcp.NewToolResultText(b.String()), nil

	case "changes", "":
		order := changes.SortOrder(req.GetString("sort", string(changes.SortRecent)))
		list, err := t.store.List(projectRoot, order)
		if err != nil {
			return errorResult(err), nil
		}
		if asJSON {
			return jsonResult(map[string]any{"changes": list})
		}
		if len(list) == 0 {
			return mcp.NewToolResultText("No active changes found."), nil
		}
		var b strings.Builder
		b.WriteString("# Changes\n\n| Change | State | Tasks |\n|---|---|---|\n")
		for _, c := range list {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", c.ID, c.State, tasks.Format(c.Progress))
		}
		return mcp.NewToolResultText(b.String()), nil

	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unknown list type %q. Use changes, specs, or archived.", kind)), nil
	}
}
