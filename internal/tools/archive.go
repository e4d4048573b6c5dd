package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/mark3labs/mcp-go/mcp"
)

// ArchiveTool handles the openspec_archive MCP tool.
// It merges a change's deltas into the canonical specs and moves the change
// to changes/archive/YYYY-MM-DD-<id>/.
type ArchiveTool struct {
	store changes.Store
}

// NewArchiveTool creates an ArchiveTool with the given change store.
func NewArchiveTool(store changes.Store) *ArchiveTool {
	return &ArchiveTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ArchiveTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_archive",
		mcp.WithDescription(
			"Archive a deployed change: apply its spec deltas (RENAMED, REMOVED, MODIFIED, ADDED) "+
				"to openspec/specs and move the change into changes/archive. "+
				"Nothing is written when validation or any merge fails. "+
				"Only call this after the user confirms the change is done.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Change id to archive."),
		),
		mcp.WithBoolean("skip_specs",
			mcp.Description("Move the change without touching specs (tooling-only work)."),
		),
		mcp.WithBoolean("no_validate",
			mcp.Description("Skip validation of the change and the rebuilt specs."),
		),
	)
}

// Handle processes the openspec_archive tool call.
func (t *ArchiveTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	res, err := t.store.Archive(projectRoot, id, changes.ArchiveOptions{
		SkipSpecs:  req.GetBool("skip_specs", false),
		NoValidate: req.GetBool("no_validate", false),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(renderArchive(res)), nil
}

func renderArchive(res *changes.ArchiveResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Archived `%s`\n\n**Archive:** `changes/archive/%s`\n", res.ChangeID, res.ArchiveName)
	if res.Specs == nil {
		b.WriteString("\nSpecs were not updated.\n")
	} else {
		b.WriteString(renderSpecUpdates(res.Specs))
	}
	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

func renderSpecUpdates(ap *changes.ApplyResult) string {
	if ap.NoChanges {
		return "\nNo spec deltas to apply.\n"
	}
	var b strings.Builder
	b.WriteString("\n## Specs Updated\n\n")
	for _, c := range ap.Capabilities {
		name := c.Capability
		if c.RenamedTo != "" {
			name += " → " + c.RenamedTo
		}
		created := ""
		if c.Created {
			created = " (new)"
		}
		fmt.Fprintf(&b, "- `%s`%s: +%d ~%d -%d →%d\n", name, created, c.Added, c.Modified, c.Removed, c.Renamed)
	}
	fmt.Fprintf(&b, "\n**Totals:** +%d ~%d -%d →%d\n", ap.Totals.Added, ap.Totals.Modified, ap.Totals.Removed, ap.Totals.Renamed)
	return b.String()
}
