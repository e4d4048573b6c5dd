package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/tasks"
	"github.com/mark3labs/mcp-go/mcp"
)

// ShowTool handles the openspec_show MCP tool.
// It shows one change (proposal, deltas, tasks) or one canonical spec.
type ShowTool struct {
	store changes.Store
}

// NewShowTool creates a ShowTool with the given change store.
func NewShowTool(store changes.Store) *ShowTool {
	return &ShowTool{store: store}
}

// Definition returns the MCP tool definition for registration.
func (t *ShowTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_show",
		mcp.WithDescription(
			"Show a change or a spec. For changes: title, why, what changes, deltas per capability, "+
				"task list and validation summary. For specs: purpose and requirements with scenarios. "+
				"When `type` is omitted, a change with that id wins over a spec.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Change id or capability name."),
		),
		mcp.WithString("type",
			mcp.Description("Force the item type."),
			mcp.Enum("change", "spec"),
		),
		mcp.WithBoolean("json",
			mcp.Description("Return JSON instead of markdown."),
		),
	)
}

// Handle processes the openspec_show tool call.
func (t *ShowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}
	kind := req.GetString("type", "")
	asJSON := req.GetBool("json", false)

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	if kind != "spec" {
		d, err := t.store.Show(projectRoot, id)
		switch {
		case err == nil:
			if asJSON {
				return jsonResult(d)
			}
			return mcp.NewToolResultText(renderChange(d)), nil
		case kind == "change":
			return errorResult(err), nil
		}
	}

	spec, err := t.store.ShowSpec(projectRoot, id)
	if err != nil {
		if kind == "" {
			return mcp.NewToolResultError(fmt.Sprintf("No change or spec named %q. Use openspec_list to see available items.", id)), nil
		}
		return errorResult(err), nil
	}
	if asJSON {
		return jsonResult(spec)
	}
	return mcp.NewToolResultText(renderSpec(spec)), nil
}

func renderChange(d *changes.Details) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n**ID:** `%s`\n**State:** %s\n**Tasks:** %s\n", d.Title, d.ID, d.State, tasks.Format(d.Progress))
	if d.Metadata != nil {
		fmt.Fprintf(&b, "**Schema:** %s\n", d.Metadata.Schema)
	}
	fmt.Fprintf(&b, "\n## Why\n\n%s\n\n## What Changes\n\n", orNone(d.Why))
	for _, bullet := range d.Bullets {
		fmt.Fprintf(&b, "- %s\n", bullet)
	}

	if len(d.Deltas) > 0 {
		b.WriteString("\n## Deltas\n\n")
		for _, delta := range d.Deltas {
			fmt.Fprintf(&b, "- **%s** `%s`", delta.Kind, delta.Capability)
			names := make([]string, 0, len(delta.Requirements)+len(delta.Renames))
			for _, r := range delta.Requirements {
				names = append(names, r.Name)
			}
			for _, r := range delta.Renames {
				names = append(names, r.From+" → "+r.To)
			}
			if len(names) > 0 {
				b.WriteString(": " + strings.Join(names, ", "))
			}
			b.WriteString("\n")
		}
	}

	if len(d.Tasks) > 0 {
		b.WriteString("\n## Tasks\n\n")
		for _, task := range d.Tasks {
			box := " "
			if task.Status == tasks.StatusComplete {
				box = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s %s\n", box, task.ID, task.Title)
		}
	}

	fmt.Fprintf(&b, "\n## Validation\n\n%s\n", validationLine(d.Validation.Valid, d.Validation.Summary.Errors, d.Validation.Summary.Warnings))
	return b.String()
}

func renderSpec(s *changes.SpecDetails) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n**Capability:** `%s`\n\n## Purpose\n\n%s\n\n## Requirements\n", s.Title, s.ID, orNone(s.Purpose))
	for _, r := range s.Requirements {
		fmt.Fprintf(&b, "\n### %s\n\n%s\n", r.Name, r.Text)
		for _, sc := range r.Scenarios {
			fmt.Fprintf(&b, "- Scenario: %s\n", sc.Name)
		}
	}
	return b.String()
}

func validationLine(valid bool, errs, warnings int) string {
	if valid {
		return fmt.Sprintf("✅ valid (%d warning(s))", warnings)
	}
	return fmt.Sprintf("❌ invalid: %d error(s), %d warning(s)", errs, warnings)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "_None._"
	}
	return s
}
