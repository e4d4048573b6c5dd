package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/validation"
	"github.com/mark3labs/mcp-go/mcp"
)

// ValidateTool handles the openspec_validate MCP tool.
// It validates one change or spec, or everything in bulk.
type ValidateTool struct {
	concurrency int
	strict      bool
}

// NewValidateTool creates a ValidateTool. strict is the default when the
// caller does not pass one; concurrency bounds bulk runs.
func NewValidateTool(strict bool, concurrency int) *ValidateTool {
	return &ValidateTool{strict: strict, concurrency: concurrency}
}

// Definition returns the MCP tool definition for registration.
func (t *ValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_validate",
		mcp.WithDescription(
			"Validate an OpenSpec change or spec. Without `id`, validates every active change "+
				"and every canonical spec. Warnings never make an item invalid. "+
				"Run this after writing deltas and before archiving.",
		),
		mcp.WithString("id",
			mcp.Description("Change id or capability name. Omit for bulk validation."),
		),
		mcp.WithString("type",
			mcp.Description("Force the item type, or restrict a bulk run."),
			mcp.Enum("change", "spec"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Turn strict-only conventions into errors."),
		),
	)
}

// Handle processes the openspec_validate tool call.
func (t *ValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	kind := req.GetString("type", "")
	strict := req.GetBool("strict", t.strict)

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	openspecDir := changes.ResolveDir(projectRoot)
	v := validation.New(strict, validation.WithSpecsDir(changes.SpecsPath(projectRoot)))

	if id == "" {
		targets, err := validation.CollectTargets(openspecDir, kind != "spec", kind != "change")
		if err != nil {
			return nil, fmt.Errorf("collecting validation targets: %w", err)
		}
		if len(targets) == 0 {
			return mcp.NewToolResultText("Nothing to validate."), nil
		}
		results, err := v.ValidateAll(ctx, targets, t.concurrency)
		if err != nil {
			return nil, fmt.Errorf("bulk validation: %w", err)
		}
		return mcp.NewToolResultText(renderBulk(results)), nil
	}

	changeDir := changes.ChangePath(projectRoot, id)
	specFile := changes.SpecPath(projectRoot, id)
	switch {
	case kind != "spec" && fsutil.IsDir(changeDir) && id != changes.ArchiveDir:
		return mcp.NewToolResultText(renderReport("change", id, v.ValidateChange(changeDir))), nil
	case kind != "change" && fileExistsAt(specFile):
		return mcp.NewToolResultText(renderReport("spec", id, v.ValidateSpecFile(id, specFile))), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("Unknown item %q. Use openspec_list to see changes and specs.", id)), nil
	}
}

func renderReport(kind, id string, r validation.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Validation: %s `%s`\n\n%s\n", kind, id, validationLine(r.Valid, r.Summary.Errors, r.Summary.Warnings))
	if len(r.Issues) > 0 {
		b.WriteString("\n")
		for _, i := range r.Issues {
			fmt.Fprintf(&b, "- %s\n", i)
		}
	}
	return b.String()
}

func renderBulk(results []validation.Result) string {
	s := validation.Summarize(results)
	var b strings.Builder
	fmt.Fprintf(&b, "# Validation\n\n%d passed, %d failed (%d total)\n\n", s.Passed, s.Failed, s.Total)
	for _, r := range results {
		mark := "✅"
		if !r.Valid {
			mark = "❌"
		}
		fmt.Fprintf(&b, "- %s %s `%s`\n", mark, r.Type, r.ID)
		for _, i := range r.Report.Errors() {
			fmt.Fprintf(&b, "  - %s\n", i)
		}
	}
	return b.String()
}

func fileExistsAt(path string) bool {
	ok, err := fsutil.Exists(path)
	return err == nil && ok && !fsutil.IsDir(path)
}
