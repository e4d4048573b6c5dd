package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/artifacts"
	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/mark3labs/mcp-go/mcp"
)

// ArtifactStatusReader reports where a change stands in its schema's
// artifact graph. *changes.FileStore implements it.
type ArtifactStatusReader interface {
	ArtifactStatus(projectRoot, id, schemaOverride string) (*changes.ArtifactReport, error)
}

// StatusTool handles the openspec_status MCP tool.
type StatusTool struct {
	reader ArtifactStatusReader
}

// NewStatusTool creates a StatusTool.
func NewStatusTool(reader ArtifactStatusReader) *StatusTool {
	return &StatusTool{reader: reader}
}

// Definition returns the MCP tool definition for registration.
func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_status",
		mcp.WithDescription(
			"Show a change's artifact status: which artifacts of its schema are done, "+
				"which are ready to write next, and which are blocked by missing dependencies.",
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Change id."),
		),
		mcp.WithString("schema",
			mcp.Description("Evaluate against this schema instead of the change's own."),
		),
	)
}

// Handle processes the openspec_status tool call.
func (t *StatusTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("id", ""))
	if id == "" {
		return mcp.NewToolResultError("'id' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	report, err := t.reader.ArtifactStatus(projectRoot, id, req.GetString("schema", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(renderArtifacts(id, report)), nil
}

func renderArtifacts(id string, r *changes.ArtifactReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Artifact Status: `%s`\n\n**Schema:** %s\n**Progress:** %d/%d complete\n\n",
		id, r.Schema, len(r.Completed), len(r.Statuses))
	b.WriteString("| Artifact | Status | Output | Missing |\n|---|---|---|---|\n")
	for _, s := range r.Statuses {
		marker := "⬜"
		switch s.State {
		case artifacts.StateDone:
			marker = "✅"
		case artifacts.StateReady:
			marker = "🔄"
		}
		missing := "-"
		if len(s.MissingDeps) > 0 {
			missing = strings.Join(s.MissingDeps, ", ")
		}
		fmt.Fprintf(&b, "| %s %s | %s | `%s` | %s |\n", marker, s.ID, s.State, s.OutputPath, missing)
	}
	if len(r.Ready) > 0 {
		fmt.Fprintf(&b, "\n**Next:** write %s.\n", strings.Join(r.Ready, ", "))
	}
	return b.String()
}
