package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/HendryAvila/openspec/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

// InitTool handles the openspec_init MCP tool.
type InitTool struct {
	scaffolder *project.Scaffolder
}

// NewInitTool creates an InitTool.
func NewInitTool(scaffolder *project.Scaffolder) *InitTool {
	return &InitTool{scaffolder: scaffolder}
}

// Definition returns the MCP tool definition for registration.
func (t *InitTool) Definition() mcp.Tool {
	ids := strings.Join(t.scaffolder.Registry().IDs(), ", ")
	return mcp.NewTool("openspec_init",
		mcp.WithDescription(
			"Initialize OpenSpec in the current project: creates openspec/ with AGENTS.md, project.md, "+
				"specs/ and changes/, and writes the root AGENTS.md stub. An existing openspec/ is "+
				"extended; project.md is never overwritten.",
		),
		mcp.WithString("tools",
			mcp.Description("Comma-separated AI tools to configure slash commands for. Supported: "+ids+"."),
		),
	)
}

// Handle processes the openspec_init tool call.
func (t *InitTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var selected []string
	if raw := req.GetString("tools", ""); raw != "" {
		selected = strings.Split(raw, ",")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	res, err := t.scaffolder.Init(cwd, project.InitOptions{Tools: selected})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	mode := "Created"
	if res.ExtendMode {
		mode = "Extended"
	}
	fmt.Fprintf(&b, "# OpenSpec Initialized\n\n%s `%s`.\nRoot AGENTS.md stub %s.\n", mode, res.OpenSpecDir, res.RootStub)
	if len(res.CreatedTools) > 0 {
		fmt.Fprintf(&b, "Configured: %s\n", strings.Join(res.CreatedTools, ", "))
	}
	if len(res.RefreshedTools) > 0 {
		fmt.Fprintf(&b, "Refreshed: %s\n", strings.Join(res.RefreshedTools, ", "))
	}
	b.WriteString("\n## Next Steps\n\n" +
		"1. Fill in `openspec/project.md` with your project's conventions.\n" +
		"2. Create your first change with `openspec_change_create`.\n")
	return mcp.NewToolResultText(b.String()), nil
}
