package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/mark3labs/mcp-go/mcp"
)

// ChangeCreateTool handles the openspec_change_create MCP tool.
// It scaffolds changes/<name>/ for a new change.
type ChangeCreateTool struct {
	store         changes.Store
	defaultSchema string
}

// NewChangeCreateTool creates a ChangeCreateTool. defaultSchema is shown to
// agents in the tool description.
func NewChangeCreateTool(store changes.Store, defaultSchema string) *ChangeCreateTool {
	return &ChangeCreateTool{store: store, defaultSchema: defaultSchema}
}

// Definition returns the MCP tool definition for registration.
func (t *ChangeCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_change_create",
		mcp.WithDescription(
			"Create a new change directory under openspec/changes/. The name must be kebab-case "+
				"and verb-led, for example `add-two-factor-auth`. Afterwards write proposal.md "+
				"(## Why, ## What Changes), tasks.md, and delta specs under specs/<capability>/spec.md.",
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("Kebab-case change id."),
		),
		mcp.WithString("schema",
			mcp.Description(fmt.Sprintf("Workflow schema to record (default %s).", t.defaultSchema)),
		),
		mcp.WithString("description",
			mcp.Description("Optional one-paragraph description written to README.md."),
		),
	)
}

// Handle processes the openspec_change_create tool call.
func (t *ChangeCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := strings.TrimSpace(req.GetString("name", ""))
	if name == "" {
		return mcp.NewToolResultError("'name' is required"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}

	created, err := t.store.Create(projectRoot, name, changes.CreateOptions{
		Schema:      req.GetString("schema", ""),
		Description: req.GetString("description", ""),
	})
	if err != nil {
		return errorResult(err), nil
	}

	response := fmt.Sprintf(
		"# Change Created\n\n"+
			"**ID:** `%s`\n"+
			"**Schema:** %s\n"+
			"**Directory:** `%s`\n\n"+
			"## Next Steps\n\n"+
			"1. Write `proposal.md` with `## Why` and `## What Changes`.\n"+
			"2. Add delta specs under `specs/<capability>/spec.md`.\n"+
			"3. List the work in `tasks.md` as `- [ ]` checkboxes.\n"+
			"4. Run `openspec_validate` with id `%s`.\n",
		created.ID, created.Schema, created.ChangeDir, created.ID,
	)
	return mcp.NewToolResultText(response), nil
}
