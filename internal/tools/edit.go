package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/mark3labs/mcp-go/mcp"
)

// Change files the edit tool can write.
const (
	resourceProposal = "proposal"
	resourceTasks    = "tasks"
	resourceDesign   = "design"
	resourceSpec     = "spec"
)

// EditTool handles the openspec_edit MCP tool.
// It writes proposal.md, tasks.md, design.md or a delta spec of an
// existing change.
type EditTool struct{}

// NewEditTool creates an EditTool.
func NewEditTool() *EditTool {
	return &EditTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *EditTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_edit",
		mcp.WithDescription(
			"Create or replace a file of an active change: proposal.md, tasks.md, design.md, "+
				"or the delta spec specs/<capability>/spec.md. Create the change first with "+
				"openspec_change_create, then validate with openspec_validate.",
		),
		mcp.WithString("change_id",
			mcp.Required(),
			mcp.Description("Change id, for example `add-two-factor-auth`."),
		),
		mcp.WithString("resource",
			mcp.Required(),
			mcp.Description("Which file to write."),
			mcp.Enum(resourceProposal, resourceTasks, resourceDesign, resourceSpec),
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full markdown content of the file."),
		),
		mcp.WithString("capability",
			mcp.Description("Capability of the delta spec; required when resource is `spec`. Nested capabilities use `/`."),
		),
	)
}

// editResult is the JSON body returned after a write.
type editResult struct {
	ChangeID   string   `json:"changeId"`
	Resource   string   `json:"resource"`
	Capability string   `json:"capability,omitempty"`
	Path       string   `json:"path"`
	URI        string   `json:"uri"`
	Next       []string `json:"suggestedNextActions"`
}

// Handle processes the openspec_edit tool call.
func (t *EditTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := strings.TrimSpace(req.GetString("change_id", ""))
	resource := req.GetString("resource", "")
	content := req.GetString("content", "")
	capability := strings.Trim(strings.TrimSpace(req.GetString("capability", "")), "/")

	if !validSegment(id) {
		return mcp.NewToolResultError(fmt.Sprintf("invalid change_id %q", id)), nil
	}
	if strings.TrimSpace(content) == "" {
		return mcp.NewToolResultError("'content' is required"), nil
	}

	var rel, uri string
	switch resource {
	case resourceProposal:
		rel, uri = changes.ProposalFile, "openspec://changes/"+id+"/proposal"
	case resourceTasks:
		rel, uri = changes.TasksFile, "openspec://changes/"+id+"/tasks"
	case resourceDesign:
		rel, uri = changes.DesignFile, "openspec://changes/"+id+"/design"
	case resourceSpec:
		if capability == "" {
			return mcp.NewToolResultError("'capability' is required when resource is \"spec\""), nil
		}
		if !validCapability(capability) {
			return mcp.NewToolResultError(fmt.Sprintf("invalid capability %q; use lowercase kebab-case segments", capability)), nil
		}
		rel, uri = filepath.Join(changes.SpecsDir, filepath.FromSlash(capability), "spec.md"), "openspec://changes/"+id+"/specs/"+capability
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource %q; use proposal, tasks, design, or spec", resource)), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	dir := changes.ChangePath(projectRoot, id)
	if !fsutil.IsDir(dir) {
		return mcp.NewToolResultError(fmt.Sprintf("NotFound: Change '%s' not found. Create it with openspec_change_create.", id)), nil
	}

	path := filepath.Join(dir, rel)
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	res := editResult{ChangeID: id, Resource: resource, Path: path, URI: uri}
	if resource == resourceSpec {
		res.Capability = capability
	}
	switch resource {
	case resourceProposal:
		res.Next = []string{"Write tasks.md with resource `tasks`", "Write delta specs with resource `spec`", "Run openspec_validate"}
	case resourceTasks:
		res.Next = []string{"Write delta specs with resource `spec`", "Run openspec_validate"}
	case resourceSpec:
		res.Next = []string{"Read " + uri + " to verify", "Run openspec_validate"}
	default:
		res.Next = []string{"Run openspec_validate"}
	}
	return jsonResult(res)
}
