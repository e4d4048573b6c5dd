package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/markdown"
	"github.com/HendryAvila/openspec/internal/project"
	"github.com/mark3labs/mcp-go/mcp"
)

// ProjectContextTool handles the openspec_update_project_context MCP tool.
// It rewrites openspec/project.md whole or section by section.
type ProjectContextTool struct{}

// NewProjectContextTool creates a ProjectContextTool.
func NewProjectContextTool() *ProjectContextTool {
	return &ProjectContextTool{}
}

// Definition returns the MCP tool definition for registration.
func (t *ProjectContextTool) Definition() mcp.Tool {
	return mcp.NewTool("openspec_update_project_context",
		mcp.WithDescription(
			"Update openspec/project.md, the project context agents read before proposing changes. "+
				"Pass `content` to replace the whole file, or `sections` to replace or append "+
				"individual `## <Section>` blocks such as Tech Stack or Conventions.",
		),
		mcp.WithString("content",
			mcp.Description("Full replacement content for project.md."),
		),
		mcp.WithObject("sections",
			mcp.Description("Section title to markdown body, for example {\"Tech Stack\": \"- Go 1.24\"}."),
		),
	)
}

// Handle processes the openspec_update_project_context tool call.
func (t *ProjectContextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := req.GetString("content", "")
	sections, err := sectionsArg(req.GetArguments()["sections"])
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if content == "" && len(sections) == 0 {
		return mcp.NewToolResultError("either 'content' or 'sections' must be provided"), nil
	}

	projectRoot, err := findProjectRoot()
	if err != nil {
		return nil, err
	}
	dir := changes.ResolveDir(projectRoot)
	if !fsutil.IsDir(dir) {
		return mcp.NewToolResultError("No openspec directory found. Run openspec_init first."), nil
	}
	path := filepath.Join(dir, project.ProjectFile)

	var titles []string
	if content == "" {
		existing, err := fsutil.ReadOptional(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for title := range sections {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		content = existing
		for _, title := range titles {
			content = markdown.ReplaceSection(content, title, sections[title])
		}
	}

	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	if len(titles) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Project context written to `%s`.", path)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %d section(s) of `%s`: %s.",
		len(titles), path, strings.Join(titles, ", "))), nil
}

// sectionsArg converts the sections argument into title to body pairs.
func sectionsArg(v any) (map[string]string, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("'sections' must be an object of section title to markdown")
	}
	out := make(map[string]string, len(raw))
	for title, body := range raw {
		s, ok := body.(string)
		if !ok {
			return nil, fmt.Errorf("section %q must be a string", title)
		}
		title = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(title), "#"))
		if title == "" {
			return nil, fmt.Errorf("section titles must not be empty")
		}
		out[title] = s
	}
	return out, nil
}
