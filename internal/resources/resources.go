// Package resources implements MCP resource handlers for OpenSpec.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (openspec://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/history"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	specsURI   = "openspec://specs"
	changesURI = "openspec://changes"
	archiveURI = "openspec://archive"

	specTemplate     = "openspec://specs/{capability}"
	proposalTemplate = "openspec://changes/{name}/proposal"
	tasksTemplate    = "openspec://changes/{name}/tasks"
)

// HistoryLister is the slice of the archive ledger the archive resource needs.
type HistoryLister interface {
	Recent(project string, limit int) ([]history.Entry, error)
}

// Handler manages OpenSpec resource endpoints.
type Handler struct {
	store   changes.Store
	history HistoryLister
}

// NewHandler creates a resource Handler. hist may be nil, in which case the
// archive resource lists the archive directory instead of the ledger.
func NewHandler(store changes.Store, hist HistoryLister) *Handler {
	return &Handler{store: store, history: hist}
}

// SpecsResource lists every capability spec.
func (h *Handler) SpecsResource() mcp.Resource {
	return mcp.NewResource(specsURI, "OpenSpec Specs",
		mcp.WithResourceDescription("Canonical capability specs with requirement counts"),
		mcp.WithMIMEType("application/json"),
	)
}

// ChangesResource lists active changes.
func (h *Handler) ChangesResource() mcp.Resource {
	return mcp.NewResource(changesURI, "OpenSpec Changes",
		mcp.WithResourceDescription("Active changes with task progress"),
		mcp.WithMIMEType("application/json"),
	)
}

// ArchiveResource lists archived changes.
func (h *Handler) ArchiveResource() mcp.Resource {
	return mcp.NewResource(archiveURI, "OpenSpec Archive",
		mcp.WithResourceDescription("Archived changes, newest first"),
		mcp.WithMIMEType("application/json"),
	)
}

// SpecTemplate addresses one capability's spec.md.
func (h *Handler) SpecTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(specTemplate, "OpenSpec Spec",
		mcp.WithTemplateDescription("The spec.md of a single capability"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
}

// ProposalTemplate addresses a change's proposal.md.
func (h *Handler) ProposalTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(proposalTemplate, "OpenSpec Proposal",
		mcp.WithTemplateDescription("The proposal.md of an active change"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
}

// TasksTemplate addresses a change's tasks.md.
func (h *Handler) TasksTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(tasksTemplate, "OpenSpec Tasks",
		mcp.WithTemplateDescription("The tasks.md checklist of an active change"),
		mcp.WithTemplateMIMEType("text/markdown"),
	)
}

// HandleSpecs returns the spec list as JSON.
func (h *Handler) HandleSpecs(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	specs, err := h.store.ListSpecs(root)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, map[string]any{"specs": specs})
}

// HandleChanges returns the active change list as JSON.
func (h *Handler) HandleChanges(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	list, err := h.store.List(root, changes.SortName)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, map[string]any{"changes": list})
}

// HandleArchive returns archived changes. The ledger is preferred because it
// carries counts and proposals; the archive directory is the fallback.
func (h *Handler) HandleArchive(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	if h.history != nil {
		entries, err := h.history.Recent(root, 50)
		if err == nil && len(entries) > 0 {
			return jsonResource(req.Params.URI, map[string]any{"archived": entries})
		}
	}
	archived, err := h.store.ListArchived(root)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return jsonResource(req.Params.URI, map[string]any{"archived": archived})
}

// HandleSpec returns the raw markdown of openspec://specs/{capability}.
func (h *Handler) HandleSpec(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	capability := strings.TrimPrefix(req.Params.URI, specsURI+"/")
	if !validSegment(capability) {
		return errorResource(req.Params.URI, "invalid capability"), nil
	}
	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	spec, err := h.store.ShowSpec(root, capability)
	if err != nil {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	return markdownResource(req.Params.URI, spec.Content), nil
}

// HandleChangeFile serves openspec://changes/{name}/proposal and
// openspec://changes/{name}/tasks.
func (h *Handler) HandleChangeFile(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	rest := strings.TrimPrefix(req.Params.URI, changesURI+"/")
	name, part, ok := strings.Cut(rest, "/")
	if !ok || !validSegment(name) {
		return errorResource(req.Params.URI, "invalid change resource"), nil
	}

	var file string
	switch part {
	case "proposal":
		file = changes.ProposalFile
	case "tasks":
		file = changes.TasksFile
	default:
		return errorResource(req.Params.URI, fmt.Sprintf("unknown change file %q", part)), nil
	}

	root, err := findRoot()
	if err != nil {
		return nil, err
	}
	dir := changes.ChangePath(root, name)
	if !fsutil.IsDir(dir) {
		return errorResource(req.Params.URI, fmt.Sprintf("change %q not found", name)), nil
	}
	content, err := fsutil.ReadOptional(filepath.Join(dir, file))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	if content == "" {
		return errorResource(req.Params.URI, fmt.Sprintf("%s has no %s", name, file)), nil
	}
	return markdownResource(req.Params.URI, content), nil
}

// validSegment rejects path traversal in URI parameters.
func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func markdownResource(uri, text string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/markdown",
			Text:     text,
		},
	}
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}

func findRoot() (string, error) {
	root, err := changes.FindProjectRootFromWD()
	if err != nil {
		return "", fmt.Errorf("finding project root: %w", err)
	}
	return root, nil
}
