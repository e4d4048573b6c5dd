// Package server wires all OpenSpec components and creates the MCP server.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, prompts and resources that depend on
// abstractions. The CLI uses Wire for the same dependency graph.
package server

import (
	"log"
	"log/slog"

	"github.com/HendryAvila/openspec/internal/artifacts"
	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/config"
	"github.com/HendryAvila/openspec/internal/history"
	"github.com/HendryAvila/openspec/internal/project"
	"github.com/HendryAvila/openspec/internal/prompts"
	"github.com/HendryAvila/openspec/internal/resources"
	"github.com/HendryAvila/openspec/internal/tools"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps is the resolved dependency graph shared by the CLI and the MCP server.
type Deps struct {
	Config     *config.Config
	Resolver   *artifacts.Resolver
	Store      *changes.FileStore
	Scaffolder *project.Scaffolder
	// History is nil when the ledger could not be opened.
	History *history.Store
}

// Wire builds the dependency graph for cfg.
//
// The history ledger is an independent subsystem: if it fails to open,
// lifecycle operations keep working without a recorder. The returned
// cleanup closes the ledger; it is always non-nil.
func Wire(cfg *config.Config, logger *slog.Logger) (*Deps, func()) {
	if logger == nil {
		logger = slog.Default()
	}
	resolver := artifacts.NewResolver(cfg.DataDir)
	deps := &Deps{
		Config:     cfg,
		Resolver:   resolver,
		Store:      changes.NewFileStore(resolver, logger),
		Scaffolder: project.New(nil, logger),
	}

	h, err := history.New(history.DefaultConfig(cfg.DataDir))
	if err != nil {
		log.Printf("WARNING: history disabled: %v", err)
		return deps, noop
	}
	deps.History = h
	deps.Store.SetObserver(tools.ObserverFor(tools.NewHistoryBridge(h)))

	return deps, func() {
		if err := h.Close(); err != nil {
			log.Printf("WARNING: history store close: %v", err)
		}
	}
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered.
//
// The returned cleanup function closes the history ledger and must be
// called on shutdown (typically via defer). It is always non-nil.
func New(cfg *config.Config, logger *slog.Logger) (*server.MCPServer, func(), error) {
	deps, cleanup := Wire(cfg, logger)
	return NewFromDeps(deps), cleanup, nil
}

// NewFromDeps builds the MCP server over an already wired graph.
func NewFromDeps(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"openspec",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registerTools(s, deps)
	registerResources(s, deps)

	for _, p := range prompts.All() {
		s.AddPrompt(p.Definition(), p.Handle)
	}
	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	return s
}

func registerTools(s *server.MCPServer, deps *Deps) {
	listTool := tools.NewListTool(deps.Store)
	s.AddTool(listTool.Definition(), listTool.Handle)

	showTool := tools.NewShowTool(deps.Store)
	s.AddTool(showTool.Definition(), showTool.Handle)

	validateTool := tools.NewValidateTool(deps.Config.Strict, deps.Config.Concurrency)
	s.AddTool(validateTool.Definition(), validateTool.Handle)

	archiveTool := tools.NewArchiveTool(deps.Store)
	s.AddTool(archiveTool.Definition(), archiveTool.Handle)

	initTool := tools.NewInitTool(deps.Scaffolder)
	s.AddTool(initTool.Definition(), initTool.Handle)

	changeCreateTool := tools.NewChangeCreateTool(deps.Store, deps.Config.DefaultSchema)
	s.AddTool(changeCreateTool.Definition(), changeCreateTool.Handle)

	statusTool := tools.NewStatusTool(deps.Store)
	s.AddTool(statusTool.Definition(), statusTool.Handle)

	editTool := tools.NewEditTool()
	s.AddTool(editTool.Definition(), editTool.Handle)

	projectContextTool := tools.NewProjectContextTool()
	s.AddTool(projectContextTool.Definition(), projectContextTool.Handle)

	// A nil *history.Store must not become a non-nil interface.
	var reader tools.HistoryReader
	if deps.History != nil {
		reader = deps.History
	}
	historyTool := tools.NewHistoryTool(reader)
	s.AddTool(historyTool.Definition(), historyTool.Handle)
}

func registerResources(s *server.MCPServer, deps *Deps) {
	var lister resources.HistoryLister
	if deps.History != nil {
		lister = deps.History
	}
	h := resources.NewHandler(deps.Store, lister)

	s.AddResource(h.SpecsResource(), h.HandleSpecs)
	s.AddResource(h.ChangesResource(), h.HandleChanges)
	s.AddResource(h.ArchiveResource(), h.HandleArchive)
	s.AddResourceTemplate(h.SpecTemplate(), h.HandleSpec)
	s.AddResourceTemplate(h.ProposalTemplate(), h.HandleChangeFile)
	s.AddResourceTemplate(h.TasksTemplate(), h.HandleChangeFile)
}

// noop is the cleanup used when the ledger is disabled.
func noop() {}

func serverInstructions() string {
	return `You have access to OpenSpec, a spec-driven change workflow for this repository.

## Layout

- openspec/specs/<capability>/spec.md holds what IS built: requirements (### Requirement:) with scenarios (#### Scenario:).
- openspec/changes/<id>/ holds what SHOULD change: proposal.md, tasks.md, optional design.md, and delta specs under specs/<capability>/spec.md.
- openspec/changes/archive/YYYY-MM-DD-<id>/ holds completed changes.

## When to create a change

Create a change for new features, breaking changes, architecture shifts, or behavior changes.
Skip it for bug fixes that restore intended behavior, typos, formatting, and dependency bumps.

## Workflow

1. openspec_list and openspec_list type=specs to see what exists.
2. openspec_change_create with a kebab-case, verb-led id (add-, update-, remove-, refactor-).
3. Write proposal.md (## Why, ## What Changes), tasks.md, and delta specs using
   ## ADDED / MODIFIED / REMOVED / RENAMED Requirements. Every requirement needs at least one scenario.
4. openspec_validate id=<id> strict=true and fix every issue before implementing.
5. Implement the tasks in order and tick them off in tasks.md.
6. After deployment, openspec_archive id=<id> merges the deltas into openspec/specs.

Use openspec_status to see which artifacts of a change are done and which are ready to write.
Use openspec_history to look up how earlier changes were specified.`
}
