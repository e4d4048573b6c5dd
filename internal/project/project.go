// Package project scaffolds and refreshes the openspec directory of a
// project and configures AI tools.
package project

import (
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/HendryAvila/openspec/internal/agents"
	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/fsutil"
)

//go:embed templates/*.md
var templateFS embed.FS

// File names under the openspec directory.
const (
	AgentsFile  = "AGENTS.md"
	ProjectFile = "project.md"
)

// StubStatus reports what happened to the root AGENTS.md stub.
type StubStatus string

const (
	StubCreated StubStatus = "created"
	StubUpdated StubStatus = "updated"
)

// InitOptions configures Init.
type InitOptions struct {
	Tools []string
}

// InitResult describes what Init did.
type InitResult struct {
	ProjectRoot string `json:"projectRoot"`
	OpenSpecDir string `json:"openspecDir"`
	ExtendMode  bool   `json:"extendMode"`
	// CreatedTools were configured for the first time.
	CreatedTools []string `json:"createdTools"`
	// RefreshedTools were selected and already configured.
	RefreshedTools []string   `json:"refreshedTools"`
	Files          []string   `json:"files"`
	RootStub       StubStatus `json:"rootStub"`
}

// UpdateResult describes what Update did.
type UpdateResult struct {
	OpenSpecDir string   `json:"openspecDir"`
	Updated     []string `json:"updated"`
}

// Scaffolder creates and refreshes project structure.
type Scaffolder struct {
	registry  *agents.Registry
	generator *agents.Generator
	logger    *slog.Logger
}

// New creates a Scaffolder. A nil registry uses agents.Builtin().
func New(registry *agents.Registry, logger *slog.Logger) *Scaffolder {
	if registry == nil {
		registry = agents.Builtin()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scaffolder{
		registry:  registry,
		generator: agents.NewGenerator(logger),
		logger:    logger,
	}
}

// Registry returns the tool registry.
func (s *Scaffolder) Registry() *agents.Registry { return s.registry }

// Init creates the openspec directory under root, or extends an existing
// one without touching project.md, then configures the selected tools.
// Unknown tool ids fail before anything is written.
func (s *Scaffolder) Init(root string, opts InitOptions) (*InitResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	tools, err := s.registry.Resolve(opts.Tools)
	if err != nil {
		return nil, err
	}

	dir := changes.ResolveDir(abs)
	res := &InitResult{
		ProjectRoot:    abs,
		OpenSpecDir:    dir,
		ExtendMode:     fsutil.IsDir(dir),
		CreatedTools:   []string{},
		RefreshedTools: []string{},
		Files:          []string{},
	}

	for _, d := range []string{
		filepath.Join(dir, changes.SpecsDir),
		filepath.Join(dir, changes.ChangesDir, changes.ArchiveDir),
	} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", d, err)
		}
	}

	if err := s.writeAgents(dir); err != nil {
		return nil, err
	}
	projectPath := filepath.Join(dir, ProjectFile)
	if ok, err := fsutil.Exists(projectPath); err != nil {
		return nil, err
	} else if !ok {
		if err := fsutil.WriteFileAtomic(projectPath, []byte(mustTemplate(ProjectFile)), 0o644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", ProjectFile, err)
		}
	}

	status, err := s.writeRootStub(abs)
	if err != nil {
		return nil, err
	}
	res.RootStub = status

	for _, d := range tools {
		if s.generator.Configured(abs, d) {
			res.RefreshedTools = append(res.RefreshedTools, d.ID)
		} else {
			res.CreatedTools = append(res.CreatedTools, d.ID)
		}
		files, err := s.generator.Generate(abs, d)
		if err != nil {
			return nil, fmt.Errorf("configuring %s: %w", d.Name, err)
		}
		res.Files = append(res.Files, files...)
	}

	s.logger.Info("openspec initialized", "dir", dir, "extend", res.ExtendMode, "tools", len(tools))
	return res, nil
}

// Update rewrites openspec/AGENTS.md and the root stub, and refreshes tool
// files that already exist. It never configures new tools.
func (s *Scaffolder) Update(root string) (*UpdateResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	dir := changes.ResolveDir(abs)
	if !fsutil.IsDir(dir) {
		return nil, fmt.Errorf("no OpenSpec directory found in %s. Run 'openspec init' first", abs)
	}

	res := &UpdateResult{OpenSpecDir: dir, Updated: []string{}}
	if err := s.writeAgents(dir); err != nil {
		return nil, err
	}
	res.Updated = append(res.Updated, filepath.Join(filepath.Base(dir), AgentsFile))
	if _, err := s.writeRootStub(abs); err != nil {
		return nil, err
	}
	res.Updated = append(res.Updated, AgentsFile)

	for _, d := range s.registry.All() {
		files, err := s.generator.Refresh(abs, d)
		if err != nil {
			return nil, fmt.Errorf("refreshing %s: %w", d.Name, err)
		}
		res.Updated = append(res.Updated, files...)
	}
	s.logger.Info("openspec updated", "dir", dir, "files", len(res.Updated))
	return res, nil
}

func (s *Scaffolder) writeAgents(dir string) error {
	if err := fsutil.WriteFileAtomic(filepath.Join(dir, AgentsFile), []byte(mustTemplate(AgentsFile)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", AgentsFile, err)
	}
	return nil
}

func (s *Scaffolder) writeRootStub(root string) (StubStatus, error) {
	path := filepath.Join(root, AgentsFile)
	existing, err := fsutil.ReadOptional(path)
	if err != nil {
		return "", err
	}
	status := StubUpdated
	if existing == "" {
		status = StubCreated
	}
	if err := fsutil.WriteFileAtomic(path, []byte(agents.UpsertMarkedBlock(existing, agents.RootStub())), 0o644); err != nil {
		return "", fmt.Errorf("writing root %s: %w", AgentsFile, err)
	}
	return status, nil
}

func mustTemplate(name string) string {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		panic(fmt.Sprintf("project: missing embedded template %s", name))
	}
	return string(data)
}
