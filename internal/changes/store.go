package changes

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/openspec/internal/artifacts"
	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/markdown"
	"github.com/HendryAvila/openspec/internal/metadata"
	"github.com/HendryAvila/openspec/internal/tasks"
	"github.com/HendryAvila/openspec/internal/validation"
)

// Change directory files.
const (
	ProposalFile = "proposal.md"
	DesignFile   = "design.md"
	TasksFile    = "tasks.md"
)

// Store defines the change lifecycle operations.
// Abstracted for testability (DIP).
type Store interface {
	Create(projectRoot, name string, opts CreateOptions) (*Created, error)
	List(projectRoot string, order SortOrder) ([]Change, error)
	Show(projectRoot, id string) (*Details, error)
	ListSpecs(projectRoot string) ([]SpecSummary, error)
	ShowSpec(projectRoot, capability string) (*SpecDetails, error)
	ListArchived(projectRoot string) ([]Archived, error)
	ApplySpecs(projectRoot, id string, opts ApplyOptions) (*ApplyResult, error)
	Archive(projectRoot, id string, opts ArchiveOptions) (*ArchiveResult, error)
	SetTaskComplete(projectRoot, id, taskID string, done bool) (*tasks.Task, error)
}

// ArchiveObserver is notified after a change has been archived. It is an
// optional dependency; a nil observer is never called.
type ArchiveObserver interface {
	OnArchive(event ArchiveEvent)
}

// ArchiveEvent describes a completed archive.
type ArchiveEvent struct {
	ProjectRoot  string
	ChangeID     string
	ArchiveName  string
	ArchivedAt   time.Time
	Proposal     string
	Totals       Counts
	Capabilities []CapabilityUpdate
}

// FileStore implements Store on the local filesystem.
type FileStore struct {
	resolver *artifacts.Resolver
	observer ArchiveObserver
	logger   *slog.Logger
}

// NewFileStore creates a filesystem-backed store. resolver may be nil, in
// which case only built-in schemas resolve. logger defaults to slog.Default.
func NewFileStore(resolver *artifacts.Resolver, logger *slog.Logger) *FileStore {
	if resolver == nil {
		resolver = artifacts.NewResolver("")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{resolver: resolver, logger: logger}
}

// SetObserver installs the archive observer.
func (s *FileStore) SetObserver(o ArchiveObserver) {
	s.observer = o
}

// Create makes changes/<name>/. The name must be kebab-case and unused.
// The schema is only written to .openspec.yaml when given explicitly.
func (s *FileStore) Create(projectRoot, name string, opts CreateOptions) (*Created, error) {
	if check := ValidateChangeName(name); !check.Valid {
		return nil, newError(ErrInvalidInput, "create", "%s", check.Reason)
	}

	schema := metadata.DefaultSchema
	if opts.Schema != "" {
		resolved, err := s.resolver.Resolve(opts.Schema)
		if err != nil {
			if errors.Is(err, artifacts.ErrSchemaNotFound) {
				return nil, &Error{Kind: ErrNotFound, Op: "create", Message: err.Error()}
			}
			return nil, err
		}
		schema = resolved.Name
		if schema == "" {
			schema = opts.Schema
		}
	}

	dir := ChangePath(projectRoot, name)
	exists, err := fsutil.Exists(dir)
	if err != nil {
		return nil, fmt.Errorf("checking change directory: %w", err)
	}
	if exists {
		return nil, newError(ErrAlreadyExists, "create", "Change '%s' already exists at %s", name, dir)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating change directory: %w", err)
	}
	if opts.Schema != "" {
		if err := metadata.Write(dir, metadata.Metadata{Schema: schema}); err != nil {
			return nil, err
		}
	}

	if opts.Description != "" {
		readme := fmt.Sprintf("# %s\n\n%s\n", name, opts.Description)
		if err := fsutil.WriteFileAtomic(filepath.Join(dir, "README.md"), []byte(readme), 0o644); err != nil {
			return nil, fmt.Errorf("writing README.md: %w", err)
		}
	}

	s.logger.Info("change created", "change", name, "schema", schema, "dir", dir)
	return &Created{ID: name, ChangeDir: dir, Schema: schema}, nil
}

// List returns active changes. A project without a changes directory is
// an error; an empty one is not.
func (s *FileStore) List(projectRoot string, order SortOrder) ([]Change, error) {
	changesDir := ChangesPath(projectRoot)
	entries, err := os.ReadDir(changesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrNotFound, "list", "No OpenSpec changes directory found. Run 'openspec init' first.")
		}
		return nil, fmt.Errorf("reading changes directory: %w", err)
	}

	result := []Change{}
	for _, e := range entries {
		if !e.IsDir() || e.Name() == ArchiveDir || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(changesDir, e.Name())
		progress, err := readProgress(dir)
		if err != nil {
			return nil, err
		}
		result = append(result, Change{
			ID:           e.Name(),
			Progress:     progress,
			State:        StateOf(progress),
			LastModified: lastModified(dir),
		})
	}

	if order == SortName {
		sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	} else {
		sort.SliceStable(result, func(i, j int) bool {
			if !result[i].LastModified.Equal(result[j].LastModified) {
				return result[i].LastModified.After(result[j].LastModified)
			}
			return result[i].ID < result[j].ID
		})
	}
	return result, nil
}

func readProgress(changeDir string) (tasks.Progress, error) {
	content, err := fsutil.ReadOptional(filepath.Join(changeDir, TasksFile))
	if err != nil {
		return tasks.Progress{}, fmt.Errorf("reading tasks: %w", err)
	}
	return tasks.Count(content), nil
}

// lastModified is the newest file mtime under dir, or dir's own mtime when
// it holds no files.
func lastModified(dir string) time.Time {
	var latest time.Time
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil && info.ModTime().After(latest) {
			latest = info.ModTime()
		}
		return nil
	})
	if latest.IsZero() {
		if info, err := os.Stat(dir); err == nil {
			latest = info.ModTime()
		}
	}
	return latest
}

func (s *FileStore) requireChange(projectRoot, id, op string) (string, error) {
	dir := ChangePath(projectRoot, id)
	if id == "" || id == ArchiveDir || id != filepath.Base(id) || strings.HasPrefix(id, ".") || !fsutil.IsDir(dir) {
		return "", newError(ErrNotFound, op, "Change '%s' not found.", id)
	}
	return dir, nil
}

// Show aggregates one change: proposal, deltas, tasks, validation, and
// artifact status.
func (s *FileStore) Show(projectRoot, id string) (*Details, error) {
	dir, err := s.requireChange(projectRoot, id, "show")
	if err != nil {
		return nil, err
	}

	proposalText, err := fsutil.ReadOptional(filepath.Join(dir, ProposalFile))
	if err != nil {
		return nil, fmt.Errorf("reading proposal: %w", err)
	}
	tasksText, err := fsutil.ReadOptional(filepath.Join(dir, TasksFile))
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}

	proposal := markdown.ParseProposal(proposalText)
	progress := tasks.Count(tasksText)
	d := &Details{
		ID:        id,
		Dir:       dir,
		Title:     proposal.Title,
		Why:       proposal.Why,
		Bullets:   proposal.Bullets,
		Proposal:  proposal,
		Deltas:    []markdown.Delta{},
		Tasks:     tasks.Parse(tasksText),
		Progress:  progress,
		State:     StateOf(progress),
		HasDesign: fileExists(filepath.Join(dir, DesignFile)),
		Validation: validation.New(false, validation.WithSpecsDir(SpecsPath(projectRoot))).
			ValidateChange(dir),
	}
	if d.Title == "" {
		d.Title = id
	}

	files, err := validation.DiscoverDeltaSpecs(dir)
	if err != nil {
		return nil, fmt.Errorf("listing delta specs: %w", err)
	}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(f.Rel)))
		if err != nil {
			return nil, fmt.Errorf("reading delta spec: %w", err)
		}
		d.Deltas = append(d.Deltas, markdown.ParseDeltaSpec(string(data)).Deltas(f.Capability)...)
	}

	meta, err := metadata.Read(dir)
	if err != nil {
		s.logger.Warn("ignoring unreadable change metadata", "change", id, "error", err)
		meta = metadata.Metadata{Schema: metadata.DefaultSchema}
	}
	d.Metadata = &ChangeMetadataView{Schema: meta.Schema, Created: meta.Created}
	if report, err := s.artifactReport(dir, meta.Schema); err != nil {
		s.logger.Debug("artifact status unavailable", "change", id, "schema", meta.Schema, "error", err)
	} else {
		d.Artifacts = report
	}
	return d, nil
}

// ArtifactStatus reports a change's position in its schema's artifact
// graph. schemaOverride, when set, replaces the schema from metadata.
func (s *FileStore) ArtifactStatus(projectRoot, id, schemaOverride string) (*ArtifactReport, error) {
	dir, err := s.requireChange(projectRoot, id, "status")
	if err != nil {
		return nil, err
	}
	schema := schemaOverride
	if schema == "" {
		meta, err := metadata.Read(dir)
		if err != nil {
			return nil, err
		}
		schema = meta.Schema
	}
	report, err := s.artifactReport(dir, schema)
	if err != nil {
		if errors.Is(err, artifacts.ErrSchemaNotFound) {
			return nil, &Error{Kind: ErrNotFound, Op: "status", Message: err.Error()}
		}
		return nil, err
	}
	return report, nil
}

func (s *FileStore) artifactReport(changeDir, schemaName string) (*ArtifactReport, error) {
	schema, err := s.resolver.Resolve(schemaName)
	if err != nil {
		return nil, err
	}
	done := artifacts.DetectCompleted(changeDir, schema)
	completed := done.Sorted(schema)
	if completed == nil {
		completed = []string{}
	}
	ready := artifacts.Ready(schema, done)
	if ready == nil {
		ready = []string{}
	}
	return &ArtifactReport{
		Schema:    schemaName,
		Completed: completed,
		Ready:     ready,
		Blocked:   artifacts.Blocked(schema, done),
		Statuses:  artifacts.Statuses(schema, done),
	}, nil
}

// ListSpecs returns canonical specs sorted by id. A project without specs
// yields an empty list.
func (s *FileStore) ListSpecs(projectRoot string) ([]SpecSummary, error) {
	files, err := validation.DiscoverSpecs(ResolveDir(projectRoot))
	if err != nil {
		return nil, fmt.Errorf("listing specs: %w", err)
	}
	out := make([]SpecSummary, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(SpecPath(projectRoot, f.Capability))
		if err != nil {
			return nil, fmt.Errorf("reading spec %s: %w", f.Capability, err)
		}
		spec := markdown.ParseSpec(string(data))
		title := spec.Title
		if title == "" {
			title = f.Capability
		}
		out = append(out, SpecSummary{ID: f.Capability, Title: title, RequirementCount: len(spec.Requirements)})
	}
	return out, nil
}

// ShowSpec returns one parsed canonical spec.
func (s *FileStore) ShowSpec(projectRoot, capability string) (*SpecDetails, error) {
	path := SpecPath(projectRoot, capability)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrNotFound, "show", "Spec '%s' not found.", capability)
		}
		return nil, fmt.Errorf("reading spec: %w", err)
	}
	spec := markdown.ParseSpec(string(data))
	reqs := spec.Requirements
	if reqs == nil {
		reqs = []markdown.Requirement{}
	}
	return &SpecDetails{
		ID:           capability,
		Title:        spec.Title,
		Purpose:      spec.Purpose,
		Requirements: reqs,
		Content:      string(data),
	}, nil
}

var archiveName = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-(.+)$`)

// ListArchived returns archived changes, newest first.
func (s *FileStore) ListArchived(projectRoot string) ([]Archived, error) {
	entries, err := os.ReadDir(ArchivePath(projectRoot))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Archived{}, nil
		}
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}
	out := []Archived{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		a := Archived{Name: e.Name(), ChangeID: e.Name()}
		if m := archiveName.FindStringSubmatch(e.Name()); m != nil {
			a.Date, a.ChangeID = m[1], m[2]
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name > out[j].Name })
	return out, nil
}

// SetTaskComplete checks or unchecks one task in a change's tasks.md.
func (s *FileStore) SetTaskComplete(projectRoot, id, taskID string, done bool) (*tasks.Task, error) {
	dir, err := s.requireChange(projectRoot, id, "task")
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, TasksFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrNotFound, "task", "Change '%s' has no %s.", id, TasksFile)
		}
		return nil, fmt.Errorf("reading tasks: %w", err)
	}

	updated, err := tasks.SetComplete(string(data), taskID, done)
	if err != nil {
		return nil, newError(ErrNotFound, "task", "Task '%s' not found in change '%s'.", taskID, id)
	}
	if err := fsutil.WriteFileAtomic(path, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("writing tasks: %w", err)
	}
	t, _ := tasks.Find(updated, taskID)
	return &t, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
