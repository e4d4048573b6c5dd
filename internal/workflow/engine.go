package workflow

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HendryAvila/openspec/internal/fsutil"
)

// File layout under <openspec>/.workflow/.
const (
	StateDir    = ".workflow"
	CurrentFile = "current"
	ChangesDir  = "changes"
	MetaFile    = "meta.yaml"
	TasksFile   = "tasks.yaml"
	PlanFile    = "plan.md"
)

// timeNow is replaced in tests.
var timeNow = time.Now

// Engine reads and writes workflow state for one openspec directory.
type Engine struct {
	root   string
	logger *slog.Logger
}

// NewEngine creates an engine rooted at openspecDir.
func NewEngine(openspecDir string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{root: filepath.Join(openspecDir, StateDir), logger: logger}
}

// ChangeDir returns the directory of a workflow change.
func (e *Engine) ChangeDir(id string) string {
	return filepath.Join(e.root, ChangesDir, id)
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a change id.
func Slugify(title string) string {
	s := nonSlug.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if len(s) > 50 {
		s = strings.TrimRight(s[:50], "-")
	}
	return s
}

// Create starts a new change in the draft phase and makes it active.
func (e *Engine) Create(title string) (*Meta, error) {
	id := Slugify(title)
	if id == "" {
		return nil, fmt.Errorf("title %q does not produce a usable id", title)
	}
	if fsutil.IsDir(e.ChangeDir(id)) {
		return nil, fmt.Errorf("%w: %s", ErrChangeExists, id)
	}

	now := timeNow().UTC().Format(time.RFC3339)
	meta := Meta{
		SchemaVersion:  SchemaVersion,
		ID:             id,
		Title:          strings.TrimSpace(title),
		CurrentPhaseID: PhaseDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.saveMeta(meta); err != nil {
		return nil, err
	}
	if err := e.saveTasks(id, []Task{}); err != nil {
		return nil, err
	}
	if err := e.setActive(id); err != nil {
		return nil, err
	}
	e.logger.Info("workflow change created", "change", id)
	return &meta, nil
}

// Use makes an existing change active.
func (e *Engine) Use(id string) error {
	if _, err := e.loadMeta(id); err != nil {
		return err
	}
	return e.setActive(id)
}

// List returns the ids of all workflow changes.
func (e *Engine) List() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(e.root, ChangesDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("reading workflow changes: %w", err)
	}
	ids := []string{}
	for _, en := range entries {
		if en.IsDir() {
			ids = append(ids, en.Name())
		}
	}
	return ids, nil
}

// ActiveID returns the active change id, or "" when there is none.
func (e *Engine) ActiveID() (string, error) {
	data, err := fsutil.ReadOptional(filepath.Join(e.root, CurrentFile))
	if err != nil {
		return "", fmt.Errorf("reading active change: %w", err)
	}
	return strings.TrimSpace(data), nil
}

// Active loads the active change.
func (e *Engine) Active() (*Change, error) {
	id, err := e.ActiveID()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrNoActiveChange
	}
	meta, err := e.loadMeta(id)
	if err != nil {
		return nil, err
	}
	tasks, err := e.loadTasks(id)
	if err != nil {
		return nil, err
	}
	return &Change{Meta: meta, Tasks: tasks}, nil
}

// Advance moves the active change forward to `to`, or to the next phase
// when to is empty. Every intermediate transition must be unblocked.
func (e *Engine) Advance(to Phase) (*Meta, error) {
	c, err := e.Active()
	if err != nil {
		return nil, err
	}
	from := c.Meta.CurrentPhaseID

	if to == "" {
		to = from.Next()
		if to == "" {
			return nil, ErrFinalPhase
		}
	}
	if to.index() < 0 {
		return nil, fmt.Errorf("invalid phase %q", to)
	}
	if to.index() <= from.index() {
		return nil, &TransitionError{From: from, To: to, Blockers: []string{"Phases only move forward."}}
	}

	for phase := from; phase != to; phase = phase.Next() {
		if blockers := e.blockers(phase, c); len(blockers) > 0 {
			return nil, &TransitionError{From: phase, To: phase.Next(), Blockers: blockers}
		}
	}

	c.Meta.CurrentPhaseID = to
	c.Meta.UpdatedAt = timeNow().UTC().Format(time.RFC3339)
	if err := e.saveMeta(c.Meta); err != nil {
		return nil, err
	}
	e.logger.Info("workflow phase advanced", "change", c.Meta.ID, "from", from, "to", to)
	return &c.Meta, nil
}

// blockers lists what prevents leaving phase.
func (e *Engine) blockers(phase Phase, c *Change) []string {
	var out []string
	switch phase {
	case PhaseDraft:
		if !fileExists(filepath.Join(e.ChangeDir(c.Meta.ID), PlanFile)) {
			out = append(out, "No plan.md found. Create a plan before advancing.")
		}
	case PhasePlan:
		if len(c.Tasks) == 0 {
			out = append(out, "No tasks defined. Add tasks to tasks.yaml before advancing.")
			break
		}
		var missing []string
		for _, t := range c.Tasks {
			if len(t.AcceptanceCriteria) == 0 {
				missing = append(missing, t.ID)
			}
		}
		if len(missing) > 0 {
			out = append(out, "Tasks missing acceptance criteria: "+strings.Join(missing, ", "))
		}
	case PhaseImplement:
		var incomplete []string
		for _, t := range c.Tasks {
			if t.Status != StatusComplete {
				incomplete = append(incomplete, t.ID)
			}
		}
		if len(incomplete) > 0 {
			out = append(out, fmt.Sprintf("%d task(s) not complete: %s", len(incomplete), strings.Join(incomplete, ", ")))
		}
	}
	return out
}

// AddTask appends a pending task to the active change. An empty id gets
// the next free number.
func (e *Engine) AddTask(id, title string, criteria []string) (*Task, error) {
	c, err := e.Active()
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = nextTaskID(c.Tasks)
	}
	for _, t := range c.Tasks {
		if t.ID == id {
			return nil, fmt.Errorf("%w: %s", ErrTaskExists, id)
		}
	}
	if criteria == nil {
		criteria = []string{}
	}
	task := Task{ID: id, Title: title, AcceptanceCriteria: criteria, Status: StatusPending}
	c.Tasks = append(c.Tasks, task)
	if err := e.saveTasks(c.Meta.ID, c.Tasks); err != nil {
		return nil, err
	}
	return &task, e.touch(c.Meta)
}

func nextTaskID(tasks []Task) string {
	highest := 0
	for _, t := range tasks {
		if n, err := strconv.Atoi(t.ID); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.Itoa(highest + 1)
}

// SetTaskStatus updates one task of the active change.
func (e *Engine) SetTaskStatus(id string, status TaskStatus) (*Task, error) {
	c, err := e.Active()
	if err != nil {
		return nil, err
	}
	for i := range c.Tasks {
		if c.Tasks[i].ID != id {
			continue
		}
		c.Tasks[i].Status = status
		if err := e.saveTasks(c.Meta.ID, c.Tasks); err != nil {
			return nil, err
		}
		task := c.Tasks[i]
		return &task, e.touch(c.Meta)
	}
	return nil, fmt.Errorf("%w: %q in change %q", ErrTaskNotFound, id, c.Meta.ID)
}

func (e *Engine) touch(meta Meta) error {
	meta.UpdatedAt = timeNow().UTC().Format(time.RFC3339)
	return e.saveMeta(meta)
}

// --- persistence ---

func (e *Engine) setActive(id string) error {
	if err := fsutil.WriteFileAtomic(filepath.Join(e.root, CurrentFile), []byte(id+"\n"), 0o644); err != nil {
		return fmt.Errorf("saving active change: %w", err)
	}
	return nil
}

func (e *Engine) loadMeta(id string) (Meta, error) {
	var meta Meta
	data, err := os.ReadFile(filepath.Join(e.ChangeDir(id), MetaFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return meta, fmt.Errorf("workflow change %q not found", id)
		}
		return meta, fmt.Errorf("reading meta: %w", err)
	}
	if err := yaml.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parsing %s: %w", MetaFile, err)
	}
	return meta, nil
}

func (e *Engine) saveMeta(meta Meta) error {
	data, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(e.ChangeDir(meta.ID), MetaFile), data, 0o644); err != nil {
		return fmt.Errorf("saving meta: %w", err)
	}
	return nil
}

func (e *Engine) loadTasks(id string) ([]Task, error) {
	data, err := fsutil.ReadOptional(filepath.Join(e.ChangeDir(id), TasksFile))
	if err != nil {
		return nil, fmt.Errorf("reading tasks: %w", err)
	}
	var tf tasksFile
	if err := yaml.Unmarshal([]byte(data), &tf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", TasksFile, err)
	}
	if tf.Tasks == nil {
		tf.Tasks = []Task{}
	}
	return tf.Tasks, nil
}

func (e *Engine) saveTasks(id string, tasks []Task) error {
	data, err := yaml.Marshal(tasksFile{SchemaVersion: SchemaVersion, Tasks: tasks})
	if err != nil {
		return fmt.Errorf("marshaling tasks: %w", err)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(e.ChangeDir(id), TasksFile), data, 0o644); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
