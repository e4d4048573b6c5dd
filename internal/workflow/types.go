// Package workflow is a file-backed phase machine for a single active
// change: draft, plan, implement, done. Phases only move forward and each
// step is gated by blockers computed from the change's files.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// SchemaVersion is written to every meta.yaml and tasks.yaml.
const SchemaVersion = "poc-1"

// Phase is a workflow phase.
type Phase string

const (
	PhaseDraft     Phase = "draft"
	PhasePlan      Phase = "plan"
	PhaseImplement Phase = "implement"
	PhaseDone      Phase = "done"
)

// PhaseOrder is the only allowed direction of travel.
var PhaseOrder = []Phase{PhaseDraft, PhasePlan, PhaseImplement, PhaseDone}

func (p Phase) index() int {
	for i, q := range PhaseOrder {
		if q == p {
			return i
		}
	}
	return -1
}

// Next returns the phase after p, or "" when p is final or unknown.
func (p Phase) Next() Phase {
	i := p.index()
	if i < 0 || i == len(PhaseOrder)-1 {
		return ""
	}
	return PhaseOrder[i+1]
}

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToLower(strings.TrimSpace(s)))
	if p.index() < 0 {
		names := make([]string, len(PhaseOrder))
		for i, q := range PhaseOrder {
			names[i] = string(q)
		}
		return "", fmt.Errorf("invalid phase %q; valid phases: %s", s, strings.Join(names, ", "))
	}
	return p, nil
}

// TaskStatus is the status of a workflow task.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusComplete   TaskStatus = "complete"
	StatusBlocked    TaskStatus = "blocked"
)

// ParseTaskStatus validates a task status name. "done" and "start" are
// accepted as aliases.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "in_progress", "in-progress", "start":
		return StatusInProgress, nil
	case "complete", "done":
		return StatusComplete, nil
	case "blocked":
		return StatusBlocked, nil
	}
	return "", fmt.Errorf("invalid task status %q; valid: pending, in_progress, complete, blocked", s)
}

// Task is one entry of tasks.yaml.
type Task struct {
	ID                 string     `yaml:"id" json:"id"`
	Title              string     `yaml:"title" json:"title"`
	AcceptanceCriteria []string   `yaml:"acceptance_criteria" json:"acceptance_criteria"`
	Status             TaskStatus `yaml:"status" json:"status"`
}

// Meta is meta.yaml.
type Meta struct {
	SchemaVersion  string `yaml:"schemaVersion" json:"schemaVersion"`
	ID             string `yaml:"id" json:"id"`
	Title          string `yaml:"title" json:"title"`
	CurrentPhaseID Phase  `yaml:"currentPhaseId" json:"currentPhaseId"`
	CreatedAt      string `yaml:"createdAt" json:"createdAt"`
	UpdatedAt      string `yaml:"updatedAt" json:"updatedAt"`
}

type tasksFile struct {
	SchemaVersion string `yaml:"schemaVersion"`
	Tasks         []Task `yaml:"tasks"`
}

// Change is a workflow change with its tasks.
type Change struct {
	Meta  Meta   `json:"meta"`
	Tasks []Task `json:"tasks"`
}

// Progress counts tasks per status.
type Progress struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Complete   int `json:"complete"`
	Blocked    int `json:"blocked"`
}

// Status is the report behind `openspec workflow status`.
type Status struct {
	ActiveChangeID string    `json:"activeChangeId"`
	Title          string    `json:"title,omitempty"`
	Phase          Phase     `json:"phase"`
	TaskProgress   *Progress `json:"taskProgress"`
	NextTask       *Task     `json:"nextTask"`
	Blockers       []string  `json:"blockers"`
	NextAction     string    `json:"nextAction"`
}

var (
	// ErrNoActiveChange means no change has been created or selected.
	ErrNoActiveChange = errors.New("no active change; create one with `openspec workflow create <title>`")
	// ErrTaskNotFound means a task id is not in tasks.yaml.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskExists means AddTask was given an id already in use.
	ErrTaskExists = errors.New("task already exists")
	// ErrChangeExists means a change with the same slug already exists.
	ErrChangeExists = errors.New("workflow change already exists")
	// ErrFinalPhase means Advance was called on a change that is done.
	ErrFinalPhase = errors.New("already at final phase (done)")
)

// TransitionError lists what prevents a phase transition.
type TransitionError struct {
	From     Phase
	To       Phase
	Blockers []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot advance from %q to %q: %s", e.From, e.To, strings.Join(e.Blockers, "; "))
}
