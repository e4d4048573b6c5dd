// Package changes implements the change lifecycle: create, list, show,
// apply, and archive, plus spec delta merging.
//
// Lifecycle operations return structured results and never print. Two
// error channels are kept apart:
//   - precondition failures are returned as *Error values (see errors.go)
//   - content-quality findings are carried in validation.Report values
//
// Layout, under the project's openspec directory:
//
//	changes/<id>/{proposal.md,design.md,tasks.md,specs/<capability>/spec.md}
//	changes/archive/<YYYY-MM-DD>-<id>/
//	specs/<capability>/spec.md
package changes

import (
	"regexp"
	"strings"
	"time"

	"github.com/HendryAvila/openspec/internal/artifacts"
	"github.com/HendryAvila/openspec/internal/markdown"
	"github.com/HendryAvila/openspec/internal/tasks"
	"github.com/HendryAvila/openspec/internal/validation"
)

// --- Change state ---

// State is derived from tasks.md on every read; it is never persisted.
type State string

const (
	StateDraft     State = "draft"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateArchived  State = "archived"
)

// StateOf derives the state of an active change from its task progress.
func StateOf(p tasks.Progress) State {
	switch {
	case p.Draft():
		return StateDraft
	case p.Done():
		return StateCompleted
	default:
		return StateActive
	}
}

// --- Change name validation ---

var (
	kebabCase       = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)
	invalidNameChar = regexp.MustCompile(`[^a-z0-9-]`)
)

// NameCheck is the outcome of ValidateChangeName.
type NameCheck struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// ValidateChangeName checks that name is kebab-case. The reason names the
// first defect found.
func ValidateChangeName(name string) NameCheck {
	if kebabCase.MatchString(name) {
		return NameCheck{Valid: true}
	}

	reason := "Change name must follow kebab-case convention (e.g., add-auth, refactor-db)"
	switch {
	case name == "":
		reason = "Change name cannot be empty"
	case strings.ToLower(name) != name:
		reason = "Change name must be lowercase (use kebab-case)"
	case strings.ContainsAny(name, " \t\n\r"):
		reason = "Change name cannot contain spaces (use hyphens instead)"
	case strings.Contains(name, "_"):
		reason = "Change name cannot contain underscores (use hyphens instead)"
	case strings.HasPrefix(name, "-"):
		reason = "Change name cannot start with a hyphen"
	case strings.HasSuffix(name, "-"):
		reason = "Change name cannot end with a hyphen"
	case strings.Contains(name, "--"):
		reason = "Change name cannot contain consecutive hyphens"
	case invalidNameChar.MatchString(name):
		reason = "Change name can only contain lowercase letters, numbers, and hyphens"
	case name[0] >= '0' && name[0] <= '9':
		reason = "Change name must start with a letter"
	}
	return NameCheck{Reason: reason}
}

// --- Results ---

// CreateOptions configures Create.
type CreateOptions struct {
	// Schema, when set, is recorded in .openspec.yaml.
	Schema string
	// Description, when set, is written to README.md.
	Description string
}

// Created is the result of Create.
type Created struct {
	ID        string `json:"id"`
	ChangeDir string `json:"changeDir"`
	Schema    string `json:"schema"`
}

// SortOrder selects list ordering.
type SortOrder string

const (
	SortRecent SortOrder = "recent"
	SortName   SortOrder = "name"
)

// Change is one entry of List.
type Change struct {
	ID           string         `json:"name"`
	Progress     tasks.Progress `json:"progress"`
	State        State          `json:"state"`
	LastModified time.Time      `json:"lastModified"`
}

// ArtifactReport is a change's artifact graph position.
type ArtifactReport struct {
	Schema    string                     `json:"schema"`
	Completed []string                   `json:"completed"`
	Ready     []string                   `json:"ready"`
	Blocked   map[string][]string        `json:"blocked"`
	Statuses  []artifacts.ArtifactStatus `json:"artifacts"`
}

// Details is the result of Show.
type Details struct {
	ID         string              `json:"id"`
	Dir        string              `json:"dir"`
	Title      string              `json:"title"`
	Why        string              `json:"why"`
	Bullets    []string            `json:"whatChanges"`
	Proposal   markdown.Proposal   `json:"-"`
	Deltas     []markdown.Delta    `json:"deltas"`
	Tasks      []tasks.Task        `json:"tasks"`
	Progress   tasks.Progress      `json:"progress"`
	State      State               `json:"state"`
	HasDesign  bool                `json:"hasDesign"`
	Validation validation.Report   `json:"validation"`
	Artifacts  *ArtifactReport     `json:"artifactStatus,omitempty"`
	Metadata   *ChangeMetadataView `json:"metadata,omitempty"`
}

// ChangeMetadataView is the metadata shown by Show.
type ChangeMetadataView struct {
	Schema  string `json:"schema"`
	Created string `json:"created,omitempty"`
}

// SpecSummary is one entry of ListSpecs.
type SpecSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	RequirementCount int    `json:"requirementCount"`
}

// SpecDetails is the result of ShowSpec.
type SpecDetails struct {
	ID           string                 `json:"id"`
	Title        string                 `json:"title"`
	Purpose      string                 `json:"overview"`
	Requirements []markdown.Requirement `json:"requirements"`
	Content      string                 `json:"-"`
}

// Archived is one entry of ListArchived.
type Archived struct {
	Name     string `json:"name"`
	ChangeID string `json:"changeId"`
	Date     string `json:"date"`
}

// Counts tallies delta operations.
type Counts struct {
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Removed  int `json:"removed"`
	Renamed  int `json:"renamed"`
}

func (c *Counts) add(o Counts) {
	c.Added += o.Added
	c.Modified += o.Modified
	c.Removed += o.Removed
	c.Renamed += o.Renamed
}

// Zero reports whether no operation was counted.
func (c Counts) Zero() bool {
	return c == Counts{}
}

// CapabilityUpdate is what happened to one capability's spec.
type CapabilityUpdate struct {
	Capability string `json:"capability"`
	// RenamedTo is set when the capability folder moved.
	RenamedTo string `json:"renamedTo,omitempty"`
	Created   bool   `json:"created"`
	Counts
}

// ApplyOptions configures ApplySpecs.
type ApplyOptions struct {
	DryRun bool
	// SkipValidation skips validating the rebuilt specs.
	SkipValidation bool
}

// ApplyResult is the outcome of merging a change's deltas into specs.
type ApplyResult struct {
	ChangeID     string             `json:"changeName"`
	Capabilities []CapabilityUpdate `json:"capabilities"`
	Totals       Counts             `json:"totals"`
	Warnings     []string           `json:"warnings,omitempty"`
	NoChanges    bool               `json:"noChanges"`
	DryRun       bool               `json:"dryRun,omitempty"`
}

// ArchiveOptions configures Archive.
type ArchiveOptions struct {
	SkipSpecs  bool
	NoValidate bool
}

// ArchiveResult is the outcome of Archive.
type ArchiveResult struct {
	ChangeID    string             `json:"changeName"`
	ArchiveName string             `json:"archiveName"`
	ArchiveDir  string             `json:"archiveDir"`
	Progress    tasks.Progress     `json:"taskStatus"`
	Specs       *ApplyResult       `json:"specs,omitempty"`
	Validation  *validation.Report `json:"validation,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}
