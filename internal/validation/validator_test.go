package validation

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goodProposal = `# Change: Add OTP

## Why
Passwords alone are too weak against credential stuffing attacks on our login.

## What Changes
- **auth:** Add OTP verification
`

const goodDelta = `## ADDED Requirements
### Requirement: OTP
The system SHALL send a one-time password after login.

#### Scenario: OTP sent
- **WHEN** the password is accepted
- **THEN** an OTP is sent
`

// writeFiles lays out files relative to root.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// newChange creates <root>/openspec/changes/<id> and returns its path.
func newChange(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "openspec", "changes", "add-otp")
	writeFiles(t, dir, files)
	return dir
}

func hasIssue(r Report, level Level, substr string) bool {
	for _, i := range r.Issues {
		if i.Level == level && strings.Contains(i.Message, substr) {
			return true
		}
	}
	return false
}

func TestValidateChange_Valid(t *testing.T) {
	dir := newChange(t, map[string]string{
		"proposal.md":        goodProposal,
		"specs/auth/spec.md": goodDelta,
	})

	for _, strict := range []bool{false, true} {
		r := ValidateChangeDeltaSpecs(dir, strict)
		assert.True(t, r.Valid, "strict=%v issues=%v", strict, r.Issues)
		assert.Zero(t, r.Summary.Errors)
	}
}

func TestValidateChange_ProposalRules(t *testing.T) {
	tests := []struct {
		name     string
		proposal string
		level    Level
		substr   string
	}{
		{"missing why", "## What Changes\n- a\n", LevelError, "non-empty Why"},
		{"short why", "## Why\nshort\n## What Changes\n- a\n", LevelWarning, "Why section is short"},
		{"no bullets", "## Why\n" + strings.Repeat("x", 60) + "\n## What Changes\nprose only\n", LevelError, "at least one change"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newChange(t, map[string]string{"proposal.md": tt.proposal, "specs/auth/spec.md": goodDelta})
			r := ValidateChangeDeltaSpecs(dir, false)
			assert.True(t, hasIssue(r, tt.level, tt.substr), "issues=%v", r.Issues)
		})
	}
}

func TestValidateChange_MissingProposal(t *testing.T) {
	dir := newChange(t, map[string]string{"specs/auth/spec.md": goodDelta})
	r := ValidateChangeDeltaSpecs(dir, false)
	assert.False(t, r.Valid)
	assert.True(t, hasIssue(r, LevelError, "proposal.md not found"))
}

func TestValidateChange_ZeroScenariosAlwaysError(t *testing.T) {
	delta := "## ADDED Requirements\n### Requirement: Bare\nThe system SHALL do things.\n"
	dir := newChange(t, map[string]string{"proposal.md": goodProposal, "specs/auth/spec.md": delta})

	for _, strict := range []bool{false, true} {
		r := ValidateChangeDeltaSpecs(dir, strict)
		assert.False(t, r.Valid, "strict=%v", strict)
		assert.True(t, hasIssue(r, LevelError, "at least one scenario"))
	}
}

func TestValidateChange_WarningsDoNotInvalidate(t *testing.T) {
	dir := newChange(t, map[string]string{
		"proposal.md": "## Why\nshort\n## What Changes\n- a\n",
	})
	r := ValidateChangeDeltaSpecs(dir, false)
	assert.True(t, r.Valid)
	assert.Equal(t, 2, r.Summary.Warnings)
	assert.True(t, hasIssue(r, LevelWarning, "No spec deltas"))
}

func TestValidateChange_DeltaRules(t *testing.T) {
	tests := []struct {
		name   string
		delta  string
		substr string
	}{
		{"no operations", "# nothing\n", "No delta operations"},
		{"missing shall", "## ADDED Requirements\n### Requirement: X\nDoes a thing.\n\n#### Scenario: s\nok\n", "SHALL or MUST"},
		{"duplicate added", goodDelta + "\n" + strings.TrimPrefix(goodDelta, "## ADDED Requirements\n"), "duplicate requirement"},
		{"modified and removed", "## MODIFIED Requirements\n### Requirement: Login\nThe system SHALL log in.\n\n#### Scenario: s\nok\n\n## REMOVED Requirements\n### Requirement: Login\n", "appears in both"},
		{"modified uses old name", "## RENAMED Requirements\n- FROM: `### Requirement: Login`\n- TO: `### Requirement: Sign in`\n\n## MODIFIED Requirements\n### Requirement: Login\nThe system SHALL log in.\n\n#### Scenario: s\nok\n", "new header"},
		{"added collides with rename", "## RENAMED Requirements\n- FROM: `### Requirement: Login`\n- TO: `### Requirement: OTP`\n\n" + goodDelta, "collides"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := newChange(t, map[string]string{"proposal.md": goodProposal, "specs/auth/spec.md": tt.delta})
			r := ValidateChangeDeltaSpecs(dir, false)
			assert.False(t, r.Valid)
			assert.True(t, hasIssue(r, LevelError, tt.substr), "issues=%v", r.Issues)
		})
	}
}

func TestValidateChange_StrictOnlyRules(t *testing.T) {
	emptyScenario := "## ADDED Requirements\n### Requirement: X\nThe system SHALL x.\n\n#### Scenario: empty\n"
	unknownKind := goodDelta + "\n## CHANGED Requirements\nstuff\n"

	tests := []struct {
		name   string
		files  map[string]string
		substr string
	}{
		{"capability naming", map[string]string{"specs/Auth/spec.md": goodDelta}, "must use lowercase"},
		{"reserved capability", map[string]string{"specs/archive/spec.md": goodDelta}, "reserved name"},
		{"unknown kind", map[string]string{"specs/auth/spec.md": unknownKind}, "unknown delta section"},
		{"empty scenario", map[string]string{"specs/auth/spec.md": emptyScenario}, "is empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.files["proposal.md"] = goodProposal
			dir := newChange(t, tt.files)

			lax := ValidateChangeDeltaSpecs(dir, false)
			assert.True(t, lax.Valid, "non-strict issues=%v", lax.Issues)

			strict := ValidateChangeDeltaSpecs(dir, true)
			assert.False(t, strict.Valid)
			assert.True(t, hasIssue(strict, LevelError, tt.substr), "strict issues=%v", strict.Issues)
		})
	}
}

func TestValidateChange_ModifiedWithoutCanonicalSpec(t *testing.T) {
	delta := "## MODIFIED Requirements\n### Requirement: Login\nThe system SHALL log in.\n\n#### Scenario: s\nok\n"
	dir := newChange(t, map[string]string{"proposal.md": goodProposal, "specs/auth/spec.md": delta})

	assert.True(t, hasIssue(ValidateChangeDeltaSpecs(dir, false), LevelWarning, "has no spec"))
	assert.True(t, hasIssue(ValidateChangeDeltaSpecs(dir, true), LevelError, "has no spec"))
}

func TestValidateChange_CapabilityRenameConflicts(t *testing.T) {
	rename := "## RENAMED Requirements\n- FROM: auth\n- TO: identity\n"

	t.Run("delta on new name merges onto renamed spec", func(t *testing.T) {
		dir := newChange(t, map[string]string{
			"proposal.md":            goodProposal,
			"specs/auth/spec.md":     rename,
			"specs/identity/spec.md": goodDelta,
		})
		r := ValidateChangeDeltaSpecs(dir, false)
		assert.True(t, r.Valid, "issues=%v", r.Issues)
	})

	t.Run("two deltas update the renamed spec", func(t *testing.T) {
		dir := newChange(t, map[string]string{
			"proposal.md":            goodProposal,
			"specs/auth/spec.md":     rename + "\n" + goodDelta,
			"specs/identity/spec.md": "## REMOVED Requirements\n### Requirement: Logout\n",
		})
		r := ValidateChangeDeltaSpecs(dir, false)
		assert.False(t, r.Valid)
		assert.True(t, hasIssue(r, LevelError, "both update capability \"identity\""), "issues=%v", r.Issues)
	})

	t.Run("two capabilities renamed to one name", func(t *testing.T) {
		dir := newChange(t, map[string]string{
			"proposal.md":         goodProposal,
			"specs/auth/spec.md":  rename,
			"specs/login/spec.md": "## RENAMED Requirements\n- FROM: login\n- TO: identity\n",
		})
		r := ValidateChangeDeltaSpecs(dir, false)
		assert.True(t, hasIssue(r, LevelError, "are both renamed to"), "issues=%v", r.Issues)
	})
}

const goodSpec = `# auth Specification

## Purpose
Authentication for the application, covering login, logout, and sessions.

## Requirements
### Requirement: Login
The system SHALL authenticate users.

#### Scenario: Valid credentials
- works
`

func TestValidateSpec(t *testing.T) {
	v := New(false)

	r := v.ValidateSpec("auth", goodSpec)
	assert.True(t, r.Valid, "issues=%v", r.Issues)
	assert.Empty(t, r.Issues)

	r = v.ValidateSpec("auth", "# auth\n\n## Requirements\n")
	assert.False(t, r.Valid)
	assert.True(t, hasIssue(r, LevelError, "Purpose"))
	assert.True(t, hasIssue(r, LevelError, "at least one requirement"))

	r = v.ValidateSpec("auth", "## Purpose\n"+strings.Repeat("p", 60)+"\n## Requirements\n### Requirement: A\nThe system SHALL a.\n")
	assert.True(t, hasIssue(r, LevelError, "at least one scenario"))

	dup := goodSpec + "\n### Requirement: Login\nThe system SHALL authenticate twice.\n\n#### Scenario: s\n- works\n"
	r = v.ValidateSpec("auth", dup)
	assert.True(t, hasIssue(r, LevelError, "duplicate requirement header"), "issues=%v", r.Issues)
}

func TestNewReport(t *testing.T) {
	r := NewReport(nil)
	assert.True(t, r.Valid)
	assert.NotNil(t, r.Issues)

	r = NewReport([]Issue{{Level: LevelWarning}, {Level: LevelWarning}, {Level: LevelInfo}})
	assert.True(t, r.Valid)
	assert.Equal(t, Summary{Warnings: 2, Info: 1}, r.Summary)

	r = NewReport([]Issue{{Level: LevelError, Path: "p", Message: "m"}})
	assert.False(t, r.Valid)
	assert.Equal(t, "[ERROR] p: m", r.Errors()[0].String())
}

func TestValidateAll(t *testing.T) {
	root := t.TempDir()
	osDir := filepath.Join(root, "openspec")
	writeFiles(t, osDir, map[string]string{
		"changes/good/proposal.md":        goodProposal,
		"changes/good/specs/auth/spec.md": goodDelta,
		"changes/bad/proposal.md":         "nothing",
		"specs/auth/spec.md":              goodSpec,
	})

	targets := []Target{
		{ID: "good", Type: ItemChange, Path: filepath.Join(osDir, "changes", "good")},
		{ID: "bad", Type: ItemChange, Path: filepath.Join(osDir, "changes", "bad")},
		{ID: "auth", Type: ItemSpec, Path: filepath.Join(osDir, "specs", "auth", "spec.md")},
	}
	results, err := New(false).ValidateAll(context.Background(), targets, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "bad", results[0].ID)
	assert.False(t, results[0].Valid)
	assert.Equal(t, "good", results[1].ID)
	assert.True(t, results[1].Valid)
	assert.Equal(t, ItemSpec, results[2].Type)

	s := Summarize(results)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, []string{"change/bad"}, s.Invalid)
	assert.Equal(t, 2, s.ByType[ItemChange])
}

func TestCollectTargets(t *testing.T) {
	osDir := filepath.Join(t.TempDir(), "openspec")
	writeFiles(t, osDir, map[string]string{
		"changes/one/proposal.md":                 "x",
		"changes/archive/2024-01-01-old/tasks.md": "x",
		"specs/auth/spec.md":                      "x",
	})

	targets, err := CollectTargets(osDir, true, true)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, Target{ID: "one", Type: ItemChange, Path: filepath.Join(osDir, "changes", "one")}, targets[0])
	assert.Equal(t, "auth", targets[1].ID)
	assert.Equal(t, ItemSpec, targets[1].Type)

	targets, err = CollectTargets(osDir, false, true)
	require.NoError(t, err)
	assert.Len(t, targets, 1)

	targets, err = CollectTargets(filepath.Join(t.TempDir(), "missing"), true, true)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestValidateAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(false).ValidateAll(ctx, []Target{{ID: "x", Type: ItemChange, Path: t.TempDir()}}, 1)
	assert.Error(t, err)
}

func TestDiscoverDeltaSpecs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"specs/b/spec.md":          "x",
		"specs/a/spec.md":          "x",
		"specs/platform/c/spec.md": "x",
		"specs/spec.md":            "ignored",
		"specs/a/notes.md":         "ignored",
	})
	files, err := DiscoverDeltaSpecs(dir)
	require.NoError(t, err)
	var caps []string
	for _, f := range files {
		caps = append(caps, f.Capability)
	}
	assert.Equal(t, []string{"a", "b", "platform/c"}, caps)

	none, err := DiscoverDeltaSpecs(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, none)
}
