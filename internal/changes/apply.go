package changes

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/markdown"
	"github.com/HendryAvila/openspec/internal/validation"
)

// specUpdate is one prepared write to the canonical specs tree. Nothing is
// written until every update of a change has been prepared and validated.
type specUpdate struct {
	capability string
	// target is the capability whose spec.md receives content.
	target  string
	content string
	// write is false for a pure capability move.
	write bool
	// moveFrom is set when specs/<moveFrom>/ must first move to target.
	moveFrom string
	created  bool
	counts   Counts
}

// ApplySpecs merges a change's deltas into the canonical specs without
// archiving it.
func (s *FileStore) ApplySpecs(projectRoot, id string, opts ApplyOptions) (*ApplyResult, error) {
	dir, err := s.requireChange(projectRoot, id, "apply")
	if err != nil {
		return nil, err
	}
	updates, result, err := s.prepareSpecUpdates(projectRoot, id, dir, !opts.SkipValidation)
	if err != nil {
		return nil, err
	}
	result.DryRun = opts.DryRun
	if opts.DryRun || result.NoChanges {
		return result, nil
	}
	if err := s.writeSpecUpdates(projectRoot, updates); err != nil {
		return nil, err
	}
	return result, nil
}

// prepareSpecUpdates builds every rebuilt spec in memory. It fails before
// any write when a merge conflicts or a rebuilt spec is invalid.
func (s *FileStore) prepareSpecUpdates(projectRoot, id, changeDir string, validate bool) ([]specUpdate, *ApplyResult, error) {
	result := &ApplyResult{ChangeID: id, Capabilities: []CapabilityUpdate{}}

	files, err := validation.DiscoverDeltaSpecs(changeDir)
	if err != nil {
		return nil, nil, fmt.Errorf("listing delta specs: %w", err)
	}
	if len(files) == 0 {
		result.NoChanges = true
		return nil, result, nil
	}

	deltas := make([]deltaFile, 0, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(changeDir, filepath.FromSlash(f.Rel)))
		if err != nil {
			return nil, nil, fmt.Errorf("reading delta spec %s: %w", f.Rel, err)
		}
		plan := markdown.ParseDeltaSpec(string(data))
		if plan.Operations() == 0 {
			return nil, nil, mergeError(f.Capability, "Delta parsing found no operations. Provide ADDED/MODIFIED/REMOVED/RENAMED sections in change spec.")
		}
		deltas = append(deltas, deltaFile{capability: f.Capability, plan: plan})
	}

	updates, moves, err := planCapabilityMoves(projectRoot, deltas)
	if err != nil {
		return nil, nil, err
	}
	byTarget := make(map[string]*specUpdate, len(updates))
	for _, u := range updates {
		byTarget[u.target] = u
	}

	// writers maps a target capability to the delta file that rewrites it.
	writers := map[string]string{}
	for _, d := range deltas {
		if d.plan.RequirementOperations() == 0 {
			continue
		}
		source, target := moves.resolve(d.capability)
		if prev, dup := writers[target]; dup {
			if prev == d.capability {
				return nil, nil, mergeError(target, "more than one delta spec updates this capability")
			}
			return nil, nil, mergeError(target, "delta specs for %s and %s both update this capability; combine them into one file", prev, d.capability)
		}
		writers[target] = d.capability

		path := SpecPath(projectRoot, source)
		existing, err := fsutil.ReadOptional(path)
		if err != nil {
			return nil, nil, fmt.Errorf("reading spec %s: %w", source, err)
		}
		merged, err := mergeSpec(mergeInput{
			Capability:   d.capability,
			ChangeID:     id,
			Plan:         d.plan,
			Target:       existing,
			TargetExists: fileExists(path),
		})
		if err != nil {
			return nil, nil, err
		}

		u := byTarget[target]
		if u == nil {
			u = &specUpdate{capability: d.capability, target: target}
			updates = append(updates, u)
			byTarget[target] = u
		}
		u.content = merged.Content
		u.write = true
		u.created = merged.Created
		u.counts.add(merged.Counts)
		result.Warnings = append(result.Warnings, merged.Warnings...)
	}

	if validate {
		v := validation.New(false)
		for _, u := range updates {
			if !u.write {
				continue
			}
			report := v.ValidateSpec(u.target, u.content)
			if report.Valid {
				continue
			}
			e := newError(ErrValidationFailed, "apply", "Validation errors in rebuilt spec for %s", u.target)
			for _, issue := range report.Errors() {
				e.Issues = append(e.Issues, issue.Message)
			}
			return nil, nil, e
		}
	}

	out := make([]specUpdate, 0, len(updates))
	for _, u := range updates {
		cu := CapabilityUpdate{Capability: u.capability, Created: u.created, Counts: u.counts}
		if u.moveFrom != "" {
			cu.Capability = u.moveFrom
			cu.RenamedTo = u.target
		}
		result.Capabilities = append(result.Capabilities, cu)
		result.Totals.add(u.counts)
		out = append(out, *u)
	}
	result.NoChanges = result.Totals.Zero()
	return out, result, nil
}

// deltaFile is a parsed delta spec and the capability folder it sits in.
type deltaFile struct {
	capability string
	plan       markdown.DeltaPlan
}

// capabilityMoves records the capability renames of one change.
type capabilityMoves struct {
	to   map[string]string // from -> to
	from map[string]string // to -> from
}

// resolve returns the spec a delta under capability merges onto and the
// capability that receives the result. A delta filed under either side of
// a rename reads the old spec and writes the new one.
func (m capabilityMoves) resolve(capability string) (source, target string) {
	if to, ok := m.to[capability]; ok {
		return capability, to
	}
	if from, ok := m.from[capability]; ok {
		return from, capability
	}
	return capability, capability
}

// planCapabilityMoves checks every capability rename of a change before any
// requirement operation is merged.
func planCapabilityMoves(projectRoot string, deltas []deltaFile) ([]*specUpdate, capabilityMoves, error) {
	moves := capabilityMoves{to: map[string]string{}, from: map[string]string{}}
	var updates []*specUpdate
	for _, d := range deltas {
		cr := d.plan.CapabilityRename
		if cr == nil {
			continue
		}
		if err := checkCapabilityRename(projectRoot, *cr, moves); err != nil {
			return nil, moves, err
		}
		moves.to[cr.From] = cr.To
		moves.from[cr.To] = cr.From
		updates = append(updates, &specUpdate{capability: cr.From, target: cr.To, moveFrom: cr.From, counts: Counts{Renamed: 1}})
	}
	return updates, moves, nil
}

func checkCapabilityRename(projectRoot string, r markdown.Rename, moves capabilityMoves) error {
	if r.From == r.To {
		return mergeError(r.From, "RENAMED capability FROM and TO are the same")
	}
	if _, dup := moves.to[r.From]; dup {
		return mergeError(r.From, "capability renamed more than once")
	}
	if prev, dup := moves.from[r.To]; dup {
		return mergeError(r.To, "capabilities %s and %s are both renamed to this name", prev, r.From)
	}
	if !fileExists(SpecPath(projectRoot, r.From)) {
		return newError(ErrNotFound, "apply", "%s: cannot rename capability - spec not found", r.From)
	}
	toDir := filepath.Join(SpecsPath(projectRoot), filepath.FromSlash(r.To))
	if exists, err := fsutil.Exists(toDir); err != nil {
		return fmt.Errorf("checking %s: %w", toDir, err)
	} else if exists {
		return newError(ErrAlreadyExists, "apply", "%s: cannot rename capability to '%s' - target already exists", r.From, r.To)
	}
	return nil
}

// writeSpecUpdates performs prepared moves then writes.
func (s *FileStore) writeSpecUpdates(projectRoot string, updates []specUpdate) error {
	specsDir := SpecsPath(projectRoot)
	for _, u := range updates {
		if u.moveFrom == "" {
			continue
		}
		from := filepath.Join(specsDir, filepath.FromSlash(u.moveFrom))
		to := filepath.Join(specsDir, filepath.FromSlash(u.target))
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(to), err)
		}
		if err := os.Rename(from, to); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("moving capability %s to %s: %w", u.moveFrom, u.target, err)
		}
		s.logger.Info("capability renamed", "from", u.moveFrom, "to", u.target)
	}
	for _, u := range updates {
		if !u.write {
			continue
		}
		path := SpecPath(projectRoot, u.target)
		if err := fsutil.WriteFileAtomic(path, []byte(u.content), 0o644); err != nil {
			return fmt.Errorf("writing spec %s: %w", u.target, err)
		}
		s.logger.Debug("spec updated", "capability", u.target,
			"added", u.counts.Added, "modified", u.counts.Modified,
			"removed", u.counts.Removed, "renamed", u.counts.Renamed)
	}
	return nil
}
