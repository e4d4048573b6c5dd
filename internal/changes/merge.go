package changes

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/openspec/internal/markdown"
)

// SpecSkeleton is the starting content of a spec created by archiving.
func SpecSkeleton(capability, changeID string) string {
	return fmt.Sprintf("# %s Specification\n\n## Purpose\nTBD - created by archiving change %s. Update Purpose after archive.\n\n## Requirements\n", capability, changeID)
}

// mergeInput is one delta spec to merge into one canonical spec.
type mergeInput struct {
	Capability string
	ChangeID   string
	Plan       markdown.DeltaPlan
	// Target is the canonical spec content; ignored when TargetExists is false.
	Target       string
	TargetExists bool
}

// mergeOutput is a rebuilt canonical spec.
type mergeOutput struct {
	Content  string
	Counts   Counts
	Created  bool
	Warnings []string
}

func mergeError(capability, format string, args ...any) *Error {
	return newError(ErrValidationFailed, "merge", "%s: %s", capability, fmt.Sprintf(format, args...))
}

// checkPlan rejects plans whose sections contradict each other.
func checkPlan(capability string, plan markdown.DeltaPlan) error {
	dup := func(section string, names []string) error {
		seen := map[string]bool{}
		for _, n := range names {
			if seen[n] {
				return mergeError(capability, "duplicate requirement in %s for header \"### Requirement: %s\"", section, n)
			}
			seen[n] = true
		}
		return nil
	}

	added := blockNames(plan.Added)
	modified := blockNames(plan.Modified)
	var froms, tos []string
	for _, r := range plan.Renamed {
		froms = append(froms, r.From)
		tos = append(tos, r.To)
	}
	for _, c := range []struct {
		section string
		names   []string
	}{
		{"ADDED", added}, {"MODIFIED", modified}, {"REMOVED", plan.Removed},
		{"RENAMED FROM", froms}, {"RENAMED TO", tos},
	} {
		if err := dup(c.section, c.names); err != nil {
			return err
		}
	}

	in := func(names []string) map[string]bool {
		m := make(map[string]bool, len(names))
		for _, n := range names {
			m[n] = true
		}
		return m
	}
	addedSet, removedSet := in(added), in(plan.Removed)
	for _, n := range modified {
		if removedSet[n] {
			return mergeError(capability, "requirement present in multiple sections (MODIFIED and REMOVED) for header \"### Requirement: %s\"", n)
		}
		if addedSet[n] {
			return mergeError(capability, "requirement present in multiple sections (MODIFIED and ADDED) for header \"### Requirement: %s\"", n)
		}
	}
	for _, n := range added {
		if removedSet[n] {
			return mergeError(capability, "requirement present in multiple sections (ADDED and REMOVED) for header \"### Requirement: %s\"", n)
		}
	}
	modifiedSet := in(modified)
	for _, r := range plan.Renamed {
		if modifiedSet[r.From] {
			return mergeError(capability, "when a rename exists, MODIFIED must reference the NEW header \"### Requirement: %s\"", r.To)
		}
		if addedSet[r.To] {
			return mergeError(capability, "RENAMED TO header collides with ADDED for \"### Requirement: %s\"", r.To)
		}
	}
	return nil
}

func blockNames(blocks []markdown.RequirementBlock) []string {
	names := make([]string, len(blocks))
	for i, b := range blocks {
		names[i] = b.Name
	}
	return names
}

// mergeSpec applies a delta plan to a canonical spec. Operations apply in
// the order RENAMED, REMOVED, MODIFIED, ADDED and match requirements by
// normalized header text. Original requirement order is kept; added
// requirements are appended.
func mergeSpec(in mergeInput) (mergeOutput, error) {
	plan := in.Plan
	out := mergeOutput{Counts: Counts{
		Added:    len(plan.Added),
		Modified: len(plan.Modified),
		Removed:  len(plan.Removed),
		Renamed:  len(plan.Renamed),
	}}

	if err := checkPlan(in.Capability, plan); err != nil {
		return out, err
	}

	target := in.Target
	if !in.TargetExists {
		if len(plan.Modified) > 0 || len(plan.Renamed) > 0 {
			return out, mergeError(in.Capability, "target spec does not exist; only ADDED requirements are allowed for new specs. MODIFIED and RENAMED operations require an existing spec.")
		}
		if len(plan.Removed) > 0 {
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s - %d REMOVED requirement(s) ignored for new spec (nothing to remove).", in.Capability, len(plan.Removed)))
		}
		out.Created = true
		target = SpecSkeleton(in.Capability, in.ChangeID)
	}

	parts := markdown.ExtractRequirementsSection(target)
	byName := make(map[string]markdown.RequirementBlock, len(parts.Blocks))
	// order tracks the position of each key; renames keep their slot.
	order := make([]string, 0, len(parts.Blocks))
	for _, b := range parts.Blocks {
		if _, dup := byName[b.Name]; dup {
			return out, mergeError(in.Capability, "canonical spec has duplicate header \"### Requirement: %s\"; merge the blocks before applying", b.Name)
		}
		order = append(order, b.Name)
		byName[b.Name] = b
	}

	for _, r := range plan.Renamed {
		block, ok := byName[r.From]
		if !ok {
			return out, mergeError(in.Capability, "RENAMED failed for header \"### Requirement: %s\" - source not found", r.From)
		}
		if _, exists := byName[r.To]; exists {
			return out, mergeError(in.Capability, "RENAMED failed for header \"### Requirement: %s\" - target already exists", r.To)
		}
		delete(byName, r.From)
		byName[r.To] = renameBlock(block, r.To)
		for i, key := range order {
			if key == r.From {
				order[i] = r.To
			}
		}
	}

	for _, name := range plan.Removed {
		if _, ok := byName[name]; !ok {
			if out.Created {
				continue
			}
			return out, mergeError(in.Capability, "REMOVED failed for header \"### Requirement: %s\" - not found", name)
		}
		delete(byName, name)
	}

	for _, b := range plan.Modified {
		if _, ok := byName[b.Name]; !ok {
			return out, mergeError(in.Capability, "MODIFIED failed for header \"### Requirement: %s\" - not found", b.Name)
		}
		byName[b.Name] = b
	}

	for _, b := range plan.Added {
		if _, ok := byName[b.Name]; ok {
			return out, mergeError(in.Capability, "ADDED failed for header \"### Requirement: %s\" - already exists", b.Name)
		}
		byName[b.Name] = b
		order = append(order, b.Name)
	}

	parts.Blocks = parts.Blocks[:0]
	for _, key := range order {
		if b, ok := byName[key]; ok {
			parts.Blocks = append(parts.Blocks, b)
			delete(byName, key)
		}
	}
	out.Content = parts.Compose()
	return out, nil
}

func renameBlock(b markdown.RequirementBlock, to string) markdown.RequirementBlock {
	header := "### Requirement: " + to
	raw := header
	if i := strings.IndexByte(b.Raw, '\n'); i >= 0 {
		raw = header + b.Raw[i:]
	}
	return markdown.RequirementBlock{HeaderLine: header, Name: to, Raw: raw}
}
