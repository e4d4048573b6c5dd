package markdown

import (
	"regexp"
	"strings"
)

// DeltaKind is the operation a delta section applies to a capability.
type DeltaKind string

const (
	DeltaAdded    DeltaKind = "ADDED"
	DeltaModified DeltaKind = "MODIFIED"
	DeltaRemoved  DeltaKind = "REMOVED"
	DeltaRenamed  DeltaKind = "RENAMED"
)

// Kinds lists the delta kinds in the order they are applied on archive.
var Kinds = []DeltaKind{DeltaRenamed, DeltaRemoved, DeltaModified, DeltaAdded}

// Rename is one FROM/TO pair of a RENAMED section.
type Rename struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// DeltaPlan is everything a change's specs/<capability>/spec.md asks for.
type DeltaPlan struct {
	Added    []RequirementBlock
	Modified []RequirementBlock
	Removed  []string
	// Renamed holds requirement renames within the capability.
	Renamed []Rename
	// CapabilityRename is set when a RENAMED section names capabilities
	// rather than requirement headers.
	CapabilityRename *Rename
	// Unknown holds the words of "## <WORD> Requirements" headings that
	// are not a known kind.
	Unknown []string
}

// Operations returns the number of operations in the plan.
func (p DeltaPlan) Operations() int {
	n := p.RequirementOperations()
	if p.CapabilityRename != nil {
		n++
	}
	return n
}

// RequirementOperations counts the operations that rewrite requirement
// blocks, leaving out a capability rename.
func (p DeltaPlan) RequirementOperations() int {
	return len(p.Added) + len(p.Modified) + len(p.Removed) + len(p.Renamed)
}

// Delta is a delta section with its requirements parsed, the shape the
// validator and show output work with.
type Delta struct {
	Kind         DeltaKind     `json:"kind"`
	Capability   string        `json:"capability"`
	Requirements []Requirement `json:"requirements,omitempty"`
	Renames      []Rename      `json:"renames,omitempty"`
}

// Deltas expands a plan into per-kind deltas for capability. Kinds with no
// entries are omitted.
func (p DeltaPlan) Deltas(capability string) []Delta {
	var out []Delta
	blocks := func(kind DeltaKind, bs []RequirementBlock) {
		if len(bs) == 0 {
			return
		}
		d := Delta{Kind: kind, Capability: capability}
		for _, b := range bs {
			d.Requirements = append(d.Requirements, ParseRequirement(b))
		}
		out = append(out, d)
	}
	blocks(DeltaAdded, p.Added)
	blocks(DeltaModified, p.Modified)
	if len(p.Removed) > 0 {
		d := Delta{Kind: DeltaRemoved, Capability: capability}
		for _, name := range p.Removed {
			d.Requirements = append(d.Requirements, Requirement{Name: name, Scenarios: []Scenario{}})
		}
		out = append(out, d)
	}
	if len(p.Renamed) > 0 || p.CapabilityRename != nil {
		d := Delta{Kind: DeltaRenamed, Capability: capability, Renames: p.Renamed}
		if p.CapabilityRename != nil {
			d.Renames = append(d.Renames, *p.CapabilityRename)
		}
		out = append(out, d)
	}
	return out
}

var (
	deltaSectionHeader = regexp.MustCompile(`^##\s+([A-Za-z]+)\s+Requirements\s*$`)
	fromLine           = regexp.MustCompile("^\\s*(?:[-*]\\s*)?FROM:\\s*`?(.*?)`?\\s*$")
	toLine             = regexp.MustCompile("^\\s*(?:[-*]\\s*)?TO:\\s*`?(.*?)`?\\s*$")
	requirementRef     = regexp.MustCompile(`^###\s*Requirement:\s*(.+?)\s*$`)
	removedBullet      = regexp.MustCompile("^\\s*[-*]\\s*`?###\\s*Requirement:\\s*(.+?)`?\\s*$")
)

// ParseDeltaSpec parses a change-scoped delta spec. Unrecognized content is
// ignored.
func ParseDeltaSpec(content string) DeltaPlan {
	lines := strings.Split(Normalize(content), "\n")

	var plan DeltaPlan
	kind := DeltaKind("")
	var body []string
	flush := func() {
		switch kind {
		case DeltaAdded:
			_, blocks := SplitRequirementBlocks(body)
			plan.Added = append(plan.Added, blocks...)
		case DeltaModified:
			_, blocks := SplitRequirementBlocks(body)
			plan.Modified = append(plan.Modified, blocks...)
		case DeltaRemoved:
			plan.Removed = append(plan.Removed, removedNames(body)...)
		case DeltaRenamed:
			parseRenames(&plan, body)
		}
		body = nil
	}

	for _, line := range lines {
		if levelTwoHeading.MatchString(line) {
			flush()
			kind = ""
			m := deltaSectionHeader.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			k := DeltaKind(strings.ToUpper(m[1]))
			switch k {
			case DeltaAdded, DeltaModified, DeltaRemoved, DeltaRenamed:
				kind = k
			default:
				plan.Unknown = append(plan.Unknown, m[1])
			}
			continue
		}
		if kind != "" {
			body = append(body, line)
		}
	}
	flush()
	return plan
}

func removedNames(lines []string) []string {
	var names []string
	for _, line := range lines {
		if m := requirementHeader.FindStringSubmatch(line); m != nil {
			names = append(names, NormalizeRequirementName(m[1]))
			continue
		}
		if m := removedBullet.FindStringSubmatch(line); m != nil {
			names = append(names, NormalizeRequirementName(m[1]))
		}
	}
	return names
}

func parseRenames(plan *DeltaPlan, lines []string) {
	var from string
	var fromIsRequirement, haveFrom bool
	for _, line := range lines {
		if m := fromLine.FindStringSubmatch(line); m != nil {
			from, fromIsRequirement = renameTarget(m[1])
			haveFrom = true
			continue
		}
		m := toLine.FindStringSubmatch(line)
		if m == nil || !haveFrom {
			continue
		}
		to, toIsRequirement := renameTarget(m[1])
		haveFrom = false
		if from == "" || to == "" {
			continue
		}
		if fromIsRequirement || toIsRequirement {
			plan.Renamed = append(plan.Renamed, Rename{From: from, To: to})
		} else if plan.CapabilityRename == nil {
			plan.CapabilityRename = &Rename{From: from, To: to}
		}
	}
}

func renameTarget(value string) (string, bool) {
	value = strings.Trim(strings.TrimSpace(value), "`")
	if m := requirementRef.FindStringSubmatch(value); m != nil {
		return NormalizeRequirementName(m[1]), true
	}
	return strings.TrimSpace(value), false
}
