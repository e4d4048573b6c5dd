package validation

import (
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/markdown"
)

const (
	minWhyLength     = 50
	maxWhyLength     = 1000
	minPurposeLength = 50
)

var (
	shallOrMust       = regexp.MustCompile(`\b(SHALL|MUST)\b`)
	capabilitySegment = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	reservedNames     = map[string]bool{"archive": true, "changes": true, "specs": true}
)

// Validator applies the structural rules. Strict mode turns a set of
// conventions into errors.
type Validator struct {
	strict   bool
	specsDir string
}

// Option configures a Validator.
type Option func(*Validator)

// WithSpecsDir points the validator at the canonical specs directory so
// deltas can be checked against what already exists.
func WithSpecsDir(dir string) Option {
	return func(v *Validator) { v.specsDir = dir }
}

// New creates a validator.
func New(strict bool, opts ...Option) *Validator {
	v := &Validator{strict: strict}
	for _, o := range opts {
		o(v)
	}
	return v
}

// ValidateChangeDeltaSpecs validates a change directory: its proposal and
// every delta spec. The canonical specs directory is inferred from the
// <openspec>/changes/<id> layout.
func ValidateChangeDeltaSpecs(changeDir string, strict bool) Report {
	return New(strict, WithSpecsDir(inferSpecsDir(changeDir))).ValidateChange(changeDir)
}

func inferSpecsDir(changeDir string) string {
	parent := filepath.Dir(filepath.Clean(changeDir))
	if filepath.Base(parent) != "changes" {
		return ""
	}
	return filepath.Join(filepath.Dir(parent), "specs")
}

// ValidateChange validates a change's proposal and delta specs.
func (v *Validator) ValidateChange(changeDir string) Report {
	c := &collector{}
	v.checkProposal(c, changeDir)
	v.checkDeltas(c, changeDir)
	return NewReport(c.issues)
}

// ValidateProposal validates proposal content alone.
func (v *Validator) ValidateProposal(content string) Report {
	c := &collector{}
	proposalRules(c, "proposal.md", markdown.ParseProposal(content))
	return NewReport(c.issues)
}

func (v *Validator) checkProposal(c *collector, changeDir string) {
	const rel = "proposal.md"
	data, err := os.ReadFile(filepath.Join(changeDir, rel))
	if err != nil {
		if os.IsNotExist(err) {
			c.errorf(rel, "proposal.md not found")
			return
		}
		c.errorf(rel, "cannot read proposal: %v", err)
		return
	}
	proposalRules(c, rel, markdown.ParseProposal(string(data)))
}

func proposalRules(c *collector, rel string, p markdown.Proposal) {
	why := strings.TrimSpace(p.Why)
	switch {
	case why == "":
		c.errorf(rel, "Proposal must have a non-empty Why section")
	case len(why) < minWhyLength:
		c.warnf(rel, "Why section is short (%d chars); explain the problem in at least %d characters", len(why), minWhyLength)
	case len(why) > maxWhyLength:
		c.warnf(rel, "Why section is long (%d chars); keep it under %d characters", len(why), maxWhyLength)
	}
	if len(p.Bullets) == 0 {
		c.errorf(rel, "What Changes must list at least one change as a bullet")
	}
}

func (v *Validator) checkDeltas(c *collector, changeDir string) {
	files, err := DiscoverDeltaSpecs(changeDir)
	if err != nil {
		c.errorf("specs", "cannot list delta specs: %v", err)
		return
	}
	if len(files) == 0 {
		c.warnf("specs", "No spec deltas found; archiving will not change any spec")
		return
	}

	// A requirement may appear in only one delta kind across the change.
	seen := map[string]markdown.DeltaKind{}
	plans := make(map[string]markdown.DeltaPlan, len(files))
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(changeDir, filepath.FromSlash(f.Rel)))
		if err != nil {
			c.errorf(f.Rel, "cannot read delta spec: %v", err)
			continue
		}
		plans[f.Rel] = markdown.ParseDeltaSpec(string(data))
	}
	renamedFrom := checkCapabilityMoves(c, files, plans)
	for _, f := range files {
		plan, ok := plans[f.Rel]
		if !ok {
			continue
		}
		source := f.Capability
		if from, ok := renamedFrom[f.Capability]; ok {
			source = from
		}
		v.checkCapabilityName(c, f)
		v.checkPlan(c, f, plan, seen, source)
	}
}

// checkCapabilityMoves flags renames that collide across delta files and
// delta files that would rewrite the same capability once renames are
// applied. A delta filed under either name of a renamed capability updates
// the renamed spec. It returns the old name of each renamed capability keyed
// by its new name.
func checkCapabilityMoves(c *collector, files []DeltaFile, plans map[string]markdown.DeltaPlan) map[string]string {
	to := map[string]string{}
	from := map[string]string{}
	for _, f := range files {
		cr := plans[f.Rel].CapabilityRename
		if cr == nil || cr.From == cr.To {
			continue
		}
		if _, dup := to[cr.From]; dup {
			c.errorf(f.Rel, "capability %q is renamed more than once", cr.From)
			continue
		}
		if prev, dup := from[cr.To]; dup {
			c.errorf(f.Rel, "capabilities %q and %q are both renamed to %q", prev, cr.From, cr.To)
			continue
		}
		to[cr.From] = cr.To
		from[cr.To] = cr.From
	}

	writers := map[string]string{}
	for _, f := range files {
		plan, ok := plans[f.Rel]
		if !ok || plan.RequirementOperations() == 0 {
			continue
		}
		target := f.Capability
		if t, ok := to[f.Capability]; ok {
			target = t
		}
		if prev, dup := writers[target]; dup {
			c.errorf(f.Rel, "delta specs for %q and %q both update capability %q; combine them into one file", prev, f.Capability, target)
			continue
		}
		writers[target] = f.Capability
	}
	return from
}

func (v *Validator) checkCapabilityName(c *collector, f DeltaFile) {
	if !v.strict {
		return
	}
	for _, seg := range strings.Split(f.Capability, "/") {
		if !capabilitySegment.MatchString(seg) {
			c.errorf(f.Rel, "capability %q must use lowercase letters, digits, hyphens, or underscores", f.Capability)
			return
		}
		if reservedNames[seg] {
			c.errorf(f.Rel, "capability %q uses reserved name %q", f.Capability, seg)
			return
		}
	}
}

// checkPlan checks one delta file. source is the capability whose canonical
// spec the file merges onto.
func (v *Validator) checkPlan(c *collector, f DeltaFile, plan markdown.DeltaPlan, seen map[string]markdown.DeltaKind, source string) {
	for _, word := range plan.Unknown {
		c.strictf(v.strict, f.Rel, "unknown delta section %q; use ADDED, MODIFIED, REMOVED, or RENAMED", "## "+word+" Requirements")
	}
	if plan.Operations() == 0 {
		c.errorf(f.Rel, "No delta operations found; add ADDED, MODIFIED, REMOVED, or RENAMED Requirements sections")
		return
	}

	claim := func(kind markdown.DeltaKind, name string) {
		key := f.Capability + "\x00" + name
		if prev, ok := seen[key]; ok && prev != kind {
			c.errorf(f.Rel, "requirement %q appears in both %s and %s", name, prev, kind)
			return
		}
		seen[key] = kind
	}
	dupes := func(kind markdown.DeltaKind, names []string) {
		set := map[string]bool{}
		for _, n := range names {
			if set[n] {
				c.errorf(f.Rel, "duplicate requirement %q in %s", n, kind)
			}
			set[n] = true
		}
	}

	var added, modified []string
	for _, b := range plan.Added {
		added = append(added, b.Name)
		v.checkRequirement(c, f.Rel, markdown.DeltaAdded, markdown.ParseRequirement(b))
	}
	for _, b := range plan.Modified {
		modified = append(modified, b.Name)
		v.checkRequirement(c, f.Rel, markdown.DeltaModified, markdown.ParseRequirement(b))
	}
	var froms, tos []string
	for _, r := range plan.Renamed {
		froms = append(froms, r.From)
		tos = append(tos, r.To)
	}
	dupes(markdown.DeltaAdded, added)
	dupes(markdown.DeltaModified, modified)
	dupes(markdown.DeltaRemoved, plan.Removed)
	dupes("RENAMED FROM", froms)
	dupes("RENAMED TO", tos)

	for _, n := range added {
		claim(markdown.DeltaAdded, n)
	}
	for _, n := range modified {
		claim(markdown.DeltaModified, n)
	}
	for _, n := range plan.Removed {
		claim(markdown.DeltaRemoved, n)
	}

	for _, r := range plan.Renamed {
		for _, m := range modified {
			if m == r.From {
				c.errorf(f.Rel, "MODIFIED must reference the new header %q when %q is renamed", r.To, r.From)
			}
		}
		for _, a := range added {
			if a == r.To {
				c.errorf(f.Rel, "RENAMED target %q collides with an ADDED requirement", r.To)
			}
		}
	}

	v.checkAgainstCanonical(c, f, plan, source)
}

func (v *Validator) checkRequirement(c *collector, rel string, kind markdown.DeltaKind, req markdown.Requirement) {
	if len(req.Scenarios) == 0 {
		c.errorf(rel, "%s requirement %q must include at least one scenario", kind, req.Name)
	}
	if !shallOrMust.MatchString(req.Text) {
		c.errorf(rel, "%s requirement %q must contain SHALL or MUST", kind, req.Name)
	}
	for _, s := range req.Scenarios {
		if s.Text == "" {
			c.strictf(v.strict, rel, "scenario %q of requirement %q is empty", s.Name, req.Name)
		}
	}
}

// checkAgainstCanonical flags operations that need an existing spec.
func (v *Validator) checkAgainstCanonical(c *collector, f DeltaFile, plan markdown.DeltaPlan, source string) {
	if v.specsDir == "" {
		return
	}
	exists := fileExists(filepath.Join(v.specsDir, filepath.FromSlash(source), "spec.md"))

	if !exists {
		if len(plan.Modified) > 0 || len(plan.Renamed) > 0 {
			c.strictf(v.strict, f.Rel, "capability %q has no spec; MODIFIED and RENAMED need an existing spec", f.Capability)
		}
		if len(plan.Removed) > 0 {
			c.strictf(v.strict, f.Rel, "capability %q has no spec; REMOVED requirements will be ignored", f.Capability)
		}
	}

	if cr := plan.CapabilityRename; cr != nil {
		if !fileExists(filepath.Join(v.specsDir, filepath.FromSlash(cr.From), "spec.md")) {
			c.strictf(v.strict, f.Rel, "cannot rename capability %q: no spec exists", cr.From)
		}
		if cr.From != cr.To && fsutil.IsDir(filepath.Join(v.specsDir, filepath.FromSlash(cr.To))) {
			c.errorf(f.Rel, "cannot rename capability %q to %q: target already exists", cr.From, cr.To)
		}
		if !capabilitySegment.MatchString(path.Base(cr.To)) {
			c.strictf(v.strict, f.Rel, "capability %q is not a valid capability name", cr.To)
		}
	}
}

// ValidateSpec validates canonical spec content. name is used as the
// issue path.
func (v *Validator) ValidateSpec(name, content string) Report {
	c := &collector{}
	s := markdown.ParseSpec(content)

	purpose := strings.TrimSpace(s.Purpose)
	switch {
	case purpose == "":
		c.errorf(name, "Spec must have a Purpose section")
	case len(purpose) < minPurposeLength:
		c.warnf(name, "Purpose section is short (%d chars); aim for at least %d characters", len(purpose), minPurposeLength)
	}

	switch {
	case !s.HasRequirements:
		c.errorf(name, "Spec must have a Requirements section")
	case len(s.Requirements) == 0:
		c.errorf(name, "Spec must have at least one requirement")
	}
	headers := make(map[string]bool, len(s.Requirements))
	for _, req := range s.Requirements {
		key := markdown.NormalizeRequirementName(req.Name)
		if headers[key] {
			c.errorf(name, "duplicate requirement header %q; merge the blocks into one", req.Name)
		}
		headers[key] = true
		if len(req.Scenarios) == 0 {
			c.errorf(name, "requirement %q must include at least one scenario", req.Name)
		}
		if !shallOrMust.MatchString(req.Text) {
			c.warnf(name, "requirement %q should contain SHALL or MUST", req.Name)
		}
		for _, sc := range req.Scenarios {
			if sc.Text == "" {
				c.strictf(v.strict, name, "scenario %q of requirement %q is empty", sc.Name, req.Name)
			}
		}
	}
	return NewReport(c.issues)
}

// ValidateSpecFile reads and validates a canonical spec file.
func (v *Validator) ValidateSpecFile(name, specPath string) Report {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return NewReport([]Issue{{Level: LevelError, Path: name, Message: "cannot read spec: " + err.Error()}})
	}
	return v.ValidateSpec(name, string(data))
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
