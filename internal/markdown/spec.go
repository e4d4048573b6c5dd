package markdown

import "strings"

// Spec is the parsed form of a canonical specs/<capability>/spec.md.
type Spec struct {
	Title   string
	Purpose string
	// HasRequirements reports whether a "## Requirements" section exists,
	// even an empty one.
	HasRequirements bool
	Requirements    []Requirement
}

// ParseSpec parses a canonical spec document.
func ParseSpec(content string) Spec {
	content = Normalize(content)
	sections := ParseSections(content)

	s := Spec{Title: documentTitle(content)}
	if p := FindSection(sections, "Purpose", "Overview"); p != nil {
		s.Purpose = p.Content
	}

	if !hasRequirementsHeader(content) {
		return s
	}
	s.HasRequirements = true
	parts := ExtractRequirementsSection(content)
	s.Requirements = make([]Requirement, 0, len(parts.Blocks))
	for _, b := range parts.Blocks {
		s.Requirements = append(s.Requirements, ParseRequirement(b))
	}
	return s
}

// CountRequirements returns the number of requirement headers in the
// Requirements section of a spec.
func CountRequirements(content string) int {
	if !strings.Contains(content, "Requirement:") {
		return 0
	}
	return len(ExtractRequirementsSection(content).Blocks)
}

func hasRequirementsHeader(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if requirementsTitle.MatchString(line) {
			return true
		}
	}
	return false
}
