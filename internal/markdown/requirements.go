package markdown

import (
	"regexp"
	"strings"
)

var (
	requirementHeader = regexp.MustCompile(`^###\s*Requirement:\s*(.+?)\s*$`)
	scenarioHeader    = regexp.MustCompile(`^####\s*Scenario:\s*(.*?)\s*$`)
	requirementsTitle = regexp.MustCompile(`(?i)^##\s+Requirements\s*$`)
	levelTwoHeading   = regexp.MustCompile(`^##\s+`)
	anyHeading        = regexp.MustCompile(`^#{1,6}\s`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// NormalizeRequirementName is the key used to match requirements across
// documents: surrounding whitespace trimmed and inner runs collapsed.
func NormalizeRequirementName(name string) string {
	return whitespaceRun.ReplaceAllString(strings.TrimSpace(name), " ")
}

// RequirementBlock is a requirement exactly as written: its header line
// and every following line up to the next requirement or section.
type RequirementBlock struct {
	HeaderLine string
	Name       string
	Raw        string
}

// Requirement is a parsed requirement block.
type Requirement struct {
	Name string `json:"name"`
	// Text is the first non-heading line of the body, the statement itself.
	Text      string     `json:"text"`
	Scenarios []Scenario `json:"scenarios"`
}

// Scenario is one "#### Scenario:" block.
type Scenario struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ParseRequirement parses a block into its statement and scenarios. A block
// without scenarios yields an empty Scenarios slice.
func ParseRequirement(block RequirementBlock) Requirement {
	req := Requirement{Name: block.Name, Scenarios: []Scenario{}}
	lines := strings.Split(block.Raw, "\n")

	var current *Scenario
	var body []string
	flush := func() {
		if current != nil {
			current.Text = strings.TrimSpace(strings.Join(body, "\n"))
			req.Scenarios = append(req.Scenarios, *current)
		}
		current, body = nil, nil
	}

	for i, line := range lines {
		if i == 0 {
			continue
		}
		if m := scenarioHeader.FindStringSubmatch(line); m != nil {
			flush()
			current = &Scenario{Name: m[1]}
			continue
		}
		if current != nil {
			body = append(body, line)
			continue
		}
		if req.Text == "" && strings.TrimSpace(line) != "" && !anyHeading.MatchString(line) {
			req.Text = strings.TrimSpace(line)
		}
	}
	flush()
	return req
}

// SplitRequirementBlocks splits body lines into the text before the first
// requirement header and the requirement blocks themselves.
func SplitRequirementBlocks(lines []string) (preamble string, blocks []RequirementBlock) {
	var pre []string
	var cur []string
	var name string
	emit := func() {
		if cur == nil {
			return
		}
		blocks = append(blocks, RequirementBlock{
			HeaderLine: cur[0],
			Name:       name,
			Raw:        strings.TrimRight(strings.Join(cur, "\n"), "\n \t"),
		})
		cur = nil
	}
	for _, line := range lines {
		if m := requirementHeader.FindStringSubmatch(line); m != nil {
			emit()
			name = NormalizeRequirementName(m[1])
			cur = []string{line}
			continue
		}
		if cur != nil {
			cur = append(cur, line)
		} else {
			pre = append(pre, line)
		}
	}
	emit()
	return strings.Join(pre, "\n"), blocks
}

// RequirementsSection is a spec split around its "## Requirements" section.
type RequirementsSection struct {
	Before     string
	HeaderLine string
	Preamble   string
	Blocks     []RequirementBlock
	After      string
}

// ExtractRequirementsSection splits a spec so that requirement blocks can be
// replaced while everything else is kept byte for byte, apart from trailing
// blank lines before the Requirements heading. A spec without a
// Requirements section gets an empty one appended.
func ExtractRequirementsSection(content string) RequirementsSection {
	lines := strings.Split(Normalize(content), "\n")

	start := -1
	for i, line := range lines {
		if requirementsTitle.MatchString(line) {
			start = i
			break
		}
	}
	if start == -1 {
		return RequirementsSection{
			Before:     strings.TrimRight(strings.Join(lines, "\n"), "\n"),
			HeaderLine: "## Requirements",
			After:      "\n",
		}
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if levelTwoHeading.MatchString(lines[i]) {
			end = i
			break
		}
	}

	preamble, blocks := SplitRequirementBlocks(lines[start+1 : end])
	after := strings.Join(lines[end:], "\n")
	if after == "" {
		after = "\n"
	} else {
		after = "\n\n" + after
	}
	return RequirementsSection{
		Before:     strings.Join(lines[:start], "\n"),
		HeaderLine: lines[start],
		Preamble:   preamble,
		Blocks:     blocks,
		After:      after,
	}
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// Compose reassembles a spec from its parts. Runs of blank lines are
// collapsed inside the Requirements section only.
func (r RequirementsSection) Compose() string {
	var body []string
	if strings.TrimSpace(r.Preamble) != "" {
		body = append(body, strings.TrimRight(r.Preamble, "\n \t"))
	}
	for _, b := range r.Blocks {
		body = append(body, b.Raw)
	}

	var parts []string
	if before := strings.TrimRight(r.Before, "\n"); before != "" {
		parts = append(parts, before, "")
	}
	parts = append(parts, r.HeaderLine)
	if len(body) > 0 {
		joined := blankRuns.ReplaceAllString(strings.Join(body, "\n\n"), "\n\n")
		parts = append(parts, strings.TrimRight(joined, "\n"))
	}
	return strings.Join(parts, "\n") + r.After
}
