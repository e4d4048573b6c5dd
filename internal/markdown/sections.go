// Package markdown parses OpenSpec proposal, spec, and delta documents.
//
// Parsing is line and section oriented and never fails: malformed or
// missing sections leave the corresponding fields empty so the validator
// can report them. Every function here is pure, so parsing the same text
// twice yields equal results.
package markdown

import (
	"regexp"
	"strings"
)

// Section is one heading and everything below it up to the next heading
// of the same or a higher level.
type Section struct {
	Level    int
	Title    string
	Content  string
	Children []*Section
}

var headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*$`)

// Normalize converts CRLF and lone CR line endings to LF.
func Normalize(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// ParseSections builds the heading tree of a document.
func ParseSections(content string) []*Section {
	lines := strings.Split(Normalize(content), "\n")

	var roots []*Section
	var stack []*Section
	for i, line := range lines {
		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		level := len(m[1])
		section := &Section{
			Level:   level,
			Title:   strings.TrimSpace(m[2]),
			Content: contentUntilHeading(lines, i+1, level),
		}

		for len(stack) > 0 && stack[len(stack)-1].Level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, section)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, section)
		}
		stack = append(stack, section)
	}
	return roots
}

func contentUntilHeading(lines []string, start, level int) string {
	var out []string
	for i := start; i < len(lines); i++ {
		if m := headingPattern.FindStringSubmatch(lines[i]); m != nil && len(m[1]) <= level {
			break
		}
		out = append(out, lines[i])
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// FindSection returns the first section, depth first, whose title matches
// one of titles case-insensitively.
func FindSection(sections []*Section, titles ...string) *Section {
	for _, s := range sections {
		for _, t := range titles {
			if strings.EqualFold(s.Title, t) {
				return s
			}
		}
		if child := FindSection(s.Children, titles...); child != nil {
			return child
		}
	}
	return nil
}

var bulletPattern = regexp.MustCompile(`^\s*[-*]\s+(.+?)\s*$`)

// Bullets returns the text of every list item in content.
func Bullets(content string) []string {
	var out []string
	for _, line := range strings.Split(Normalize(content), "\n") {
		if m := bulletPattern.FindStringSubmatch(line); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

// ReplaceSection replaces the body of the first level-two section titled
// title, matched case-insensitively, with body. The section runs to the
// next level-one or level-two heading. A missing section is appended.
func ReplaceSection(content, title, body string) string {
	lines := strings.Split(Normalize(content), "\n")
	body = strings.Trim(Normalize(body), "\n")

	start := -1
	for i, line := range lines {
		m := headingPattern.FindStringSubmatch(line)
		if m != nil && len(m[1]) == 2 && strings.EqualFold(strings.TrimSpace(m[2]), title) {
			start = i
			break
		}
	}
	if start == -1 {
		section := "## " + title + "\n\n" + body + "\n"
		existing := strings.TrimRight(strings.Join(lines, "\n"), "\n")
		if existing == "" {
			return section
		}
		return existing + "\n\n" + section
	}

	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if m := headingPattern.FindStringSubmatch(lines[i]); m != nil && len(m[1]) <= 2 {
			end = i
			break
		}
	}
	out := make([]string, 0, len(lines)+3)
	out = append(out, lines[:start+1]...)
	out = append(out, "", body, "")
	out = append(out, lines[end:]...)
	if end == len(lines) {
		return strings.Join(out[:len(out)-1], "\n") + "\n"
	}
	return strings.Join(out, "\n")
}
