// Package tasks reads task progress out of tasks.md checklists.
//
// Only checkbox list items count as tasks:
//
//	- [ ] pending
//	- [x] complete
//	* [X] complete
//
// Reading never mutates the file. SetComplete is the single write path and
// rewrites only the checkbox of the matching line.
package tasks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Status is the state of one task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
	StatusBlocked    Status = "blocked"
)

// Progress is the completion count of a checklist.
type Progress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// Draft reports whether no tasks are defined yet.
func (p Progress) Draft() bool { return p.Total == 0 }

// Done reports whether every task is complete. A draft is never done.
func (p Progress) Done() bool { return p.Total > 0 && p.Completed == p.Total }

// Task is one checklist item.
type Task struct {
	ID      string `json:"id"`
	Section string `json:"section,omitempty"`
	Title   string `json:"title"`
	Status  Status `json:"status"`
	// Line is the zero-based line index in the source content.
	Line int `json:"line"`
}

var (
	checkboxPattern = regexp.MustCompile(`^\s*[-*]\s+\[([ xX])\]\s*(.*)$`)
	sectionPattern  = regexp.MustCompile(`^#{2,6}\s+(.+?)\s*$`)
	explicitID      = regexp.MustCompile(`^(\d+(?:\.\d+)*)\.?\s+(.+)$`)
	annotations     = []struct {
		re     *regexp.Regexp
		status Status
	}{
		{regexp.MustCompile(`(?i)\s*[(\[]\s*in[ _-]progress\s*[)\]]`), StatusInProgress},
		{regexp.MustCompile(`(?i)\s*[(\[]\s*blocked\s*[)\]]`), StatusBlocked},
	}
)

// Count returns the number of checkbox lines and how many are checked.
func Count(content string) Progress {
	var p Progress
	for _, line := range splitLines(content) {
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		p.Total++
		if m[1] != " " {
			p.Completed++
		}
	}
	return p
}

// Format renders progress for humans, for example "3/5 complete".
func Format(p Progress) string {
	if p.Total == 0 {
		return "No tasks"
	}
	return fmt.Sprintf("%d/%d complete", p.Completed, p.Total)
}

// Parse returns every task in checklist order. Tasks without an explicit
// numeric prefix get "<section>.<n>" identifiers.
func Parse(content string) []Task {
	var out []Task
	section := ""
	sectionNum := 0
	inSection := 0

	for i, line := range splitLines(content) {
		if m := sectionPattern.FindStringSubmatch(line); m != nil {
			section = m[1]
			sectionNum++
			inSection = 0
			continue
		}
		m := checkboxPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if sectionNum == 0 {
			sectionNum = 1
		}
		inSection++

		title := strings.TrimSpace(m[2])
		status := StatusPending
		if m[1] != " " {
			status = StatusComplete
		}
		for _, a := range annotations {
			if a.re.MatchString(title) {
				title = strings.TrimSpace(a.re.ReplaceAllString(title, ""))
				if status != StatusComplete {
					status = a.status
				}
			}
		}

		id := strconv.Itoa(sectionNum) + "." + strconv.Itoa(inSection)
		if idm := explicitID.FindStringSubmatch(title); idm != nil {
			id, title = idm[1], idm[2]
		}

		out = append(out, Task{ID: id, Section: section, Title: title, Status: status, Line: i})
	}
	return out
}

// Find returns the task with the given id.
func Find(content, id string) (Task, bool) {
	for _, t := range Parse(content) {
		if t.ID == id {
			return t, true
		}
	}
	return Task{}, false
}

// SetComplete checks or unchecks the task with the given id and returns the
// rewritten content. Line endings are preserved.
func SetComplete(content, id string, done bool) (string, error) {
	t, ok := Find(content, id)
	if !ok {
		return "", fmt.Errorf("task %q not found", id)
	}

	sep := "\n"
	if strings.Contains(content, "\r\n") {
		sep = "\r\n"
	}
	lines := splitLines(content)
	mark := " "
	if done {
		mark = "x"
	}
	line := lines[t.Line]
	open := strings.Index(line, "[")
	lines[t.Line] = line[:open+1] + mark + line[open+2:]
	return strings.Join(lines, sep), nil
}

func splitLines(content string) []string {
	return strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
}
