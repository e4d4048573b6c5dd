// Package validation checks proposals, delta specs, and canonical specs
// against OpenSpec's structural rules.
//
// Validation never fails: every problem, including unreadable files, is an
// Issue in the returned Report. A report is valid when it holds no
// ERROR-level issue; warnings never affect validity.
package validation

import "fmt"

// Level is the severity of an issue.
type Level string

const (
	LevelError   Level = "ERROR"
	LevelWarning Level = "WARNING"
	LevelInfo    Level = "INFO"
)

// Issue is one finding.
type Issue struct {
	Level   Level  `json:"level"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return fmt.Sprintf("[%s] %s", i.Level, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Level, i.Path, i.Message)
}

// Summary counts issues by level.
type Summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Report is the result of a validation run.
type Report struct {
	Valid   bool    `json:"valid"`
	Issues  []Issue `json:"issues"`
	Summary Summary `json:"summary"`
}

// Errors returns only the ERROR-level issues.
func (r Report) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Level == LevelError {
			out = append(out, i)
		}
	}
	return out
}

// NewReport builds a report and derives Valid and Summary from issues.
func NewReport(issues []Issue) Report {
	r := Report{Issues: issues}
	if r.Issues == nil {
		r.Issues = []Issue{}
	}
	for _, i := range r.Issues {
		switch i.Level {
		case LevelError:
			r.Summary.Errors++
		case LevelWarning:
			r.Summary.Warnings++
		default:
			r.Summary.Info++
		}
	}
	r.Valid = r.Summary.Errors == 0
	return r
}

type collector struct {
	issues []Issue
}

func (c *collector) add(level Level, path, format string, args ...any) {
	c.issues = append(c.issues, Issue{Level: level, Path: path, Message: fmt.Sprintf(format, args...)})
}

func (c *collector) errorf(path, format string, args ...any) {
	c.add(LevelError, path, format, args...)
}

func (c *collector) warnf(path, format string, args ...any) {
	c.add(LevelWarning, path, format, args...)
}

// strictf records an error in strict mode and a warning otherwise.
func (c *collector) strictf(strict bool, path, format string, args ...any) {
	if strict {
		c.errorf(path, format, args...)
		return
	}
	c.warnf(path, format, args...)
}
