package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/tasks"
	"github.com/HendryAvila/openspec/internal/validation"
)

var (
	cyan   = color.New(color.FgCyan, color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func header(title string) {
	fmt.Printf("\n%s\n\n", cyan(title))
}

func progressBar(p tasks.Progress) string {
	const width = 20
	if p.Total == 0 {
		return gray("no tasks")
	}
	filled := p.Completed * width / p.Total
	bar := green(strings.Repeat("█", filled)) + gray(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %d/%d", bar, p.Completed, p.Total)
}

func stateColor(s changes.State) string {
	switch s {
	case changes.StateCompleted:
		return green(string(s))
	case changes.StateActive:
		return yellow(string(s))
	default:
		return gray(string(s))
	}
}

func printIssues(issues []validation.Issue) {
	for _, i := range issues {
		label := gray(string(i.Level))
		switch i.Level {
		case validation.LevelError:
			label = red(string(i.Level))
		case validation.LevelWarning:
			label = yellow(string(i.Level))
		}
		if i.Path != "" {
			fmt.Printf("  %s %s: %s\n", label, i.Path, i.Message)
		} else {
			fmt.Printf("  %s %s\n", label, i.Message)
		}
	}
}

func printReport(kind, id string, r validation.Report) {
	if r.Valid {
		fmt.Printf("%s %s '%s' is valid", green("✓"), kind, id)
		if r.Summary.Warnings > 0 {
			fmt.Printf(" %s", yellow(fmt.Sprintf("(%d warning(s))", r.Summary.Warnings)))
		}
		fmt.Println()
	} else {
		fmt.Printf("%s %s '%s' has issues\n", red("✗"), kind, id)
	}
	printIssues(r.Issues)
}

func printCounts(label string, c changes.Counts) {
	fmt.Printf("  %s %s %s %s %s\n", label,
		green(fmt.Sprintf("+%d", c.Added)),
		yellow(fmt.Sprintf("~%d", c.Modified)),
		red(fmt.Sprintf("-%d", c.Removed)),
		cyan(fmt.Sprintf("→%d", c.Renamed)))
}

func printApply(res *changes.ApplyResult) {
	if res == nil {
		return
	}
	if res.NoChanges {
		fmt.Println(gray("  No spec changes."))
	}
	for _, c := range res.Capabilities {
		name := c.Capability
		if c.RenamedTo != "" {
			name += " → " + c.RenamedTo
		}
		if c.Created {
			name += " " + gray("(new)")
		}
		printCounts(name, c.Counts)
	}
	if len(res.Capabilities) > 1 {
		printCounts(bold("Totals"), res.Totals)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  %s %s\n", yellow("!"), w)
	}
}

// printChangeError expands a typed lifecycle error's issues onto stderr and
// returns it for cobra.
func printChangeError(err error) error {
	var ce *changes.Error
	if errors.As(err, &ce) && len(ce.Issues) > 0 {
		fmt.Fprintf(os.Stderr, "%s %s\n", red("Error:"), ce.Message)
		for _, issue := range ce.Issues {
			fmt.Fprintf(os.Stderr, "  - %s\n", issue)
		}
		return &exitError{code: 1}
	}
	return err
}
