package history

import (
	"fmt"
	"strings"
)

// Detail levels for rendering entries.
const (
	DetailSummary  = "summary"
	DetailStandard = "standard"
	DetailFull     = "full"
)

// DetailLevelValues returns the enum values for MCP tool definitions.
func DetailLevelValues() []string {
	return []string{DetailSummary, DetailStandard, DetailFull}
}

// ParseDetailLevel normalizes a detail level, defaulting to standard.
func ParseDetailLevel(s string) string {
	switch s {
	case DetailSummary, DetailFull:
		return s
	default:
		return DetailStandard
	}
}

const snippetLength = 300

// FormatEntries renders entries as markdown at the given detail level.
//   - summary: one line per archive
//   - standard: delta counts and a proposal snippet
//   - full: the whole proposal
func FormatEntries(entries []Entry, detail string) string {
	if len(entries) == 0 {
		return "No archived changes recorded."
	}
	detail = ParseDetailLevel(detail)

	var b strings.Builder
	for i, e := range entries {
		if i > 0 && detail != DetailSummary {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "- **%s** archived %s as `%s`\n", e.ChangeID, datePart(e.ArchivedAt), e.ArchiveName)
		if detail == DetailSummary {
			continue
		}
		fmt.Fprintf(&b, "  +%d ~%d -%d →%d", e.Added, e.Modified, e.Removed, e.Renamed)
		if len(e.Capabilities) > 0 {
			fmt.Fprintf(&b, " (%s)", strings.Join(e.Capabilities, ", "))
		}
		b.WriteString("\n")
		proposal := strings.TrimSpace(e.Proposal)
		if proposal == "" {
			continue
		}
		if detail == DetailStandard {
			proposal = Truncate(proposal, snippetLength)
		}
		for _, line := range strings.Split(proposal, "\n") {
			b.WriteString("  > " + line + "\n")
		}
	}
	return b.String()
}

// NavigationHint returns a one-line footer when results are capped by a
// limit, or "" when everything fits.
func NavigationHint(showing, total int) string {
	if total <= 0 || showing >= total {
		return ""
	}
	return fmt.Sprintf("\nShowing %d of %d. Raise the limit to see more.", showing, total)
}

// Truncate shortens s to n bytes and adds an ellipsis.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func datePart(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
