package markdown

import (
	"regexp"
	"strings"
)

// Proposal is the parsed form of a change's proposal.md.
type Proposal struct {
	Title       string
	Why         string
	WhatChanges string
	// Bullets holds every list item under What Changes.
	Bullets []string
	// Deltas holds the "- **capability:** description" bullets.
	Deltas []ProposalDelta
}

// ProposalDelta is a capability-scoped bullet from What Changes. Operation
// is inferred from the description wording.
type ProposalDelta struct {
	Capability  string    `json:"capability"`
	Operation   DeltaKind `json:"operation"`
	Description string    `json:"description"`
}

var (
	titlePattern         = regexp.MustCompile(`^#\s+(.+?)\s*$`)
	proposalDeltaPattern = regexp.MustCompile(`^\s*[-*]\s*\*\*([^:*]+):\*\*\s*(.+?)\s*$`)
	addWords             = regexp.MustCompile(`\b(add(s|ed|ing)?|create(s|d)?|creating|new)\b`)
	removeWords          = regexp.MustCompile(`\b(remove(s|d)?|removing|delete(s|d)?|deleting)\b`)
)

// ParseProposal parses proposal markdown.
func ParseProposal(content string) Proposal {
	content = Normalize(content)
	sections := ParseSections(content)

	p := Proposal{Title: documentTitle(content)}
	if s := FindSection(sections, "Why"); s != nil {
		p.Why = s.Content
	}
	if s := FindSection(sections, "What Changes"); s != nil {
		p.WhatChanges = s.Content
		p.Bullets = Bullets(s.Content)
		p.Deltas = proposalDeltas(s.Content)
	}
	return p
}

func documentTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if m := titlePattern.FindStringSubmatch(line); m != nil {
			title := strings.TrimSpace(m[1])
			if rest, ok := strings.CutPrefix(title, "Change:"); ok {
				title = strings.TrimSpace(rest)
			}
			return title
		}
	}
	return ""
}

func proposalDeltas(content string) []ProposalDelta {
	var out []ProposalDelta
	for _, line := range strings.Split(content, "\n") {
		m := proposalDeltaPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		desc := strings.TrimSpace(m[2])
		op := DeltaModified
		lower := strings.ToLower(desc)
		switch {
		case addWords.MatchString(lower):
			op = DeltaAdded
		case removeWords.MatchString(lower):
			op = DeltaRemoved
		}
		out = append(out, ProposalDelta{
			Capability:  strings.TrimSpace(m[1]),
			Operation:   op,
			Description: desc,
		})
	}
	return out
}
