package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProposal = `# Change: Add two-factor auth

## Why
Accounts are protected by a password only, which is weak against credential stuffing.

## What Changes
- **auth:** Add OTP verification on login
- **profile:** Remove legacy security question
- **session:** Shorten idle timeout
- Unscoped note
`

func TestParseProposal(t *testing.T) {
	p := ParseProposal(sampleProposal)

	assert.Equal(t, "Add two-factor auth", p.Title)
	assert.Contains(t, p.Why, "credential stuffing")
	assert.Len(t, p.Bullets, 4)
	require.Len(t, p.Deltas, 3)
	assert.Equal(t, ProposalDelta{Capability: "auth", Operation: DeltaAdded, Description: "Add OTP verification on login"}, p.Deltas[0])
	assert.Equal(t, DeltaRemoved, p.Deltas[1].Operation)
	assert.Equal(t, DeltaModified, p.Deltas[2].Operation)
}

func TestParseProposal_MissingSections(t *testing.T) {
	p := ParseProposal("just some text\n")
	assert.Empty(t, p.Title)
	assert.Empty(t, p.Why)
	assert.Empty(t, p.Bullets)
}

func TestParseProposal_CRLF(t *testing.T) {
	p := ParseProposal("## Why\r\nBecause.\r\n\r\n## What Changes\r\n- a thing\r\n")
	assert.Equal(t, "Because.", p.Why)
	assert.Equal(t, []string{"a thing"}, p.Bullets)
}

func TestParseProposal_Idempotent(t *testing.T) {
	assert.Equal(t, ParseProposal(sampleProposal), ParseProposal(sampleProposal))
}

const sampleSpec = `# auth Specification

## Purpose
Authentication for the application.

## Requirements
### Requirement: Login
The system SHALL authenticate users by email and password.

#### Scenario: Valid credentials
- **WHEN** a user submits valid credentials
- **THEN** a session is created

### Requirement: Logout
The system SHALL end sessions on request.

## Notes
Keep this.
`

func TestParseSpec(t *testing.T) {
	s := ParseSpec(sampleSpec)

	assert.Equal(t, "auth Specification", s.Title)
	assert.Equal(t, "Authentication for the application.", s.Purpose)
	assert.True(t, s.HasRequirements)
	require.Len(t, s.Requirements, 2)
	assert.Equal(t, "Login", s.Requirements[0].Name)
	assert.Equal(t, "The system SHALL authenticate users by email and password.", s.Requirements[0].Text)
	require.Len(t, s.Requirements[0].Scenarios, 1)
	assert.Equal(t, "Valid credentials", s.Requirements[0].Scenarios[0].Name)
	assert.Contains(t, s.Requirements[0].Scenarios[0].Text, "session is created")

	// Zero scenarios is preserved, not an error.
	assert.Empty(t, s.Requirements[1].Scenarios)
}

func TestExtractRequirementsSection_RoundTrip(t *testing.T) {
	parts := ExtractRequirementsSection(sampleSpec)

	assert.Equal(t, "## Requirements", parts.HeaderLine)
	require.Len(t, parts.Blocks, 2)
	assert.Equal(t, "Logout", parts.Blocks[1].Name)
	assert.Contains(t, parts.After, "## Notes")
	assert.Equal(t, sampleSpec, parts.Compose())
}

func TestExtractRequirementsSection_KeepsBlankRunsOutsideRequirements(t *testing.T) {
	spec := "# x\n\n## Purpose\n```\na\n\n\n\nb\n```\n\n## Requirements\n" +
		"### Requirement: A\nThe system SHALL a.\n\n\n\n#### Scenario: s\n- ok\n\n## Notes\nx\n\n\n\ny\n"

	out := ExtractRequirementsSection(spec).Compose()
	assert.Contains(t, out, "a\n\n\n\nb")
	assert.Contains(t, out, "x\n\n\n\ny")
	assert.Contains(t, out, "SHALL a.\n\n#### Scenario: s")
}

func TestExtractRequirementsSection_NoSection(t *testing.T) {
	parts := ExtractRequirementsSection("# x\n\n## Purpose\nSomething.\n")
	assert.Empty(t, parts.Blocks)
	assert.Equal(t, "# x\n\n## Purpose\nSomething.\n\n## Requirements\n", parts.Compose())
}

func TestNormalizeRequirementName(t *testing.T) {
	assert.Equal(t, "User can log in", NormalizeRequirementName("  User   can\tlog in "))
}

func TestRequirementHeader_FlexibleWhitespace(t *testing.T) {
	for _, line := range []string{"### Requirement: A", "###Requirement: A", "###\tRequirement:\tA  "} {
		m := requirementHeader.FindStringSubmatch(line)
		require.NotNil(t, m, line)
		assert.Equal(t, "A", m[1])
	}
}

const sampleDelta = `## ADDED Requirements
### Requirement: OTP
The system SHALL require a one-time password.

#### Scenario: OTP sent
- **WHEN** login succeeds
- **THEN** an OTP is sent

## MODIFIED Requirements
### Requirement: Login
The system SHALL authenticate users and require OTP.

#### Scenario: Valid credentials
- ok

## REMOVED Requirements
### Requirement: Security question
- ` + "`### Requirement: Recovery codes`" + `

## RENAMED Requirements
- FROM: ` + "`### Requirement: Logout`" + `
- TO: ` + "`### Requirement: Sign out`" + `

## CHANGED Requirements
whatever
`

func TestParseDeltaSpec(t *testing.T) {
	plan := ParseDeltaSpec(sampleDelta)

	require.Len(t, plan.Added, 1)
	assert.Equal(t, "OTP", plan.Added[0].Name)
	assert.Equal(t, "### Requirement: OTP", plan.Added[0].HeaderLine)
	require.Len(t, plan.Modified, 1)
	assert.Equal(t, "Login", plan.Modified[0].Name)
	assert.Equal(t, []string{"Security question", "Recovery codes"}, plan.Removed)
	assert.Equal(t, []Rename{{From: "Logout", To: "Sign out"}}, plan.Renamed)
	assert.Nil(t, plan.CapabilityRename)
	assert.Equal(t, []string{"CHANGED"}, plan.Unknown)
	assert.Equal(t, 5, plan.Operations())
}

func TestParseDeltaSpec_CapabilityRename(t *testing.T) {
	plan := ParseDeltaSpec("## RENAMED Requirements\n- FROM: `auth`\n- TO: `identity`\n")
	require.NotNil(t, plan.CapabilityRename)
	assert.Equal(t, Rename{From: "auth", To: "identity"}, *plan.CapabilityRename)
	assert.Empty(t, plan.Renamed)
	assert.Equal(t, 1, plan.Operations())
}

func TestParseDeltaSpec_Empty(t *testing.T) {
	plan := ParseDeltaSpec("# nothing here\n")
	assert.Zero(t, plan.Operations())
}

func TestDeltaPlan_Deltas(t *testing.T) {
	deltas := ParseDeltaSpec(sampleDelta).Deltas("auth")
	require.Len(t, deltas, 4)
	assert.Equal(t, DeltaAdded, deltas[0].Kind)
	assert.Equal(t, "auth", deltas[0].Capability)
	require.Len(t, deltas[0].Requirements, 1)
	assert.Len(t, deltas[0].Requirements[0].Scenarios, 1)
	assert.Equal(t, DeltaRenamed, deltas[3].Kind)
	assert.Len(t, deltas[3].Renames, 1)
}

func TestParseSections_Nesting(t *testing.T) {
	sections := ParseSections("# A\nintro\n## B\nb body\n### C\nc body\n## D\n")
	require.Len(t, sections, 1)
	require.Len(t, sections[0].Children, 2)
	assert.Equal(t, "C", sections[0].Children[0].Children[0].Title)
	assert.Equal(t, "b body\n### C\nc body", sections[0].Children[0].Content)
	assert.NotNil(t, FindSection(sections, "d"))
}

func TestReplaceSection(t *testing.T) {
	doc := "# Project\n\n## Purpose\nold\n\n### Detail\nx\n\n## Tech Stack\n- Go\n"

	tests := []struct {
		name    string
		content string
		title   string
		body    string
		want    string
	}{
		{"middle section with subsection", doc, "purpose", "new", "# Project\n\n## Purpose\n\nnew\n\n## Tech Stack\n- Go\n"},
		{"last section", doc, "Tech Stack", "- Go 1.24\n", "# Project\n\n## Purpose\nold\n\n### Detail\nx\n\n## Tech Stack\n\n- Go 1.24\n"},
		{"missing section appended", "# Project\n", "Conventions", "kebab-case", "# Project\n\n## Conventions\n\nkebab-case\n"},
		{"empty document", "", "Purpose", "p", "## Purpose\n\np\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceSection(tt.content, tt.title, tt.body))
		})
	}
}
