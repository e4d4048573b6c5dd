package changes

import (
	"errors"
	"strings"
	"testing"

	"github.com/HendryAvila/openspec/internal/markdown"
)

const baseSpec = `# auth Specification

## Purpose
Authentication for the application, covering login and logout flows.

## Requirements
### Requirement: Login
The system SHALL authenticate users.

#### Scenario: ok
- works

### Requirement: Logout
The system SHALL end sessions.

#### Scenario: ok
- works

### Requirement: Remember me
The system SHALL keep sessions alive.

#### Scenario: ok
- works
`

func merge(t *testing.T, delta string, target string, exists bool) (mergeOutput, error) {
	t.Helper()
	return mergeSpec(mergeInput{
		Capability:   "auth",
		ChangeID:     "add-otp",
		Plan:         markdown.ParseDeltaSpec(delta),
		Target:       target,
		TargetExists: exists,
	})
}

func requirementNames(content string) []string {
	var names []string
	for _, b := range markdown.ExtractRequirementsSection(content).Blocks {
		names = append(names, b.Name)
	}
	return names
}

func TestMergeSpec_AllKinds(t *testing.T) {
	delta := "## ADDED Requirements\n### Requirement: OTP\nThe system SHALL send an OTP.\n\n#### Scenario: sent\n- ok\n\n" +
		"## MODIFIED Requirements\n### Requirement: Login\nThe system SHALL authenticate users with OTP.\n\n#### Scenario: ok\n- works\n\n" +
		"## REMOVED Requirements\n### Requirement: Remember me\n\n" +
		"## RENAMED Requirements\n- FROM: `### Requirement: Logout`\n- TO: `### Requirement: Sign out`\n"

	out, err := merge(t, delta, baseSpec, true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got := strings.Join(requirementNames(out.Content), ",")
	if got != "Login,Sign out,OTP" {
		t.Errorf("requirements = %s, want Login,Sign out,OTP", got)
	}
	if !strings.Contains(out.Content, "authenticate users with OTP") {
		t.Error("MODIFIED block not applied")
	}
	if !strings.Contains(out.Content, "### Requirement: Sign out\nThe system SHALL end sessions.") {
		t.Errorf("renamed block lost its body:\n%s", out.Content)
	}
	if !strings.HasPrefix(out.Content, "# auth Specification\n\n## Purpose\n") {
		t.Error("content before Requirements must be preserved")
	}
	if strings.Contains(out.Content, "\n\n\n") {
		t.Error("blank line runs must be collapsed")
	}
	if out.Counts != (Counts{Added: 1, Modified: 1, Removed: 1, Renamed: 1}) {
		t.Errorf("counts = %+v", out.Counts)
	}
	if out.Created {
		t.Error("existing spec must not be marked created")
	}
}

func TestMergeSpec_KeyedByName(t *testing.T) {
	// Delta order differs from spec order; spec order wins.
	delta := "## MODIFIED Requirements\n" +
		"### Requirement: Remember  me\nThe system SHALL keep sessions alive for 30 days.\n\n#### Scenario: ok\n- works\n\n" +
		"### Requirement: Login\nThe system SHALL authenticate users by SSO.\n\n#### Scenario: ok\n- works\n"

	out, err := merge(t, delta, baseSpec, true)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if got := strings.Join(requirementNames(out.Content), ","); got != "Login,Logout,Remember me" {
		t.Errorf("requirements = %s", got)
	}
	if !strings.Contains(out.Content, "30 days") || !strings.Contains(out.Content, "SSO") {
		t.Error("modified blocks missing")
	}
}

func TestMergeSpec_NewSpec(t *testing.T) {
	delta := "## ADDED Requirements\n### Requirement: OTP\nThe system SHALL send an OTP.\n\n#### Scenario: sent\n- ok\n\n" +
		"## REMOVED Requirements\n### Requirement: Legacy\n"

	out, err := merge(t, delta, "", false)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if !out.Created {
		t.Error("new spec must be marked created")
	}
	if !strings.HasPrefix(out.Content, "# auth Specification\n\n## Purpose\nTBD - created by archiving change add-otp.") {
		t.Errorf("skeleton missing:\n%s", out.Content)
	}
	if got := strings.Join(requirementNames(out.Content), ","); got != "OTP" {
		t.Errorf("requirements = %s", got)
	}
	if len(out.Warnings) != 1 || !strings.Contains(out.Warnings[0], "REMOVED requirement(s) ignored") {
		t.Errorf("warnings = %v", out.Warnings)
	}
}

func TestMergeSpec_Errors(t *testing.T) {
	added := "## ADDED Requirements\n### Requirement: %s\nThe system SHALL x.\n\n#### Scenario: s\n- ok\n"
	modified := "## MODIFIED Requirements\n### Requirement: %s\nThe system SHALL x.\n\n#### Scenario: s\n- ok\n"

	tests := []struct {
		name   string
		delta  string
		target string
		exists bool
		substr string
	}{
		{"modified on new spec", strings.Replace(modified, "%s", "Login", 1), "", false, "only ADDED requirements are allowed"},
		{"modified missing", strings.Replace(modified, "%s", "Ghost", 1), baseSpec, true, "MODIFIED failed"},
		{"removed missing", "## REMOVED Requirements\n### Requirement: Ghost\n", baseSpec, true, "REMOVED failed"},
		{"added exists", strings.Replace(added, "%s", "Login", 1), baseSpec, true, "already exists"},
		{"rename source missing", "## RENAMED Requirements\n- FROM: `### Requirement: Ghost`\n- TO: `### Requirement: B`\n", baseSpec, true, "source not found"},
		{"rename target exists", "## RENAMED Requirements\n- FROM: `### Requirement: Login`\n- TO: `### Requirement: Logout`\n", baseSpec, true, "target already exists"},
		{"modified and removed", strings.Replace(modified, "%s", "Login", 1) + "\n## REMOVED Requirements\n### Requirement: Login\n", baseSpec, true, "MODIFIED and REMOVED"},
		{"duplicate canonical header", strings.Replace(added, "%s", "OTP", 1), baseSpec + "\n### Requirement: Login\nThe system SHALL log in again.\n\n#### Scenario: ok\n- works\n", true, "duplicate header"},
		{"duplicate added", strings.Replace(added, "%s", "A", 1) + strings.Replace(strings.TrimPrefix(added, "## ADDED Requirements\n"), "%s", "A", 1), baseSpec, true, "duplicate requirement in ADDED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := merge(t, tt.delta, tt.target, tt.exists)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrValidationFailed) {
				t.Errorf("error kind = %s, want ValidationFailed", KindOf(err))
			}
			if !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.substr)
			}
		})
	}
}
