package resources

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/history"
	"github.com/mark3labs/mcp-go/mcp"
)

const authSpec = `# auth Specification

## Purpose
Authentication for the web app.

## Requirements
### Requirement: Login
The system SHALL authenticate users.

#### Scenario: ok
- **WHEN** valid credentials
- **THEN** signed in
`

func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"openspec/specs/auth/spec.md":                        authSpec,
		"openspec/changes/add-logout/proposal.md":            "# Change: Logout\n\n## Why\nUsers need it.\n",
		"openspec/changes/add-logout/tasks.md":               "- [ ] 1.1 Button\n",
		"openspec/changes/archive/2026-01-02-add-login/x.md": "done\n",
	}
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return root
}

func read(t *testing.T, handle func(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error), uri string) mcp.TextResourceContents {
	t.Helper()
	req := mcp.ReadResourceRequest{}
	req.Params.URI = uri
	contents, err := handle(context.Background(), req)
	if err != nil {
		t.Fatalf("handle %s: %v", uri, err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("unexpected content type %T", contents[0])
	}
	return tc
}

type fakeHistory struct {
	entries []history.Entry
}

func (f *fakeHistory) Recent(project string, limit int) ([]history.Entry, error) {
	return f.entries, nil
}

func TestHandleSpecs(t *testing.T) {
	setupProject(t)
	h := NewHandler(changes.NewFileStore(nil, nil), nil)

	tc := read(t, h.HandleSpecs, specsURI)
	if tc.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", tc.MIMEType)
	}
	if !strings.Contains(tc.Text, `"id": "auth"`) || !strings.Contains(tc.Text, `"requirementCount": 1`) {
		t.Errorf("unexpected specs payload:\n%s", tc.Text)
	}
}

func TestHandleChanges(t *testing.T) {
	setupProject(t)
	h := NewHandler(changes.NewFileStore(nil, nil), nil)

	tc := read(t, h.HandleChanges, changesURI)
	if !strings.Contains(tc.Text, `"name": "add-logout"`) {
		t.Errorf("unexpected changes payload:\n%s", tc.Text)
	}
	if strings.Contains(tc.Text, "archive") {
		t.Errorf("archive dir must not be listed as a change:\n%s", tc.Text)
	}
}

func TestHandleArchive_FallsBackToDirectory(t *testing.T) {
	setupProject(t)
	h := NewHandler(changes.NewFileStore(nil, nil), &fakeHistory{})

	tc := read(t, h.HandleArchive, archiveURI)
	if !strings.Contains(tc.Text, `"changeId": "add-login"`) || !strings.Contains(tc.Text, `"date": "2026-01-02"`) {
		t.Errorf("unexpected archive payload:\n%s", tc.Text)
	}
}

func TestHandleArchive_PrefersLedger(t *testing.T) {
	setupProject(t)
	fake := &fakeHistory{entries: []history.Entry{{ID: "e1", ChangeID: "add-login", Added: 3}}}
	h := NewHandler(changes.NewFileStore(nil, nil), fake)

	tc := read(t, h.HandleArchive, archiveURI)
	if !strings.Contains(tc.Text, `"change_id": "add-login"`) || !strings.Contains(tc.Text, `"added": 3`) {
		t.Errorf("expected ledger entries, got:\n%s", tc.Text)
	}
}

func TestHandleSpec(t *testing.T) {
	setupProject(t)
	h := NewHandler(changes.NewFileStore(nil, nil), nil)

	tc := read(t, h.HandleSpec, specsURI+"/auth")
	if tc.Text != authSpec || tc.MIMEType != "text/markdown" {
		t.Errorf("unexpected spec resource: %+v", tc)
	}

	tc = read(t, h.HandleSpec, specsURI+"/billing")
	if !strings.HasPrefix(tc.Text, "Error:") {
		t.Errorf("missing spec should be an error resource, got %q", tc.Text)
	}

	tc = read(t, h.HandleSpec, specsURI+"/..")
	if !strings.Contains(tc.Text, "invalid capability") {
		t.Errorf("traversal should be rejected, got %q", tc.Text)
	}
}

func TestHandleChangeFile(t *testing.T) {
	setupProject(t)
	h := NewHandler(changes.NewFileStore(nil, nil), nil)

	tests := []struct {
		uri  string
		want string
	}{
		{changesURI + "/add-logout/proposal", "# Change: Logout"},
		{changesURI + "/add-logout/tasks", "- [ ] 1.1 Button"},
		{changesURI + "/add-logout/design", "Error: unknown change file"},
		{changesURI + "/missing/proposal", `Error: change "missing" not found`},
		{changesURI + "/add-logout", "Error: invalid change resource"},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			tc := read(t, h.HandleChangeFile, tt.uri)
			if !strings.Contains(tc.Text, tt.want) {
				t.Errorf("got %q, want it to contain %q", tc.Text, tt.want)
			}
		})
	}
}

func TestDefinitions(t *testing.T) {
	h := NewHandler(nil, nil)
	if h.SpecsResource().URI != specsURI || h.ChangesResource().URI != changesURI || h.ArchiveResource().URI != archiveURI {
		t.Error("unexpected static resource URIs")
	}
	if h.SpecTemplate().Name != "OpenSpec Spec" {
		t.Errorf("unexpected template name %q", h.SpecTemplate().Name)
	}
}
