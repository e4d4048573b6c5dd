package project

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/openspec/internal/agents"
)

func read(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestInit_FreshProject(t *testing.T) {
	root := t.TempDir()
	s := New(nil, nil)

	res, err := s.Init(root, InitOptions{Tools: []string{"claude"}})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if res.ExtendMode {
		t.Error("fresh project should not be in extend mode")
	}
	if res.RootStub != StubCreated {
		t.Errorf("RootStub = %s", res.RootStub)
	}
	if strings.Join(res.CreatedTools, ",") != "claude" || len(res.RefreshedTools) != 0 {
		t.Errorf("tools = %+v / %+v", res.CreatedTools, res.RefreshedTools)
	}

	for _, p := range []string{
		"openspec/AGENTS.md",
		"openspec/project.md",
		"openspec/specs",
		"openspec/changes/archive",
		"AGENTS.md",
		"CLAUDE.md",
		".claude/commands/openspec/proposal.md",
	} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(p))); err != nil {
			t.Errorf("%s missing: %v", p, err)
		}
	}
	stub := read(t, filepath.Join(root, "AGENTS.md"))
	if !strings.HasPrefix(stub, agents.MarkerStart) || !strings.Contains(stub, agents.MarkerEnd) {
		t.Errorf("root stub = %q", stub)
	}
}

func TestInit_ExtendModeKeepsProjectFile(t *testing.T) {
	root := t.TempDir()
	s := New(nil, nil)
	if _, err := s.Init(root, InitOptions{}); err != nil {
		t.Fatal(err)
	}
	projectPath := filepath.Join(root, "openspec", ProjectFile)
	if err := os.WriteFile(projectPath, []byte("# Mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "AGENTS.md"), []byte("# House rules\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := s.Init(root, InitOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.ExtendMode || res.RootStub != StubUpdated {
		t.Errorf("result = %+v", res)
	}
	if got := read(t, projectPath); got != "# Mine\n" {
		t.Errorf("project.md overwritten: %q", got)
	}
	stub := read(t, filepath.Join(root, "AGENTS.md"))
	if !strings.Contains(stub, "# House rules") || !strings.Contains(stub, agents.MarkerStart) {
		t.Errorf("root stub = %q", stub)
	}
}

func TestInit_RefreshedTools(t *testing.T) {
	root := t.TempDir()
	s := New(nil, nil)
	if _, err := s.Init(root, InitOptions{Tools: []string{"cursor"}}); err != nil {
		t.Fatal(err)
	}
	res, err := s.Init(root, InitOptions{Tools: []string{"cursor", "qwen"}})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(res.RefreshedTools, ",") != "cursor" || strings.Join(res.CreatedTools, ",") != "qwen" {
		t.Errorf("created=%v refreshed=%v", res.CreatedTools, res.RefreshedTools)
	}
}

func TestInit_UnknownToolWritesNothing(t *testing.T) {
	root := t.TempDir()
	_, err := New(nil, nil).Init(root, InitOptions{Tools: []string{"emacs"}})
	if err == nil || !strings.Contains(err.Error(), "emacs") {
		t.Fatalf("error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "openspec")); !os.IsNotExist(err) {
		t.Error("openspec directory should not be created")
	}
}

func TestInit_LegacyDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".openspec"), 0o755); err != nil {
		t.Fatal(err)
	}
	res, err := New(nil, nil).Init(root, InitOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(res.OpenSpecDir) != ".openspec" || !res.ExtendMode {
		t.Errorf("result = %+v", res)
	}
}

func TestUpdate(t *testing.T) {
	root := t.TempDir()
	s := New(nil, nil)

	if _, err := s.Update(root); err == nil {
		t.Error("Update without init should fail")
	}

	if _, err := s.Init(root, InitOptions{Tools: []string{"claude"}}); err != nil {
		t.Fatal(err)
	}
	agentsPath := filepath.Join(root, "openspec", AgentsFile)
	if err := os.WriteFile(agentsPath, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := s.Update(root)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if read(t, agentsPath) == "stale" {
		t.Error("AGENTS.md not rewritten")
	}
	joined := strings.Join(res.Updated, "\n")
	if !strings.Contains(joined, ".claude/commands/openspec/apply.md") {
		t.Errorf("updated = %v", res.Updated)
	}
	if strings.Contains(joined, ".cursor") {
		t.Error("Update must not configure new tools")
	}
	if _, err := os.Stat(filepath.Join(root, ".cursor")); !os.IsNotExist(err) {
		t.Error(".cursor should not exist")
	}
}
