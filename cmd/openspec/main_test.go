package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/HendryAvila/openspec/internal/config"
)

// setupCLI isolates config and data dirs and changes cwd to a fresh project dir.
func setupCLI(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(config.EnvDataDir, filepath.Join(home, "data"))
	t.Setenv(config.EnvLogLevel, "")

	root := t.TempDir()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(root); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
	noColorFlag = true
	stdinIsTerminal = func() bool { return false }
	return root
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestSplitList(t *testing.T) {
	got := splitList(" claude, ,cursor ,")
	if strings.Join(got, "|") != "claude|cursor" {
		t.Errorf("splitList = %q", got)
	}
	if splitList("") != nil {
		t.Error("empty input should give nil")
	}
}

func TestInit_WritesProjectAndTools(t *testing.T) {
	root := setupCLI(t)

	if err := execute(t, "init", "--tools", "claude"); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, rel := range []string{
		"openspec/AGENTS.md",
		"openspec/project.md",
		"AGENTS.md",
		"CLAUDE.md",
		".claude/commands/openspec/proposal.md",
	} {
		if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel))); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}

	cfg, err := config.LoadFromFile(config.ProjectPath(filepath.Join(root, "openspec")))
	if err != nil {
		t.Fatalf("project config: %v", err)
	}
	if strings.Join(cfg.Tools, ",") != "claude" {
		t.Errorf("saved tools = %v", cfg.Tools)
	}
}

func TestInit_UnknownTool(t *testing.T) {
	root := setupCLI(t)

	err := execute(t, "init", "--tools", "nope")
	if err == nil || !strings.Contains(err.Error(), "unknown tool") {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "openspec")); !os.IsNotExist(err) {
		t.Error("nothing should be written for an unknown tool")
	}
}

func TestChangeLifecycle(t *testing.T) {
	root := setupCLI(t)
	if err := execute(t, "init", "--tools", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := execute(t, "change", "new", "add-login"); err != nil {
		t.Fatalf("change new: %v", err)
	}
	changeDir := filepath.Join(root, "openspec", "changes", "add-login")
	if _, err := os.Stat(changeDir); err != nil {
		t.Fatalf("change dir not created: %v", err)
	}

	write := func(rel, content string) {
		path := filepath.Join(changeDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("proposal.md", "# Change: Add login\n\n## Why\nUsers need to sign in so their data stays private across sessions.\n\n## What Changes\n- Add login\n")
	write("tasks.md", "## 1. Build\n- [ ] 1.1 Login form\n")
	write("specs/auth/spec.md", "## ADDED Requirements\n### Requirement: Login\nThe system SHALL authenticate users.\n\n#### Scenario: ok\n- **WHEN** valid credentials\n- **THEN** signed in\n")

	if err := execute(t, "validate", "add-login", "--strict"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := execute(t, "task", "done", "add-login", "1.1"); err != nil {
		t.Fatalf("task done: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(changeDir, "tasks.md"))
	if err != nil || !strings.Contains(string(data), "- [x] 1.1") {
		t.Fatalf("task not checked: %q %v", data, err)
	}

	if err := execute(t, "archive", "add-login", "--yes"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "openspec", "specs", "auth", "spec.md")); err != nil {
		t.Errorf("spec not created on archive: %v", err)
	}
	if _, err := os.Stat(changeDir); !os.IsNotExist(err) {
		t.Error("change dir should have moved to the archive")
	}
}

func TestValidate_InvalidExitsNonZero(t *testing.T) {
	root := setupCLI(t)
	if err := execute(t, "init", "--tools", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	dir := filepath.Join(root, "openspec", "changes", "broken")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "proposal.md"), []byte("# Change: Broken\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, "validate", "broken")
	var exit *exitError
	if !errors.As(err, &exit) || exit.code != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
}

func TestArchive_RequiresConfirmationWithoutTTY(t *testing.T) {
	setupCLI(t)
	if err := execute(t, "init", "--tools", ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	archiveYes = false
	err := execute(t, "archive", "anything")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}

func TestSaveTools_MergesExisting(t *testing.T) {
	dir := t.TempDir()
	path := config.ProjectPath(dir)
	if err := (&config.Config{Tools: []string{"cursor"}, Strict: true}).SaveToFile(path); err != nil {
		t.Fatal(err)
	}
	if err := saveTools(dir, []string{"claude", "cursor"}); err != nil {
		t.Fatalf("saveTools: %v", err)
	}
	cfg, err := config.LoadFromFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(cfg.Tools, ",") != "claude,cursor" || !cfg.Strict {
		t.Errorf("unexpected config %+v", cfg)
	}
}
