package server

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/HendryAvila/openspec/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return cfg
}

func TestWire_OpensHistory(t *testing.T) {
	deps, cleanup := Wire(testConfig(t), nil)
	defer cleanup()

	if deps.History == nil {
		t.Fatal("expected the history ledger to open in a writable data dir")
	}
	if deps.Store == nil || deps.Scaffolder == nil || deps.Resolver == nil {
		t.Fatalf("incomplete deps: %+v", deps)
	}
}

func TestNew_RegistersTools(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{
		"openspec_list", "openspec_show", "openspec_validate", "openspec_archive",
		"openspec_init", "openspec_change_create", "openspec_status", "openspec_history",
		"openspec_edit", "openspec_update_project_context",
	} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("tool %s not registered", name)
		}
	}
}

func TestNew_RegistersPrompts(t *testing.T) {
	s, cleanup, err := New(testConfig(t), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer cleanup()

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"prompts/list"}`))
	data, _ := json.Marshal(resp)
	for _, name := range []string{"openspec-proposal", "openspec-apply", "openspec-archive", "openspec-status"} {
		if !strings.Contains(string(data), `"`+name+`"`) {
			t.Errorf("prompt %s not registered", name)
		}
	}
}

func TestServerInstructions(t *testing.T) {
	if !strings.Contains(serverInstructions(), "openspec_validate") {
		t.Error("instructions should reference openspec_validate")
	}
}
