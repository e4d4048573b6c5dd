package history

import (
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// newTestStore creates a Store backed by a temp directory for isolation.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{Dir: t.TempDir(), MaxSearchResults: 20})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(t *testing.T, s *Store, ev Event) string {
	t.Helper()
	id, err := s.Record(ev)
	if err != nil {
		t.Fatalf("Record(%s): %v", ev.ChangeID, err)
	}
	return id
}

// ─── New ─────────────────────────────────────────────────────────────────────

func TestNew_CreatesDBFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "openspec")
	s, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer s.Close()

	var mode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatal(err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want wal", mode)
	}
}

func TestNew_Reopen(t *testing.T) {
	dir := t.TempDir()
	s1, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatal(err)
	}
	record(t, s1, Event{Project: "/p", ChangeID: "a"})
	_ = s1.Close()

	s2, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	got, err := s2.Recent("", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("Recent after reopen = %v, %v", got, err)
	}
}

func TestNew_OpenFailure(t *testing.T) {
	orig := openDB
	t.Cleanup(func() { openDB = orig })
	openDB = func(driver, dsn string) (*sql.DB, error) {
		return nil, errors.New("boom")
	}
	if _, err := New(Config{Dir: t.TempDir()}); err == nil || !strings.Contains(err.Error(), "open database") {
		t.Errorf("error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("/data")
	if cfg.Dir != filepath.Join("/data", "openspec") {
		t.Errorf("Dir = %s", cfg.Dir)
	}
}

// ─── Record / Recent ─────────────────────────────────────────────────────────

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	record(t, s, Event{Project: "/p1", ChangeID: "add-auth", ArchiveName: "2024-01-15-add-auth", ArchivedAt: base,
		Added: 2, Capabilities: []string{"auth", "session"}, Proposal: "# Add auth"})
	record(t, s, Event{Project: "/p1", ChangeID: "add-billing", ArchivedAt: base.Add(time.Hour)})
	record(t, s, Event{Project: "/p2", ChangeID: "other", ArchivedAt: base.Add(2 * time.Hour)})

	all, err := s.Recent("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ChangeID != "other" {
		t.Fatalf("Recent = %+v", all)
	}

	p1, err := s.Recent("/p1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(p1) != 2 || p1[0].ChangeID != "add-billing" {
		t.Fatalf("Recent(/p1) = %+v", p1)
	}
	auth := p1[1]
	if auth.Added != 2 || strings.Join(auth.Capabilities, ",") != "auth,session" || auth.ArchivedAt != "2024-01-15T09:00:00Z" {
		t.Errorf("entry = %+v", auth)
	}
	if len(p1[0].Capabilities) != 0 {
		t.Errorf("empty capabilities should decode to an empty list, got %v", p1[0].Capabilities)
	}

	got, err := s.Get(auth.ID)
	if err != nil || got.ChangeID != "add-auth" {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if _, err := s.Get("missing"); err == nil {
		t.Error("Get(missing) should fail")
	}
}

func TestRecord_RequiresChangeID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Record(Event{Project: "/p"}); err == nil {
		t.Error("expected error")
	}
}

func TestRecent_Limit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 30; i++ {
		record(t, s, Event{Project: "/p", ChangeID: "c"})
	}
	got, err := s.Recent("", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Errorf("len = %d, want capped at 20", len(got))
	}
	got, _ = s.Recent("", 0)
	if len(got) != 10 {
		t.Errorf("default limit len = %d, want 10", len(got))
	}
}

// ─── Search ──────────────────────────────────────────────────────────────────

func TestSearch(t *testing.T) {
	s := newTestStore(t)
	record(t, s, Event{Project: "/p", ChangeID: "add-auth", Proposal: "Users need two-factor login with OTP codes"})
	record(t, s, Event{Project: "/p", ChangeID: "add-billing", Proposal: "Invoices and payments"})
	record(t, s, Event{Project: "/q", ChangeID: "otp-elsewhere", Proposal: "OTP for another project"})

	results, err := s.Search("OTP", SearchOptions{})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}

	results, err = s.Search("OTP", SearchOptions{Project: "/p"})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChangeID != "add-auth" {
		t.Errorf("project filter results = %+v", results)
	}

	// FTS syntax characters are quoted, not interpreted.
	if _, err := s.Search(`payments" OR`, SearchOptions{}); err != nil {
		t.Errorf("special characters should not break search: %v", err)
	}
}

func TestSearch_EmptyQueryFallsBackToRecent(t *testing.T) {
	s := newTestStore(t)
	record(t, s, Event{Project: "/p", ChangeID: "a"})
	results, err := s.Search("   ", SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].ChangeID != "a" {
		t.Errorf("results = %+v", results)
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	record(t, s, Event{Project: "/b", ChangeID: "x"})
	record(t, s, Event{Project: "/a", ChangeID: "y"})
	st, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalArchives != 2 || strings.Join(st.Projects, ",") != "/a,/b" {
		t.Errorf("stats = %+v", st)
	}
}

func TestSanitizeFTS(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"otp":          `"otp"`,
		`two "factor"`: `"two" "factor"`,
		` " `:          "",
		"a OR b":       `"a" "OR" "b"`,
	}
	for in, want := range tests {
		if got := sanitizeFTS(in); got != want {
			t.Errorf("sanitizeFTS(%q) = %q, want %q", in, got, want)
		}
	}
}

// ─── Format ──────────────────────────────────────────────────────────────────

func TestFormatEntries(t *testing.T) {
	entries := []Entry{{
		ChangeID: "add-auth", ArchiveName: "2024-01-15-add-auth", ArchivedAt: "2024-01-15T09:00:00Z",
		Added: 1, Capabilities: []string{"auth"}, Proposal: strings.Repeat("x", 400),
	}}

	summary := FormatEntries(entries, DetailSummary)
	if strings.Contains(summary, "+1") || !strings.Contains(summary, "2024-01-15") {
		t.Errorf("summary = %q", summary)
	}
	standard := FormatEntries(entries, "")
	if !strings.Contains(standard, "+1 ~0 -0 →0 (auth)") || !strings.Contains(standard, "...") {
		t.Errorf("standard = %q", standard)
	}
	full := FormatEntries(entries, DetailFull)
	if strings.Contains(full, "...") {
		t.Error("full output must not truncate")
	}
	if FormatEntries(nil, DetailFull) != "No archived changes recorded." {
		t.Error("empty output")
	}
}

func TestNavigationHint(t *testing.T) {
	if NavigationHint(5, 5) != "" || NavigationHint(0, 0) != "" {
		t.Error("no hint expected when everything fits")
	}
	if !strings.Contains(NavigationHint(5, 9), "Showing 5 of 9") {
		t.Error("hint missing")
	}
}
