// Package history is the archive ledger: every archived change is recorded
// in SQLite with FTS5 full-text search over its proposal.
//
// The ledger is optional. Callers that fail to open it log a warning and
// keep working without it.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DBFile is the ledger file name under <DataDir>/openspec.
const DBFile = "history.db"

// ─── Types ───────────────────────────────────────────────────────────────────

// Event is one archive to record.
type Event struct {
	Project      string
	ChangeID     string
	ArchiveName  string
	ArchivedAt   time.Time
	Added        int
	Modified     int
	Removed      int
	Renamed      int
	Capabilities []string
	Proposal     string
}

// Entry is a recorded archive.
type Entry struct {
	ID           string   `json:"id"`
	Project      string   `json:"project"`
	ChangeID     string   `json:"change_id"`
	ArchiveName  string   `json:"archive_name"`
	ArchivedAt   string   `json:"archived_at"`
	Added        int      `json:"added"`
	Modified     int      `json:"modified"`
	Removed      int      `json:"removed"`
	Renamed      int      `json:"renamed"`
	Capabilities []string `json:"capabilities"`
	Proposal     string   `json:"proposal,omitempty"`
}

// SearchResult embeds an Entry with its FTS5 rank.
type SearchResult struct {
	Entry
	Rank float64 `json:"rank"`
}

// SearchOptions filters Search.
type SearchOptions struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// Stats holds aggregate ledger statistics.
type Stats struct {
	TotalArchives int      `json:"total_archives"`
	Projects      []string `json:"projects"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds ledger configuration.
type Config struct {
	// Dir holds history.db; usually <data dir>/openspec.
	Dir              string
	MaxSearchResults int
}

// DefaultConfig returns the ledger configuration for a data directory.
func DefaultConfig(dataDir string) Config {
	return Config{
		Dir:              filepath.Join(dataDir, "openspec"),
		MaxSearchResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the archive ledger backed by SQLite + FTS5.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens or creates the ledger. It creates the directory if needed,
// opens SQLite with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 50
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	db, err := openDB("sqlite", filepath.Join(cfg.Dir, DBFile))
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("history: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS archives (
			id           TEXT PRIMARY KEY,
			project      TEXT NOT NULL,
			change_id    TEXT NOT NULL,
			archive_name TEXT NOT NULL,
			archived_at  TEXT NOT NULL,
			added        INTEGER NOT NULL DEFAULT 0,
			modified     INTEGER NOT NULL DEFAULT 0,
			removed      INTEGER NOT NULL DEFAULT 0,
			renamed      INTEGER NOT NULL DEFAULT 0,
			capabilities TEXT NOT NULL DEFAULT '',
			proposal     TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_archives_project  ON archives(project);
		CREATE INDEX IF NOT EXISTS idx_archives_archived ON archives(archived_at DESC);

		CREATE VIRTUAL TABLE IF NOT EXISTS archives_fts USING fts5(
			change_id, proposal, capabilities,
			content='archives', content_rowid='rowid'
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='trigger' AND name='archives_fts_insert'",
	).Scan(&name)
	if err == sql.ErrNoRows {
		triggers := `
			CREATE TRIGGER archives_fts_insert AFTER INSERT ON archives BEGIN
				INSERT INTO archives_fts(rowid, change_id, proposal, capabilities)
				VALUES (new.rowid, new.change_id, new.proposal, new.capabilities);
			END;

			CREATE TRIGGER archives_fts_delete AFTER DELETE ON archives BEGIN
				INSERT INTO archives_fts(archives_fts, rowid, change_id, proposal, capabilities)
				VALUES ('delete', old.rowid, old.change_id, old.proposal, old.capabilities);
			END;
		`
		if _, err := s.db.Exec(triggers); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	return nil
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Record stores one archive and returns its id.
func (s *Store) Record(ev Event) (string, error) {
	if ev.ChangeID == "" {
		return "", fmt.Errorf("history: change id is required")
	}
	at := ev.ArchivedAt
	if at.IsZero() {
		at = time.Now()
	}
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO archives (id, project, change_id, archive_name, archived_at, added, modified, removed, renamed, capabilities, proposal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, ev.Project, ev.ChangeID, ev.ArchiveName, at.UTC().Format(time.RFC3339),
		ev.Added, ev.Modified, ev.Removed, ev.Renamed,
		strings.Join(ev.Capabilities, ","), ev.Proposal,
	)
	if err != nil {
		return "", fmt.Errorf("history: record: %w", err)
	}
	return id, nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

const entryColumns = `a.id, a.project, a.change_id, a.archive_name, a.archived_at,
	a.added, a.modified, a.removed, a.renamed, a.capabilities, a.proposal`

// Recent returns the newest archives, optionally for one project.
func (s *Store) Recent(project string, limit int) ([]Entry, error) {
	limit = s.clamp(limit)
	query := `SELECT ` + entryColumns + ` FROM archives a`
	args := []any{}
	if project != "" {
		query += ` WHERE a.project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY a.archived_at DESC, a.rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Get returns one archive by id.
func (s *Store) Get(id string) (*Entry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM archives a WHERE a.id = ?`, id)
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history: archive %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Search performs full-text search over archived proposals. An empty or
// whitespace-only query falls back to Recent.
func (s *Store) Search(query string, opts SearchOptions) ([]SearchResult, error) {
	limit := s.clamp(opts.Limit)
	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		recent, err := s.Recent(opts.Project, limit)
		if err != nil {
			return nil, err
		}
		results := make([]SearchResult, len(recent))
		for i, e := range recent {
			results[i] = SearchResult{Entry: e}
		}
		return results, nil
	}

	sqlStr := `
		SELECT ` + entryColumns + `, fts.rank
		FROM archives_fts fts
		JOIN archives a ON a.rowid = fts.rowid
		WHERE archives_fts MATCH ?
	`
	args := []any{ftsQuery}
	if opts.Project != "" {
		sqlStr += " AND a.project = ?"
		args = append(args, opts.Project)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := []SearchResult{}
	for rows.Next() {
		var sr SearchResult
		var caps string
		if err := rows.Scan(
			&sr.ID, &sr.Project, &sr.ChangeID, &sr.ArchiveName, &sr.ArchivedAt,
			&sr.Added, &sr.Modified, &sr.Removed, &sr.Renamed, &caps, &sr.Proposal,
			&sr.Rank,
		); err != nil {
			return nil, err
		}
		sr.Capabilities = splitCapabilities(caps)
		results = append(results, sr)
	}
	return results, rows.Err()
}

// Stats returns aggregate counts.
func (s *Store) Stats() (*Stats, error) {
	st := &Stats{Projects: []string{}}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM archives`).Scan(&st.TotalArchives); err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	rows, err := s.db.Query(`SELECT DISTINCT project FROM archives ORDER BY project`)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		st.Projects = append(st.Projects, p)
	}
	return st, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var caps string
	err := sc.Scan(
		&e.ID, &e.Project, &e.ChangeID, &e.ArchiveName, &e.ArchivedAt,
		&e.Added, &e.Modified, &e.Removed, &e.Renamed, &caps, &e.Proposal,
	)
	e.Capabilities = splitCapabilities(caps)
	return e, err
}

func splitCapabilities(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

func (s *Store) clamp(limit int) int {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.cfg.MaxSearchResults {
		limit = s.cfg.MaxSearchResults
	}
	return limit
}

// sanitizeFTS quotes every word so user input is never parsed as FTS5
// syntax.
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		if w = strings.ReplaceAll(w, `"`, ""); w != "" {
			words = append(words, `"`+w+`"`)
		}
	}
	return strings.Join(words, " ")
}
