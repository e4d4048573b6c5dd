// Package metadata reads and writes the per-change .openspec.yaml sidecar.
package metadata

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/HendryAvila/openspec/internal/fsutil"
	"gopkg.in/yaml.v3"
)

// FileName is the sidecar file inside a change directory.
const FileName = ".openspec.yaml"

// DefaultSchema is the workflow schema used when a change does not name one.
const DefaultSchema = "spec-driven"

// Metadata is the persisted change metadata.
type Metadata struct {
	Schema string `yaml:"schema" json:"schema"`
	// Created is the creation date, YYYY-MM-DD.
	Created string `yaml:"created,omitempty" json:"created,omitempty"`
	// Updated is the RFC 3339 time of the last write.
	Updated string `yaml:"updated,omitempty" json:"updated,omitempty"`
}

// timeNow is swappable in tests.
var timeNow = time.Now

// Path returns the sidecar path for a change directory.
func Path(changeDir string) string {
	return filepath.Join(changeDir, FileName)
}

// Read loads a change's metadata. A missing file yields defaults, not an
// error. A file without a schema gets the default schema.
func Read(changeDir string) (Metadata, error) {
	data, err := os.ReadFile(Path(changeDir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Metadata{Schema: DefaultSchema}, nil
		}
		return Metadata{}, fmt.Errorf("reading change metadata: %w", err)
	}

	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if strings.TrimSpace(m.Schema) == "" {
		m.Schema = DefaultSchema
	}
	return m, nil
}

// Exists reports whether a change has a metadata file.
func Exists(changeDir string) bool {
	_, err := os.Stat(Path(changeDir))
	return err == nil
}

// Write persists metadata atomically. Created defaults to today and Updated
// is always refreshed. Concurrent writers race and the last one wins.
func Write(changeDir string, m Metadata) error {
	now := timeNow().UTC()
	if m.Schema == "" {
		m.Schema = DefaultSchema
	}
	if m.Created == "" {
		m.Created = now.Format(time.DateOnly)
	}
	m.Updated = now.Format(time.RFC3339)

	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encoding change metadata: %w", err)
	}
	if err := fsutil.WriteFileAtomic(Path(changeDir), data, 0o644); err != nil {
		return fmt.Errorf("writing change metadata: %w", err)
	}
	return nil
}
