package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	timeNow = func() time.Time {
		return time.Date(2026, 2, 23, 12, 0, 0, 0, time.UTC)
	}
}

func TestRead_MissingFileGivesDefaults(t *testing.T) {
	m, err := Read(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Metadata{Schema: DefaultSchema}, m)
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Metadata{Schema: "tdd"}))
	assert.True(t, Exists(dir))

	m, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, "tdd", m.Schema)
	assert.Equal(t, "2026-02-23", m.Created)
	assert.Equal(t, "2026-02-23T12:00:00Z", m.Updated)
}

func TestWrite_KeepsCreated(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Metadata{Schema: "tdd", Created: "2025-01-01"}))

	m, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", m.Created)
}

func TestRead_EmptySchemaDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("created: 2025-01-01\n"), 0o644))

	m, err := Read(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultSchema, m.Schema)
}

func TestRead_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("schema: [unclosed\n"), 0o644))

	_, err := Read(dir)
	assert.Error(t, err)
}
