package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "file.yaml")

	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want %q", data, "two")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}

func TestExistsAndReadOptional(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.md")

	ok, err := Exists(missing)
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
	content, err := ReadOptional(missing)
	if err != nil || content != "" {
		t.Errorf("ReadOptional(missing) = %q, %v", content, err)
	}
	if !IsDir(dir) {
		t.Error("IsDir(tempdir) = false")
	}
	if IsDir(missing) {
		t.Error("IsDir(missing) = true")
	}
}
