package changes

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/HendryAvila/openspec/internal/fsutil"
)

const (
	// DirName is the default openspec directory under the project root.
	DirName = "openspec"
	// LegacyDirName is the hidden variant still accepted for existing projects.
	LegacyDirName = ".openspec"
	// ChangesDir holds active changes.
	ChangesDir = "changes"
	// ArchiveDir holds archived changes, inside ChangesDir.
	ArchiveDir = "archive"
	// SpecsDir holds canonical specs.
	SpecsDir = "specs"
)

// ResolveDir returns the project's openspec directory: openspec/ when it
// exists, else .openspec/ when that exists, else openspec/.
func ResolveDir(projectRoot string) string {
	primary := filepath.Join(projectRoot, DirName)
	if fsutil.IsDir(primary) {
		return primary
	}
	legacy := filepath.Join(projectRoot, LegacyDirName)
	if fsutil.IsDir(legacy) {
		return legacy
	}
	return primary
}

// FindProjectRoot walks up from start looking for an openspec directory.
// If none is found, start is returned and the caller decides what to do.
func FindProjectRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", start, err)
	}
	current := dir
	for {
		for _, name := range []string{DirName, LegacyDirName} {
			if fsutil.IsDir(filepath.Join(current, name)) {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir, nil
		}
		current = parent
	}
}

// FindProjectRootFromWD is FindProjectRoot starting at the working directory.
func FindProjectRootFromWD() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}
	return FindProjectRoot(wd)
}

// ChangesPath returns <openspec>/changes.
func ChangesPath(projectRoot string) string {
	return filepath.Join(ResolveDir(projectRoot), ChangesDir)
}

// ArchivePath returns <openspec>/changes/archive.
func ArchivePath(projectRoot string) string {
	return filepath.Join(ChangesPath(projectRoot), ArchiveDir)
}

// SpecsPath returns <openspec>/specs.
func SpecsPath(projectRoot string) string {
	return filepath.Join(ResolveDir(projectRoot), SpecsDir)
}

// ChangePath returns the directory of an active change.
func ChangePath(projectRoot, changeID string) string {
	return filepath.Join(ChangesPath(projectRoot), changeID)
}

// SpecPath returns the canonical spec file of a capability. Nested
// capabilities use forward slashes.
func SpecPath(projectRoot, capability string) string {
	return filepath.Join(SpecsPath(projectRoot), filepath.FromSlash(capability), "spec.md")
}
