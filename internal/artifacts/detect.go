package artifacts

import (
	"io/fs"
	"os"
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// DetectCompleted marks an artifact complete when its generates pattern
// matches at least one regular file under changeDir. A missing changeDir
// yields an empty set.
func DetectCompleted(changeDir string, s *Schema) CompletedSet {
	return detect(os.DirFS(changeDir), s)
}

func detect(fsys fs.FS, s *Schema) CompletedSet {
	done := CompletedSet{}
	for _, a := range s.Artifacts {
		if a.Generates == "" {
			continue
		}
		if matchesFile(fsys, path.Clean(a.Generates)) {
			done[a.ID] = true
		}
	}
	return done
}

func matchesFile(fsys fs.FS, pattern string) bool {
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	return err == nil && len(matches) > 0
}
