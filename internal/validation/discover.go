package validation

import (
	"os"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DeltaFile is one specs/<capability>/spec.md inside a change. Capability
// may be nested, for example "platform/auth".
type DeltaFile struct {
	Capability string
	// Rel is the slash-separated path relative to the change directory.
	Rel string
}

// DiscoverDeltaSpecs lists a change's delta spec files sorted by
// capability. A change without a specs directory has none.
func DiscoverDeltaSpecs(changeDir string) ([]DeltaFile, error) {
	return discoverSpecFiles(changeDir)
}

// DiscoverSpecs lists the canonical specs under an openspec directory.
func DiscoverSpecs(openspecDir string) ([]DeltaFile, error) {
	return discoverSpecFiles(openspecDir)
}

func discoverSpecFiles(root string) ([]DeltaFile, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "specs/**/spec.md", doublestar.WithFilesOnly())
	if err != nil {
		return nil, err
	}
	out := make([]DeltaFile, 0, len(matches))
	for _, m := range matches {
		capDir := path.Dir(m)
		if capDir == "specs" {
			continue
		}
		out = append(out, DeltaFile{Capability: capDir[len("specs/"):], Rel: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Capability < out[j].Capability })
	return out, nil
}
