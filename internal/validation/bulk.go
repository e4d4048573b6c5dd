package validation

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds bulk validation when nothing else is configured.
const DefaultConcurrency = 6

// ItemType distinguishes bulk validation targets.
type ItemType string

const (
	ItemChange ItemType = "change"
	ItemSpec   ItemType = "spec"
)

// Target is one item to validate in bulk.
type Target struct {
	ID   string
	Type ItemType
	// Path is the change directory or the spec.md file.
	Path string
}

// Result is the outcome for one target.
type Result struct {
	ID     string   `json:"id"`
	Type   ItemType `json:"type"`
	Valid  bool     `json:"valid"`
	Report Report   `json:"report"`
}

// BulkSummary totals a bulk run.
type BulkSummary struct {
	Total   int              `json:"total"`
	Passed  int              `json:"passed"`
	Failed  int              `json:"failed"`
	ByType  map[ItemType]int `json:"byType"`
	Invalid []string         `json:"invalid,omitempty"`
}

// ValidateAll validates targets with at most concurrency in flight and
// returns results sorted by type then id. Validation is read-only, so the
// fan-out never touches shared state. It stops early only when ctx is
// cancelled.
func (v *Validator) ValidateAll(ctx context.Context, targets []Target, concurrency int) ([]Result, error) {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	results := make([]Result, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, t := range targets {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r Report
			switch t.Type {
			case ItemSpec:
				r = v.ValidateSpecFile(t.ID, t.Path)
			default:
				r = v.withSpecsDir(t.Path).ValidateChange(t.Path)
			}
			results[i] = Result{ID: t.ID, Type: t.Type, Valid: r.Valid, Report: r}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Type != results[j].Type {
			return results[i].Type < results[j].Type
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// withSpecsDir returns v, or a copy pointed at the inferred specs directory
// when v has none.
func (v *Validator) withSpecsDir(changeDir string) *Validator {
	if v.specsDir != "" {
		return v
	}
	cp := *v
	cp.specsDir = inferSpecsDir(filepath.Clean(changeDir))
	return &cp
}

// CollectTargets lists the active changes and canonical specs of an
// openspec directory. The archive directory is never included.
func CollectTargets(openspecDir string, includeChanges, includeSpecs bool) ([]Target, error) {
	var targets []Target
	if includeChanges {
		changesDir := filepath.Join(openspecDir, "changes")
		entries, err := os.ReadDir(changesDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() || e.Name() == "archive" || e.Name()[0] == '.' {
				continue
			}
			targets = append(targets, Target{ID: e.Name(), Type: ItemChange, Path: filepath.Join(changesDir, e.Name())})
		}
	}
	if includeSpecs {
		specs, err := DiscoverSpecs(openspecDir)
		if err != nil {
			return nil, err
		}
		for _, f := range specs {
			targets = append(targets, Target{ID: f.Capability, Type: ItemSpec, Path: filepath.Join(openspecDir, filepath.FromSlash(f.Rel))})
		}
	}
	return targets, nil
}

// Summarize totals bulk results.
func Summarize(results []Result) BulkSummary {
	s := BulkSummary{Total: len(results), ByType: map[ItemType]int{}}
	for _, r := range results {
		s.ByType[r.Type]++
		if r.Valid {
			s.Passed++
			continue
		}
		s.Failed++
		s.Invalid = append(s.Invalid, string(r.Type)+"/"+r.ID)
	}
	return s
}
