package changes

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/openspec/internal/fsutil"
	"github.com/HendryAvila/openspec/internal/validation"
)

// ArchiveName returns the archive directory name for a change archived at
// t. The date is taken in UTC.
func ArchiveName(id string, t time.Time) string {
	return t.UTC().Format(time.DateOnly) + "-" + id
}

// Archive moves a change to changes/archive/<YYYY-MM-DD>-<id>/ after
// merging its deltas into the canonical specs.
//
// Every precondition is checked before the first write: the change and
// destination, the change's validation report, and every rebuilt spec. The
// directory move is the last step. If it fails after specs were written
// there is no rollback; the returned error says so.
func (s *FileStore) Archive(projectRoot, id string, opts ArchiveOptions) (*ArchiveResult, error) {
	dir, err := s.requireChange(projectRoot, id, "archive")
	if err != nil {
		return nil, err
	}

	now := timeNow()
	name := ArchiveName(id, now)
	dest := filepath.Join(ArchivePath(projectRoot), name)
	exists, err := fsutil.Exists(dest)
	if err != nil {
		return nil, fmt.Errorf("checking archive destination: %w", err)
	}
	if exists {
		return nil, newError(ErrAlreadyExists, "archive", "Archive '%s' already exists.", name)
	}

	progress, err := readProgress(dir)
	if err != nil {
		return nil, err
	}
	result := &ArchiveResult{ChangeID: id, ArchiveName: name, ArchiveDir: dest, Progress: progress}
	if progress.Total > progress.Completed {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%d incomplete task(s)", progress.Total-progress.Completed))
	}

	if !opts.NoValidate {
		report := validation.New(false, validation.WithSpecsDir(SpecsPath(projectRoot))).ValidateChange(dir)
		result.Validation = &report
		if !report.Valid {
			e := newError(ErrValidationFailed, "archive", "Validation failed for '%s'. Fix the errors or use --no-validate.", id)
			for _, issue := range report.Errors() {
				e.Issues = append(e.Issues, issue.String())
			}
			return nil, e
		}
	}

	var updates []specUpdate
	if !opts.SkipSpecs {
		prepared, applied, err := s.prepareSpecUpdates(projectRoot, id, dir, !opts.NoValidate)
		if err != nil {
			return nil, err
		}
		updates = prepared
		result.Specs = applied
		result.Warnings = append(result.Warnings, applied.Warnings...)
	}

	proposal, _ := fsutil.ReadOptional(filepath.Join(dir, ProposalFile))

	if err := s.writeSpecUpdates(projectRoot, updates); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(ArchivePath(projectRoot), 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}
	if err := os.Rename(dir, dest); err != nil {
		if len(updates) > 0 {
			return nil, fmt.Errorf("specs were updated but moving change to archive failed; move %s to %s manually: %w", dir, dest, err)
		}
		return nil, fmt.Errorf("moving change to archive: %w", err)
	}
	s.logger.Info("change archived", "change", id, "archive", name)

	if s.observer != nil {
		ev := ArchiveEvent{
			ProjectRoot: projectRoot,
			ChangeID:    id,
			ArchiveName: name,
			ArchivedAt:  now.UTC(),
			Proposal:    proposal,
		}
		if result.Specs != nil {
			ev.Totals = result.Specs.Totals
			ev.Capabilities = result.Specs.Capabilities
		}
		s.observer.OnArchive(ev)
	}
	return result, nil
}
