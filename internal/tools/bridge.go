package tools

import (
	"log"

	"github.com/HendryAvila/openspec/internal/changes"
	"github.com/HendryAvila/openspec/internal/history"
)

// HistoryRecorder persists archive events. *history.Store implements it.
type HistoryRecorder interface {
	Record(ev history.Event) (string, error)
}

// HistoryBridge records every archive in the history ledger. It implements
// changes.ArchiveObserver so the change store never imports the ledger.
type HistoryBridge struct {
	store HistoryRecorder
}

// NewHistoryBridge creates a bridge that records archives in the ledger.
// Returns nil if store is nil. Callers must not install a nil bridge as
// an observer (use ObserverFor).
func NewHistoryBridge(store HistoryRecorder) *HistoryBridge {
	if store == nil {
		return nil
	}
	return &HistoryBridge{store: store}
}

// ObserverFor returns the bridge as an ArchiveObserver, or a true nil
// interface when the bridge is nil.
func ObserverFor(b *HistoryBridge) changes.ArchiveObserver {
	if b == nil {
		return nil
	}
	return b
}

// OnArchive records the archive. Best-effort: ledger failures are logged
// and never undo or fail the archive, which already happened on disk.
func (b *HistoryBridge) OnArchive(ev changes.ArchiveEvent) {
	if b == nil {
		return
	}
	_, err := b.store.Record(eventFromArchive(ev))
	if err != nil {
		log.Printf("WARNING: history bridge: record archive of %q: %v", ev.ChangeID, err)
	}
}

func eventFromArchive(ev changes.ArchiveEvent) history.Event {
	caps := make([]string, 0, len(ev.Capabilities))
	for _, c := range ev.Capabilities {
		name := c.Capability
		if c.RenamedTo != "" {
			name = c.RenamedTo
		}
		caps = append(caps, name)
	}
	return history.Event{
		Project:      ev.ProjectRoot,
		ChangeID:     ev.ChangeID,
		ArchiveName:  ev.ArchiveName,
		ArchivedAt:   ev.ArchivedAt,
		Added:        ev.Totals.Added,
		Modified:     ev.Totals.Modified,
		Removed:      ev.Totals.Removed,
		Renamed:      ev.Totals.Renamed,
		Capabilities: caps,
		Proposal:     ev.Proposal,
	}
}
