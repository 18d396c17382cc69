package ops

import (
	"context"
	"time"

	"github.com/hpungsan/fastnote/internal/db"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// RefreshOutput contains the result of the Refresh operation.
type RefreshOutput struct {
	Count int `json:"count"`

	// Stale is set when the store was unreachable. The cached list is kept
	// as it was, or, when the cache was empty, loaded from the offline
	// snapshot taken at SnapshotAt.
	Stale      bool       `json:"stale"`
	SnapshotAt *time.Time `json:"snapshot_at,omitempty"`
}

// Refresh replaces the cache with the store's full list and snapshots it.
// When the store fails for any reason other than auth the output is marked
// stale. A warm cache is left untouched so unsaved local edits and their
// unsynced markers survive; an empty cache is filled from the last snapshot.
func (w *Workspace) Refresh(ctx context.Context) (*RefreshOutput, error) {
	if err := w.admit(); err != nil {
		return nil, err
	}

	notes, err := w.api.List(ctx, "")
	if err != nil {
		err = w.fail("", err)
		if errors.Is(err, errors.ErrAuthInvalid) {
			return nil, err
		}
		if cached := w.store.Len(); cached > 0 {
			w.logger.Info("keeping cached list", "count", cached)
			return &RefreshOutput{Count: cached, Stale: true}, nil
		}
		snap, serr := w.loadSnapshot(ctx)
		if serr != nil {
			return nil, err
		}
		w.store.ReplaceAll(snap.Notes)
		takenAt := snap.TakenAt
		w.logger.Info("using offline snapshot", "count", len(snap.Notes), "taken_at", takenAt)
		return &RefreshOutput{Count: len(snap.Notes), Stale: true, SnapshotAt: &takenAt}, nil
	}

	w.store.ReplaceAll(notes)
	w.saveSnapshot(ctx, notes)
	return &RefreshOutput{Count: len(notes)}, nil
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Notes []NoteSummary `json:"notes"`
	Count int           `json:"count"`
}

// Search asks the store for notes matching term and makes the result the
// cached list. An empty term is a full refresh without the snapshot.
func (w *Workspace) Search(ctx context.Context, term string) (*SearchOutput, error) {
	if err := w.admit(); err != nil {
		return nil, err
	}
	notes, err := w.api.List(ctx, term)
	if err != nil {
		return nil, w.fail("", err)
	}
	w.store.ReplaceAll(notes)
	return &SearchOutput{Notes: Summaries(notes), Count: len(notes)}, nil
}

// ClearSnapshot drops the current account's offline snapshot (logout).
func (w *Workspace) ClearSnapshot(ctx context.Context) error {
	account := w.account()
	if w.db == nil || account == "" {
		return nil
	}
	return db.ClearSnapshot(ctx, w.db, account)
}

func (w *Workspace) saveSnapshot(ctx context.Context, notes []note.Note) {
	account := w.account()
	if w.db == nil || account == "" {
		return
	}
	if err := db.SaveSnapshot(ctx, w.db, account, notes, w.now()); err != nil {
		w.logger.Warn("snapshot save failed", "error", err)
	}
}

func (w *Workspace) loadSnapshot(ctx context.Context) (*db.Snapshot, error) {
	account := w.account()
	if w.db == nil || account == "" {
		return nil, errors.NewNotFound("snapshot")
	}
	return db.LoadSnapshot(ctx, w.db, account)
}
