package ops

import (
	"context"
	"time"

	"github.com/hpungsan/fastnote/internal/note"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	// Query filters locally with the search grammar. Empty lists everything.
	Query string

	// Refresh reloads from the store first. An empty cache is always loaded.
	Refresh bool
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Notes      []NoteSummary `json:"notes"`
	Count      int           `json:"count"`
	Stale      bool          `json:"stale,omitempty"`
	SnapshotAt *time.Time    `json:"snapshot_at,omitempty"`
	Unsynced   []note.ID     `json:"unsynced,omitempty"`
}

// List returns the visible note list in store order.
func (w *Workspace) List(ctx context.Context, input ListInput) (*ListOutput, error) {
	out := &ListOutput{}
	if input.Refresh || w.store.Len() == 0 {
		r, err := w.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		out.Stale, out.SnapshotAt = r.Stale, r.SnapshotAt
	}

	visible := w.Visible(input.Query)
	out.Notes = Summaries(visible)
	out.Count = len(visible)
	for _, d := range w.store.Unsynced() {
		out.Unsynced = append(out.Unsynced, d.ID)
	}
	return out, nil
}
