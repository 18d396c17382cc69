package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// Snapshot is a stored copy of one account's note list.
type Snapshot struct {
	Notes   []note.Note
	TakenAt time.Time
}

// SaveSnapshot replaces account's snapshot with notes, preserving order.
func SaveSnapshot(ctx context.Context, db *sql.DB, account string, notes []note.Note, takenAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_notes WHERE account = ?`, account); err != nil {
		return errors.NewInternal(err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_notes (
			account, position, id, title, type, content, tags, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account, id) DO NOTHING
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer stmt.Close()

	for i, n := range notes {
		if _, err := stmt.ExecContext(ctx,
			account, i, n.ID.String(), n.Title, string(n.Type), n.Content, n.Tags,
			formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
		); err != nil {
			return errors.NewInternal(fmt.Errorf("snapshot note %s: %w", n.ID, err))
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (account, taken_at, note_count) VALUES (?, ?, ?)
		ON CONFLICT(account) DO UPDATE SET taken_at = excluded.taken_at, note_count = excluded.note_count
	`, account, takenAt.UnixMilli(), len(notes)); err != nil {
		return errors.NewInternal(err)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadSnapshot returns account's snapshot. NOT_FOUND if none was saved.
func LoadSnapshot(ctx context.Context, db *sql.DB, account string) (*Snapshot, error) {
	var takenAt int64
	err := db.QueryRowContext(ctx, `SELECT taken_at FROM snapshots WHERE account = ?`, account).Scan(&takenAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("snapshot:" + account)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, title, type, content, tags, created_at, updated_at
		FROM snapshot_notes
		WHERE account = ?
		ORDER BY position ASC
	`, account)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	snap := &Snapshot{Notes: []note.Note{}, TakenAt: time.UnixMilli(takenAt).UTC()}
	for rows.Next() {
		var (
			n                note.Note
			id, typ          string
			created, updated sql.NullString
		)
		if err := rows.Scan(&id, &n.Title, &typ, &n.Content, &n.Tags, &created, &updated); err != nil {
			return nil, errors.NewInternal(err)
		}
		n.ID = note.ID(id)
		n.Type = note.Type(typ)
		n.CreatedAt = parseTime(created)
		n.UpdatedAt = parseTime(updated)
		snap.Notes = append(snap.Notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return snap, nil
}

// ClearSnapshot deletes account's snapshot (on logout).
func ClearSnapshot(ctx context.Context, db *sql.DB, account string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM snapshot_notes WHERE account = ?`, account); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM snapshots WHERE account = ?`, account); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

func formatTime(ts note.Timestamp) sql.NullString {
	if ts.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ts.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(s sql.NullString) note.Timestamp {
	if !s.Valid {
		return note.Timestamp{}
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return note.Timestamp{}
	}
	return note.Timestamp{Time: t}
}
