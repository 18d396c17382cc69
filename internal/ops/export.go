package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// ExportOutput contains the result of an export.
type ExportOutput struct {
	Path       string    `json:"path,omitempty"`
	Count      int       `json:"count"`
	ExportedAt time.Time `json:"exported_at"`
}

// Export writes every note as an indented JSON array of records that
// Import accepts.
func (w *Workspace) Export(ctx context.Context, out io.Writer) (*ExportOutput, error) {
	records, err := w.exportRecords(ctx)
	if err != nil {
		return nil, err
	}
	if err := writeRecords(out, records); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &ExportOutput{Count: len(records), ExportedAt: w.now().UTC()}, nil
}

// ExportFile writes the export to path, which must sit directly in the
// exports directory. An empty path picks notes-<user>-<timestamp>.json.
// The file is written to a temp name and renamed into place, so an
// existing export survives a failure.
func (w *Workspace) ExportFile(ctx context.Context, path string) (*ExportOutput, error) {
	exportedAt := w.now().UTC()
	if path == "" {
		path = w.defaultExportPath(exportedAt)
	}
	if err := os.MkdirAll(w.exportsDir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create exports directory: %w", err))
	}
	if err := ValidatePath(path, PathCheckWrite, w.exportsDir); err != nil {
		return nil, err
	}

	records, err := w.exportRecords(ctx)
	if err != nil {
		return nil, err
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := createNoFollow(tempPath, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if err := writeRecords(file, records); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink placed at the destination.
	if info, err := os.Lstat(path); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, path); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(path); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{Path: path, Count: len(records), ExportedAt: exportedAt}, nil
}

func (w *Workspace) exportRecords(ctx context.Context) ([]api.Record, error) {
	if err := w.admit(); err != nil {
		return nil, err
	}
	records, err := w.api.Export(ctx)
	if err != nil {
		return nil, w.fail("", err)
	}
	if records == nil {
		records = []api.Record{}
	}
	for i, r := range records {
		if r.Type != note.TypeScene || r.Content == "" {
			continue
		}
		if clean, err := codec.Sanitize(r.Type, r.Content); err == nil {
			records[i].Content = clean
		}
	}
	return records, nil
}

func (w *Workspace) defaultExportPath(now time.Time) string {
	name := "notes"
	if w.guard != nil {
		if s := w.guard.Session(); s != nil && s.Username != "" {
			name += "-" + SanitizeForFilename(s.Username)
		}
	}
	return filepath.Join(w.exportsDir, fmt.Sprintf("%s-%s%s", name, now.Format("2006-01-02T150405"), ExportExt))
}

func writeRecords(out io.Writer, records []api.Record) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}
