package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/codec"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// DefaultImportTitle is given to imported records without a title.
const DefaultImportTitle = "Imported Note"

// MaxImportBytes bounds an import payload.
const MaxImportBytes = 32 << 20

// ImportOutput contains the result of an import.
type ImportOutput struct {
	Imported int `json:"imported"`

	// Refreshed is false when the import succeeded but the list could not
	// be reloaded afterwards.
	Refreshed bool `json:"refreshed"`
}

// importRecord accepts the export format with every field optional.
type importRecord struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Type    *string `json:"type"`
	Tags    *string `json:"tags"`
}

// Import reads a JSON array of note records, validates all of them, and
// sends them to the store in one call. Any defect rejects the whole payload
// with IMPORT_FAILURE before anything is sent. The cache is refreshed after
// a successful import.
func (w *Workspace) Import(ctx context.Context, in io.Reader) (*ImportOutput, error) {
	data, err := io.ReadAll(io.LimitReader(in, MaxImportBytes+1))
	if err != nil {
		return nil, errors.NewImportFailure(-1, err.Error())
	}
	if len(data) > MaxImportBytes {
		return nil, errors.NewImportFailure(-1, fmt.Sprintf("payload exceeds %d bytes", MaxImportBytes))
	}

	records, err := ParseImport(data)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &ImportOutput{}, nil
	}

	if err := w.admit(); err != nil {
		return nil, err
	}
	if err := w.api.Import(ctx, records); err != nil {
		if errors.Is(err, errors.ErrInvalidRequest) {
			err = errors.NewImportFailure(-1, err.Error())
		}
		return nil, w.fail("", err)
	}

	out := &ImportOutput{Imported: len(records)}
	if _, err := w.Refresh(ctx); err != nil {
		w.logger.Warn("refresh after import failed", "error", err)
		return out, nil
	}
	out.Refreshed = true
	return out, nil
}

// ImportFile imports a file that sits directly in the exports directory.
func (w *Workspace) ImportFile(ctx context.Context, path string) (*ImportOutput, error) {
	if err := ValidatePath(path, PathCheckRead, w.exportsDir); err != nil {
		return nil, err
	}
	f, err := openNoFollow(path)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) || errors.Is(err, errors.ErrInvalidRequest) {
			return nil, err
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to open import file: %w", err))
	}
	defer f.Close()
	return w.Import(ctx, f)
}

// ParseImport validates an import payload and returns the records to send.
// Types are normalized, missing titles defaulted, and scene content
// re-encoded without presence data.
func ParseImport(data []byte) ([]api.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.NewImportFailure(-1, "payload must be a JSON array")
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, errors.NewImportFailure(-1, err.Error())
	}

	records := make([]api.Record, 0, len(raw))
	for i, item := range raw {
		rec, err := parseImportRecord(item)
		if err != nil {
			return nil, errors.NewImportFailure(i, err.Error())
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseImportRecord(item json.RawMessage) (api.Record, error) {
	item = bytes.TrimSpace(item)
	if len(item) == 0 || item[0] != '{' {
		return api.Record{}, fmt.Errorf("record must be an object")
	}
	var in importRecord
	if err := json.Unmarshal(item, &in); err != nil {
		return api.Record{}, err
	}

	rec := api.Record{Title: DefaultImportTitle, Type: note.TypeText}
	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		rec.Title = *in.Title
	}
	if in.Type != nil && *in.Type != "" {
		t, err := note.ParseType(*in.Type)
		if err != nil {
			return api.Record{}, err
		}
		rec.Type = t
	}
	if in.Tags != nil {
		rec.Tags = note.JoinTags(note.SplitTags(*in.Tags))
	}
	if in.Content != nil && *in.Content != "" {
		clean, err := codec.Sanitize(rec.Type, *in.Content)
		if err != nil {
			return api.Record{}, err
		}
		rec.Content = clean
	}
	return rec, nil
}
