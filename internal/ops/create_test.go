package ops

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/editor"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

func TestCreate_PrependsAndOpens(t *testing.T) {
	h := newHarness(t, seedNotes())
	ctx := context.Background()
	_, err := h.ws.Refresh(ctx)
	require.NoError(t, err)

	created, err := h.ws.Create(ctx, CreateInput{Type: note.TypeText, Title: "  "})
	require.NoError(t, err)
	assert.Equal(t, note.DefaultTitle, created.Title)
	assert.Equal(t, []string{note.DefaultTitle, "Sketch", "Meeting notes"}, titles(h.ws.Store().List()))
	assert.Equal(t, editor.Active, h.ws.Editor().State())
	assert.Equal(t, created.ID, h.ws.Editor().ActiveID())
}

func TestCreate_Rejections(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.ws.Create(ctx, CreateInput{Type: "video"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = h.ws.Create(ctx, CreateInput{Type: note.TypeScene, Content: "not json"})
	assert.True(t, errors.Is(err, errors.ErrContentCorrupt))

	assert.Equal(t, 0, h.fake.Calls())
}

func TestCreate_StoreFailureLeavesCache(t *testing.T) {
	h := newHarness(t, nil)
	h.fake.SetFail("create", http.StatusInternalServerError)

	_, err := h.ws.Create(context.Background(), CreateInput{Type: note.TypeText})
	assert.True(t, errors.Is(err, errors.ErrPersistenceFailure))
	assert.Equal(t, 0, h.ws.Store().Len())
	assert.Equal(t, editor.Empty, h.ws.Editor().State())
}
