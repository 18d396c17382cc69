package ops

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/editor"
	"github.com/hpungsan/fastnote/internal/errors"
)

func TestDelete(t *testing.T) {
	h := newHarness(t, seedNotes(), withDelays(10_000, 10_000, 10_000))
	ctx := context.Background()
	_, err := h.ws.Refresh(ctx)
	require.NoError(t, err)

	require.NoError(t, h.ws.Open(ctx, "1"))
	require.NoError(t, h.ws.Editor().EditTitle("doomed"))

	out, err := h.ws.Delete(ctx, "1")
	require.NoError(t, err)
	assert.True(t, out.Deleted)
	assert.True(t, out.WasActive)
	assert.False(t, h.ws.Store().Contains("1"))
	assert.Equal(t, editor.Empty, h.ws.Editor().State())
	assert.Empty(t, h.fake.Puts(), "pending edit of a deleted note must not be sent")
}

func TestDelete_FailureKeepsNote(t *testing.T) {
	h := newHarness(t, seedNotes())
	ctx := context.Background()
	_, err := h.ws.Refresh(ctx)
	require.NoError(t, err)
	h.fake.SetFail("delete", http.StatusInternalServerError)

	_, err = h.ws.Delete(ctx, "2")
	assert.True(t, errors.Is(err, errors.ErrPersistenceFailure))
	assert.True(t, h.ws.Store().Contains("2"))
}
