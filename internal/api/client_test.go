package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/api/"
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(opts)
}

func TestList_SendsBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get(RequestIDHeader)
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(`[{"id":2,"title":"b","type":"markdown","content":"x"},{"id":1,"title":"a","type":"excalidraw","content":""}]`))
	}, Options{Token: func() string { return "tok" }})

	notes, err := c.List(context.Background(), "#work budget")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, note.ID("2"), notes[0].ID)
	assert.Equal(t, note.TypeScene, notes[1].Type)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "/api/notes", gotPath)
	assert.Equal(t, "#work budget", gotQuery)
	_, err = ulid.Parse(gotReqID)
	assert.NoError(t, err, "request id must be a ULID")
}

func TestList_NoTokenNoHeader(t *testing.T) {
	var hasAuth bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		_, _ = w.Write([]byte(`[]`))
	}, Options{})

	notes, err := c.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, notes)
	assert.False(t, hasAuth)
}

func TestCreate_SendsWireType(t *testing.T) {
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":9,"title":"New Note","type":"excalidraw","content":""}`))
	}, Options{})

	n, err := c.Create(context.Background(), CreateRequest{Title: "New Note", Type: note.TypeScene})
	require.NoError(t, err)
	assert.Equal(t, note.ID("9"), n.ID)
	assert.Equal(t, "excalidraw", body["type"])
	assert.NotContains(t, body, "content")
}

func TestUpdate_FullRecordBody(t *testing.T) {
	var path string
	var body map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"id":3,"title":"T","type":"markdown","content":"","tags":""}`))
	}, Options{})

	_, err := c.Update(context.Background(), "3", UpdateRequest{Title: "T"})
	require.NoError(t, err)
	assert.Equal(t, "/api/notes/3", path)
	assert.Equal(t, map[string]any{"title": "T", "content": "", "tags": ""}, body)
}

func TestUnauthorizedTriggersHook(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token has expired"}`))
	}, Options{
		Token:          func() string { return "stale" },
		OnUnauthorized: func(error) { calls.Add(1) },
	})

	_, err := c.Tags(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrAuthInvalid))
	assert.Contains(t, err.Error(), "Token has expired")
	assert.Equal(t, int32(1), calls.Load())

	err = c.Delete(context.Background(), "1")
	assert.True(t, errors.Is(err, errors.ErrAuthInvalid))
	assert.Equal(t, int32(2), calls.Load())
}

func TestLoginFailureDoesNotTriggerHook(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid username or password"}`))
	}, Options{OnUnauthorized: func(error) { calls.Add(1) }})

	_, err := c.Login(context.Background(), "ada", "wrong")
	assert.True(t, errors.Is(err, errors.ErrAuthInvalid))
	assert.Zero(t, calls.Load())
}

func TestLogin(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		var creds credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "ada", creds.Username)
		_, _ = w.Write([]byte(`{"token":"jwt","user":{"id":1,"username":"ada"}}`))
	}, Options{Token: func() string { return "old" }})

	resp, err := c.Login(context.Background(), "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt", resp.Token)
	assert.Equal(t, "ada", resp.User.Username)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   errors.ErrorCode
	}{
		{"not found", http.StatusNotFound, `{"message":"Note not found or access denied"}`, errors.ErrNotFound},
		{"bad request", http.StatusBadRequest, `{"message":"Invalid data format"}`, errors.ErrInvalidRequest},
		{"server error", http.StatusInternalServerError, `boom`, errors.ErrPersistenceFailure},
		{"gateway", http.StatusBadGateway, ``, errors.ErrPersistenceFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, Options{})

			_, err := c.Get(context.Background(), "5")
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}
}

func TestPersistenceFailureCarriesStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}, Options{})

	_, err := c.Update(context.Background(), "1", UpdateRequest{})
	var nErr *errors.NoteError
	require.ErrorAs(t, err, &nErr)
	assert.Equal(t, http.StatusServiceUnavailable, nErr.Status)
	assert.Equal(t, "update note", nErr.Details["op"])
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Options{BaseURL: url, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	_, err := c.List(context.Background(), "")
	var nErr *errors.NoteError
	require.ErrorAs(t, err, &nErr)
	assert.Equal(t, errors.ErrPersistenceFailure, nErr.Code)
	assert.Equal(t, http.StatusBadGateway, nErr.Status)
}

func TestMalformedResponseBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}, Options{})

	_, err := c.List(context.Background(), "")
	assert.True(t, errors.Is(err, errors.ErrPersistenceFailure))
}

func TestExportImport(t *testing.T) {
	var imported []Record
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/notes/export":
			_, _ = w.Write([]byte(`[{"title":"a","content":"x","type":"markdown"}]`))
		case "/api/notes/import":
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&imported))
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, Options{})

	records, err := c.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, note.TypeText, records[0].Type)

	require.NoError(t, c.Import(context.Background(), records))
	assert.Equal(t, records, imported)
}

func TestCancelledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.List(ctx, "")
	assert.True(t, errors.Is(err, errors.ErrPersistenceFailure))
}
