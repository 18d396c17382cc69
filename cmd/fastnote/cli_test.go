package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/fakestore"
	"github.com/hpungsan/fastnote/internal/note"
)

type testCLI struct {
	env    *env
	server *fakestore.Server
	base   string
}

// setupCLI builds an env against a fresh note service. With loggedIn set
// the token comes from FASTNOTE_TOKEN.
func setupCLI(t *testing.T, loggedIn bool) *testCLI {
	t.Helper()
	srv := fakestore.New(fakestore.SignToken(t, time.Now().Add(time.Hour)),
		note.Note{ID: "1", Title: "Meeting notes", Type: note.TypeText, Content: "agenda", Tags: "work"},
	)
	baseURL := srv.Start(t)

	base := t.TempDir()
	vars := map[string]string{
		"FASTNOTE_SERVER_URL":       baseURL,
		"FASTNOTE_TITLE_DEBOUNCE":   "20ms",
		"FASTNOTE_CONTENT_DEBOUNCE": "20ms",
		"FASTNOTE_SCENE_DEBOUNCE":   "20ms",
	}
	if loggedIn {
		vars["FASTNOTE_TOKEN"] = srv.Token()
	}

	e, err := newEnv(envOptions{
		BaseDir: base,
		WorkDir: base,
		Getenv:  func(k string) string { return vars[k] },
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)

	return &testCLI{env: e, server: srv, base: base}
}

// run executes one command with stdin as piped input.
func (tc *testCLI) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newCLIApp(tc.env)
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"fastnote"}, args...))
	return out.String(), err
}

func decodeOutput(t *testing.T, out string) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &m), "output: %s", out)
	return m
}

func TestCLI_Help(t *testing.T) {
	var out bytes.Buffer
	app := newCLIApp(nil)
	app.Writer = &out

	require.NoError(t, app.Run([]string{"fastnote", "--help"}))
	for _, cmd := range []string{"login", "list", "edit", "export", "theme", "ui", "mcp"} {
		assert.Contains(t, out.String(), cmd)
	}
}

func TestCLI_LoginWhoamiLogout(t *testing.T) {
	tc := setupCLI(t, false)

	_, err := tc.run(t, "", "whoami")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[AUTH_INVALID]")

	_, err = tc.run(t, "wrong\n", "login", "-u", "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[AUTH_INVALID]")

	out, err := tc.run(t, fakestore.Password+"\n", "login", "-u", "ada")
	require.NoError(t, err)
	assert.Equal(t, "ada", decodeOutput(t, out)["username"])

	data, err := os.ReadFile(filepath.Join(tc.base, "token"))
	require.NoError(t, err)
	assert.Equal(t, tc.server.Token(), strings.TrimSpace(string(data)))

	out, err = tc.run(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "ada", decodeOutput(t, out)["username"])

	_, err = tc.run(t, "", "logout")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(tc.base, "token"))
	assert.True(t, os.IsNotExist(err), "token file should be removed")
}

func TestCLI_Signup(t *testing.T) {
	tc := setupCLI(t, false)

	out, err := tc.run(t, "hunter2\n", "signup", "--username", "grace")
	require.NoError(t, err)
	assert.Equal(t, "grace", decodeOutput(t, out)["username"])
}

func TestCLI_LoginRequiresPassword(t *testing.T) {
	tc := setupCLI(t, false)

	_, err := tc.run(t, "", "login", "-u", "ada")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestCLI_NoteLifecycle(t *testing.T) {
	tc := setupCLI(t, true)

	out, err := tc.run(t, "", "list")
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodeOutput(t, out)["count"])

	out, err = tc.run(t, "first draft\n", "create", "--title", "Draft", "--tags", "work, home")
	require.NoError(t, err)
	created := decodeOutput(t, out)
	id := created["id"].(string)
	assert.Equal(t, "first draft", created["content"])
	assert.Equal(t, "work,home", created["tags"])

	out, err = tc.run(t, "second draft", "edit", id, "--title", "Final")
	require.NoError(t, err)
	edited := decodeOutput(t, out)
	assert.Equal(t, true, edited["saved"])

	stored, ok := tc.server.Note(note.ID(id))
	require.True(t, ok)
	assert.Equal(t, "Final", stored.Title)
	assert.Equal(t, "second draft", stored.Content)
	assert.Equal(t, "work,home", stored.Tags)

	out, err = tc.run(t, "", "show", id)
	require.NoError(t, err)
	assert.Equal(t, "Final", decodeOutput(t, out)["note"].(map[string]any)["title"])

	out, err = tc.run(t, "", "list", "#home")
	require.NoError(t, err)
	assert.Equal(t, float64(1), decodeOutput(t, out)["count"])

	out, err = tc.run(t, "", "delete", id)
	require.NoError(t, err)
	assert.Equal(t, true, decodeOutput(t, out)["deleted"])
	_, ok = tc.server.Note(note.ID(id))
	assert.False(t, ok)

	_, err = tc.run(t, "", "show", id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[NOT_FOUND]")
}

func TestCLI_EditRequiresChange(t *testing.T) {
	tc := setupCLI(t, true)

	_, err := tc.run(t, "", "edit", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestCLI_EditClearsTags(t *testing.T) {
	tc := setupCLI(t, true)

	_, err := tc.run(t, "", "edit", "1", "--tags", "")
	require.NoError(t, err)

	stored, _ := tc.server.Note("1")
	assert.Equal(t, "", stored.Tags)
	assert.Equal(t, "agenda", stored.Content)
}

func TestCLI_CreateRejectsUnknownType(t *testing.T) {
	tc := setupCLI(t, true)

	_, err := tc.run(t, "", "create", "--type", "video")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")
}

func TestCLI_ImportStdin(t *testing.T) {
	tc := setupCLI(t, true)

	out, err := tc.run(t, `[{"title":"Board","type":"excalidraw","content":""},{"content":"plain"}]`, "import", "-")
	require.NoError(t, err)
	assert.Equal(t, float64(2), decodeOutput(t, out)["imported"])

	_, err = tc.run(t, `[{"title":"ok"},{"type":"video"}]`, "import", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[IMPORT_FAILURE]")
}

func TestCLI_ExportStdout(t *testing.T) {
	tc := setupCLI(t, true)

	out, err := tc.run(t, "", "export", "--stdout")
	require.NoError(t, err)

	var records []api.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Meeting notes", records[0].Title)
	assert.Equal(t, note.TypeText, records[0].Type)
}

func TestCLI_Theme(t *testing.T) {
	tc := setupCLI(t, false)

	out, err := tc.run(t, "", "theme", "get")
	require.NoError(t, err)
	assert.Equal(t, "light", decodeOutput(t, out)["mode"])

	out, err = tc.run(t, "", "theme", "toggle")
	require.NoError(t, err)
	assert.Equal(t, "dark", decodeOutput(t, out)["mode"])

	out, err = tc.run(t, "", "theme", "set", "light")
	require.NoError(t, err)
	assert.Equal(t, "light", decodeOutput(t, out)["mode"])

	_, err = tc.run(t, "", "theme", "set", "sepia")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[INVALID_REQUEST]")

	data, err := os.ReadFile(filepath.Join(tc.base, "theme"))
	require.NoError(t, err)
	assert.Equal(t, "light\n", string(data))
}

func TestOutputError(t *testing.T) {
	err := outputError(errors.NewNotFound("9"))
	assert.Contains(t, err.Error(), "[NOT_FOUND]")

	err = outputError(io.ErrUnexpectedEOF)
	assert.Equal(t, io.ErrUnexpectedEOF.Error(), err.Error())
}
