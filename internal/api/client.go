// Package api is the client for the remote note store.
package api

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// RequestIDHeader carries a per-call ULID for correlating client and
// server logs.
const RequestIDHeader = "X-Request-Id"

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:5000/api.
	BaseURL string

	// Token returns the bearer token for each call. Empty means no header.
	Token func() string

	// OnUnauthorized runs whenever the store answers 401 on a
	// token-authenticated call.
	OnUnauthorized func(err error)

	// Timeout bounds each call. 0 means no timeout.
	Timeout time.Duration

	// HTTPClient overrides the transport (tests).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to the note store.
type Client struct {
	base           string
	token          func() string
	onUnauthorized func(error)
	http           *http.Client
	logger         *slog.Logger
}

// New creates a Client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Token == nil {
		opts.Token = func() string { return "" }
	}
	return &Client{
		base:           strings.TrimRight(opts.BaseURL, "/"),
		token:          opts.Token,
		onUnauthorized: opts.OnUnauthorized,
		http:           hc,
		logger:         opts.Logger,
	}
}

// CreateRequest is the body of POST /notes.
type CreateRequest struct {
	Title   string    `json:"title"`
	Type    note.Type `json:"type"`
	Content string    `json:"content,omitempty"`
	Tags    string    `json:"tags,omitempty"`
}

// UpdateRequest is the full-record body of PUT /notes/{id}.
type UpdateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tags    string `json:"tags"`
}

// Record is one entry of an export or import payload.
type Record struct {
	Title   string    `json:"title"`
	Content string    `json:"content"`
	Type    note.Type `json:"type"`
	Tags    string    `json:"tags,omitempty"`
}

// LoginResponse is the body of a successful POST /auth/login.
type LoginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID       note.ID `json:"id"`
		Username string  `json:"username"`
	} `json:"user"`
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// List fetches notes, newest first. A non-empty query is passed as ?q=.
func (c *Client) List(ctx context.Context, query string) ([]note.Note, error) {
	path := "/notes"
	if query != "" {
		path += "?" + url.Values{"q": {query}}.Encode()
	}
	var notes []note.Note
	if err := c.do(ctx, "list notes", http.MethodGet, path, nil, &notes, true); err != nil {
		return nil, err
	}
	return notes, nil
}

// Get fetches one note.
func (c *Client) Get(ctx context.Context, id note.ID) (note.Note, error) {
	var n note.Note
	err := c.do(ctx, "get note", http.MethodGet, notePath(id), nil, &n, true)
	return n, err
}

// Create asks the store to create a note and returns it with its id.
func (c *Client) Create(ctx context.Context, req CreateRequest) (note.Note, error) {
	var n note.Note
	err := c.do(ctx, "create note", http.MethodPost, "/notes", req, &n, true)
	return n, err
}

// Update replaces a note's editable fields.
func (c *Client) Update(ctx context.Context, id note.ID, req UpdateRequest) (note.Note, error) {
	var n note.Note
	err := c.do(ctx, "update note", http.MethodPut, notePath(id), req, &n, true)
	return n, err
}

// Delete removes a note.
func (c *Client) Delete(ctx context.Context, id note.ID) error {
	return c.do(ctx, "delete note", http.MethodDelete, notePath(id), nil, nil, true)
}

// Tags fetches the distinct tag vocabulary.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	if err := c.do(ctx, "list tags", http.MethodGet, "/tags", nil, &tags, true); err != nil {
		return nil, err
	}
	return tags, nil
}

// Export fetches every note as import-ready records.
func (c *Client) Export(ctx context.Context) ([]Record, error) {
	var records []Record
	if err := c.do(ctx, "export notes", http.MethodGet, "/notes/export", nil, &records, true); err != nil {
		return nil, err
	}
	return records, nil
}

// Import sends records in one call; the store applies all or none.
func (c *Client) Import(ctx context.Context, records []Record) error {
	return c.do(ctx, "import notes", http.MethodPost, "/notes/import", records, nil, true)
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResponse, error) {
	var resp LoginResponse
	err := c.do(ctx, "login", http.MethodPost, "/auth/login", credentials{username, password}, &resp, false)
	if err == nil && resp.Token == "" {
		err = errors.NewAuthInvalid("login response carried no token")
	}
	return resp, err
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, username, password string) error {
	return c.do(ctx, "signup", http.MethodPost, "/auth/signup", credentials{username, password}, nil, false)
}

func notePath(id note.ID) string {
	return "/notes/" + url.PathEscape(id.String())
}

// do performs one call. authed calls carry the bearer token and trigger
// OnUnauthorized on 401.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any, authed bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.NewInternal(fmt.Errorf("%s: encode request: %w", op, err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("%s: %w", op, err))
	}
	reqID := newRequestID()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("note store unreachable", "op", op, "request_id", reqID, "error", err)
		return errors.NewPersistenceFailure(op, 0, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("note store call",
		"op", op, "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, resp, authed)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.NewPersistenceFailure(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) statusError(op string, resp *http.Response, authed bool) error {
	msg := readMessage(resp.Body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if msg == "" {
			msg = "unauthorized"
		}
		err := errors.NewAuthInvalid(msg)
		if authed && c.onUnauthorized != nil {
			c.onUnauthorized(err)
		}
		return err
	case http.StatusNotFound:
		if msg == "" {
			msg = "not found"
		}
		return &errors.NoteError{
			Code:    errors.ErrNotFound,
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("%s: %s", op, msg),
			Details: map[string]any{"op": op},
		}
	case http.StatusBadRequest:
		if msg == "" {
			msg = op + " rejected"
		}
		return errors.NewInvalidRequest(msg)
	}

	var cause error
	if msg != "" {
		cause = fmt.Errorf("%d %s", resp.StatusCode, msg)
	} else {
		cause = fmt.Errorf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return errors.NewPersistenceFailure(op, resp.StatusCode, cause)
}

// readMessage extracts {"message": ...} or {"error": ...} from an error
// body, falling back to the trimmed text.
func readMessage(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(data))
}

func newRequestID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
