// Package fakestore is an in-memory note service speaking the store's
// HTTP surface, for tests.
package fakestore

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hpungsan/fastnote/internal/api"
	"github.com/hpungsan/fastnote/internal/note"
)

// Password is the only password the login endpoint accepts.
const Password = "secret"

// PutCall is one PUT /notes/{id} received by the server.
type PutCall struct {
	ID   note.ID
	Body api.UpdateRequest
}

// Server holds notes newest first.
type Server struct {
	mu      sync.Mutex
	token   string
	notes   []note.Note
	nextID  int
	puts    []PutCall
	imports [][]api.Record
	calls   int

	// failures by route ("list", "get", "create", "update", "delete",
	// "tags", "export", "import") mapped to an HTTP status.
	fail map[string]int
}

// New creates a server that accepts token as the bearer credential.
func New(token string, notes ...note.Note) *Server {
	return &Server{
		token:  token,
		notes:  append([]note.Note(nil), notes...),
		nextID: 100,
		fail:   map[string]int{},
	}
}

// Start serves s until the test ends and returns the base URL.
func (s *Server) Start(t testing.TB) string {
	t.Helper()
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

// Token returns the accepted bearer token.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken rotates the accepted token; requests with the old one get 401.
func (s *Server) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// SetFail makes route answer with status. 0 clears the failure.
func (s *Server) SetFail(route string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.fail, route)
		return
	}
	s.fail[route] = status
}

// Puts returns every update received so far.
func (s *Server) Puts() []PutCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PutCall(nil), s.puts...)
}

// Imports returns the record batches received by POST /notes/import.
func (s *Server) Imports() [][]api.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]api.Record(nil), s.imports...)
}

// Calls counts token-authenticated requests, including rejected ones.
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Note returns the stored note with id.
func (s *Server) Note(id note.ID) (note.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.index(id); i >= 0 {
		return s.notes[i], true
	}
	return note.Note{}, false
}

// Handler returns the HTTP surface.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern, name string, h func(w http.ResponseWriter, r *http.Request)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.calls++
			if r.Header.Get("Authorization") != "Bearer "+s.token {
				WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
				return
			}
			if status := s.fail[name]; status != 0 {
				WriteJSON(w, status, map[string]string{"message": name + " unavailable"})
				return
			}
			h(w, r)
		})
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password != Password {
			WriteJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
			return
		}
		WriteJSON(w, http.StatusOK, map[string]any{
			"token": s.Token(),
			"user":  map[string]any{"id": "7", "username": body.Username},
		})
	})
	mux.HandleFunc("POST /auth/signup", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusCreated, map[string]string{"message": "created"})
	})

	route("GET /notes", "list", func(w http.ResponseWriter, r *http.Request) {
		q := strings.ToLower(r.URL.Query().Get("q"))
		out := []note.Note{}
		for _, n := range s.notes {
			if q == "" || strings.Contains(strings.ToLower(n.Title), q) {
				out = append(out, n)
			}
		}
		WriteJSON(w, http.StatusOK, out)
	})
	route("GET /notes/export", "export", func(w http.ResponseWriter, r *http.Request) {
		out := []api.Record{}
		for _, n := range s.notes {
			out = append(out, api.Record{Title: n.Title, Content: n.Content, Type: n.Type, Tags: n.Tags})
		}
		WriteJSON(w, http.StatusOK, out)
	})
	route("POST /notes/import", "import", func(w http.ResponseWriter, r *http.Request) {
		var records []api.Record
		if err := json.NewDecoder(r.Body).Decode(&records); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		s.imports = append(s.imports, records)
		for _, rec := range records {
			s.nextID++
			s.notes = append([]note.Note{{
				ID: note.ID(strconv.Itoa(s.nextID)), Title: rec.Title, Type: rec.Type,
				Content: rec.Content, Tags: rec.Tags,
			}}, s.notes...)
		}
		WriteJSON(w, http.StatusOK, map[string]int{"imported": len(records)})
	})
	route("GET /notes/{id}", "get", func(w http.ResponseWriter, r *http.Request) {
		if i := s.index(note.ID(r.PathValue("id"))); i >= 0 {
			WriteJSON(w, http.StatusOK, s.notes[i])
			return
		}
		WriteJSON(w, http.StatusNotFound, map[string]string{"message": "note not found"})
	})
	route("POST /notes", "create", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		s.nextID++
		n := note.Note{
			ID: note.ID(strconv.Itoa(s.nextID)), Title: req.Title, Type: req.Type,
			Content: req.Content, Tags: req.Tags,
			CreatedAt: note.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		}
		s.notes = append([]note.Note{n}, s.notes...)
		WriteJSON(w, http.StatusCreated, n)
	})
	route("PUT /notes/{id}", "update", func(w http.ResponseWriter, r *http.Request) {
		id := note.ID(r.PathValue("id"))
		var req api.UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		s.puts = append(s.puts, PutCall{ID: id, Body: req})
		i := s.index(id)
		if i < 0 {
			WriteJSON(w, http.StatusNotFound, map[string]string{"message": "note not found"})
			return
		}
		s.notes[i].Title, s.notes[i].Content, s.notes[i].Tags = req.Title, req.Content, req.Tags
		s.notes[i].UpdatedAt = note.Timestamp{Time: time.Date(2024, 5, 1, 0, 0, len(s.puts), 0, time.UTC)}
		WriteJSON(w, http.StatusOK, s.notes[i])
	})
	route("DELETE /notes/{id}", "delete", func(w http.ResponseWriter, r *http.Request) {
		i := s.index(note.ID(r.PathValue("id")))
		if i < 0 {
			WriteJSON(w, http.StatusNotFound, map[string]string{"message": "note not found"})
			return
		}
		s.notes = append(s.notes[:i:i], s.notes[i+1:]...)
		WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
	})
	route("GET /tags", "tags", func(w http.ResponseWriter, r *http.Request) {
		seen := map[string]bool{}
		out := []string{}
		for _, n := range s.notes {
			for _, t := range n.TagList() {
				if !seen[t] {
					seen[t] = true
					out = append(out, t)
				}
			}
		}
		WriteJSON(w, http.StatusOK, out)
	})
	return mux
}

func (s *Server) index(id note.ID) int {
	for i, n := range s.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// SignToken returns an HS256 token for user 7 ("ada") expiring at exp.
// The client never verifies signatures, so the key is arbitrary.
func SignToken(t testing.TB, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  7,
		"username": "ada",
		"exp":      exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}
