package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/hpungsan/fastnote/internal/appearance"
	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
	"github.com/hpungsan/fastnote/internal/ops"
	"github.com/hpungsan/fastnote/internal/render"
	"github.com/hpungsan/fastnote/internal/search"
)

// Handlers contains HTTP route handlers for the notes view.
type Handlers struct {
	ws       *ops.Workspace
	theme    appearance.Preference
	renderer *Renderer
	logger   *slog.Logger
}

// page returns the common page fields.
func (h *Handlers) page(title string) PageData {
	return PageData{
		Title:   title,
		Version: h.renderer.version,
		Theme:   string(h.theme.Read()),
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.renderer.renderError(w, r, string(h.theme.Read()), err)
}

// HandleList handles GET /notes, the filtered note list.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	result, err := h.ws.List(r.Context(), ops.ListInput{
		Query:   query,
		Refresh: parseBoolParam(r, "refresh"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	data := ListPageData{
		PageData: h.page("Notes"),
		Query:    query,
		Notes:    result.Notes,
		Count:    result.Count,
		Stale:    result.Stale,
		Unsynced: make(map[note.ID]bool, len(result.Unsynced)),
	}
	if result.SnapshotAt != nil {
		data.SnapshotAt = *result.SnapshotAt
	}
	for _, id := range result.Unsynced {
		data.Unsynced[id] = true
	}

	// If htmx targets #results, render only the results fragment
	if r.Header.Get("HX-Target") == "results" {
		h.renderer.renderBlock(w, http.StatusOK, "list", "note-list", data)
		return
	}
	h.renderer.renderPage(w, r, "list", data)
}

// HandleDetail handles GET /notes/{id}, one note with its preview.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.fail(w, r, errors.NewInvalidRequest("note ID is required"))
		return
	}

	result, err := h.ws.Show(r.Context(), note.ID(id), false)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData:     h.page(displayTitle(result.Note)),
		Note:         result.Note,
		Tags:         result.Tags,
		RenderedHTML: renderPreview(result.Note, h.logger),
		Unsynced:     result.Unsynced,
	})
}

// HandleDelete handles DELETE /notes/{id} and POST /notes/{id}/delete.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.fail(w, r, errors.NewInvalidRequest("note ID is required"))
		return
	}

	result, err := h.ws.Delete(r.Context(), note.ID(id))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/notes")
		w.WriteHeader(http.StatusOK)
		return
	}

	// JSON request
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	// Default: redirect
	http.Redirect(w, r, "/notes", http.StatusSeeOther)
}

// HandleSuggest handles GET /tags/suggest?q=..., completing the #tag
// prefix at the end of q from the cached notes.
func (h *Handlers) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]any{
		"suggestions": ops.TagViews(h.ws.Suggest(r.URL.Query().Get("q"))),
	})
}

// HandleTheme handles POST /theme, flipping light and dark.
func (h *Handlers) HandleTheme(w http.ResponseWriter, r *http.Request) {
	mode, err := h.theme.Toggle()
	if err != nil {
		h.fail(w, r, errors.NewInternal(err))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
		return
	}
	http.Redirect(w, r, backTo(r), http.StatusSeeOther)
}

var tagStyles = sync.OnceValue(func() []byte {
	var buf bytes.Buffer
	for hue := 0; hue < 360; hue++ {
		fmt.Fprintf(&buf, ".tag-h%d{background-color:%s}\n", hue, search.HueColor(hue).CSS())
	}
	return buf.Bytes()
})

// HandleTagStyles handles GET /static/tags.css, one badge rule per hue.
func (h *Handlers) HandleTagStyles(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(tagStyles())
}

// renderPreview renders n's content. Failures fall back to escaped text.
func renderPreview(n note.Note, logger *slog.Logger) template.HTML {
	out, err := render.Preview(n)
	if err != nil {
		logger.Warn("preview failed", "id", n.ID, "error", err)
		return template.HTML("<pre>" + template.HTMLEscapeString(n.Content) + "</pre>")
	}
	// goldmark omits raw HTML from the source, so the output is safe to embed.
	return template.HTML(out)
}

// backTo returns the same-site page that sent r, or /notes.
func backTo(r *http.Request) string {
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host || !strings.HasPrefix(ref.Path, "/") || strings.HasPrefix(ref.Path, "//") {
		return "/notes"
	}
	if ref.RawQuery != "" {
		return ref.Path + "?" + ref.RawQuery
	}
	return ref.Path
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}

// displayTitle returns the note title, or its type for untitled notes.
func displayTitle(n note.Note) string {
	if n.Title != "" {
		return n.Title
	}
	return "Untitled " + string(n.Type)
}
