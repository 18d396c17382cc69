// Package notestore holds the client's authoritative in-memory note list.
//
// Entries are kept newest-first. Prepend is the only operation that changes
// relative order; every mutation is serialized behind one mutex and
// observers are notified after the lock is released.
package notestore

import (
	"slices"
	"sync"

	"github.com/hpungsan/fastnote/internal/note"
)

// ChangeKind describes what a mutation did.
type ChangeKind string

const (
	ChangeReplaceAll ChangeKind = "replace_all"
	ChangePrepend    ChangeKind = "prepend"
	ChangeInsert     ChangeKind = "insert"
	ChangeRemove     ChangeKind = "remove"
	ChangeUpdate     ChangeKind = "update"
)

// Change is delivered to subscribers after each effective mutation.
type Change struct {
	Kind ChangeKind
	ID   note.ID // empty for ChangeReplaceAll
}

// Patch lists the fields to overwrite. Nil pointers leave a field untouched.
type Patch struct {
	Title   *string
	Content *string
	Tags    *string
	Type    *note.Type
}

// Apply returns n with the patch's fields overwritten.
func (p Patch) Apply(n note.Note) note.Note {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	if p.Tags != nil {
		n.Tags = *p.Tags
	}
	if p.Type != nil {
		n.Type = *p.Type
	}
	return n
}

// Store is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	notes    []note.Note
	unsynced map[note.ID]error

	subMu  sync.Mutex
	subs   map[int]func(Change)
	nextID int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		unsynced: make(map[note.ID]error),
		subs:     make(map[int]func(Change)),
	}
}

// ReplaceAll swaps in a freshly fetched list and forgets unsynced markers,
// since the list now mirrors the server.
func (s *Store) ReplaceAll(notes []note.Note) {
	s.mu.Lock()
	s.notes = slices.Clone(notes)
	clear(s.unsynced)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeReplaceAll})
}

// Prepend inserts a newly created note at the head. A note whose id is
// already present is moved to the head instead of duplicated.
func (s *Store) Prepend(n note.Note) {
	s.mu.Lock()
	if i := s.indexLocked(n.ID); i >= 0 {
		s.notes = slices.Delete(s.notes, i, i+1)
	}
	s.notes = slices.Insert(s.notes, 0, n)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangePrepend, ID: n.ID})
}

// Insert caches a note that was fetched on its own rather than created.
// An entry with the same id is replaced in place; otherwise n goes to the
// tail, so existing entries keep their order.
func (s *Store) Insert(n note.Note) {
	s.mu.Lock()
	if i := s.indexLocked(n.ID); i >= 0 {
		s.notes[i] = n
	} else {
		s.notes = append(s.notes, n)
	}
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeInsert, ID: n.ID})
}

// Remove deletes the note with id. Reports whether it was present.
func (s *Store) Remove(id note.ID) bool {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	delete(s.unsynced, id)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeRemove, ID: id})
	return true
}

// Patch overwrites fields of the note with id in place. It is a no-op
// returning false when id is absent.
func (s *Store) Patch(id note.ID, p Patch) (note.Note, bool) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return note.Note{}, false
	}
	s.notes[i] = p.Apply(s.notes[i])
	updated := s.notes[i]
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeUpdate, ID: id})
	return updated, true
}

// Replace overwrites the whole record carrying n.ID, keeping its position.
// It is a no-op returning false when the id is absent.
func (s *Store) Replace(n note.Note) bool {
	s.mu.Lock()
	i := s.indexLocked(n.ID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.notes[i] = n
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeUpdate, ID: n.ID})
	return true
}

// Reconcile folds the server's answer to an update into the cache.
// When the local entry still carries the title, content, and tags that
// were sent, the server record is adopted wholesale. Otherwise newer local
// edits exist and only the server-owned timestamps are taken.
func (s *Store) Reconcile(server, sent note.Note) bool {
	s.mu.Lock()
	i := s.indexLocked(sent.ID)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	local := s.notes[i]
	if local.Title == sent.Title && local.Content == sent.Content && local.Tags == sent.Tags {
		if server.ID == "" {
			server.ID = local.ID
		}
		if server.Type == "" {
			server.Type = local.Type
		}
		s.notes[i] = server
	} else {
		if !server.CreatedAt.IsZero() {
			local.CreatedAt = server.CreatedAt
		}
		if !server.UpdatedAt.IsZero() {
			local.UpdatedAt = server.UpdatedAt
		}
		s.notes[i] = local
	}
	delete(s.unsynced, sent.ID)
	s.mu.Unlock()

	s.publish(Change{Kind: ChangeUpdate, ID: sent.ID})
	return true
}

// Get returns the note with id.
func (s *Store) Get(id note.ID) (note.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.notes[i], true
	}
	return note.Note{}, false
}

// Contains reports whether id is present.
func (s *Store) Contains(id note.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexLocked(id) >= 0
}

// List returns a copy of all notes in store order.
func (s *Store) List() []note.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.notes)
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// MarkUnsynced records that the local copy of id diverged from the server
// because a persistence call failed.
func (s *Store) MarkUnsynced(id note.ID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexLocked(id) >= 0 {
		s.unsynced[id] = err
	}
}

// ClearUnsynced drops the unsynced marker for id.
func (s *Store) ClearUnsynced(id note.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unsynced, id)
}

// Unsynced returns the ids whose last persistence attempt failed, with the
// failure, in store order.
func (s *Store) Unsynced() []Divergence {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Divergence
	for _, n := range s.notes {
		if err, ok := s.unsynced[n.ID]; ok {
			out = append(out, Divergence{ID: n.ID, Err: err})
		}
	}
	return out
}

// Divergence is a note whose local state is ahead of the server.
type Divergence struct {
	ID  note.ID
	Err error
}

// Subscribe registers fn for change notifications. The returned function
// removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) publish(c Change) {
	s.subMu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

func (s *Store) indexLocked(id note.ID) int {
	return slices.IndexFunc(s.notes, func(n note.Note) bool { return n.ID == id })
}
