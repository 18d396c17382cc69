package ops

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/fastnote/internal/errors"
	"github.com/hpungsan/fastnote/internal/note"
)

// DefaultNotificationLimit applies when the configured limit is not positive.
const DefaultNotificationLimit = 50

// Notification is a user-visible message about something that happened
// outside the caller's direct control, usually a failed background save.
type Notification struct {
	ID      string           `json:"id"`
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
	NoteID  note.ID          `json:"note_id,omitempty"`
	At      time.Time        `json:"at"`
}

// Notifications is a bounded, oldest-first ring of notifications.
type Notifications struct {
	mu    sync.Mutex
	limit int
	items []Notification
	subs  map[int]func(Notification)
	next  int
}

// NewNotifications keeps at most limit entries.
func NewNotifications(limit int) *Notifications {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return &Notifications{limit: limit, subs: make(map[int]func(Notification))}
}

// Publish records a notification and returns it.
func (n *Notifications) Publish(code errors.ErrorCode, id note.ID, message string) Notification {
	item := Notification{
		ID:      newNotificationID(),
		Code:    code,
		Message: message,
		NoteID:  id,
		At:      time.Now().UTC(),
	}

	n.mu.Lock()
	n.items = append(n.items, item)
	if over := len(n.items) - n.limit; over > 0 {
		n.items = append([]Notification(nil), n.items[over:]...)
	}
	subs := make([]func(Notification), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(item)
	}
	return item
}

// PublishError records err under its code.
func (n *Notifications) PublishError(id note.ID, err error) Notification {
	return n.Publish(errors.CodeOf(err), id, err.Error())
}

// List returns a copy of the retained notifications, oldest first.
func (n *Notifications) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.items))
	copy(out, n.items)
	return out
}

// Dismiss removes one notification. Reports whether it was present.
func (n *Notifications) Dismiss(id string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, item := range n.items {
		if item.ID == id {
			n.items = append(n.items[:i:i], n.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every notification.
func (n *Notifications) Clear() {
	n.mu.Lock()
	n.items = nil
	n.mu.Unlock()
}

// Subscribe calls fn for every later notification until the returned func
// is called.
func (n *Notifications) Subscribe(fn func(Notification)) (unsubscribe func()) {
	n.mu.Lock()
	key := n.next
	n.next++
	n.subs[key] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, key)
			n.mu.Unlock()
		})
	}
}

func newNotificationID() string {
	entropy := ulid.Monotonic(rand.Reader, 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
