package session

import (
	"log/slog"
	"sync"
	"time"
)

// Readiness is the guard's authentication state.
type Readiness int

const (
	// Checking means the initial token load has not completed.
	Checking Readiness = iota
	Authenticated
	Unauthenticated
)

func (r Readiness) String() string {
	switch r {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Decision is what a protected entry point should do.
type Decision int

const (
	Wait Decision = iota
	Allow
	Redirect
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	}
	return "unknown"
}

// TokenStore persists the bearer token between runs.
type TokenStore interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// GuardOptions configures a Guard. All fields are optional.
type GuardOptions struct {
	Store  TokenStore
	Now    func() time.Time
	Logger *slog.Logger
}

// Guard owns the current token and the session decoded from it.
type Guard struct {
	store  TokenStore
	now    func() time.Time
	logger *slog.Logger

	mu        sync.Mutex
	readiness Readiness
	token     string
	session   *Session
}

// NewGuard creates a guard in the Checking state.
func NewGuard(opts GuardOptions) *Guard {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Guard{store: opts.Store, now: opts.Now, logger: opts.Logger}
}

// Load reads the persisted token and completes the initial check.
// A read failure is treated as no token.
func (g *Guard) Load() {
	var token string
	if g.store != nil {
		t, err := g.store.Load()
		if err != nil {
			g.logger.Warn("token load failed", "error", err)
		}
		token = t
	}
	g.apply(token, false)
}

// SetToken replaces the token (e.g. after login) and persists it when it
// decodes to a live session. Returns the resulting session, or nil.
func (g *Guard) SetToken(token string) *Session {
	return g.apply(token, true)
}

func (g *Guard) apply(token string, persist bool) *Session {
	s, err := Parse(token, g.now())

	g.mu.Lock()
	if err != nil {
		g.token, g.session, g.readiness = "", nil, Unauthenticated
	} else {
		g.token, g.session, g.readiness = token, s, Authenticated
	}
	g.mu.Unlock()

	if err != nil && token != "" {
		g.logger.Info("token rejected", "reason", err)
	}
	if err == nil && persist && g.store != nil {
		if serr := g.store.Save(token); serr != nil {
			g.logger.Warn("token save failed", "error", serr)
		}
	}
	return s
}

// Invalidate forces a logout: the token is dropped and removed from the
// store. Called on any 401 from the note store.
func (g *Guard) Invalidate(reason string) {
	g.mu.Lock()
	had := g.token != ""
	g.token, g.session, g.readiness = "", nil, Unauthenticated
	g.mu.Unlock()

	if g.store != nil {
		if err := g.store.Clear(); err != nil {
			g.logger.Warn("token clear failed", "error", err)
		}
	}
	if had {
		g.logger.Info("session invalidated", "reason", reason)
	}
}

// Session returns the live session, or nil. A session that has expired
// since it was decoded is dropped here.
func (g *Guard) Session() *Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.session
}

// Token returns the bearer token while the session is live.
func (g *Guard) Token() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.token
}

// Readiness returns the current state.
func (g *Guard) Readiness() Readiness {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.expireLocked()
	return g.readiness
}

// Admit decides whether a protected entry point may proceed. It never
// redirects before the initial check has completed.
func (g *Guard) Admit() Decision {
	switch g.Readiness() {
	case Authenticated:
		return Allow
	case Unauthenticated:
		return Redirect
	}
	return Wait
}

func (g *Guard) expireLocked() {
	if g.session != nil && g.session.Expired(g.now()) {
		g.token, g.session, g.readiness = "", nil, Unauthenticated
	}
}
