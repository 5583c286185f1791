package services

import "sync/atomic"

// SessionGuard invalidates in-flight asynchronous work that belongs to a
// stale authentication session. Every login/logout transition advances a
// monotonic generation counter; continuations capture the counter when they
// start and compare it when they finish. A mismatch means the session changed
// mid-flight and the result must be discarded without touching shared state.
type SessionGuard struct {
	generation atomic.Int64
	loggingOut atomic.Bool
}

// NewSessionGuard returns a guard at generation zero.
func NewSessionGuard() *SessionGuard {
	return &SessionGuard{}
}

// Generation returns the current session generation.
func (g *SessionGuard) Generation() int64 {
	return g.generation.Load()
}

// Advance starts a new session generation and returns it. Called at the
// start of every login/logout transition.
func (g *SessionGuard) Advance() int64 {
	return g.generation.Add(1)
}

// StillCurrent reports whether a token captured earlier still belongs to the
// live session.
func (g *SessionGuard) StillCurrent(token int64) bool {
	return g.generation.Load() == token
}

// BeginLogout advances the generation and raises the logout-in-progress
// flag, which suppresses realtime resubscription and auto-backup until
// EndLogout.
func (g *SessionGuard) BeginLogout() int64 {
	token := g.Advance()
	g.loggingOut.Store(true)
	return token
}

// EndLogout clears the logout-in-progress flag.
func (g *SessionGuard) EndLogout() {
	g.loggingOut.Store(false)
}

// LogoutInProgress reports whether a logout sequence is currently running.
func (g *SessionGuard) LogoutInProgress() bool {
	return g.loggingOut.Load()
}
