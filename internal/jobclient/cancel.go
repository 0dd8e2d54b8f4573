package jobclient

import (
	"sync"
	"sync/atomic"
)

// Canceller is polled by the client to learn whether the caller gave up.
type Canceller interface {
	IsCancelled() bool
}

// AbortFunc adapts a predicate to Canceller.
type AbortFunc func() bool

func (f AbortFunc) IsCancelled() bool { return f != nil && f() }

// CancelToken is a one-way cancellation flag shared between a caller and a poll loop.
type CancelToken struct {
	cancelled atomic.Bool
}

// NewCancelToken returns an uncancelled token.
func NewCancelToken() *CancelToken {
	return &CancelToken{}
}

// Cancel marks the token. It is safe to call more than once.
func (t *CancelToken) Cancel() {
	if t != nil {
		t.cancelled.Store(true)
	}
}

func (t *CancelToken) IsCancelled() bool {
	return t != nil && t.cancelled.Load()
}

// Coordinator hands out sessions so that at most one analysis owns the
// output at a time. Beginning a session cancels the one before it.
type Coordinator struct {
	mu      sync.Mutex
	gen     uint64
	current *CancelToken
}

// Session is one analysis request's claim on the output.
type Session struct {
	owner *Coordinator
	gen   uint64
	token *CancelToken
}

// Begin cancels any prior session and starts a new one.
func (c *Coordinator) Begin() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Cancel()
	c.gen++
	c.current = NewCancelToken()
	return &Session{owner: c, gen: c.gen, token: c.current}
}

// Reset cancels the active session, if any.
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Cancel()
}

// Token returns the session's cancellation token.
func (s *Session) Token() *CancelToken { return s.token }

// IsCancelled implements Canceller.
func (s *Session) IsCancelled() bool { return s.token.IsCancelled() }

// Current reports whether s is still the newest session and not cancelled.
// Results from a session that is no longer current must be discarded.
func (s *Session) Current() bool {
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	return s.gen == s.owner.gen && !s.token.IsCancelled()
}
