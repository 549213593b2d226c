// Package session holds the authenticated user for the life of a login.
// It is an explicit object handed to the components that need it (REST
// client, socket channel, engine) rather than ambient global state: Begin
// on login, End on logout.
package session

import (
	"sync"

	"github.com/finleyb/corkboard/pkg/board"
)

// Session is the current user's authenticated context.
// Safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	user  *board.Member
	token string
}

// New returns an empty, unauthenticated session.
func New() *Session {
	return &Session{}
}

// Begin installs the authenticated user and API token after login.
func (s *Session) Begin(user board.Member, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := user
	s.user = &u
	s.token = token
}

// End clears the session on logout.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.token = ""
}

// Active reports whether a user is logged in.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns a copy of the logged-in user, or nil when logged out.
func (s *Session) User() *board.Member {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// Token returns the API bearer token, empty when logged out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}
