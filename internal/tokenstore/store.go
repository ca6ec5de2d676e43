package tokenstore

// Package tokenstore holds the in-memory bearer token pair.
//
// The pair is owned exclusively by the session manager: only it writes here.
// The HTTP transport reads the access token when authorizing outbound
// requests; no other component touches the pair directly. Durable
// persistence of the pair lives in the state repository, not here.

import "sync"

// Store is the single in-memory holder for the access/refresh token pair.
// Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	access  string
	refresh string
}

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Set replaces both tokens. Empty strings clear the corresponding slot.
func (s *Store) Set(access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = access
	s.refresh = refresh
}

// Clear removes both tokens.
func (s *Store) Clear() {
	s.Set("", "")
}

// Access returns the current access token, or "" when absent.
func (s *Store) Access() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

// Refresh returns the current refresh token, or "" when absent.
func (s *Store) Refresh() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Pair returns both tokens atomically.
func (s *Store) Pair() (access, refresh string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access, s.refresh
}
