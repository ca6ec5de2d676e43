// Package memstore keeps the session slice in process memory only. It backs
// the "memory" storage backend, where a session deliberately does not
// survive a restart.
package memstore

import (
	"context"
	"sync"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

// Store is an in-memory ports.StateRepository. Safe for concurrent use.
type Store struct {
	mu    sync.Mutex
	state *domainsession.PersistedState
}

var _ ports.StateRepository = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{}
}

// Load returns the held slice, or ports.ErrNoState when empty.
func (s *Store) Load(_ context.Context) (domainsession.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return domainsession.PersistedState{}, ports.ErrNoState
	}
	return *s.state, nil
}

// Save replaces the held slice.
func (s *Store) Save(_ context.Context, state domainsession.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := state
	if state.User != nil {
		u := *state.User
		cp.User = &u
	}
	s.state = &cp
	return nil
}

// Clear drops the held slice.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = nil
	return nil
}
