package filestore

// Package filestore persists the session slice as a versioned JSON file,
// the desktop-client equivalent of the browser's keyed local storage.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

// Store writes the persisted session slice to a single JSON file.
// Writes are atomic (temp file + rename) so a crash never leaves a torn blob.
type Store struct {
	path string
	mu   sync.Mutex
}

var _ ports.StateRepository = (*Store)(nil)

// New creates a file-backed repository at the given path. Parent
// directories are created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Load implements ports.StateRepository.
func (s *Store) Load(_ context.Context) (domainsession.PersistedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domainsession.PersistedState{}, ports.ErrNoState
		}
		return domainsession.PersistedState{}, fmt.Errorf("read session file: %w", err)
	}

	var state domainsession.PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return domainsession.PersistedState{}, fmt.Errorf("decode session file: %w", err)
	}
	// Unknown schema versions are treated as absent rather than guessed at.
	if state.Version != domainsession.PersistedStateVersion {
		return domainsession.PersistedState{}, ports.ErrNoState
	}
	return state, nil
}

// Save implements ports.StateRepository.
func (s *Store) Save(_ context.Context, state domainsession.PersistedState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.Version = domainsession.PersistedStateVersion
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// Best-effort cleanup when the rename never happened.
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

// Clear implements ports.StateRepository.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
