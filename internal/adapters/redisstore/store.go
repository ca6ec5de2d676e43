package redisstore

// Package redisstore persists the session slice in Redis, for deployments
// where several kiosk terminals share one signed-in station identity.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

const defaultKey = "hrdesk:session"

// Store keeps the persisted session slice under a single Redis key.
type Store struct {
	client redis.UniversalClient
	key    string

	// ttl bounds how long a slice outlives its last save. Zero keeps the
	// key until the next explicit Clear; the refresh token's server-side
	// lifetime still caps how long a rehydrated session is usable.
	ttl time.Duration
}

var _ ports.StateRepository = (*Store)(nil)

// New creates a Redis-backed repository under the default key.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client, key: defaultKey}
}

// NewWithKey creates a Redis-backed repository under a custom key with an
// optional TTL per save.
func NewWithKey(client redis.UniversalClient, key string, ttl time.Duration) *Store {
	if key == "" {
		key = defaultKey
	}
	return &Store{client: client, key: key, ttl: ttl}
}

// Load implements ports.StateRepository.
func (s *Store) Load(ctx context.Context) (domainsession.PersistedState, error) {
	data, err := s.client.Get(ctx, s.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domainsession.PersistedState{}, ports.ErrNoState
		}
		return domainsession.PersistedState{}, fmt.Errorf("redis get: %w", err)
	}

	var state domainsession.PersistedState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return domainsession.PersistedState{}, fmt.Errorf("decode session state: %w", err)
	}
	if state.Version != domainsession.PersistedStateVersion {
		return domainsession.PersistedState{}, ports.ErrNoState
	}
	return state, nil
}

// Save implements ports.StateRepository.
func (s *Store) Save(ctx context.Context, state domainsession.PersistedState) error {
	state.Version = domainsession.PersistedStateVersion
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session state: %w", err)
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

// Clear implements ports.StateRepository.
func (s *Store) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
