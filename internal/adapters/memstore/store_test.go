package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

func TestEmptyStoreHasNoState(t *testing.T) {
	_, err := New().Load(context.Background())
	assert.ErrorIs(t, err, ports.ErrNoState)
}

func TestSaveLoadClear(t *testing.T) {
	store := New()
	ctx := context.Background()
	state := domainsession.PersistedState{
		Version:     domainsession.PersistedStateVersion,
		User:        &domainsession.User{ID: 7, Username: "alima"},
		AccessToken: "at-1",
	}

	require.NoError(t, store.Save(ctx, state))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)

	// The held slice is isolated from the caller's copy.
	state.User.Username = "mutated"
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alima", got.User.Username)

	require.NoError(t, store.Clear(ctx))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, ports.ErrNoState)
}
