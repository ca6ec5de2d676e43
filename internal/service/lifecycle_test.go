package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	errs "github.com/hrdesk/hrdesk-client/internal/errors"
	"github.com/hrdesk/hrdesk-client/internal/notify"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

func TestDefaultTimings(t *testing.T) {
	d := DefaultTimings()
	assert.Equal(t, 5*time.Minute, d.StatusCheckInterval)
	assert.Equal(t, time.Minute, d.InactivityCheckInterval)
	assert.Equal(t, 30*time.Second, d.WarningCheckInterval)
	assert.Equal(t, 30*time.Minute, d.InactivityTimeout)
	assert.Equal(t, 10*time.Minute, d.RefreshThreshold)
	assert.Equal(t, []time.Duration{10 * time.Minute, 5 * time.Minute, 2 * time.Minute}, d.WarningThresholds)
}

func TestTimingsApplyDefaultsFillsZeroFields(t *testing.T) {
	got := Timings{InactivityTimeout: time.Hour}
	got.applyDefaults()

	assert.Equal(t, time.Hour, got.InactivityTimeout)
	assert.Equal(t, DefaultTimings().StatusCheckInterval, got.StatusCheckInterval)
	assert.Equal(t, DefaultTimings().WarningThresholds, got.WarningThresholds)
}

func TestInactivityTickEndsIdleSession(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	ctx := context.Background()

	f.clock.Advance(29 * time.Minute)
	f.manager.inactivityTick(ctx)
	assert.True(t, f.manager.Snapshot().Authenticated)

	f.clock.Advance(2 * time.Minute)
	f.manager.inactivityTick(ctx)

	snap := f.manager.Snapshot()
	assert.False(t, snap.Authenticated)
	assert.True(t, snap.Initialized)
	require.Len(t, f.events.ByKind(notify.KindInactivityLogout), 1)
	assert.Equal(t, notify.SeverityWarning, f.events.ByKind(notify.KindInactivityLogout)[0].Severity)
	assert.Nil(t, f.repo.Stored())
}

func TestInactivityTickResetByActivity(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	ctx := context.Background()

	f.clock.Advance(29 * time.Minute)
	f.manager.Touch()
	f.clock.Advance(2 * time.Minute)
	f.manager.inactivityTick(ctx)

	assert.True(t, f.manager.Snapshot().Authenticated)
	assert.Empty(t, f.events.ByKind(notify.KindInactivityLogout))
}

func TestWarningTickFiresOncePerThreshold(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	ctx := context.Background()

	// Well outside the first threshold: nothing fires.
	f.manager.warningTick(ctx)
	assert.Empty(t, f.events.ByKind(notify.KindSessionWarning))

	f.clock.Advance(51 * time.Minute) // 9m remaining
	f.manager.warningTick(ctx)
	warnings := f.events.ByKind(notify.KindSessionWarning)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0].Message, "9 minute")

	// Same window again: the threshold already fired.
	f.manager.warningTick(ctx)
	assert.Len(t, f.events.ByKind(notify.KindSessionWarning), 1)

	f.clock.Advance(5 * time.Minute) // 4m remaining
	f.manager.warningTick(ctx)
	assert.Len(t, f.events.ByKind(notify.KindSessionWarning), 2)

	f.clock.Advance(3 * time.Minute) // 1m remaining
	f.manager.warningTick(ctx)
	warnings = f.events.ByKind(notify.KindSessionWarning)
	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[2].Message, "1 minute")
}

func TestWarningTickSkipsAlreadyPassedThresholds(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	ctx := context.Background()

	// First evaluation happens deep inside the warning window; only the
	// nearest threshold fires, not one per threshold crossed.
	f.clock.Advance(59 * time.Minute) // 1m remaining
	f.manager.warningTick(ctx)

	require.Len(t, f.events.ByKind(notify.KindSessionWarning), 1)

	// The wider thresholds are marked as spent.
	f.clock.SetNow(f.manager.Snapshot().TokenExpiresAt.Add(-9 * time.Minute))
	f.manager.warningTick(ctx)
	assert.Len(t, f.events.ByKind(notify.KindSessionWarning), 1)
}

func TestWarningTickIgnoresExpiredToken(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)

	f.clock.Advance(2 * time.Hour)
	f.manager.warningTick(context.Background())

	assert.Empty(t, f.events.ByKind(notify.KindSessionWarning))
}

func TestRefreshAfterWarningAnnouncesRenewal(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	ctx := context.Background()

	f.clock.Advance(51 * time.Minute)
	f.manager.warningTick(ctx)
	require.Len(t, f.events.ByKind(notify.KindSessionWarning), 1)

	require.NoError(t, f.manager.RefreshToken(ctx))
	require.Len(t, f.events.ByKind(notify.KindSessionRenewed), 1)

	// The new token gets a fresh set of warnings.
	f.clock.Advance(51 * time.Minute)
	f.manager.warningTick(ctx)
	assert.Len(t, f.events.ByKind(notify.KindSessionWarning), 2)
}

func TestRefreshWithoutWarningStaysQuiet(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)

	require.NoError(t, f.manager.RefreshToken(context.Background()))
	assert.Empty(t, f.events.ByKind(notify.KindSessionRenewed))
}

func TestStatusTickRefreshesExpiringToken(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	ctx := context.Background()

	f.manager.statusTick(ctx)
	assert.Equal(t, 0, f.backend.RefreshCalls())

	f.clock.Advance(55 * time.Minute)
	f.manager.statusTick(ctx)
	assert.Equal(t, 1, f.backend.RefreshCalls())
	assert.Equal(t, f.clock.Now().Add(time.Hour), f.manager.Snapshot().TokenExpiresAt)
}

func TestStatusTickTearsDownRejectedSession(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	f.backend.MeFunc = func(context.Context) (domainsession.User, error) {
		return domainsession.User{}, errs.Unauthorized("revoked")
	}

	f.manager.statusTick(context.Background())

	assert.False(t, f.manager.Snapshot().Authenticated)
	assert.Equal(t, 0, f.backend.RefreshCalls())
}

func TestStatusTickNoopWhenLoggedOut(t *testing.T) {
	f := newManagerFixture(t)
	meCalls := 0
	f.backend.MeFunc = func(context.Context) (domainsession.User, error) {
		meCalls++
		return domainsession.User{}, nil
	}

	f.manager.statusTick(context.Background())
	assert.Equal(t, 0, meCalls)
}

func TestLifecycleStartStop(t *testing.T) {
	f := newManagerFixture(t)
	ctx := context.Background()

	f.manager.StartLifecycle(ctx)
	f.manager.StartLifecycle(ctx) // second start is a no-op
	f.manager.StopLifecycle()
	f.manager.StopLifecycle() // second stop is a no-op

	// A fresh start after stop works.
	f.manager.StartLifecycle(ctx)
	f.manager.StopLifecycle()
}

func TestActivityChannelTouchesSession(t *testing.T) {
	f := newManagerFixture(t)
	f.login(t)
	before := f.manager.Snapshot().LastActivity

	f.manager.StartLifecycle(context.Background())
	defer f.manager.StopLifecycle()

	f.clock.Advance(3 * time.Minute)
	f.manager.Activity() <- struct{}{}

	require.Eventually(t, func() bool {
		return f.manager.Snapshot().LastActivity.Equal(before.Add(3 * time.Minute))
	}, time.Second, 5*time.Millisecond)
}

func TestManagerUsesConfiguredTimings(t *testing.T) {
	f := newManagerFixture(t)
	mgr := NewManager(ManagerOptions{
		API:      f.backend,
		Repo:     f.repo,
		Notifier: f.events,
		Clock:    f.clock,
		Timings: Timings{
			InactivityTimeout: 5 * time.Minute,
			RefreshThreshold:  time.Minute,
		},
	})
	_, err := mgr.Login(context.Background(), ports.Credentials{Identifier: "adriana.lima", Password: "pw"})
	require.NoError(t, err)

	f.clock.Advance(6 * time.Minute)
	mgr.inactivityTick(context.Background())
	assert.False(t, mgr.Snapshot().Authenticated)
}
