package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hrdesk/hrdesk-client/internal/notify"
	"github.com/hrdesk/hrdesk-client/internal/observability/metrics"
)

// Timings configures the periodic session lifecycle checks. Zero fields are
// replaced by the defaults below.
type Timings struct {
	// StatusCheckInterval is how often the session is verified against the
	// backend and the token considered for proactive refresh.
	StatusCheckInterval time.Duration
	// InactivityCheckInterval is how often idle time is evaluated.
	InactivityCheckInterval time.Duration
	// WarningCheckInterval is how often expiry warnings are evaluated.
	WarningCheckInterval time.Duration

	// InactivityTimeout is the idle time after which the session ends.
	InactivityTimeout time.Duration
	// RefreshThreshold is the remaining token lifetime below which a
	// proactive refresh is triggered.
	RefreshThreshold time.Duration
	// WarningThresholds are the remaining-lifetime marks at which the user
	// is warned, each at most once per token. Must be sorted descending.
	WarningThresholds []time.Duration
}

// DefaultTimings returns the production lifecycle schedule.
func DefaultTimings() Timings {
	return Timings{
		StatusCheckInterval:     5 * time.Minute,
		InactivityCheckInterval: time.Minute,
		WarningCheckInterval:    30 * time.Second,
		InactivityTimeout:       30 * time.Minute,
		RefreshThreshold:        10 * time.Minute,
		WarningThresholds:       []time.Duration{10 * time.Minute, 5 * time.Minute, 2 * time.Minute},
	}
}

func (t *Timings) applyDefaults() {
	d := DefaultTimings()
	if t.StatusCheckInterval <= 0 {
		t.StatusCheckInterval = d.StatusCheckInterval
	}
	if t.InactivityCheckInterval <= 0 {
		t.InactivityCheckInterval = d.InactivityCheckInterval
	}
	if t.WarningCheckInterval <= 0 {
		t.WarningCheckInterval = d.WarningCheckInterval
	}
	if t.InactivityTimeout <= 0 {
		t.InactivityTimeout = d.InactivityTimeout
	}
	if t.RefreshThreshold <= 0 {
		t.RefreshThreshold = d.RefreshThreshold
	}
	if len(t.WarningThresholds) == 0 {
		t.WarningThresholds = d.WarningThresholds
	}
}

// lifecycle runs the three periodic checks plus the activity drain. Failures
// in the background never propagate as errors; they surface as logs and
// notifications only.
type lifecycle struct {
	owner *Manager

	mu       sync.Mutex
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	activity chan struct{}
}

func newLifecycle(m *Manager) *lifecycle {
	return &lifecycle{
		owner:    m,
		activity: make(chan struct{}, 16),
	}
}

// StartLifecycle launches the periodic session checks. It is idempotent;
// a second call while running is a no-op.
func (m *Manager) StartLifecycle(ctx context.Context) {
	lc := m.lifecycle

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	lc.cancel = cancel

	loops := []struct {
		interval time.Duration
		tick     func(context.Context)
	}{
		{m.timings.StatusCheckInterval, m.statusTick},
		{m.timings.InactivityCheckInterval, m.inactivityTick},
		{m.timings.WarningCheckInterval, m.warningTick},
	}
	for _, loop := range loops {
		lc.wg.Add(1)
		go lc.run(ctx, loop.interval, loop.tick)
	}

	lc.wg.Add(1)
	go lc.drainActivity(ctx)

	m.logger.Debug("session lifecycle started",
		"status_interval", m.timings.StatusCheckInterval,
		"inactivity_timeout", m.timings.InactivityTimeout,
	)
}

// StopLifecycle stops the periodic checks and waits for them to exit.
func (m *Manager) StopLifecycle() {
	lc := m.lifecycle

	lc.mu.Lock()
	cancel := lc.cancel
	lc.cancel = nil
	lc.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	lc.wg.Wait()
	m.logger.Debug("session lifecycle stopped")
}

// Activity returns a channel callers can signal on user activity. Signals
// are coalesced; sending never blocks the caller when the buffer is full.
func (m *Manager) Activity() chan<- struct{} {
	return m.lifecycle.activity
}

func (lc *lifecycle) run(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	defer lc.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

func (lc *lifecycle) drainActivity(ctx context.Context) {
	defer lc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-lc.activity:
			lc.owner.Touch()
		}
	}
}

// statusTick verifies the session server-side and refreshes the token when
// it is inside the proactive refresh window.
func (m *Manager) statusTick(ctx context.Context) {
	snap := m.Snapshot()
	if !snap.Authenticated {
		return
	}

	m.CheckAuthStatus(ctx)

	if m.Snapshot().Authenticated && m.IsTokenExpiringSoon() {
		if err := m.RefreshToken(ctx); err != nil {
			m.logger.Warn("proactive token refresh failed", "error", err)
		}
	}
}

// inactivityTick ends the session when idle time exceeds the timeout.
func (m *Manager) inactivityTick(ctx context.Context) {
	snap := m.Snapshot()
	if !snap.Authenticated || snap.LastActivity.IsZero() {
		return
	}

	idle := m.clock.Now().Sub(snap.LastActivity)
	if idle < m.timings.InactivityTimeout {
		return
	}

	m.logger.Info("ending session after inactivity", "idle", idle)
	m.logout(ctx, notify.KindInactivityLogout,
		"You have been logged out due to inactivity.")
}

// warningTick emits at most one expiry warning per threshold per token.
func (m *Manager) warningTick(ctx context.Context) {
	snap := m.Snapshot()
	if !snap.Authenticated {
		return
	}

	remaining := m.RemainingSessionTime()
	metrics.EmitSessionRemaining(m.metrics, remaining)
	if remaining <= 0 {
		return
	}

	var fire time.Duration
	m.mu.Lock()
	for _, t := range m.timings.WarningThresholds {
		if remaining <= t && !m.warned[t] {
			m.warned[t] = true
			fire = t
		}
	}
	m.mu.Unlock()

	if fire == 0 {
		return
	}

	minutes := int(remaining.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	m.notify(ctx, notify.KindSessionWarning, notify.SeverityWarning,
		fmt.Sprintf("Your session expires in about %d minute(s).", minutes))
}
