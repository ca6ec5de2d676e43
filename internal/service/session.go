package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	errs "github.com/hrdesk/hrdesk-client/internal/errors"
	"github.com/hrdesk/hrdesk-client/internal/notify"
	"github.com/hrdesk/hrdesk-client/internal/observability/metrics"
	"github.com/hrdesk/hrdesk-client/internal/observability/statsd"
	"github.com/hrdesk/hrdesk-client/internal/ports"
	"github.com/hrdesk/hrdesk-client/internal/token"
	"github.com/hrdesk/hrdesk-client/internal/tokenstore"
)

// ErrNoRefreshToken is returned when a token refresh is requested while no
// refresh token is held. Callers must not hit the network in that case.
var ErrNoRefreshToken = errors.New("no refresh token available")

// ManagerOptions groups dependencies for Manager.
type ManagerOptions struct {
	API      ports.AuthAPI
	Repo     ports.StateRepository
	Tokens   *tokenstore.Store
	Notifier notify.Sink
	Clock    ports.Clock
	Logger   *slog.Logger
	Metrics  statsd.Sink
	Timings  Timings
}

// Manager owns the client-side session state machine: login, restore,
// refresh, logout and the derived authorization checks. It is the only
// writer of the token store and of persisted state.
//
// All exported methods are safe for concurrent use. The internal mutex is
// never held across network calls; results of in-flight calls are dropped
// when a logout supersedes them.
type Manager struct {
	api      ports.AuthAPI
	repo     ports.StateRepository
	tokens   *tokenstore.Store
	notifier notify.Sink
	clock    ports.Clock
	logger   *slog.Logger
	metrics  statsd.Sink
	timings  Timings

	mu    sync.Mutex
	state domainsession.State

	// logoutGen counts logouts. An in-flight refresh captures it before
	// the round-trip and discards its result when it changed, so a new
	// pair cannot resurrect a session torn down underneath it.
	logoutGen uint64

	// warned tracks which expiry warning thresholds already fired for the
	// current token; reset on login and refresh.
	warned map[time.Duration]bool

	refreshGroup singleflight.Group

	lifecycle *lifecycle
}

// NewManager constructs a session manager.
func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = tokenstore.New()
	}
	timings := opts.Timings
	timings.applyDefaults()

	m := &Manager{
		api:      opts.API,
		repo:     opts.Repo,
		tokens:   tokens,
		notifier: opts.Notifier,
		clock:    clock,
		logger:   logger,
		metrics:  opts.Metrics,
		timings:  timings,
		warned:   make(map[time.Duration]bool),
	}
	m.lifecycle = newLifecycle(m)
	return m
}

// Initialize restores a persisted session, if any, and verifies it against
// the backend. It is idempotent: subsequent calls return immediately.
//
// Whatever happens, the manager finishes initialized and not loading, so
// callers waiting on Snapshot().Initialized always unblock.
func (m *Manager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	if m.state.Initialized {
		m.mu.Unlock()
		return nil
	}
	m.state.Loading = true
	m.mu.Unlock()

	start := m.clock.Now()
	err := m.restore(ctx)

	m.mu.Lock()
	m.state.Initialized = true
	m.state.Loading = false
	m.mu.Unlock()

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.EmitSessionLifecycle(m.metrics, metrics.SessionMetric{
		Operation: "initialize",
		Result:    result,
		Duration:  m.clock.Now().Sub(start),
		Err:       err,
	})
	return err
}

// restore loads persisted state and validates it with a Me round-trip.
// The transport layer transparently refreshes an expired access token, so a
// stale-but-refreshable session survives a restart. A session the backend
// rejects is cleared silently; only storage failures are reported.
func (m *Manager) restore(ctx context.Context) error {
	persisted, err := m.repo.Load(ctx)
	if errors.Is(err, ports.ErrNoState) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load persisted session: %w", err)
	}
	if persisted.AccessToken == "" || persisted.User == nil {
		return nil
	}

	// Tokens must be in place before the Me call so the transport can
	// authorize it (and refresh on 401).
	m.tokens.Set(persisted.AccessToken, persisted.RefreshToken)

	user, err := m.api.Me(ctx)
	if err != nil {
		m.tokens.Clear()
		if clearErr := m.repo.Clear(ctx); clearErr != nil {
			m.logger.Warn("failed to clear stale session state", "error", clearErr)
		}
		m.logger.Info("persisted session rejected by backend", "error", err)
		return nil
	}

	now := m.clock.Now()
	m.mu.Lock()
	m.state.Authenticated = true
	m.state.User = &user
	// The transport may have rotated the pair during the Me call.
	m.state.AccessToken, m.state.RefreshToken = m.tokens.Pair()
	m.state.TokenExpiresAt = persisted.ExpiresAtTime()
	m.state.LoginTime = persisted.LoginTimeTime()
	m.state.LastActivity = now
	if exp, ok := token.ExpiresAt(m.state.AccessToken); ok {
		m.state.TokenExpiresAt = exp
	}
	m.mu.Unlock()

	m.logger.Info("session restored", "user", user.Username, "role", user.Role)
	return nil
}

// Login authenticates with the backend and establishes the session.
func (m *Manager) Login(ctx context.Context, creds ports.Credentials) (domainsession.User, error) {
	m.mu.Lock()
	m.state.Loading = true
	m.state.Err = ""
	m.mu.Unlock()

	start := m.clock.Now()
	grant, err := m.api.Login(ctx, creds)
	if err != nil {
		m.mu.Lock()
		m.state.Loading = false
		m.state.Err = errs.UserMessage(err, "login failed")
		m.mu.Unlock()

		metrics.EmitSessionLifecycle(m.metrics, metrics.SessionMetric{
			Operation: "login",
			Result:    metrics.ResultError,
			Duration:  m.clock.Now().Sub(start),
			Err:       err,
		})
		m.logger.Warn("login failed", "identifier", creds.Identifier, "error", err)
		return domainsession.User{}, err
	}

	now := m.clock.Now()
	user := grant.User()

	m.tokens.Set(grant.AccessToken, grant.RefreshToken)

	m.mu.Lock()
	m.state = domainsession.State{
		Authenticated:  true,
		Initialized:    true,
		User:           &user,
		AccessToken:    grant.AccessToken,
		RefreshToken:   grant.RefreshToken,
		TokenExpiresAt: now.Add(time.Duration(grant.ExpiresIn) * time.Second),
		LastActivity:   now,
		LoginTime:      now,
	}
	persisted := m.state.Persisted()
	m.mu.Unlock()

	m.resetWarnings()

	if err := m.repo.Save(ctx, persisted); err != nil {
		m.logger.Warn("failed to persist session state", "error", err)
	}

	m.notify(ctx, notify.KindWelcome, notify.SeverityInfo,
		fmt.Sprintf("Welcome back, %s!", user.DisplayName()))
	if grant.FirstLogin || grant.PasswordExpired {
		m.notify(ctx, notify.KindPasswordChangeRequired, notify.SeverityWarning,
			"Your password must be changed before continuing.")
	}

	metrics.EmitSessionLifecycle(m.metrics, metrics.SessionMetric{
		Operation: "login",
		Result:    metrics.ResultSuccess,
		Duration:  m.clock.Now().Sub(start),
	})
	m.logger.Info("login succeeded", "user", user.Username, "role", user.Role)
	return user, nil
}

// Logout tears the session down. Server-side invalidation is best-effort;
// local state is always cleared regardless of the API outcome.
func (m *Manager) Logout(ctx context.Context) {
	m.logout(ctx, notify.KindLogout, "You have been logged out.")
}

func (m *Manager) logout(ctx context.Context, kind notify.Kind, message string) {
	access, _ := m.tokens.Pair()
	if access != "" {
		if err := m.api.Logout(ctx); err != nil {
			m.logger.Debug("server-side logout failed", "error", err)
		}
	}

	now := m.clock.Now()

	m.mu.Lock()
	m.logoutGen++
	m.tokens.Clear()
	wasAuthenticated := m.state.Authenticated
	m.state = domainsession.State{
		Initialized:  true,
		LastActivity: now,
	}
	m.mu.Unlock()

	m.resetWarnings()

	if err := m.repo.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear persisted session state", "error", err)
	}

	if wasAuthenticated {
		severity := notify.SeverityInfo
		if kind == notify.KindInactivityLogout {
			severity = notify.SeverityWarning
		}
		m.notify(ctx, kind, severity, message)
		metrics.EmitSessionLifecycle(m.metrics, metrics.SessionMetric{
			Operation: string(kind),
			Result:    metrics.ResultSuccess,
		})
		m.logger.Info("session ended", "reason", kind)
	}
}

// RefreshToken exchanges the refresh token for a new pair. Concurrent
// callers share a single round-trip. A refresh failure ends the session.
func (m *Manager) RefreshToken(ctx context.Context) error {
	_, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return nil, m.refresh(ctx)
	})
	return err
}

func (m *Manager) refresh(ctx context.Context) error {
	m.mu.Lock()
	gen := m.logoutGen
	m.mu.Unlock()

	_, refreshToken := m.tokens.Pair()
	if refreshToken == "" {
		return ErrNoRefreshToken
	}

	start := m.clock.Now()
	grant, err := m.api.Refresh(ctx, refreshToken)
	if err != nil {
		metrics.EmitSessionLifecycle(m.metrics, metrics.SessionMetric{
			Operation: "refresh",
			Result:    metrics.ResultError,
			Duration:  m.clock.Now().Sub(start),
			Err:       err,
		})
		m.logger.Warn("token refresh failed", "error", err)
		m.logout(ctx, notify.KindAuthError, "Your session has expired. Please sign in again.")
		return fmt.Errorf("refresh token: %w", err)
	}

	now := m.clock.Now()

	m.mu.Lock()
	if m.logoutGen != gen {
		// A logout raced the refresh; the new pair must not resurrect
		// the session.
		m.mu.Unlock()
		m.logger.Debug("dropping refresh result after logout")
		return nil
	}
	m.state.AccessToken = grant.AccessToken
	m.state.RefreshToken = grant.RefreshToken
	m.state.TokenExpiresAt = now.Add(time.Duration(grant.ExpiresIn) * time.Second)
	if user := grant.User(); user.ID != 0 {
		m.state.User = &user
	}
	m.tokens.Set(grant.AccessToken, grant.RefreshToken)
	persisted := m.state.Persisted()
	wasWarned := len(m.warned) > 0
	m.warned = make(map[time.Duration]bool)
	m.mu.Unlock()

	if err := m.repo.Save(ctx, persisted); err != nil {
		m.logger.Warn("failed to persist refreshed session state", "error", err)
	}

	if wasWarned {
		m.notify(ctx, notify.KindSessionRenewed, notify.SeverityInfo,
			"Your session has been renewed.")
	}

	metrics.EmitSessionLifecycle(m.metrics, metrics.SessionMetric{
		Operation: "refresh",
		Result:    metrics.ResultSuccess,
		Duration:  m.clock.Now().Sub(start),
	})
	m.logger.Debug("access token refreshed")
	return nil
}

// RefreshAccessToken refreshes the pair and returns the new access token.
// It exists for the HTTP transport's retry-on-401 hook.
func (m *Manager) RefreshAccessToken(ctx context.Context) (string, error) {
	if err := m.RefreshToken(ctx); err != nil {
		return "", err
	}
	access, _ := m.tokens.Pair()
	if access == "" {
		return "", ErrNoRefreshToken
	}
	return access, nil
}

// CheckAuthStatus verifies the session against the backend and refreshes
// the local user snapshot. A rejected session is torn down.
func (m *Manager) CheckAuthStatus(ctx context.Context) {
	m.mu.Lock()
	authenticated := m.state.Authenticated
	m.mu.Unlock()
	if !authenticated {
		return
	}

	user, err := m.api.Me(ctx)
	if err != nil {
		m.logger.Warn("auth status check failed", "error", err)
		m.logout(ctx, notify.KindAuthError, "Your session is no longer valid. Please sign in again.")
		return
	}

	m.mu.Lock()
	if m.state.Authenticated {
		m.state.User = &user
	}
	m.mu.Unlock()
}

// ProfileUpdate patches the locally held user. Nil fields are left as-is.
type ProfileUpdate struct {
	FirstName *string
	LastName  *string
	FullName  *string
	Email     *string
	Phone     *string
}

// UpdateProfile applies a local patch to the current user and persists it.
// The backend profile endpoints live outside this client; callers apply the
// server response here to keep the session snapshot current.
func (m *Manager) UpdateProfile(ctx context.Context, patch ProfileUpdate) error {
	m.mu.Lock()
	if !m.state.Authenticated || m.state.User == nil {
		m.mu.Unlock()
		return errs.Unauthorized("not authenticated")
	}
	u := *m.state.User
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	if patch.LastName != nil {
		u.LastName = *patch.LastName
	}
	if patch.FullName != nil {
		u.FullName = *patch.FullName
	}
	if patch.Email != nil {
		u.Email = *patch.Email
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	m.state.User = &u
	persisted := m.state.Persisted()
	m.mu.Unlock()

	if err := m.repo.Save(ctx, persisted); err != nil {
		return fmt.Errorf("persist profile update: %w", err)
	}
	return nil
}

// ChangePassword submits a password change for the current user.
func (m *Manager) ChangePassword(ctx context.Context, req ports.PasswordChange) error {
	res, err := m.api.ChangePassword(ctx, req)
	if err != nil {
		m.mu.Lock()
		m.state.Err = errs.UserMessage(err, "password change failed")
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.state.Err = ""
	m.mu.Unlock()

	message := res.Message
	if message == "" {
		message = "Your password has been changed."
	}
	m.notify(ctx, notify.KindPasswordChanged, notify.SeverityInfo, message)
	return nil
}

// Touch records user activity. Activity only moves forward in time.
func (m *Manager) Touch() {
	now := m.clock.Now()
	m.mu.Lock()
	if now.After(m.state.LastActivity) {
		m.state.LastActivity = now
	}
	m.mu.Unlock()
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() domainsession.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.state
	if state.User != nil {
		u := *state.User
		state.User = &u
	}
	return state
}

// HasRole reports whether the current user holds any of the given roles.
func (m *Manager) HasRole(roles ...domainsession.Role) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Authenticated || m.state.User == nil {
		return false
	}
	for _, r := range roles {
		if m.state.User.Role == r {
			return true
		}
	}
	return false
}

// HasPermission reports whether the current user carries the capability flag.
func (m *Manager) HasPermission(p domainsession.Permission) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.Authenticated || m.state.User == nil {
		return false
	}
	return m.state.User.HasPermission(p)
}

// IsTokenExpiringSoon reports whether the access token is inside the
// proactive refresh window. No token, or no known expiry, counts as
// expiring (fail-safe).
func (m *Manager) IsTokenExpiringSoon() bool {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.AccessToken == "" {
		return true
	}
	if m.state.TokenExpiresAt.IsZero() {
		return token.ExpiringSoon(m.state.AccessToken, m.timings.RefreshThreshold, now)
	}
	return m.state.TokenExpiresAt.Before(now.Add(m.timings.RefreshThreshold))
}

// RemainingSessionTime returns the time until the access token expires,
// clamped at zero.
func (m *Manager) RemainingSessionTime() time.Duration {
	now := m.clock.Now()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.TokenExpiresAt.IsZero() {
		return token.Remaining(m.state.AccessToken, now)
	}
	if rem := m.state.TokenExpiresAt.Sub(now); rem > 0 {
		return rem
	}
	return 0
}

func (m *Manager) resetWarnings() {
	m.mu.Lock()
	m.warned = make(map[time.Duration]bool)
	m.mu.Unlock()
}

func (m *Manager) notify(ctx context.Context, kind notify.Kind, severity, message string) {
	if m.notifier == nil {
		return
	}
	ev := notify.NewEvent(kind, severity, message, m.clock.Now())
	if err := m.notifier.Send(ctx, ev); err != nil {
		m.logger.Debug("notification sink failed", "kind", kind, "error", err)
	}
}
