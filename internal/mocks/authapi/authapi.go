// Package authapi contains simple hand-written test doubles for the session
// ports. These are lightweight and suitable for unit tests without codegen.
package authapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
	errs "github.com/hrdesk/hrdesk-client/internal/errors"
	"github.com/hrdesk/hrdesk-client/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthAPI         = (*MockBackend)(nil)
	_ ports.StateRepository = (*MemoryStateRepository)(nil)
	_ ports.Clock           = (*FixedClock)(nil)
)

// MockBackend simulates the HR auth backend with deterministic grants.
// Per-method Func fields override the default behavior when set.
type MockBackend struct {
	LoginFunc          func(ctx context.Context, creds ports.Credentials) (ports.TokenGrant, error)
	RefreshFunc        func(ctx context.Context, refreshToken string) (ports.TokenGrant, error)
	LogoutFunc         func(ctx context.Context) error
	MeFunc             func(ctx context.Context) (domainsession.User, error)
	ValidateFunc       func(ctx context.Context) (ports.ValidationResult, error)
	ChangePasswordFunc func(ctx context.Context, req ports.PasswordChange) (ports.PasswordChangeResult, error)

	// Grant is the deterministic payload returned by Login and Refresh.
	Grant ports.TokenGrant

	mu       sync.Mutex
	logins   int
	refreshs int
	logouts  int
}

// NewMockBackend creates a MockBackend with a plausible HR user grant.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		Grant: ports.TokenGrant{
			AccessToken:        "access-token-1",
			RefreshToken:       "refresh-token-1",
			TokenType:          "Bearer",
			ExpiresIn:          3600,
			UserID:             1,
			Username:           "adriana.lima",
			Email:              "adriana.lima@example.com",
			FirstName:          "Adriana",
			LastName:           "Lima",
			FullName:           "Adriana Lima",
			Role:               domainsession.RoleHR,
			RoleDisplayName:    "HR",
			CanManageEmployees: true,
			CanApproveLeaves:   true,
			CanExportData:      true,
		},
	}
}

// LoginCalls reports how many times Login ran.
func (m *MockBackend) LoginCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

// RefreshCalls reports how many times Refresh ran.
func (m *MockBackend) RefreshCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshs
}

// LogoutCalls reports how many times Logout ran.
func (m *MockBackend) LogoutCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logouts
}

func (m *MockBackend) Login(ctx context.Context, creds ports.Credentials) (ports.TokenGrant, error) {
	m.mu.Lock()
	m.logins++
	m.mu.Unlock()

	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	if creds.Identifier == "" || creds.Password == "" {
		return ports.TokenGrant{}, errs.Validation("identifier and password are required")
	}
	return m.Grant, nil
}

func (m *MockBackend) Refresh(ctx context.Context, refreshToken string) (ports.TokenGrant, error) {
	m.mu.Lock()
	m.refreshs++
	n := m.refreshs
	m.mu.Unlock()

	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	if refreshToken == "" {
		return ports.TokenGrant{}, errs.Unauthorized("missing refresh token")
	}
	grant := m.Grant
	grant.AccessToken = grant.AccessToken + "-r" + strconv.Itoa(n)
	grant.RefreshToken = grant.RefreshToken + "-r" + strconv.Itoa(n)
	return grant, nil
}

func (m *MockBackend) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.logouts++
	m.mu.Unlock()

	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx)
	}
	return nil
}

func (m *MockBackend) Me(ctx context.Context) (domainsession.User, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx)
	}
	return m.Grant.User(), nil
}

func (m *MockBackend) Validate(ctx context.Context) (ports.ValidationResult, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx)
	}
	user := m.Grant.User()
	return ports.ValidationResult{
		Valid:     true,
		UserInfo:  &user,
		ExpiresIn: m.Grant.ExpiresIn,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (m *MockBackend) ChangePassword(ctx context.Context, req ports.PasswordChange) (ports.PasswordChangeResult, error) {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, req)
	}
	if req.NewPassword != req.ConfirmPassword {
		return ports.PasswordChangeResult{}, errs.Validation("passwords do not match")
	}
	return ports.PasswordChangeResult{
		Message:   "password changed",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// MemoryStateRepository is an in-memory ports.StateRepository that records
// call counts for assertions.
type MemoryStateRepository struct {
	mu    sync.Mutex
	state *domainsession.PersistedState

	Saves  int
	Clears int

	// Fail-injection hooks.
	LoadErr  error
	SaveErr  error
	ClearErr error
}

func (r *MemoryStateRepository) Load(_ context.Context) (domainsession.PersistedState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.LoadErr != nil {
		return domainsession.PersistedState{}, r.LoadErr
	}
	if r.state == nil {
		return domainsession.PersistedState{}, ports.ErrNoState
	}
	return *r.state, nil
}

func (r *MemoryStateRepository) Save(_ context.Context, state domainsession.PersistedState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	r.Saves++
	cp := state
	r.state = &cp
	return nil
}

func (r *MemoryStateRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ClearErr != nil {
		return r.ClearErr
	}
	r.Clears++
	r.state = nil
	return nil
}

// Stored returns the persisted slice, or nil.
func (r *MemoryStateRepository) Stored() *domainsession.PersistedState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == nil {
		return nil
	}
	cp := *r.state
	return &cp
}

// Seed installs a persisted slice directly.
func (r *MemoryStateRepository) Seed(state domainsession.PersistedState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := state
	r.state = &cp
}

// FixedClock is a manually advanced ports.Clock.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock starts a clock at the given instant.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// SetNow jumps the clock to an absolute instant.
func (c *FixedClock) SetNow(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}
