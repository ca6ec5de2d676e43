package ports

// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"time"

	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
)

// Credentials carries the login request fields.
type Credentials struct {
	// Identifier is the username or email.
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

// TokenGrant is the payload returned by the login and refresh endpoints:
// a fresh token pair plus a user summary.
type TokenGrant struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int64 `json:"expiresIn"`

	UserID          int64              `json:"userId"`
	Username        string             `json:"username"`
	Email           string             `json:"email"`
	FirstName       string             `json:"firstName"`
	LastName        string             `json:"lastName"`
	FullName        string             `json:"fullName"`
	Role            domainsession.Role `json:"role"`
	RoleDisplayName string             `json:"roleDisplayName"`

	LoginTime            string `json:"loginTime"`
	FirstLogin           bool   `json:"firstLogin"`
	PasswordExpired      bool   `json:"passwordExpired"`
	RequiresTimeTracking bool   `json:"requiresTimeTracking"`

	CanManageEmployees bool `json:"canManageEmployees"`
	CanApproveLeaves   bool `json:"canApproveLeaves"`
	CanViewGlobalStats bool `json:"canViewGlobalStats"`
	CanExportData      bool `json:"canExportData"`
}

// User builds the domain user carried by a grant.
func (g TokenGrant) User() domainsession.User {
	return domainsession.User{
		ID:                   g.UserID,
		Username:             g.Username,
		Email:                g.Email,
		FirstName:            g.FirstName,
		LastName:             g.LastName,
		FullName:             g.FullName,
		Role:                 g.Role,
		RoleDisplayName:      g.RoleDisplayName,
		Enabled:              true,
		RequiresTimeTracking: g.RequiresTimeTracking,
		CanManageEmployees:   g.CanManageEmployees,
		CanApproveLeaves:     g.CanApproveLeaves,
		CanViewGlobalStats:   g.CanViewGlobalStats,
		CanExportData:        g.CanExportData,
	}
}

// ValidationResult is the payload of the token validation endpoint.
type ValidationResult struct {
	Valid     bool                `json:"valid"`
	UserInfo  *domainsession.User `json:"userInfo,omitempty"`
	ExpiresIn int64               `json:"expiresIn,omitempty"`
	Timestamp string              `json:"timestamp"`
}

// PasswordChange carries the change-password request fields.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// PasswordChangeResult is the change-password response payload.
type PasswordChangeResult struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// AuthAPI is the backend authentication surface the session core consumes.
// The backend is a black box; every call is a network round-trip.
type AuthAPI interface {
	Login(ctx context.Context, creds Credentials) (TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (TokenGrant, error)
	// Logout is best-effort server-side invalidation.
	Logout(ctx context.Context) error
	// Me returns the current user; any error means "not authenticated".
	Me(ctx context.Context) (domainsession.User, error)
	Validate(ctx context.Context) (ValidationResult, error)
	ChangePassword(ctx context.Context, req PasswordChange) (PasswordChangeResult, error)
}

// ErrNoState is returned by StateRepository.Load when nothing is persisted.
var ErrNoState = errors.New("no persisted session state")

// StateRepository persists the durable session slice across restarts.
type StateRepository interface {
	// Load returns the persisted slice, or ErrNoState when absent or when
	// the stored blob carries an unknown schema version.
	Load(ctx context.Context) (domainsession.PersistedState, error)
	Save(ctx context.Context, state domainsession.PersistedState) error
	Clear(ctx context.Context) error
}

// Clock provides time so lifecycle behavior is testable.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real Clock.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time { return time.Now() }
