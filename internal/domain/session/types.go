package session

// Package session contains domain-level types for the client session core.
// It is pure and free of transport/adapter concerns.

import (
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Values mirror the backend's role enum; keep string form for persistence.
type Role string

const (
	RoleDirector   Role = "DIRECTOR"
	RoleHR         Role = "HR"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleEmployee   Role = "EMPLOYEE"
	RoleIntern     Role = "INTERN"
)

// Permission names one of the capability flags the backend computes per user.
type Permission string

const (
	PermManageEmployees Permission = "canManageEmployees"
	PermApproveLeaves   Permission = "canApproveLeaves"
	PermViewGlobalStats Permission = "canViewGlobalStats"
	PermExportData      Permission = "canExportData"
)

// User is the authenticated principal. Capability flags are sourced from the
// backend at login time and trusted as-is; the client never recomputes them
// from the role.
type User struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	FullName        string `json:"fullName"`
	Phone           string `json:"phone,omitempty"`
	Role            Role   `json:"role"`
	RoleDisplayName string `json:"roleDisplayName"`

	DepartmentID   int64  `json:"departmentId,omitempty"`
	DepartmentName string `json:"departmentName,omitempty"`
	ManagerID      int64  `json:"managerId,omitempty"`
	ManagerName    string `json:"managerName,omitempty"`

	Enabled              bool `json:"enabled"`
	RequiresTimeTracking bool `json:"requiresTimeTracking"`

	LastLoginDate   string `json:"lastLoginDate,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	EmailVerifiedAt string `json:"emailVerifiedAt,omitempty"`

	CanManageEmployees bool `json:"canManageEmployees"`
	CanApproveLeaves   bool `json:"canApproveLeaves"`
	CanViewGlobalStats bool `json:"canViewGlobalStats"`
	CanExportData      bool `json:"canExportData"`
}

// HasPermission reports whether the user carries the named capability flag.
// Unknown permission names are denied.
func (u User) HasPermission(p Permission) bool {
	switch p {
	case PermManageEmployees:
		return u.CanManageEmployees
	case PermApproveLeaves:
		return u.CanApproveLeaves
	case PermViewGlobalStats:
		return u.CanViewGlobalStats
	case PermExportData:
		return u.CanExportData
	default:
		return false
	}
}

// DisplayName returns the best human-readable name for the user.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Initials returns the user's uppercase first/last initials, or "" when
// either name part is missing.
func (u User) Initials() string {
	if u.FirstName == "" || u.LastName == "" {
		return ""
	}
	return strings.ToUpper(u.FirstName[:1] + u.LastName[:1])
}

// State is the client-side record of the current authenticated principal.
//
// Invariants: Authenticated implies User != nil and AccessToken != "".
// TokenExpiresAt is always derived from the most recent login/refresh
// response. LastActivity only moves forward, except on logout reset.
type State struct {
	Authenticated bool
	Initialized   bool
	Loading       bool

	User         *User
	AccessToken  string
	RefreshToken string

	// TokenExpiresAt is zero when no token is held.
	TokenExpiresAt time.Time
	LastActivity   time.Time
	// LoginTime is zero when not authenticated.
	LoginTime time.Time

	// Err holds the last user-facing error message from a user-initiated
	// operation (login, change-password). Cleared on success and on logout.
	Err string
}

// PersistedStateVersion is the on-disk schema version of PersistedState.
const PersistedStateVersion = 1

// PersistedState is the subset of State written to durable storage so a
// session survives process restarts. Timestamps are unix milliseconds to
// keep the blob stable across hosts; zero means absent.
type PersistedState struct {
	Version        int    `json:"version"`
	User           *User  `json:"user"`
	AccessToken    string `json:"accessToken"`
	RefreshToken   string `json:"refreshToken"`
	TokenExpiresAt int64  `json:"tokenExpiresAt"`
	LoginTime      int64  `json:"loginTime"`
}

// Persisted derives the durable slice from a full state.
func (s State) Persisted() PersistedState {
	ps := PersistedState{
		Version:      PersistedStateVersion,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if s.User != nil {
		u := *s.User
		ps.User = &u
	}
	if !s.TokenExpiresAt.IsZero() {
		ps.TokenExpiresAt = s.TokenExpiresAt.UnixMilli()
	}
	if !s.LoginTime.IsZero() {
		ps.LoginTime = s.LoginTime.UnixMilli()
	}
	return ps
}

// ExpiresAtTime converts the persisted expiry back to a time.Time.
// Returns the zero time when no expiry was persisted.
func (p PersistedState) ExpiresAtTime() time.Time {
	if p.TokenExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.TokenExpiresAt)
}

// LoginTimeTime converts the persisted login time back to a time.Time.
func (p PersistedState) LoginTimeTime() time.Time {
	if p.LoginTime == 0 {
		return time.Time{}
	}
	return time.UnixMilli(p.LoginTime)
}
