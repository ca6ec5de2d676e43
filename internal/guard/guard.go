// Package guard evaluates navigation requests against the current session
// state. It is the headless counterpart of route protection: given a state
// snapshot and a set of requirements it answers with a Decision, never with
// a side effect.
package guard

import (
	domainsession "github.com/hrdesk/hrdesk-client/internal/domain/session"
)

// Well-known navigation targets.
const (
	LoginPath          = "/login"
	UnauthorizedPath   = "/unauthorized"
	DefaultLandingPath = "/dashboard"
)

// DecisionKind classifies the outcome of a guard evaluation.
type DecisionKind int

const (
	// Loading means the session is not initialized yet; the caller should
	// hold navigation and re-evaluate once initialization settles.
	Loading DecisionKind = iota
	// Allow lets the navigation proceed.
	Allow
	// Redirect sends the caller to Decision.Target instead.
	Redirect
)

// String returns a readable form for logs.
func (k DecisionKind) String() string {
	switch k {
	case Loading:
		return "loading"
	case Allow:
		return "allow"
	case Redirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the outcome of evaluating a guard.
type Decision struct {
	Kind DecisionKind
	// Target is the redirect destination; empty unless Kind is Redirect.
	Target string
	// From is the originally requested path, preserved so the caller can
	// return to it after a successful login.
	From string
}

func allow() Decision { return Decision{Kind: Allow} }

func redirect(target, from string) Decision {
	return Decision{Kind: Redirect, Target: target, From: from}
}

// Requirements describes what a protected destination demands. Zero-value
// fields impose nothing.
type Requirements struct {
	// Roles allowed to enter; empty means any authenticated user.
	Roles []domainsession.Role
	// Permissions the user must ALL hold.
	Permissions []domainsession.Permission
	// Path is the destination being navigated to; consulted against the
	// role's route allow-list when non-empty.
	Path string
}

// RequireAuth admits only authenticated sessions. Unauthenticated callers
// are redirected to the login page with the requested path preserved.
func RequireAuth(state domainsession.State, path string) Decision {
	if !state.Initialized || state.Loading {
		return Decision{Kind: Loading, From: path}
	}
	if !state.Authenticated || state.User == nil {
		return redirect(LoginPath, path)
	}
	return allow()
}

// PublicOnly admits only unauthenticated sessions (login, password reset).
// Authenticated callers are sent to their role's landing page.
func PublicOnly(state domainsession.State, path string) Decision {
	if !state.Initialized || state.Loading {
		return Decision{Kind: Loading, From: path}
	}
	if state.Authenticated && state.User != nil {
		target := domainsession.DefaultRouteForRole(state.User.Role)
		if target == "" {
			target = DefaultLandingPath
		}
		return redirect(target, path)
	}
	return allow()
}

// RoleBased evaluates the full requirement set: authentication first, then
// role membership, then capability flags, then the route allow-list.
// Authorization failures redirect to the unauthorized page, never to login.
func RoleBased(state domainsession.State, req Requirements) Decision {
	if d := RequireAuth(state, req.Path); d.Kind != Allow {
		return d
	}
	user := state.User

	if len(req.Roles) > 0 && !hasAnyRole(user.Role, req.Roles) {
		return redirect(UnauthorizedPath, req.Path)
	}

	for _, p := range req.Permissions {
		if !user.HasPermission(p) {
			return redirect(UnauthorizedPath, req.Path)
		}
	}

	if req.Path != "" && !domainsession.CanAccessRoute(user.Role, req.Path) {
		return redirect(UnauthorizedPath, req.Path)
	}

	return allow()
}

func hasAnyRole(have domainsession.Role, allowed []domainsession.Role) bool {
	for _, r := range allowed {
		if have == r {
			return true
		}
	}
	return false
}
