package session

import "strings"

// RolePolicy is the static, compile-time description of a role: its place in
// the hierarchy, display name, capability defaults, and route allow-list.
//
// The capability defaults exist for documentation and seeding only; the
// server-supplied flags on User are authoritative at runtime. The table is
// consulted solely for route allow-listing and hierarchy comparisons.
type RolePolicy struct {
	DisplayName          string
	HierarchyLevel       int
	CanManageEmployees   bool
	CanApproveLeaves     bool
	CanViewGlobalStats   bool
	CanExportData        bool
	RequiresTimeTracking bool

	// Routes are the path prefixes the role may navigate to.
	// RouteWildcard grants access to every path.
	Routes []string

	// DefaultRoute is the landing path after login.
	DefaultRoute string
}

// RouteWildcard marks unrestricted route access.
const RouteWildcard = "*"

// PublicRoutes are navigable without any session.
var PublicRoutes = []string{"/login", "/forgot-password"}

var rolePolicies = map[Role]RolePolicy{
	RoleDirector: {
		DisplayName:        "Director",
		HierarchyLevel:     1,
		CanManageEmployees: true,
		CanApproveLeaves:   true,
		CanViewGlobalStats: true,
		CanExportData:      true,
		Routes:             []string{RouteWildcard},
		DefaultRoute:       "/dashboard",
	},
	RoleHR: {
		DisplayName:          "HR",
		HierarchyLevel:       2,
		CanManageEmployees:   true,
		CanApproveLeaves:     true,
		CanExportData:        true,
		RequiresTimeTracking: true,
		Routes: []string{
			"/dashboard", "/profile", "/employees", "/users", "/leaves",
			"/attendance", "/reports", "/notifications",
		},
		DefaultRoute: "/dashboard",
	},
	RoleTeamLeader: {
		DisplayName:          "Team Leader",
		HierarchyLevel:       3,
		CanApproveLeaves:     true,
		RequiresTimeTracking: true,
		Routes: []string{
			"/dashboard", "/profile", "/leaves/approval", "/attendance",
			"/reports/team", "/notifications",
		},
		DefaultRoute: "/dashboard",
	},
	RoleEmployee: {
		DisplayName:          "Employee",
		HierarchyLevel:       4,
		RequiresTimeTracking: true,
		Routes: []string{
			"/dashboard", "/profile", "/attendance", "/leaves/my",
			"/notifications",
		},
		DefaultRoute: "/attendance",
	},
	RoleIntern: {
		DisplayName:          "Intern",
		HierarchyLevel:       5,
		RequiresTimeTracking: true,
		Routes: []string{
			"/dashboard", "/profile", "/attendance", "/leaves/my",
			"/notifications",
		},
		DefaultRoute: "/attendance",
	},
}

// PolicyFor returns the static policy for a role.
func PolicyFor(role Role) (RolePolicy, bool) {
	p, ok := rolePolicies[role]
	return p, ok
}

// IsHigherRole reports whether a outranks b. Lower hierarchy level is more
// senior (DIRECTOR=1 .. INTERN=5). Unknown roles never outrank anything.
func IsHigherRole(a, b Role) bool {
	pa, okA := rolePolicies[a]
	pb, okB := rolePolicies[b]
	if !okA || !okB {
		return false
	}
	return pa.HierarchyLevel < pb.HierarchyLevel
}

// DefaultRouteForRole returns the landing path for a role after login.
func DefaultRouteForRole(role Role) string {
	if p, ok := rolePolicies[role]; ok && p.DefaultRoute != "" {
		return p.DefaultRoute
	}
	return "/dashboard"
}

// IsPublicRoute reports whether the path is navigable without a session.
func IsPublicRoute(path string) bool {
	for _, p := range PublicRoutes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// CanAccessRoute evaluates a path against the role's allow-list. A path
// matches when it equals an allowed prefix or is nested under it.
// Public routes are always allowed regardless of role.
func CanAccessRoute(role Role, path string) bool {
	if IsPublicRoute(path) {
		return true
	}
	p, ok := rolePolicies[role]
	if !ok {
		return false
	}
	for _, allowed := range p.Routes {
		if allowed == RouteWildcard {
			return true
		}
		if path == allowed || strings.HasPrefix(path, allowed+"/") {
			return true
		}
	}
	return false
}
