package domain

import (
	"path"
	"strings"
)

// Well-known navigation targets.
const (
	PathRoot        = "/"
	PathLogin       = "/login"
	PathSignup      = "/signup"
	PathAdminHome   = "/admin/dashboard"
	PathCompanyHome = "/company/dashboard"

	adminArea   = "/admin"
	companyArea = "/company"
)

// RoleHome returns the landing location for role. The root view is the
// home of plain users; unknown roles are sent to the login page.
func RoleHome(role Role) string {
	switch role {
	case RoleAdmin:
		return PathAdminHome
	case RoleCompany:
		return PathCompanyHome
	case RoleUser:
		return PathRoot
	default:
		return PathLogin
	}
}

// CleanPath normalizes a location: it always starts with "/", has no
// trailing slash (except root), no query string and no dot segments.
func CleanPath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return PathRoot
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// IsPublicPath reports whether p is one of the auth pages that must stay
// reachable without a session (login and signup).
func IsPublicPath(p string) bool {
	switch CleanPath(p) {
	case PathLogin, PathSignup:
		return true
	default:
		return false
	}
}

// InArea reports whether p is the area root or below it, e.g.
// InArea("/admin/users", "/admin") is true and InArea("/administer", "/admin") is false.
func InArea(p, area string) bool {
	p = CleanPath(p)
	return p == area || strings.HasPrefix(p, area+"/")
}

// ReconcileLocation returns where an identity with role should be when it
// is currently at current. It returns current unchanged when the location
// already fits the role, or when current is a public auth page.
func ReconcileLocation(role Role, current string) string {
	current = CleanPath(current)
	if IsPublicPath(current) {
		return current
	}

	switch role {
	case RoleAdmin:
		if !InArea(current, adminArea) {
			return PathAdminHome
		}
	case RoleCompany:
		if !InArea(current, companyArea) {
			return PathCompanyHome
		}
	case RoleUser:
		if InArea(current, adminArea) || InArea(current, companyArea) {
			return PathRoot
		}
	}
	return current
}
