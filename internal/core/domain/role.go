package domain

import "strings"

// Role is the account role attached to an identity.
//
// Roles are not hierarchical: admin does not imply company, and company does
// not imply user. Every authorization check is an exact membership test.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCompany Role = "company"
	RoleUser    Role = "user"
)

// AllRoles lists every valid role in display order.
var AllRoles = []Role{RoleUser, RoleCompany, RoleAdmin}

// ParseRole converts user input into a Role. Matching is case-insensitive
// and surrounding whitespace is ignored.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", ErrInvalidArgument.WithDetails("unknown role " + `"` + s + `"`)
	}
	return r, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleUser:
		return true
	default:
		return false
	}
}

// In reports whether r is a member of roles.
func (r Role) In(roles []Role) bool {
	for _, candidate := range roles {
		if candidate == r {
			return true
		}
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
