package guard

import (
	"github.com/yndnr/jobdesk-go/internal/core/domain"
)

// Outcome is the kind of decision.
type Outcome int

const (
	// Admit renders the requested view.
	Admit Outcome = iota
	// RedirectLogin sends the visitor to the login page.
	RedirectLogin
	// RedirectRoleHome sends the visitor to the home of their role.
	RedirectRoleHome
)

func (o Outcome) String() string {
	switch o {
	case Admit:
		return "admit"
	case RedirectLogin:
		return "redirect_login"
	case RedirectRoleHome:
		return "redirect_role_home"
	default:
		return "unknown"
	}
}

// Decision is the result of a guard evaluation.
type Decision struct {
	Outcome Outcome

	// Location is where navigation ends up: the requested path for Admit,
	// /login or the role home otherwise.
	Location string

	// ReturnTo is the requested path, set only for RedirectLogin.
	ReturnTo string
}

// Decide evaluates a navigation to requestedPath for sess. An empty
// allowedRoles admits every authenticated role.
func Decide(sess *domain.Session, allowedRoles []domain.Role, requestedPath string) Decision {
	requestedPath = domain.CleanPath(requestedPath)

	if !sess.IsAuthenticated() {
		return Decision{
			Outcome:  RedirectLogin,
			Location: domain.PathLogin,
			ReturnTo: requestedPath,
		}
	}

	role := sess.Role()

	// Elevated roles never see the plain-user root, whatever the route allows.
	if requestedPath == domain.PathRoot && (role == domain.RoleAdmin || role == domain.RoleCompany) {
		return Decision{Outcome: RedirectRoleHome, Location: domain.RoleHome(role)}
	}

	if len(allowedRoles) > 0 && !role.In(allowedRoles) {
		return Decision{Outcome: RedirectRoleHome, Location: domain.RoleHome(role)}
	}

	return Decision{Outcome: Admit, Location: requestedPath}
}
