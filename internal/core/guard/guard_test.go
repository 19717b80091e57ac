package guard

import (
	"testing"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
)

func sessionFor(role domain.Role) *domain.Session {
	return domain.NewSession(domain.Identity{ID: "1", Name: "T", Role: role}, "tok")
}

func TestDecide(t *testing.T) {
	admin := sessionFor(domain.RoleAdmin)
	company := sessionFor(domain.RoleCompany)
	user := sessionFor(domain.RoleUser)
	anyRole := []domain.Role(nil)
	userOnly := []domain.Role{domain.RoleUser}
	companyOnly := []domain.Role{domain.RoleCompany}

	tests := []struct {
		name     string
		sess     *domain.Session
		allowed  []domain.Role
		path     string
		want     Outcome
		location string
		returnTo string
	}{
		{"no session", nil, anyRole, "/jobs", RedirectLogin, "/login", "/jobs"},
		{"stray token only", &domain.Session{Token: "t"}, anyRole, "/profile", RedirectLogin, "/login", "/profile"},
		{"user at root", user, anyRole, "/", Admit, "/", ""},
		{"admin at root", admin, anyRole, "/", RedirectRoleHome, "/admin/dashboard", ""},
		{"company at root", company, anyRole, "/", RedirectRoleHome, "/company/dashboard", ""},
		{"root precedence over allowed set", admin, []domain.Role{domain.RoleAdmin}, "/", RedirectRoleHome, "/admin/dashboard", ""},
		{"user allowed", user, userOnly, "/applications", Admit, "/applications", ""},
		{"company denied user view", company, userOnly, "/cv-builder", RedirectRoleHome, "/company/dashboard", ""},
		{"admin denied company view", admin, companyOnly, "/company/jobs", RedirectRoleHome, "/admin/dashboard", ""},
		{"user denied company view", user, companyOnly, "/company/jobs", RedirectRoleHome, "/", ""},
		{"empty allowed admits any", company, anyRole, "/jobs/7", Admit, "/jobs/7", ""},
		{"path is cleaned", nil, anyRole, "jobs/7/", RedirectLogin, "/login", "/jobs/7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.sess, tt.allowed, tt.path)
			if d.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", d.Outcome, tt.want)
			}
			if d.Location != tt.location {
				t.Errorf("Location = %q, want %q", d.Location, tt.location)
			}
			if d.ReturnTo != tt.returnTo {
				t.Errorf("ReturnTo = %q, want %q", d.ReturnTo, tt.returnTo)
			}
		})
	}
}

// Exact-membership: no role is ever admitted to a view whose non-empty
// allowed set excludes it.
func TestDecide_ExactMembership(t *testing.T) {
	paths := []string{"/applications", "/company/jobs", "/admin/users"}
	for _, role := range domain.AllRoles {
		for _, other := range domain.AllRoles {
			if other == role {
				continue
			}
			for _, p := range paths {
				d := Decide(sessionFor(role), []domain.Role{other}, p)
				if d.Outcome == Admit {
					t.Errorf("role %s admitted to %s allowed only for %s", role, p, other)
				}
				if d.Location != domain.RoleHome(role) {
					t.Errorf("role %s redirected to %s, want %s", role, d.Location, domain.RoleHome(role))
				}
			}
		}
	}
}

func TestOutcome_String(t *testing.T) {
	if Admit.String() != "admit" || RedirectLogin.String() != "redirect_login" || RedirectRoleHome.String() != "redirect_role_home" {
		t.Error("unexpected outcome names")
	}
	if Outcome(99).String() != "unknown" {
		t.Error("unknown outcome should stringify as unknown")
	}
}
