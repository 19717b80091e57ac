package guard

import (
	"fmt"
	"strings"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
)

// Route describes one navigable view.
type Route struct {
	// Pattern is the path template, e.g. "/jobs/{id}".
	Pattern string

	// Title is a short human label.
	Title string

	// Allowed lists the roles that may open the view; empty means any
	// authenticated role.
	Allowed []domain.Role

	// Public routes are reachable without a session.
	Public bool

	// Endpoint is the backend resource template backing the view, using the
	// same {param} names as Pattern. Empty for views with no remote content.
	Endpoint string
}

// Match is a route resolved for a concrete path.
type Match struct {
	Route  *Route
	Path   string
	Params map[string]string
}

// Endpoint returns the route's backend endpoint with parameters filled in.
func (m *Match) Endpoint() string {
	ep := m.Route.Endpoint
	for k, v := range m.Params {
		ep = strings.ReplaceAll(ep, "{"+k+"}", v)
	}
	return ep
}

// Router resolves paths against a route table.
type Router struct {
	routes []*Route
}

// NewRouter builds a router from routes. Patterns must be unique.
func NewRouter(routes []Route) (*Router, error) {
	r := &Router{}
	seen := make(map[string]bool, len(routes))
	for i := range routes {
		rt := routes[i]
		rt.Pattern = domain.CleanPath(rt.Pattern)
		if seen[rt.Pattern] {
			return nil, fmt.Errorf("guard: duplicate route %q", rt.Pattern)
		}
		seen[rt.Pattern] = true
		r.routes = append(r.routes, &rt)
	}
	return r, nil
}

// MustNewRouter is NewRouter that panics on error.
func MustNewRouter(routes []Route) *Router {
	r, err := NewRouter(routes)
	if err != nil {
		panic(err)
	}
	return r
}

// Routes returns the route table in declaration order.
func (r *Router) Routes() []Route {
	out := make([]Route, len(r.routes))
	for i, rt := range r.routes {
		out[i] = *rt
	}
	return out
}

// Resolve finds the route for p. Literal segments beat {param} segments,
// so "/company/jobs/new" never resolves to "/company/jobs/{id}".
func (r *Router) Resolve(p string) (*Match, error) {
	p = domain.CleanPath(p)
	segs := splitPath(p)

	var best *Match
	bestLiterals := -1
	for _, rt := range r.routes {
		params, literals, ok := matchPattern(splitPath(rt.Pattern), segs)
		if !ok || literals <= bestLiterals {
			continue
		}
		best = &Match{Route: rt, Path: p, Params: params}
		bestLiterals = literals
	}

	if best == nil {
		return nil, domain.ErrViewNotFound.WithDetails(p)
	}
	return best, nil
}

// Evaluate resolves p and decides whether sess may open it. Public routes
// are always admitted.
func (r *Router) Evaluate(sess *domain.Session, p string) (Decision, *Match, error) {
	m, err := r.Resolve(p)
	if err != nil {
		return Decision{}, nil, err
	}
	if m.Route.Public {
		return Decision{Outcome: Admit, Location: m.Path}, m, nil
	}
	return Decide(sess, m.Route.Allowed, m.Path), m, nil
}

// Admits reports whether sess would be admitted to p without a redirect.
// Unknown paths are not admitted.
func (r *Router) Admits(sess *domain.Session, p string) bool {
	d, _, err := r.Evaluate(sess, p)
	return err == nil && d.Outcome == Admit
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func matchPattern(pattern, segs []string) (map[string]string, int, bool) {
	if len(pattern) != len(segs) {
		return nil, 0, false
	}
	var params map[string]string
	literals := 0
	for i, ps := range pattern {
		if strings.HasPrefix(ps, "{") && strings.HasSuffix(ps, "}") {
			if params == nil {
				params = make(map[string]string)
			}
			params[ps[1:len(ps)-1]] = segs[i]
			continue
		}
		if ps != segs[i] {
			return nil, 0, false
		}
		literals++
	}
	return params, literals, true
}

var (
	onlyUser    = []domain.Role{domain.RoleUser}
	onlyCompany = []domain.Role{domain.RoleCompany}
	onlyAdmin   = []domain.Role{domain.RoleAdmin}
)

// DefaultRoutes is the job board's view table.
func DefaultRoutes() []Route {
	return []Route{
		{Pattern: domain.PathLogin, Title: "Sign in", Public: true},
		{Pattern: domain.PathSignup, Title: "Create account", Public: true},

		{Pattern: domain.PathRoot, Title: "Home", Endpoint: "/api/jobs?featured=true"},
		{Pattern: "/jobs", Title: "Jobs", Endpoint: "/api/jobs"},
		{Pattern: "/jobs/{id}", Title: "Job details", Endpoint: "/api/jobs/{id}"},
		{Pattern: "/profile", Title: "Profile", Endpoint: "/api/users/me"},

		{Pattern: "/applications", Title: "My applications", Allowed: onlyUser, Endpoint: "/api/applications/mine"},
		{Pattern: "/cv-builder", Title: "CV builder", Allowed: onlyUser, Endpoint: "/api/cv"},
		{Pattern: "/cv-builder/templates", Title: "CV templates", Allowed: onlyUser, Endpoint: "/api/cv/templates"},

		{Pattern: domain.PathCompanyHome, Title: "Company dashboard", Allowed: onlyCompany, Endpoint: "/api/company/stats"},
		{Pattern: "/company/jobs", Title: "Company jobs", Allowed: onlyCompany, Endpoint: "/api/company/jobs"},
		{Pattern: "/company/jobs/new", Title: "Post a job", Allowed: onlyCompany},
		{Pattern: "/company/jobs/{id}", Title: "Company job", Allowed: onlyCompany, Endpoint: "/api/company/jobs/{id}"},
		{Pattern: "/company/applications", Title: "Applicants", Allowed: onlyCompany, Endpoint: "/api/company/applications"},

		{Pattern: domain.PathAdminHome, Title: "Admin dashboard", Allowed: onlyAdmin, Endpoint: "/api/admin/stats"},
		{Pattern: "/admin/users", Title: "Users", Allowed: onlyAdmin, Endpoint: "/api/admin/users"},
		{Pattern: "/admin/companies", Title: "Companies", Allowed: onlyAdmin, Endpoint: "/api/admin/companies"},
		{Pattern: "/admin/jobs", Title: "All jobs", Allowed: onlyAdmin, Endpoint: "/api/admin/jobs"},
		{Pattern: "/admin/applications", Title: "All applications", Allowed: onlyAdmin, Endpoint: "/api/admin/applications"},
	}
}

// DefaultRouter returns a router over DefaultRoutes.
func DefaultRouter() *Router {
	return MustNewRouter(DefaultRoutes())
}
