package portal

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/core/guard"
	"github.com/yndnr/jobdesk-go/internal/core/service"
)

// AuthManager is the part of service.AuthManager the portal drives.
type AuthManager interface {
	Login(ctx context.Context, creds service.Credentials) (*service.LoginOutcome, error)
	Logout(ctx context.Context) error
	State() service.State
	Session() *domain.Session
}

// ViewFetcher performs authorized backend GETs. A 401 answer must already
// have been reported to the auth manager when Get returns.
type ViewFetcher interface {
	Get(ctx context.Context, path string) (*http.Response, error)
}

// Navigator keeps the manager's idea of the current location in step with
// the browser.
type Navigator interface {
	Go(ctx context.Context, location string)
	Apply(ctx context.Context, d guard.Decision) string
	SetReturnHint(ctx context.Context, path string)
}

// Metrics is what the portal reports and exposes.
type Metrics interface {
	PortalMetrics
	ObserveGuard(outcome string)
	Handler() http.Handler
}

// Config wires the portal.
type Config struct {
	Manager AuthManager
	Router  *guard.Router
	Views   ViewFetcher
	Nav     Navigator
	Flash   *Flash
	Metrics Metrics
	Logger  *slog.Logger

	// Hosts are extra Host header names accepted besides localhost and the
	// loopback addresses, typically the listen host.
	Hosts []string

	// RateLimit is requests per second per client; 0 disables limiting.
	RateLimit float64
	Burst     int
}

type portal struct {
	Config
}

// NewHandler builds the portal handler.
// Middleware order: Recover -> LoopbackOnly -> LocalOrigin -> RequestID -> RateLimit -> Audit -> mux.
func NewHandler(cfg Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Flash == nil {
		cfg.Flash = &Flash{}
	}
	if cfg.Router == nil {
		cfg.Router = guard.DefaultRouter()
	}
	p := &portal{Config: cfg}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", p.health)
	mux.HandleFunc("GET /metrics", p.metrics)
	mux.HandleFunc("GET /login", p.loginPage)
	mux.HandleFunc("POST /login", p.login)
	mux.HandleFunc("POST /logout", p.logout)
	mux.HandleFunc("GET /session", p.session)
	mux.HandleFunc("GET /", p.view)

	middlewares := []Middleware{
		Recover(cfg.Logger),
		LoopbackOnly(cfg.Logger),
		LocalOrigin(cfg.Logger, cfg.Hosts...),
		RequestID(),
	}
	if cfg.RateLimit > 0 {
		middlewares = append(middlewares, RateLimit(cfg.Logger, cfg.RateLimit, cfg.Burst))
	}
	var audit PortalMetrics
	if cfg.Metrics != nil {
		audit = cfg.Metrics
	}
	middlewares = append(middlewares, Audit(cfg.Logger, audit))

	return Chain(mux, middlewares...)
}

func (p *portal) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  p.Manager.State().String(),
	})
}

func (p *portal) metrics(w http.ResponseWriter, r *http.Request) {
	if p.Metrics == nil {
		http.NotFound(w, r)
		return
	}
	p.Metrics.Handler().ServeHTTP(w, r)
}

// ============================================================================
// Login / logout
// ============================================================================

var loginTemplate = template.Must(template.New("login").Parse(`<!doctype html>
<html><head><title>Sign in</title></head>
<body>
<h1>Sign in</h1>
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
{{if .SignedInAs}}<p>Signed in as {{.SignedInAs}}.</p>{{end}}
<form method="post" action="/login">
<input type="hidden" name="next" value="{{.Next}}">
<label>Email <input type="email" name="email" required></label>
<label>Password <input type="password" name="password" required></label>
<label>Role <select name="role">{{range .Roles}}<option value="{{.}}">{{.}}</option>{{end}}</select></label>
<button type="submit">Sign in</button>
</form>
</body></html>
`))

type loginView struct {
	Notice     string
	SignedInAs string
	Next       string
	Roles      []domain.Role
}

func (p *portal) loginPage(w http.ResponseWriter, r *http.Request) {
	p.Nav.Go(r.Context(), domain.PathLogin)

	view := loginView{
		Notice: p.Flash.Take(),
		Next:   safeNext(r.URL.Query().Get("next")),
		Roles:  domain.AllRoles,
	}
	if sess := p.Manager.Session(); sess.IsAuthenticated() {
		view.SignedInAs = sess.Identity.DisplayName()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := loginTemplate.Execute(w, view); err != nil {
		p.Logger.Error("failed to render login page", "error", err)
	}
}

func (p *portal) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p.Flash.Notify("invalid form submission")
		http.Redirect(w, r, domain.PathLogin, http.StatusSeeOther)
		return
	}

	next := safeNext(r.PostFormValue("next"))
	if next != "" {
		p.Nav.SetReturnHint(r.Context(), next)
	}

	role, err := domain.ParseRole(r.PostFormValue("role"))
	if err == nil {
		var out *service.LoginOutcome
		out, err = p.Manager.Login(r.Context(), service.Credentials{
			Email:    r.PostFormValue("email"),
			Password: r.PostFormValue("password"),
			Role:     role,
		})
		if err == nil {
			http.Redirect(w, r, out.Landing, http.StatusSeeOther)
			return
		}
	}

	p.Flash.Notify(domain.UserMessage(err))
	http.Redirect(w, r, loginURL(next), http.StatusSeeOther)
}

func (p *portal) logout(w http.ResponseWriter, r *http.Request) {
	if err := p.Manager.Logout(r.Context()); err != nil {
		p.Logger.Warn("logout left local state behind", "error", err)
	}
	http.Redirect(w, r, domain.PathLogin, http.StatusSeeOther)
}

type sessionView struct {
	State     string           `json:"state"`
	Identity  *domain.Identity `json:"identity,omitempty"`
	CreatedAt int64            `json:"created_at,omitempty"`
}

func (p *portal) session(w http.ResponseWriter, r *http.Request) {
	view := sessionView{State: p.Manager.State().String()}
	if sess := p.Manager.Session(); sess.IsAuthenticated() {
		view.Identity = sess.Identity
		view.CreatedAt = sess.CreatedAt
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, view)
}

// ============================================================================
// Guarded views
// ============================================================================

func (p *portal) view(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := domain.CleanPath(r.URL.Path)

	decision, match, err := p.Router.Evaluate(p.Manager.Session(), path)
	if err != nil {
		writeError(w, http.StatusNotFound, domain.ErrViewNotFound.Code, domain.UserMessage(err))
		return
	}
	if p.Metrics != nil {
		p.Metrics.ObserveGuard(decision.Outcome.String())
	}

	switch decision.Outcome {
	case guard.RedirectLogin:
		p.Nav.Apply(ctx, decision)
		http.Redirect(w, r, loginURL(decision.ReturnTo), http.StatusFound)
		return
	case guard.RedirectRoleHome:
		p.Nav.Apply(ctx, decision)
		http.Redirect(w, r, decision.Location, http.StatusFound)
		return
	}

	p.Nav.Go(ctx, path)

	endpoint := match.Endpoint()
	if endpoint == "" {
		writeJSON(w, http.StatusOK, map[string]string{
			"view":  match.Route.Title,
			"path":  path,
			"route": match.Route.Pattern,
		})
		return
	}
	if r.URL.RawQuery != "" {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + r.URL.RawQuery
	}

	resp, err := p.Views.Get(ctx, endpoint)
	if err != nil {
		p.Logger.Warn("backend unreachable", "endpoint", endpoint, "error", err)
		writeError(w, http.StatusBadGateway, domain.ErrAuthUnavailable.Code, "backend unreachable")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		http.Redirect(w, r, loginURL(path), http.StatusFound)
		return
	}

	for _, h := range []string{"Content-Type", "Content-Length", "Cache-Control", "ETag", "Last-Modified"} {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.Header().Set("X-Jobdesk-View", match.Route.Pattern)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.Logger.Debug("proxy copy interrupted", "path", path, "error", err)
	}
}

// safeNext accepts only local, non-public paths as a return target.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	next = domain.CleanPath(next)
	if domain.IsPublicPath(next) {
		return ""
	}
	return next
}

func loginURL(next string) string {
	if next = safeNext(next); next == "" {
		return domain.PathLogin
	}
	return domain.PathLogin + "?next=" + url.QueryEscape(next)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
