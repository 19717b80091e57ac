package portal

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/jobdesk-go/internal/cli/connection"
	"github.com/yndnr/jobdesk-go/internal/cli/navigation"
	"github.com/yndnr/jobdesk-go/internal/core/guard"
	"github.com/yndnr/jobdesk-go/internal/core/service"
	"github.com/yndnr/jobdesk-go/internal/core/session"
	"github.com/yndnr/jobdesk-go/internal/storage"
	"github.com/yndnr/jobdesk-go/internal/telemetry/logger"
	"github.com/yndnr/jobdesk-go/internal/telemetry/metric"
)

// fakeAPI is a minimal job board backend.
type fakeAPI struct {
	*httptest.Server
	expired  atomic.Bool
	lastAuth atomic.Value
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		role := map[string]string{
			"ada@example.com":  "user",
			"acme@example.com": "company",
			"root@example.com": "admin",
		}[req.Email]
		if role == "" || req.Password != "pw" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "wrong email or password"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"user":  map[string]any{"id": 1, "name": "Test", "email": req.Email, "role": role},
			"token": "tok-" + role,
		})
	})
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/", func(w http.ResponseWriter, r *http.Request) {
		api.lastAuth.Store(r.Header.Get("Authorization"))
		if api.expired.Load() {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path, "query": r.URL.RawQuery})
	})
	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

type harness struct {
	api     *fakeAPI
	mgr     *service.AuthManager
	nav     *navigation.Navigator
	flash   *Flash
	metrics *metric.Registry
	handler http.Handler
}

func newHarness(t *testing.T, rateLimit float64) *harness {
	t.Helper()
	api := newFakeAPI(t)
	kv := storage.NewMemoryEngine()
	log := logger.Discard()

	h := &harness{
		api:     api,
		nav:     navigation.New(kv, log),
		flash:   &Flash{},
		metrics: metric.NewRegistry(),
	}

	client := connection.NewHTTPClient(api.URL, connection.ClientOptions{Metrics: h.metrics, Logger: log})
	router := guard.DefaultRouter()
	h.mgr = service.NewAuthManager(
		session.NewStore(kv, session.WithLogger(log)),
		connection.NewAuthBackend(client),
		h.nav,
		router,
		&service.AuthManagerConfig{
			GracePeriod: time.Millisecond,
			Logger:      log,
			Notifier:    h.flash,
			Metrics:     h.metrics,
		},
	)
	client.SetTokenSource(h.mgr.Token)
	client.OnUnauthorized(h.mgr.HandleAuthExpired)

	if err := h.mgr.Restore(context.Background()); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	h.handler = NewHandler(Config{
		Manager:   h.mgr,
		Router:    router,
		Views:     client,
		Nav:       h.nav,
		Flash:     h.flash,
		Metrics:   h.metrics,
		Logger:    log,
		RateLimit: rateLimit,
		Burst:     1,
	})
	return h
}

// portalHost is the Host header a browser sends to the default listener.
const portalHost = "127.0.0.1:7070"

func (h *harness) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	return h.doWith(method, target, form, nil)
}

// doWith sends a request from loopback to portalHost. header entries are
// set on the request; a "Host" entry replaces the Host header.
func (h *harness) doWith(method, target string, form url.Values, header map[string]string) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Host = portalHost
	for k, v := range header {
		if k == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *harness) login(t *testing.T, email, role string) *httptest.ResponseRecorder {
	t.Helper()
	return h.do(http.MethodPost, "/login", url.Values{
		"email": {email}, "password": {"pw"}, "role": {role},
	})
}

func TestPortal_AnonymousRedirectsToLogin(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.do(http.MethodGet, "/applications", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fapplications" {
		t.Errorf("Location = %q", loc)
	}
	if hint := h.nav.PeekReturnHint(context.Background()); hint != "/applications" {
		t.Errorf("return hint = %q, want /applications", hint)
	}
}

func TestPortal_ReturnToAfterLogin(t *testing.T) {
	h := newHarness(t, 0)

	h.do(http.MethodGet, "/applications", nil)
	rec := h.login(t, "ada@example.com", "user")

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/applications" {
		t.Errorf("landing = %q, want /applications", loc)
	}
}

func TestPortal_ReturnHintIgnoredForOtherRole(t *testing.T) {
	h := newHarness(t, 0)

	h.do(http.MethodGet, "/applications", nil)
	rec := h.login(t, "acme@example.com", "company")

	if loc := rec.Header().Get("Location"); loc != "/company/dashboard" {
		t.Errorf("landing = %q, want /company/dashboard", loc)
	}
}

func TestPortal_RoleRedirects(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		role     string
		path     string
		wantCode int
		wantLoc  string
	}{
		{"admin at root", "root@example.com", "admin", "/", http.StatusFound, "/admin/dashboard"},
		{"company at root", "acme@example.com", "company", "/", http.StatusFound, "/company/dashboard"},
		{"user at admin page", "ada@example.com", "user", "/admin/users", http.StatusFound, "/"},
		{"company at cv builder", "acme@example.com", "company", "/cv-builder", http.StatusFound, "/company/dashboard"},
		{"admin on shared jobs", "root@example.com", "admin", "/jobs", http.StatusOK, ""},
		{"user at root", "ada@example.com", "user", "/", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.login(t, tt.email, tt.role)

			rec := h.do(http.MethodGet, tt.path, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantLoc != "" {
				if loc := rec.Header().Get("Location"); loc != tt.wantLoc {
					t.Errorf("Location = %q, want %q", loc, tt.wantLoc)
				}
			}
		})
	}
}

func TestPortal_ProxiesAdmittedView(t *testing.T) {
	h := newHarness(t, 0)
	h.login(t, "ada@example.com", "user")

	rec := h.do(http.MethodGet, "/jobs/42?page=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["path"] != "/api/jobs/42" || body["query"] != "page=2" {
		t.Errorf("proxied to %+v", body)
	}
	if got := h.api.lastAuth.Load(); got != "Bearer tok-user" {
		t.Errorf("Authorization = %v", got)
	}
	if v := rec.Header().Get("X-Jobdesk-View"); v != "/jobs/{id}" {
		t.Errorf("X-Jobdesk-View = %q", v)
	}
	if cur := h.nav.Current(context.Background()); cur != "/jobs/42" {
		t.Errorf("navigator at %q", cur)
	}
}

func TestPortal_ViewWithoutEndpoint(t *testing.T) {
	h := newHarness(t, 0)
	h.login(t, "acme@example.com", "company")

	rec := h.do(http.MethodGet, "/company/jobs/new", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Post a job") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestPortal_BackendExpiry(t *testing.T) {
	h := newHarness(t, 0)
	h.login(t, "ada@example.com", "user")
	h.api.expired.Store(true)

	rec := h.do(http.MethodGet, "/applications", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fapplications" {
		t.Errorf("Location = %q", loc)
	}
	if h.mgr.State() != service.StateAnonymous {
		t.Errorf("state = %v, want anonymous", h.mgr.State())
	}

	page := h.do(http.MethodGet, "/login", nil)
	if !strings.Contains(page.Body.String(), "session has expired") {
		t.Errorf("login page missing expiry notice:\n%s", page.Body.String())
	}

	h.api.expired.Store(false)
	rec = h.login(t, "ada@example.com", "user")
	if loc := rec.Header().Get("Location"); loc != "/applications" {
		t.Errorf("landing after re-login = %q, want /applications", loc)
	}
}

func TestPortal_LoginFailure(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.do(http.MethodPost, "/login", url.Values{
		"email": {"ada@example.com"}, "password": {"nope"}, "role": {"user"}, "next": {"/profile"},
	})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login?next=%2Fprofile" {
		t.Errorf("Location = %q", loc)
	}
	if h.mgr.State() != service.StateAnonymous {
		t.Errorf("state = %v", h.mgr.State())
	}

	page := h.do(http.MethodGet, "/login", nil)
	if !strings.Contains(page.Body.String(), "wrong email or password") {
		t.Errorf("login page missing backend message:\n%s", page.Body.String())
	}
}

func TestPortal_LoginRoleMismatch(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.login(t, "ada@example.com", "admin")
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
	if h.mgr.Session() != nil {
		t.Error("role mismatch must not create a session")
	}
}

func TestPortal_Logout(t *testing.T) {
	h := newHarness(t, 0)
	h.login(t, "ada@example.com", "user")

	rec := h.do(http.MethodPost, "/logout", nil)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
		t.Fatalf("logout = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if h.mgr.State() != service.StateAnonymous {
		t.Errorf("state = %v", h.mgr.State())
	}

	rec = h.do(http.MethodGet, "/profile", nil)
	if rec.Code != http.StatusFound {
		t.Errorf("after logout /profile = %d, want redirect", rec.Code)
	}
}

func TestPortal_SessionEndpoint(t *testing.T) {
	h := newHarness(t, 0)

	var view sessionView
	rec := h.do(http.MethodGet, "/session", nil)
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view.State != "anonymous" || view.Identity != nil {
		t.Errorf("anonymous view = %+v", view)
	}

	h.login(t, "root@example.com", "admin")
	rec = h.do(http.MethodGet, "/session", nil)
	view = sessionView{}
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view.State != "authenticated" || view.Identity == nil || view.Identity.Role != "admin" {
		t.Errorf("authenticated view = %+v", view)
	}
	if strings.Contains(rec.Body.String(), "tok-admin") {
		t.Error("session endpoint leaked the token")
	}
}

func TestPortal_HealthAndMetrics(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.do(http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("healthz = %d %s", rec.Code, rec.Body.String())
	}

	h.do(http.MethodGet, "/jobs", nil)
	rec = h.do(http.MethodGet, "/metrics", nil)
	body := rec.Body.String()
	for _, want := range []string{"jobdesk_portal_requests_total", "jobdesk_guard_decisions_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s", want)
		}
	}
}

func TestPortal_UnknownView(t *testing.T) {
	h := newHarness(t, 0)
	rec := h.do(http.MethodGet, "/nowhere", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPortal_PublicViewsAlwaysAdmitted(t *testing.T) {
	h := newHarness(t, 0)
	h.login(t, "root@example.com", "admin")

	if rec := h.do(http.MethodGet, "/signup", nil); rec.Code != http.StatusOK {
		t.Errorf("/signup = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/login", nil); rec.Code != http.StatusOK {
		t.Errorf("/login = %d", rec.Code)
	}
}

func TestPortal_RejectsNonLoopback(t *testing.T) {
	h := newHarness(t, 0)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestPortal_RateLimit(t *testing.T) {
	h := newHarness(t, 0.001)

	if rec := h.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/healthz", nil); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second = %d, want 429", rec.Code)
	}
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"":                  "",
		"/jobs":             "/jobs",
		"/jobs/../admin":    "/admin",
		"//evil.example":    "",
		"https://evil.test": "",
		"/login":            "",
		"/profile?tab=cv":   "/profile",
	}
	for in, want := range tests {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPortal_LocalHostOnly(t *testing.T) {
	tests := []struct {
		host string
		want int
	}{
		{"127.0.0.1:7070", http.StatusOK},
		{"localhost:7070", http.StatusOK},
		{"LOCALHOST", http.StatusOK},
		{"[::1]:7070", http.StatusOK},
		{"evil.example:8080", http.StatusForbidden},
		{"evil.example", http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			h := newHarness(t, 0)
			h.login(t, "ada@example.com", "user")
			h.api.lastAuth.Store("")

			rec := h.doWith(http.MethodGet, "/profile", nil, map[string]string{"Host": tt.host})
			if rec.Code != tt.want {
				t.Fatalf("GET /profile with Host %q = %d, want %d", tt.host, rec.Code, tt.want)
			}
			if tt.want == http.StatusForbidden {
				if got, _ := h.api.lastAuth.Load().(string); got != "" {
					t.Errorf("backend was called with %q for a foreign host", got)
				}
			}
		})
	}
}

func TestPortal_ExtraHosts(t *testing.T) {
	h := newHarness(t, 0)
	handler := NewHandler(Config{
		Manager: h.mgr,
		Nav:     h.nav,
		Logger:  logger.Discard(),
		Hosts:   []string{"jobdesk.localhost:9000"},
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.RemoteAddr = "127.0.0.1:40000"
	req.Host = "jobdesk.localhost:9000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET /healthz with a configured host = %d, want 200", rec.Code)
	}
}

func TestPortal_CrossSitePostRefused(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"foreign origin", map[string]string{"Origin": "http://evil.example"}, http.StatusForbidden},
		{"cross-site fetch", map[string]string{"Sec-Fetch-Site": "cross-site"}, http.StatusForbidden},
		{"same-site fetch", map[string]string{"Sec-Fetch-Site": "same-site"}, http.StatusForbidden},
		{"other local port", map[string]string{"Origin": "http://127.0.0.1:3000"}, http.StatusForbidden},
		{"null origin", map[string]string{"Origin": "null"}, http.StatusForbidden},
		{"own origin", map[string]string{"Origin": "http://" + portalHost, "Sec-Fetch-Site": "same-origin"}, http.StatusSeeOther},
		{"no browser headers", nil, http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 0)
			h.login(t, "ada@example.com", "user")

			rec := h.doWith(http.MethodPost, "/logout", url.Values{}, tt.header)
			if rec.Code != tt.want {
				t.Fatalf("POST /logout = %d, want %d", rec.Code, tt.want)
			}
			wantState := service.StateAuthenticated
			if tt.want == http.StatusSeeOther {
				wantState = service.StateAnonymous
			}
			if h.mgr.State() != wantState {
				t.Errorf("State() = %v, want %v", h.mgr.State(), wantState)
			}
		})
	}
}

func TestPortal_CrossSiteLoginRefused(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.doWith(http.MethodPost, "/login", url.Values{
		"email": {"ada@example.com"}, "password": {"pw"}, "role": {"user"},
	}, map[string]string{"Origin": "http://evil.example", "Sec-Fetch-Site": "cross-site"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("cross-site POST /login = %d, want 403", rec.Code)
	}
	if h.mgr.State() == service.StateAuthenticated {
		t.Error("cross-site login signed the user in")
	}
}

func TestLimiterTable_EvictsIdleClients(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }
	table := newLimiterTable(1, 1, time.Minute, clock, logger.Discard())

	if !table.allow("127.0.0.1") {
		t.Fatal("first request from 127.0.0.1 refused")
	}
	if table.allow("127.0.0.1") {
		t.Error("second request in the same instant allowed")
	}
	if !table.allow("::1") {
		t.Fatal("first request from ::1 refused")
	}
	if table.clients.Len() != 2 {
		t.Fatalf("tracked = %d, want 2", table.clients.Len())
	}

	// ::1 stays active, 127.0.0.1 goes idle.
	now = now.Add(40 * time.Second)
	table.allow("::1")
	now = now.Add(30 * time.Second)

	if removed := table.sweep(now); removed != 1 {
		t.Errorf("sweep() removed %d, want 1", removed)
	}
	if table.clients.Len() != 1 {
		t.Errorf("tracked = %d, want 1", table.clients.Len())
	}
	if removed := table.sweep(now); removed != 0 {
		t.Errorf("second sweep within ttl removed %d, want 0", removed)
	}
}
