package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
)

// DefaultLogoutGrace is how long expiry signals stay suppressed after a
// logout completes. It covers in-flight requests whose 401 arrives late.
const DefaultLogoutGrace = 100 * time.Millisecond

// State is the manager's authentication state.
type State int

const (
	// StateUnknown means the saved session has not been restored yet.
	StateUnknown State = iota
	StateAnonymous
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "invalid"
	}
}

// ============================================================================
// Collaborators
// ============================================================================

// SessionStore persists the current session.
type SessionStore interface {
	Save(ctx context.Context, sess *domain.Session) error
	// Load returns nil when nothing usable is stored.
	Load(ctx context.Context) *domain.Session
	Clear(ctx context.Context) error
}

// Credentials is a login attempt.
type Credentials struct {
	Email    string
	Password string
	Role     domain.Role
}

// LoginResult is what the backend returns for accepted credentials.
type LoginResult struct {
	Identity domain.Identity
	Token    string
}

// Backend is the remote authentication API.
//
// Login must return an error matching domain.ErrLoginRejected when the
// backend refuses the credentials; any other error is treated as the
// service being unavailable.
type Backend interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Logout(ctx context.Context, token string) error
}

// Navigator moves the client between views and keeps the one-shot return
// hint used after a forced login.
type Navigator interface {
	Current(ctx context.Context) string
	Go(ctx context.Context, location string)
	SetReturnHint(ctx context.Context, path string)
	// TakeReturnHint returns and forgets the hint; "" when none is set.
	TakeReturnHint(ctx context.Context) string
}

// RouteChecker reports whether a session would be admitted to a path.
type RouteChecker interface {
	Admits(sess *domain.Session, path string) bool
}

// Notifier shows a transient message to the user. It is called while the
// manager holds its lock and must not call back into the manager.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }

// Metrics receives auth lifecycle events.
type Metrics interface {
	ObserveRestore(result string)
	ObserveLogin(result string)
	ObserveLogout()
	ObserveAuthExpired(result string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveRestore(string)     {}
func (noopMetrics) ObserveLogin(string)       {}
func (noopMetrics) ObserveLogout()            {}
func (noopMetrics) ObserveAuthExpired(string) {}

// ============================================================================
// AuthManager
// ============================================================================

// AuthManagerConfig holds optional settings for AuthManager.
type AuthManagerConfig struct {
	// GracePeriod keeps expiry signals suppressed after a logout (default: 100ms).
	GracePeriod time.Duration

	// AfterFunc schedules f after d (default: time.AfterFunc). Tests replace
	// it to release the suppression window by hand.
	AfterFunc func(d time.Duration, f func())

	Logger   *slog.Logger
	Notifier Notifier
	Metrics  Metrics
}

// DefaultAuthManagerConfig returns the default configuration.
func DefaultAuthManagerConfig() *AuthManagerConfig {
	return &AuthManagerConfig{
		GracePeriod: DefaultLogoutGrace,
	}
}

// LoginOutcome is the result of a successful login.
type LoginOutcome struct {
	Identity domain.Identity
	// Landing is where navigation went after login.
	Landing string
}

// AuthManager owns the current session. It is safe for concurrent use.
//
// Local state changes happen under a single mutex; backend round-trips run
// outside it.
type AuthManager struct {
	store    SessionStore
	backend  Backend
	nav      Navigator
	routes   RouteChecker
	notifier Notifier
	metrics  Metrics
	logger   *slog.Logger

	grace     time.Duration
	afterFunc func(time.Duration, func())

	mu        sync.Mutex
	state     State
	session   *domain.Session
	restoring bool
	// suppress counts logouts whose grace window is still open.
	suppress int
}

// NewAuthManager creates a manager in StateUnknown. Call Restore before use.
func NewAuthManager(store SessionStore, backend Backend, nav Navigator, routes RouteChecker, config *AuthManagerConfig) *AuthManager {
	if config == nil {
		config = DefaultAuthManagerConfig()
	}

	m := &AuthManager{
		store:     store,
		backend:   backend,
		nav:       nav,
		routes:    routes,
		notifier:  config.Notifier,
		metrics:   config.Metrics,
		logger:    config.Logger,
		grace:     config.GracePeriod,
		afterFunc: config.AfterFunc,
	}
	if m.notifier == nil {
		m.notifier = NotifierFunc(func(string) {})
	}
	if m.metrics == nil {
		m.metrics = noopMetrics{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.grace < 0 {
		m.grace = 0
	}
	if m.afterFunc == nil {
		m.afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
	}
	return m
}

// ============================================================================
// Restore
// ============================================================================

// Restore loads the saved session. It only acts in StateUnknown and at most
// once; later calls return nil. If ctx is cancelled before loading finishes
// the result is dropped, the state stays unknown and ctx.Err() is returned.
//
// A restored identity whose role does not fit the current location is moved
// to the appropriate area, except while the client is on a public auth page.
func (m *AuthManager) Restore(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUnknown || m.restoring {
		m.mu.Unlock()
		return nil
	}
	m.restoring = true
	m.mu.Unlock()

	sess := m.store.Load(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.restoring = false

	if err := ctx.Err(); err != nil {
		m.metrics.ObserveRestore("cancelled")
		m.logger.Debug("session restore cancelled", "error", err)
		return err
	}
	if m.state != StateUnknown {
		// A login completed while the store was being read.
		return nil
	}

	if !sess.IsAuthenticated() {
		m.state = StateAnonymous
		m.metrics.ObserveRestore("anonymous")
		return nil
	}

	m.session = sess
	m.state = StateAuthenticated
	m.metrics.ObserveRestore("authenticated")

	current := domain.CleanPath(m.nav.Current(ctx))
	if target := domain.ReconcileLocation(sess.Role(), current); target != current {
		m.logger.Debug("moving restored session to its area",
			"role", sess.Role(), "from", current, "to", target)
		m.nav.Go(ctx, target)
	}

	m.logger.Info("session restored", "user_id", sess.Identity.ID, "role", sess.Role())
	return nil
}

// ============================================================================
// Login
// ============================================================================

// Login authenticates against the backend with the claimed role.
//
// On any failure the store and the in-memory session are left untouched.
// On success the session is saved and the client navigates to the return
// hint when the new session may open it, otherwise to the role's home.
func (m *AuthManager) Login(ctx context.Context, creds Credentials) (*LoginOutcome, error) {
	// 1. Validate input
	email := strings.TrimSpace(creds.Email)
	if email == "" {
		m.metrics.ObserveLogin("invalid")
		return nil, domain.ErrMissingArgument.WithDetails("email is required")
	}
	if creds.Password == "" {
		m.metrics.ObserveLogin("invalid")
		return nil, domain.ErrMissingArgument.WithDetails("password is required")
	}
	if !creds.Role.Valid() {
		m.metrics.ObserveLogin("invalid")
		return nil, domain.ErrInvalidArgument.WithDetails("unknown role " + `"` + string(creds.Role) + `"`)
	}
	creds.Email = email

	// 2. Ask the backend, outside the lock
	res, err := m.backend.Login(ctx, creds)
	if err != nil {
		if errors.Is(err, domain.ErrLoginRejected) {
			m.metrics.ObserveLogin("rejected")
			m.logger.Info("login rejected", "email", email, "role", creds.Role)
			return nil, err
		}
		m.metrics.ObserveLogin("unavailable")
		m.logger.Warn("login failed", "email", email, "error", err)
		return nil, domain.ErrAuthUnavailable.WithCause(err)
	}

	// 3. Check what came back
	if res == nil || res.Token == "" {
		m.metrics.ObserveLogin("unavailable")
		return nil, domain.ErrAuthUnavailable.WithDetails("login response carried no token")
	}
	if err := res.Identity.Validate(); err != nil {
		m.metrics.ObserveLogin("unavailable")
		return nil, domain.ErrAuthUnavailable.WithDetails("login response carried an invalid identity").WithCause(err)
	}
	if res.Identity.Role != creds.Role {
		m.metrics.ObserveLogin("role_mismatch")
		m.logger.Info("login role mismatch",
			"email", email, "claimed", creds.Role, "actual", res.Identity.Role)
		return nil, domain.ErrRoleMismatch.WithDetails("account role is " + res.Identity.Role.String())
	}

	sess := domain.NewSession(res.Identity, res.Token)

	// 4. Commit
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Save(ctx, sess); err != nil {
		m.metrics.ObserveLogin("storage_error")
		return nil, err
	}
	m.session = sess
	m.state = StateAuthenticated

	landing := domain.RoleHome(sess.Role())
	if hint := m.nav.TakeReturnHint(ctx); hint != "" && m.routes != nil && m.routes.Admits(sess, hint) {
		landing = domain.CleanPath(hint)
	}
	m.nav.Go(ctx, landing)

	m.metrics.ObserveLogin("success")
	m.logger.Info("logged in", "user_id", res.Identity.ID, "role", res.Identity.Role, "landing", landing)

	return &LoginOutcome{Identity: res.Identity, Landing: landing}, nil
}

// ============================================================================
// Logout
// ============================================================================

// Logout ends the session locally, tells the backend best-effort, and
// navigates to the login page.
//
// Expiry signals are suppressed from the moment Logout starts until the
// grace period after it returns. Overlapping logouts each hold their own
// window. Backend failures are only logged; the returned error reports a
// local storage failure.
func (m *AuthManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.suppress++
	token := ""
	if m.session != nil {
		token = m.session.Token
	}
	m.session = nil
	m.state = StateAnonymous
	storeErr := m.store.Clear(ctx)
	m.mu.Unlock()

	if storeErr != nil {
		m.logger.Warn("failed to clear stored session", "error", storeErr)
	}

	if token != "" {
		if err := m.backend.Logout(ctx, token); err != nil {
			m.logger.Warn("backend logout failed", "error", err)
		}
	}

	m.mu.Lock()
	m.nav.Go(ctx, domain.PathLogin)
	m.mu.Unlock()

	m.afterFunc(m.grace, m.release)

	m.metrics.ObserveLogout()
	m.logger.Info("logged out")
	return storeErr
}

func (m *AuthManager) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.suppress > 0 {
		m.suppress--
	}
}

// ============================================================================
// Auth expiry
// ============================================================================

// HandleAuthExpired reacts to the backend rejecting the bearer credential.
//
// It is ignored during a logout's suppression window and when no session
// is active. Otherwise the session is cleared, the user is told it expired,
// the current non-public location is kept as the return hint and the
// client navigates to the login page.
//
// token is the credential the backend rejected. A signal for any token
// other than the current session's is stale and ignored; "" means the
// current session.
func (m *AuthManager) HandleAuthExpired(ctx context.Context, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.suppress > 0 {
		m.metrics.ObserveAuthExpired("suppressed")
		m.logger.Debug("auth expiry ignored during logout")
		return
	}
	if m.state != StateAuthenticated {
		m.metrics.ObserveAuthExpired("ignored")
		return
	}
	if token != "" && token != m.session.Token {
		m.metrics.ObserveAuthExpired("stale")
		m.logger.Debug("auth expiry ignored for a previous session's token")
		return
	}

	userID := m.session.Identity.ID
	m.session = nil
	m.state = StateAnonymous
	if err := m.store.Clear(ctx); err != nil {
		m.logger.Warn("failed to clear expired session", "error", err)
	}

	m.notifier.Notify(domain.ErrSessionExpired.Message)

	if current := domain.CleanPath(m.nav.Current(ctx)); !domain.IsPublicPath(current) {
		m.nav.SetReturnHint(ctx, current)
	}
	m.nav.Go(ctx, domain.PathLogin)

	m.metrics.ObserveAuthExpired("handled")
	m.logger.Info("session expired", "user_id", userID)
}

// ============================================================================
// Accessors
// ============================================================================

// State returns the current authentication state.
func (m *AuthManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns a copy of the current session, or nil.
func (m *AuthManager) Session() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Clone()
}

// Token returns the current bearer credential, or "" when logged out.
func (m *AuthManager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Token
}

// Suppressed reports whether expiry signals are currently ignored.
func (m *AuthManager) Suppressed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suppress > 0
}
