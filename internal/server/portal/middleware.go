package portal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/telemetry/logger"
	"github.com/yndnr/jobdesk-go/pkg/cmap"
)

// Middleware wraps an http.Handler with additional functionality.
type Middleware func(http.Handler) http.Handler

// Chain chains middlewares; the first one listed runs first.
func Chain(h http.Handler, middlewares ...Middleware) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

type startKey struct{}

func contextWithStart(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, startKey{}, t)
}

func startFromContext(r *http.Request) (time.Time, bool) {
	t, ok := r.Context().Value(startKey{}).(time.Time)
	return t, ok
}

// RequestID adds a request ID to each request, reusing an incoming
// X-Request-ID. The ID is stored with logger.WithRequestID so backend calls
// made on behalf of the request carry the same ID.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = ulid.Make().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := logger.WithRequestID(r.Context(), requestID)
			ctx = contextWithStart(ctx, time.Now())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// idleLimiterTTL is how long a client's bucket outlives its last request.
const idleLimiterTTL = 10 * time.Minute

// RateLimit applies a token bucket per client IP. Buckets idle for
// idleLimiterTTL are evicted.
func RateLimit(log *slog.Logger, perSecond float64, burst int) Middleware {
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	table := newLimiterTable(rate.Limit(perSecond), burst, idleLimiterTTL, time.Now, log)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !table.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "JD-SYS-4290", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type clientLimiter struct {
	*rate.Limiter
	lastSeen atomic.Int64 // unix nanoseconds
}

// limiterTable holds one bucket per client IP.
type limiterTable struct {
	clients   *cmap.Map[*clientLimiter]
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	now       func() time.Time
	log       *slog.Logger
	lastSweep atomic.Int64
}

func newLimiterTable(limit rate.Limit, burst int, ttl time.Duration, now func() time.Time, log *slog.Logger) *limiterTable {
	return &limiterTable{
		clients: cmap.New[*clientLimiter](),
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		now:     now,
		log:     log,
	}
}

func (t *limiterTable) allow(ip string) bool {
	now := t.now()
	t.sweep(now)

	c := t.clients.GetOrCreate(ip, func() *clientLimiter {
		return &clientLimiter{Limiter: rate.NewLimiter(t.limit, t.burst)}
	})
	c.lastSeen.Store(now.UnixNano())
	return c.AllowN(now, 1)
}

// sweep evicts idle buckets, at most once per ttl.
func (t *limiterTable) sweep(now time.Time) int {
	last := t.lastSweep.Load()
	if now.UnixNano()-last < int64(t.ttl) || !t.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return 0
	}
	cutoff := now.Add(-t.ttl).UnixNano()
	removed := t.clients.DeleteFunc(func(_ string, c *clientLimiter) bool {
		return c.lastSeen.Load() < cutoff
	})
	if removed > 0 {
		t.log.Debug("idle rate limiters evicted", "removed", removed, "tracked", t.clients.Len())
	}
	return removed
}

// PortalMetrics receives one observation per completed request.
type PortalMetrics interface {
	ObservePortal(method string, status int)
}

// Audit logs each request and reports it to metrics (which may be nil).
func Audit(log *slog.Logger, metrics PortalMetrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			var elapsed time.Duration
			if start, ok := startFromContext(r); ok {
				elapsed = time.Since(start)
			}

			attrs := []any{
				"request_id", logger.RequestIDFromContext(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.statusCode,
				"duration_ms", elapsed.Milliseconds(),
			}
			switch {
			case wrapped.statusCode >= 500:
				log.Error("request completed with error", attrs...)
			case wrapped.statusCode >= 400:
				log.Warn("request completed with client error", attrs...)
			default:
				log.Info("request completed", attrs...)
			}

			if metrics != nil {
				metrics.ObservePortal(r.Method, wrapped.statusCode)
			}
		})
	}
}

// Recover recovers from panics and returns a 500 error.
func Recover(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic recovered",
						"request_id", logger.RequestIDFromContext(r.Context()),
						"error", err,
						"path", r.URL.Path,
					)
					writeError(w, http.StatusInternalServerError, domain.ErrInternal.Code, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LoopbackOnly rejects clients that are not on a loopback address, also
// when the listener is bound to a wildcard address.
func LoopbackOnly(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := net.ParseIP(clientIP(r))
			if ip == nil || !ip.IsLoopback() {
				log.Warn("request denied: not loopback", "client_ip", clientIP(r), "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "JD-SYS-4031", "portal only accepts local connections")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LocalOrigin accepts only requests addressed to a local host name
// (localhost, 127.0.0.1, [::1] or one of hosts). State-changing requests must also come from the portal's own
// origin: a cross-site Sec-Fetch-Site or a foreign Origin is refused.
func LocalOrigin(log *slog.Logger, hosts ...string) Middleware {
	allowed := map[string]bool{"localhost": true, "127.0.0.1": true, "::1": true}
	for _, h := range hosts {
		if h = hostOnly(h); h != "" {
			allowed[h] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !allowed[hostOnly(r.Host)] {
				log.Warn("request denied: foreign host", "host", r.Host, "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "JD-SYS-4032", "portal only answers to local host names")
				return
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			switch r.Header.Get("Sec-Fetch-Site") {
			case "cross-site", "same-site":
				log.Warn("request denied: cross-site", "path", r.URL.Path)
				writeError(w, http.StatusForbidden, "JD-SYS-4033", "cross-site request refused")
				return
			}
			if origin := r.Header.Get("Origin"); origin != "" {
				u, err := url.Parse(origin)
				if err != nil || !strings.EqualFold(u.Host, r.Host) {
					log.Warn("request denied: foreign origin", "origin", origin, "path", r.URL.Path)
					writeError(w, http.StatusForbidden, "JD-SYS-4033", "cross-site request refused")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hostOnly strips the port and IPv6 brackets from a host[:port] value.
func hostOnly(hostport string) string {
	host := hostport
	if h, _, err := net.SplitHostPort(hostport); err == nil {
		host = h
	}
	return strings.ToLower(strings.Trim(host, "[]"))
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

// clientIP returns the peer address. Forwarding headers are ignored: the
// portal is never deployed behind a proxy.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":    code,
		"message": message,
		"status":  strconv.Itoa(status),
	})
}
