package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/jobdesk-go/internal/infra/buildinfo"
	"github.com/yndnr/jobdesk-go/internal/telemetry/logger"
)

// Header names.
const (
	HeaderRequestID = "X-Request-ID"
	HeaderClientID  = "X-Client-ID"
)

// RequestObserver receives one call per backend round-trip.
type RequestObserver interface {
	ObserveBackend(method string, status int, d time.Duration)
}

// ClientOptions configures an HTTPClient.
type ClientOptions struct {
	// Timeout bounds each request (default: 15s).
	Timeout time.Duration

	// RateLimit is the sustained request rate per second; 0 disables limiting.
	RateLimit float64
	// Burst is the limiter burst size (default: 1 when limiting).
	Burst int

	// ClientID is sent as X-Client-ID.
	ClientID string

	Metrics RequestObserver
	Logger  *slog.Logger

	// Transport overrides the HTTP transport.
	Transport http.RoundTripper
}

// HTTPClient provides HTTP communication with the backend.
type HTTPClient struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	clientID string
	metrics  RequestObserver
	logger   *slog.Logger

	mu             sync.RWMutex
	tokenSource    func() string
	onUnauthorized func(ctx context.Context, token string)
}

// NewHTTPClient creates a new HTTP client for server. A missing scheme
// defaults to http and trailing slashes are dropped.
func NewHTTPClient(server string, opts ClientOptions) *HTTPClient {
	baseURL := strings.TrimRight(strings.TrimSpace(server), "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	l := opts.Logger
	if l == nil {
		l = slog.Default()
	}

	return &HTTPClient{
		baseURL:  baseURL,
		client:   &http.Client{Timeout: timeout, Transport: opts.Transport},
		limiter:  limiter,
		clientID: opts.ClientID,
		metrics:  opts.Metrics,
		logger:   l,
	}
}

// SetTokenSource sets the function that supplies the bearer token.
func (c *HTTPClient) SetTokenSource(f func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenSource = f
}

// OnUnauthorized sets the hook run when the backend answers 401 to a
// request that carried a token.
func (c *HTTPClient) OnUnauthorized(f func(ctx context.Context, token string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = f
}

// Get performs an authorized GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, path, nil, c.currentToken(), true)
}

// Post performs an authorized POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body, c.currentToken(), true)
}

// PostAs performs a POST with an explicit token (possibly empty). A 401 to
// such a request never runs the unauthorized hook.
func (c *HTTPClient) PostAs(ctx context.Context, path string, body any, token string) (*http.Response, error) {
	return c.send(ctx, http.MethodPost, path, body, token, false)
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.tokenSource == nil {
		return ""
	}
	return c.tokenSource()
}

func (c *HTTPClient) send(ctx context.Context, method, path string, body any, token string, reportExpiry bool) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.addHeaders(req, token)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if c.metrics != nil {
		c.metrics.ObserveBackend(method, status, elapsed)
	}
	c.logger.Debug("backend request",
		"method", method,
		"path", path,
		"status", status,
		"request_id", req.Header.Get(HeaderRequestID),
		"duration", elapsed)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && reportExpiry && token != "" {
		c.mu.RLock()
		hook := c.onUnauthorized
		c.mu.RUnlock()
		if hook != nil {
			hook(ctx, token)
		}
	}
	return resp, nil
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	reqID := logger.RequestIDFromContext(req.Context())
	if reqID == "" {
		reqID = ulid.Make().String()
	}
	req.Header.Set(HeaderRequestID, reqID)
	if c.clientID != "" {
		req.Header.Set(HeaderClientID, c.clientID)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
}

// APIError is a non-2xx backend answer.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	switch {
	case e.Message != "" && e.Code != "":
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

// ParseResponse decodes a JSON response body into target and closes it.
// Responses with status >= 400 become *APIError; both {"code","message"}
// and {"error"} bodies are understood.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&errResp); err == nil {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Message
			if apiErr.Message == "" {
				apiErr.Message = errResp.Error
			}
		}
		return apiErr
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
