package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/yndnr/jobdesk-go/internal/core/domain"
	"github.com/yndnr/jobdesk-go/internal/core/service"
	"github.com/yndnr/jobdesk-go/pkg/token"
)

// Backend endpoints.
const (
	LoginPath  = "/api/auth/login"
	LogoutPath = "/api/auth/logout"
)

// AuthBackend implements service.Backend over the REST API.
type AuthBackend struct {
	client *HTTPClient
}

// NewAuthBackend creates a backend on top of client.
func NewAuthBackend(client *HTTPClient) *AuthBackend {
	return &AuthBackend{client: client}
}

var _ service.Backend = (*AuthBackend)(nil)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginUser struct {
	ID    flexID `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	User  *loginUser `json:"user"`
	Token string     `json:"token"`
}

// flexID accepts both numeric and string identifiers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*f = flexID(n.String())
	return nil
}

// Login posts the credentials. Client-error answers (400, 401, 403, 422)
// are rejections; everything else that fails is reported as is and treated
// by the caller as the service being unavailable.
func (b *AuthBackend) Login(ctx context.Context, creds service.Credentials) (*service.LoginResult, error) {
	resp, err := b.client.PostAs(ctx, LoginPath, loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
		Role:     creds.Role.String(),
	}, "")
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}

	var out loginResponse
	if err := ParseResponse(resp, &out); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && isRejection(apiErr.Status) {
			rejected := domain.ErrLoginRejected.WithCause(apiErr)
			if apiErr.Message != "" {
				rejected = rejected.WithMessage(apiErr.Message)
			}
			return nil, rejected
		}
		return nil, err
	}

	if out.User == nil || out.Token == "" {
		return nil, errors.New("login response missing user or token")
	}

	role, err := domain.ParseRole(out.User.Role)
	if err != nil {
		return nil, fmt.Errorf("login response: %w", err)
	}
	identity := domain.Identity{
		ID:    string(out.User.ID),
		Name:  strings.TrimSpace(out.User.Name),
		Email: strings.TrimSpace(out.User.Email),
		Role:  role,
	}
	if err := identity.Validate(); err != nil {
		return nil, fmt.Errorf("login response: %w", err)
	}

	b.client.logger.Debug("login accepted",
		"user_id", identity.ID,
		"role", identity.Role,
		"token_fp", token.Fingerprint(out.Token))

	return &service.LoginResult{Identity: identity, Token: out.Token}, nil
}

// Logout revokes tok on the backend. A 401 here means the token is already
// gone, which is not an error.
func (b *AuthBackend) Logout(ctx context.Context, tok string) error {
	resp, err := b.client.PostAs(ctx, LogoutPath, nil, tok)
	if err != nil {
		return fmt.Errorf("logout request: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil
	}
	return ParseResponse(resp, nil)
}

func isRejection(status int) bool {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}
