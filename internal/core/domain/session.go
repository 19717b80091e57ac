package domain

import (
	"strings"
	"time"
)

// Identity is the authenticated account reference returned by the backend.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Validate checks the fields every identity must carry.
func (i *Identity) Validate() error {
	var violations []string

	if strings.TrimSpace(i.ID) == "" {
		violations = append(violations, "id is required")
	}
	if !i.Role.Valid() {
		violations = append(violations, "role "+`"`+string(i.Role)+`"`+" is not valid")
	}

	if len(violations) > 0 {
		return ErrInvalidArgument.WithDetails(strings.Join(violations, "; "))
	}
	return nil
}

// DisplayName returns the name, falling back to the email and then the id.
func (i *Identity) DisplayName() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Email != "":
		return i.Email
	default:
		return i.ID
	}
}

// Session is the current authenticated identity and its bearer credential.
//
// A session is authenticated if and only if Identity is non-nil; a token
// left behind without an identity does not count. Sessions are replaced
// wholesale and never partially updated.
type Session struct {
	// Identity is the authenticated account, nil when logged out.
	Identity *Identity `json:"identity"`

	// Token is the opaque bearer credential issued by the backend.
	Token string `json:"-"`

	// CreatedAt is the login or restore timestamp (Unix milliseconds).
	CreatedAt int64 `json:"created_at"`
}

// NewSession creates an authenticated session for identity and token.
func NewSession(identity Identity, token string) *Session {
	id := identity
	return &Session{
		Identity:  &id,
		Token:     token,
		CreatedAt: time.Now().UnixMilli(),
	}
}

// IsAuthenticated reports whether s carries an identity. A nil session is
// not authenticated.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Identity != nil
}

// Role returns the identity's role, or "" when not authenticated.
func (s *Session) Role() Role {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.Identity.Role
}

// Clone returns a deep copy of s so callers cannot mutate shared state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Identity != nil {
		id := *s.Identity
		c.Identity = &id
	}
	return &c
}
