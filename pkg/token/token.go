package token

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotJWT is returned by Peek for credentials that are not JWTs.
var ErrNotJWT = errors.New("token: not a JWT")

// Claims is the unverified view of a JWT bearer credential.
type Claims struct {
	Subject   string
	Issuer    string
	Audience  []string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Algorithm string
}

// Expired reports whether the claims carry an expiry earlier than now.
// Credentials without an expiry never expire client-side.
func (c *Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// TTL returns the time left before expiry, or 0 when expired or unknown.
func (c *Claims) TTL(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() || now.After(c.ExpiresAt) {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

var parser = jwt.NewParser()

// Peek decodes raw as a JWT without checking its signature.
func Peek(raw string) (*Claims, error) {
	if !LooksLikeJWT(raw) {
		return nil, ErrNotJWT
	}

	var rc jwt.RegisteredClaims
	tok, _, err := parser.ParseUnverified(raw, &rc)
	if err != nil {
		return nil, errors.Join(ErrNotJWT, err)
	}

	c := &Claims{
		Subject:  rc.Subject,
		Issuer:   rc.Issuer,
		Audience: rc.Audience,
	}
	if tok.Method != nil {
		c.Algorithm = tok.Method.Alg()
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	return c, nil
}

// LooksLikeJWT reports whether s has the three dot-separated base64url
// segments of a compact JWS with a JSON header.
func LooksLikeJWT(s string) bool {
	if !strings.HasPrefix(s, "eyJ") || strings.Count(s, ".") != 2 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.' || r == '=':
		default:
			return false
		}
	}
	return true
}

// Fingerprint returns the first 12 hex characters of SHA-256(raw).
// An empty credential has an empty fingerprint.
func Fingerprint(raw string) string {
	if raw == "" {
		return ""
	}
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])[:12]
}
