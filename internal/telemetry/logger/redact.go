package logger

import (
	"log/slog"
	"strings"

	"github.com/yndnr/jobdesk-go/pkg/token"
)

// Key fragments whose values are always hidden.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"credential",
	"authorization",
	"cookie",
	"api_key",
}

// redactedValue is the placeholder for redacted sensitive data.
const redactedValue = "***REDACTED***"

// redactSensitive hides credentials in a. Bearer values and JWTs are
// replaced by a fingerprint wherever they appear; sensitive keys are
// blanked regardless of value.
func redactSensitive(a slog.Attr) slog.Attr {
	switch a.Value.Kind() {
	case slog.KindString:
		s := a.Value.String()
		if s == "" {
			return a
		}
		if masked, ok := maskCredential(s); ok {
			return slog.String(a.Key, masked)
		}
		if IsSensitiveKey(a.Key) {
			return slog.String(a.Key, redactedValue)
		}

	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	return a
}

// maskCredential recognizes values that are credentials on their own.
func maskCredential(s string) (string, bool) {
	if rest, ok := cutBearer(s); ok {
		return "Bearer " + masked(rest), true
	}
	if token.LooksLikeJWT(s) {
		return masked(s), true
	}
	return "", false
}

func cutBearer(s string) (string, bool) {
	const prefix = "bearer "
	if len(s) > len(prefix) && strings.EqualFold(s[:len(prefix)], prefix) {
		return strings.TrimSpace(s[len(prefix):]), true
	}
	return "", false
}

func masked(credential string) string {
	return "***" + token.Fingerprint(credential)
}

// RedactString masks value if it is a credential, otherwise returns it.
func RedactString(value string) string {
	if m, ok := maskCredential(value); ok {
		return m
	}
	return value
}

// IsSensitiveKey checks if a key name suggests sensitive content.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(keyLower, pattern) {
			return true
		}
	}
	return false
}
