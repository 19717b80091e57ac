// Package token inspects opaque bearer credentials without verifying them.
//
// The client never holds the backend's signing key, so a JWT can only be
// read, not trusted. Peek exposes the registered claims for display
// (expiry in "whoami" and "status") and Fingerprint gives a stable short
// identifier that is safe to log.
package token
