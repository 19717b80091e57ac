// Package session persists the single current Session on a storage.KVEngine.
//
// The store holds at most one record, under the key "jobdesk/session". It
// is written only by the auth manager. Anything unreadable in the slot,
// whether the engine failed, the record is from another version, or the
// token cannot be unsealed, is reported to callers as "no session" and
// logged, so a damaged store degrades to a fresh login instead of an error.
//
// When a cipher is configured the token is sealed with
// pkg/crypto/adaptive before it reaches the engine.
package session
