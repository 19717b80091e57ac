// Package storage provides the durable local key-value engines used by jobdesk.
//
// The client keeps three things across restarts: the session record, the
// navigation state and the installation identifier. They are small, written
// rarely and read at every startup, so any embedded or shared KV engine fits:
//
//   - badger.go: embedded Badger database under the data directory (default)
//   - redis.go: shared Redis instance, keys namespaced by a prefix
//   - memory.go: process-local map, used for tests and --ephemeral runs
//
// Engines may be cleared externally at any time; every reader must treat a
// missing key as absence, not as a failure.
package storage
