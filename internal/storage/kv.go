package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
)

// Common errors
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("kv engine closed")
)

// Engine names accepted by KVConfig.Engine.
const (
	EngineBadger = "badger"
	EngineRedis  = "redis"
	EngineMemory = "memory"
)

// KVEngine defines the interface for the local key-value store.
//
// Implementation requirements:
//   - Thread-safe: concurrent reads/writes must be safe
//   - Durable: data must survive process restarts (except the memory engine)
//   - Get returns ErrKeyNotFound for absent keys
//   - Delete of an absent key is not an error
type KVEngine interface {
	// Get retrieves a value by key.
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set stores a key-value pair, overwriting any previous value.
	Set(ctx context.Context, key, value []byte) error

	// Delete removes a key.
	Delete(ctx context.Context, key []byte) error

	// Stats returns storage statistics.
	Stats(ctx context.Context) (*KVStats, error)

	// Close gracefully shuts down the KV engine.
	Close() error
}

// KVStats contains storage engine statistics.
type KVStats struct {
	// Engine is the engine name.
	Engine string

	// TotalSize is the total disk usage in bytes (0 when unknown).
	TotalSize uint64

	// LSMSize is the LSM tree size (Badger only).
	LSMSize uint64

	// ValueLogSize is the value log size (Badger only).
	ValueLogSize uint64

	// LastGCTime is the last GC run timestamp (Unix milliseconds).
	LastGCTime int64
}

// KVConfig configures a KV engine.
type KVConfig struct {
	// Engine specifies the KV engine type ("badger", "redis", "memory").
	// Default: "badger"
	Engine string

	// Dir is the storage directory (badger).
	Dir string

	// Badger-specific configuration
	Badger BadgerConfig

	// Redis-specific configuration
	Redis RedisConfig
}

// BadgerConfig contains Badger tuning parameters.
//
// The session data set is a handful of small keys, so the defaults favour a
// small footprint over throughput.
type BadgerConfig struct {
	// GCInterval is the interval between automatic value log GC runs.
	// Default: 30m
	GCInterval string

	// GCThreshold is the GC discard ratio threshold (0.0-1.0).
	// Default: 0.5
	GCThreshold float64

	// CacheSize is the block cache size in bytes.
	// Default: 1MB
	CacheSize int64

	// ValueLogFileSize is the max value log file size in bytes.
	// Default: 16MB
	ValueLogFileSize int64

	// MemTableSize is the memtable size in bytes.
	// Default: 4MB
	MemTableSize int64

	// SyncWrites enables fsync after each write.
	// Default: true (a login must survive a crash right after it)
	SyncWrites bool
}

// RedisConfig configures the Redis engine.
type RedisConfig struct {
	// Addr is host:port of the Redis server.
	Addr string

	// Password for AUTH (optional).
	Password string

	// DB is the logical database number.
	DB int

	// Prefix namespaces every key, e.g. "jobdesk:<installation>:".
	Prefix string
}

// DefaultKVConfig returns the default KV configuration rooted at dir.
func DefaultKVConfig(dir string) KVConfig {
	return KVConfig{
		Engine: EngineBadger,
		Dir:    dir,
		Badger: DefaultBadgerConfig(),
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "jobdesk:",
		},
	}
}

// DefaultBadgerConfig returns the default Badger configuration.
func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		GCInterval:       "30m",
		GCThreshold:      0.5,
		CacheSize:        1 << 20,  // 1MB
		ValueLogFileSize: 16 << 20, // 16MB
		MemTableSize:     4 << 20,  // 4MB
		SyncWrites:       true,
	}
}

// Open creates the engine selected by cfg.Engine.
func Open(cfg KVConfig, logger *slog.Logger) (KVEngine, error) {
	switch strings.ToLower(cfg.Engine) {
	case "", EngineBadger:
		if cfg.Dir != "" {
			cfg.Dir = filepath.Clean(cfg.Dir)
		}
		return NewBadgerEngine(cfg, logger)
	case EngineRedis:
		return NewRedisEngine(cfg.Redis, logger)
	case EngineMemory:
		return NewMemoryEngine(), nil
	default:
		return nil, fmt.Errorf("storage: unknown engine %q", cfg.Engine)
	}
}
