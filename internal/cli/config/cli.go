package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yndnr/jobdesk-go/internal/storage"
)

// CLIConfig is the configuration for the jobdesk client.
type CLIConfig struct {
	// Server is the backend base URL.
	Server string `koanf:"server" yaml:"server"`

	// Output is the default output format: table, json, yaml.
	Output string `koanf:"output" yaml:"output"`

	// DataDir holds local state (session, navigation, installation id).
	DataDir string `koanf:"data_dir" yaml:"data_dir"`

	Storage StorageSection `koanf:"storage" yaml:"storage"`
	Log     LogSection     `koanf:"log" yaml:"log"`
	Auth    AuthSection    `koanf:"auth" yaml:"auth"`
	TLS     TLSSection     `koanf:"tls" yaml:"tls"`
	Portal  PortalSection  `koanf:"portal" yaml:"portal"`
	Metrics MetricsSection `koanf:"metrics" yaml:"metrics"`
}

// StorageSection selects the local KV engine.
type StorageSection struct {
	Engine      string `koanf:"engine" yaml:"engine"` // badger, redis, memory
	RedisAddr   string `koanf:"redis_addr" yaml:"redis_addr,omitempty"`
	RedisDB     int    `koanf:"redis_db" yaml:"redis_db,omitempty"`
	RedisPrefix string `koanf:"redis_prefix" yaml:"redis_prefix,omitempty"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// AuthSection configures the session manager and backend calls.
type AuthSection struct {
	LogoutGrace    time.Duration `koanf:"logout_grace" yaml:"logout_grace"`
	RequestTimeout time.Duration `koanf:"request_timeout" yaml:"request_timeout"`
	// RateLimit is backend requests per second; 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit" yaml:"rate_limit"`
	// SealSecret, when set, encrypts the stored bearer token.
	SealSecret string `koanf:"seal_secret" yaml:"seal_secret,omitempty"`
}

// TLSSection configures trust for an https backend.
type TLSSection struct {
	// CAFile is a PEM bundle, or a directory of them, trusted in addition
	// to the system roots.
	CAFile string `koanf:"ca_file" yaml:"ca_file,omitempty"`
}

// PortalSection configures the local HTTP gateway.
type PortalSection struct {
	Listen string `koanf:"listen" yaml:"listen"`
}

// MetricsSection configures metrics export from one-shot commands.
type MetricsSection struct {
	// Textfile is a node-exporter textfile path written on exit; empty disables.
	Textfile string `koanf:"textfile" yaml:"textfile,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "http://localhost:8000",
		Output:  "table",
		DataDir: DefaultDataDir(),
		Storage: StorageSection{
			Engine:      storage.EngineBadger,
			RedisAddr:   "127.0.0.1:6379",
			RedisPrefix: "jobdesk:",
		},
		Log: LogSection{
			Level:  "warn",
			Format: "text",
		},
		Auth: AuthSection{
			LogoutGrace:    100 * time.Millisecond,
			RequestTimeout: 15 * time.Second,
		},
		Portal: PortalSection{
			Listen: "127.0.0.1:7070",
		},
	}
}

// DefaultDataDir returns ~/.jobdesk.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".jobdesk"
	}
	return filepath.Join(homeDir, ".jobdesk")
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultDataDir(), "cli.yaml")
}

// Validate checks field values.
func (c *CLIConfig) Validate() error {
	switch c.Output {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("output: unknown format %q", c.Output)
	}
	switch c.Storage.Engine {
	case storage.EngineBadger, storage.EngineMemory:
	case storage.EngineRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("storage.redis_addr is required for the redis engine")
		}
	default:
		return fmt.Errorf("storage.engine: unknown engine %q", c.Storage.Engine)
	}
	if c.Server == "" {
		return fmt.Errorf("server is required")
	}
	if c.Auth.LogoutGrace < 0 {
		return fmt.Errorf("auth.logout_grace must not be negative")
	}
	if c.Auth.RateLimit < 0 {
		return fmt.Errorf("auth.rate_limit must not be negative")
	}
	return nil
}

// KVConfig builds the storage configuration.
func (c *CLIConfig) KVConfig() storage.KVConfig {
	kv := storage.DefaultKVConfig(filepath.Join(c.DataDir, "kv"))
	kv.Engine = c.Storage.Engine
	kv.Redis.Addr = c.Storage.RedisAddr
	kv.Redis.DB = c.Storage.RedisDB
	kv.Redis.Prefix = c.Storage.RedisPrefix
	return kv
}
