package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/jobdesk-go/internal/infra/confloader"
)

// Keys lists every settable configuration key.
var Keys = []string{
	"server",
	"output",
	"data_dir",
	"storage.engine",
	"storage.redis_addr",
	"storage.redis_db",
	"storage.redis_prefix",
	"log.level",
	"log.format",
	"auth.logout_grace",
	"auth.request_timeout",
	"auth.rate_limit",
	"auth.seal_secret",
	"tls.ca_file",
	"portal.listen",
	"metrics.textfile",
}

// IsKey reports whether key is a known configuration key.
func IsKey(key string) bool {
	return slices.Contains(Keys, key)
}

// Load loads CLI configuration from path (DefaultConfigPath when empty),
// then JOBDESK_ environment variables, then flags. A missing file yields
// the defaults.
func Load(path string, flags map[string]any) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	l := confloader.NewLoader(confloader.WithEnvPrefix(confloader.DefaultEnvPrefix))
	if err := l.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := l.LoadEnv(); err != nil {
		return nil, err
	}
	if len(flags) > 0 {
		if err := l.LoadMap(flags); err != nil {
			return nil, err
		}
	}

	cfg := Default()
	if err := l.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg to path as YAML with 0600 permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Set updates key in the file at path and saves it. The value is converted
// to the field's type; the resulting configuration must validate.
func Set(path, key, value string) (*CLIConfig, error) {
	if !IsKey(key) {
		return nil, fmt.Errorf("unknown config key %q", key)
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	l := confloader.NewLoader()
	if err := l.LoadFile(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err := l.LoadMap(map[string]any{key: value}); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := l.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := Save(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Lookup returns the value of key in cfg rendered as a string.
func Lookup(cfg *CLIConfig, key string) (string, error) {
	if !IsKey(key) {
		return "", fmt.Errorf("unknown config key %q", key)
	}
	flat, err := Flatten(cfg)
	if err != nil {
		return "", err
	}
	return flat[key], nil
}

// Flatten renders cfg as dotted key → string value for every key in Keys.
// The seal secret is masked.
func Flatten(cfg *CLIConfig) (map[string]string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, err
	}

	l := confloader.NewLoader()
	if err := l.LoadMap(tree); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(Keys))
	for _, k := range Keys {
		out[k] = l.GetString(k)
	}
	if out["auth.seal_secret"] != "" {
		out["auth.seal_secret"] = "********"
	}
	return out, nil
}
