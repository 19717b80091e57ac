// Package config provides CLI configuration for jobdesk.
//
//   - cli.go: CLIConfig struct (~/.jobdesk/cli.yaml) and defaults
//   - loader.go: loading (file, JOBDESK_ env, flags) and saving
//
// Precedence, lowest first: defaults, config file, environment, flags.
package config
