// Package logger configures log/slog for jobdesk.
//
//   - logger.go: handler construction and the process-wide dynamic level
//   - context.go: request ID and logger propagation through context
//   - redact.go: masking of credentials before they reach any output
//
// Components receive a *slog.Logger; nothing in the tree logs through a
// package-level global except main.
package logger
