// Package repl provides the interactive shell for the jobdesk CLI.
//
//   - repl.go: the read-eval-print loop and line splitting
//   - completer.go: command name prefix matching (used by "help")
//   - history.go: command history persistence
//
// The shell keeps one auth manager alive across commands, so an expired
// session detected by one command is visible to the next.
package repl
