// Package command provides the jobdesk CLI commands.
//
// Every invocation behaves like one page load of the client: the runtime
// restores the saved session, the command navigates or authenticates, and
// the new state is persisted for the next invocation. The shell command
// keeps one runtime alive across many commands.
//
//   - root.go: App, global flags, lazy runtime lookup
//   - runtime.go: component wiring (storage, session, manager, network)
//   - auth.go: login, logout, whoami
//   - navigate.go: open, where, routes
//   - status.go: status
//   - config.go: config show|get|set|path
//   - shell.go: interactive shell
//   - portal.go: loopback HTTP gateway
package command
