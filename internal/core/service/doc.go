// Package service holds the auth session manager.
//
// AuthManager is the only writer of the session store. It restores the
// saved session at startup, logs users in and out, and reacts when the
// network layer reports that the backend no longer accepts the bearer
// credential. Its collaborators are small interfaces (SessionStore,
// Backend, Navigator, RouteChecker, Notifier, Metrics) so the same manager
// drives both the CLI and the portal.
package service
