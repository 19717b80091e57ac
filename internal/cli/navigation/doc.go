// Package navigation keeps the client's current location and the one-shot
// return hint in the local KV engine, so that successive CLI invocations
// behave like one long-lived client session.
package navigation
