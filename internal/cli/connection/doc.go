// Package connection talks to the job board's REST backend.
//
//   - http.go: HTTPClient with bearer auth, request IDs, client-side rate
//     limiting and the unauthorized hook
//   - auth.go: AuthBackend, the login/logout endpoints used by the auth manager
//   - installation.go: the per-installation client ID sent as X-Client-ID
//
// A 401 answer to a request that carried a bearer token is reported through
// the unauthorized hook; the auth manager turns it into a forced logout.
// Requests sent without a token never trigger the hook.
package connection
