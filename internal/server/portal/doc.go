// Package portal provides the loopback HTTP gateway for browser use.
//
// The portal applies the route guard to every page request, keeps the
// auth manager's navigation in step with the browser, and reverse-proxies
// admitted views to the backend with the bearer credential attached.
//
//   - server.go: http.Server lifecycle
//   - middleware.go: Recover, RequestID, RateLimit, Audit, LoopbackOnly
//   - handler.go: routes and the guarded view handler
//   - flash.go: one-shot notices shown on the login page
package portal
