// Package guard decides whether a navigation request may proceed.
//
// Decide is a pure function of (session, allowed roles, requested path). It
// never touches storage; callers apply the Decision through their navigator
// or as an HTTP redirect. Router adds the route table on top: it resolves a
// concrete path to its pattern, lets public pages through, and hands every
// other route to Decide with that route's allowed roles.
//
// Rules, first match wins:
//
//  1. no authenticated session: redirect to /login, remembering the path
//  2. admin or company at "/": redirect to the role's dashboard
//  3. role outside a non-empty allowed set: redirect to the role's home
//  4. otherwise admit
package guard
