// Package domain defines the core domain models for jobdesk.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Role: the closed set of account roles (admin, company, user)
//   - Identity: the authenticated account reference
//   - Session: identity plus bearer credential, the unit of authentication
//   - Locations: well-known navigation targets and role homes
//   - Errors: coded domain errors shared by every layer
package domain
