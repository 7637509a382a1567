// Package middleware exposes HTTP adapters for credential enforcement built
// on top of goInvite.Engine authorization.
//
// # Guards
//
//   - [Guard] rejects requests without a valid credential.
//   - [Optional] authorizes when a credential is present and continues
//     anonymously otherwise.
//   - [RequireOperator] additionally demands the operator capability.
//
// Each guard extracts the credential from the request (authToken cookie,
// then Authorization bearer, then X-Auth-Token header), calls
// Engine.Authorize, and injects the result into the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. It does NOT make
// authorization decisions itself; all decisions are delegated to
// Engine.Authorize.
//
// # What this package must NOT do
//
//   - Parse or create credentials directly (delegates to Engine).
//   - Access Redis (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.Authorize.
package middleware
