// Package goInvite provides a finite-use invitation token authorization engine
// with Redis-backed token quotas, per-identity session tracking, and signed
// short-lived session credentials.
//
// A token is a short shared secret issued by an operator with a bounded number
// of uses. Consuming a token atomically spends one use, materializes the
// identity bound to that token on first consumption, opens a session, and
// issues a signed credential. The credential is deliberately minimal (identity,
// token, and session IDs only), so authorization always re-resolves current
// token and session state from the store.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Quota enforcement is linearizable per token: for a token
// with quota Q, exactly Q Consume calls ever succeed, no matter how they race.
//
// # Architecture boundaries
//
// goInvite is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (Token, Session, Identity, AuthorizedContext). Token and
// session persistence live in the token and session sub-packages; credential
// signing lives in the credential sub-package; ID generation lives under
// internal/ and is never exported.
//
// # What this package must NOT do
//
//   - Expose Redis clients or key layouts in its public API.
//   - Perform I/O outside of Engine methods (construction via Builder is
//     allocation-only until Build).
//   - Embed mutable token or session state inside issued credentials.
package goInvite
