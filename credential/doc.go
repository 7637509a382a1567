// Package credential signs and verifies the short-lived session credential
// issued after a token consumption.
//
// The claim set is intentionally minimal: identity ID, token value, and
// session ID. Decode proves only that this service minted the credential and
// that it has not expired; whether the referenced token and session are still
// live is re-resolved from the store by the engine on every authorization.
package credential
