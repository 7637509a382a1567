// Package token implements the Redis-backed invitation token store and the
// atomic consumption primitive the engine's quota guarantee rests on.
//
// Each token lives in a single Redis hash keyed by its value, with secondary
// indexes by ID and creation time. Consume runs as one Lua script, so the
// exists/active/quota checks and the use-counter increment are a single
// linearizable step per token: concurrent consumers of the same token
// serialize inside Redis and the counter can never pass the quota.
//
// The identity bound to a token is stored alongside it and created atomically
// on first consumption.
package token
