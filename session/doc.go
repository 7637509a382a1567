// Package session implements the Redis-backed per-identity session registry.
//
// Every session is a standalone hash; a per-identity zset scored by creation
// time orders the registry for iteration. Revocation flips the active flag and
// keeps the record as an audit trail. Touch and revoke run as Lua scripts, so
// mutations on one identity's registry never interleave mid-update; registries
// of different identities share no keys and need no coordination.
package session
