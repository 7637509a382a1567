// Package internal holds ID and token-value generation shared by the engine.
// Nothing here is part of the public API.
package internal
