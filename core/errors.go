package core

import "errors"

// Sentinel errors surfaced at the API boundary. Everything else is recovered
// locally: a failure inside one agent's turn never aborts sibling turns or
// the session.
var (
	// ErrSessionNotFound indicates an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrAgentNotFound indicates an agent id unknown to the registry.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrNoPersonas indicates that none of the requested persona ids
	// resolved to an existing persona record.
	ErrNoPersonas = errors.New("no personas resolved for session")
	// ErrSessionCompleted indicates an operation that requires an active
	// session was attempted on a completed one.
	ErrSessionCompleted = errors.New("session already completed")
)
