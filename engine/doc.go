// Package engine is the session lifecycle manager of PersonaMesh. It owns
// the two execution modes (the workflow driver walking swim-lane action
// lists and the conversation driver sustaining a probabilistic discussion
// chain), the system responder policy, the coordination recorder and the
// analysis synthesizer.
//
// Scheduling is cooperative and event driven: each agent turn is an
// independent goroutine, every generation call and bus publish is a
// suspension point, and per-session state is linearized by the aggregate's
// own lock. A session-level cancellation token is honored by all in-flight
// tasks when the session ends, a per-generation timeout substitutes canned
// fallback text, and a global turn budget bounds conversation mode.
//
// Failures inside one agent's turn never abort sibling turns or the
// session; only NotFound and validation errors at the API boundary surface
// to callers.
package engine
