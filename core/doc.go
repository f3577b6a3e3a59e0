// Package core contains the domain model for PersonaMesh: persona agents,
// the per-session system agent, workflows with swim lanes, the message /
// event taxonomy and the MultiAgentSession aggregate that owns all of them.
//
// Types in this package carry no orchestration logic beyond aggregate
// invariants (append-only transcripts, monotonic status transitions,
// strictly ordered workflow cursors). Drivers live in the engine package.
package core
