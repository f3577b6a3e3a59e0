package core

import "time"

// SystemEventKind categorizes records emitted by the system responder.
type SystemEventKind string

const (
	// SystemEventResponse records a synthesized system reply.
	SystemEventResponse SystemEventKind = "system_response"
	// SystemEventError records a failure the responder observed.
	SystemEventError SystemEventKind = "error"
	// SystemEventNotification records an informational broadcast.
	SystemEventNotification SystemEventKind = "notification"
	// SystemEventStateChange records a session lifecycle transition.
	SystemEventStateChange SystemEventKind = "state_change"
	// SystemEventValidation records a validation outcome.
	SystemEventValidation SystemEventKind = "validation"
)

// Severity ranks system events for later filtering.
type Severity string

const (
	// SeverityInfo is the default severity.
	SeverityInfo Severity = "info"
	// SeverityWarning flags degraded but recoverable conditions.
	SeverityWarning Severity = "warning"
	// SeverityError flags failures.
	SeverityError Severity = "error"
	// SeveritySuccess flags positive confirmations.
	SeveritySuccess Severity = "success"
)

// SystemEvent is a narrow audit record emitted only by the system responder.
type SystemEvent struct {
	ID             string            `json:"id"`
	SessionID      string            `json:"sessionId"`
	Kind           SystemEventKind   `json:"type"`
	Content        string            `json:"content"`
	Timestamp      time.Time         `json:"timestamp"`
	TriggerAgentID string            `json:"triggerAgentId,omitempty"`
	AffectedAgents []string          `json:"affectedAgents,omitempty"`
	Severity       Severity          `json:"severity"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// CoordinationKind categorizes cross-agent coordination records.
type CoordinationKind string

const (
	// CoordinationAgentInteraction records agent-to-agent exchange.
	CoordinationAgentInteraction CoordinationKind = "agent_interaction"
	// CoordinationSystemIntervention records a system agent injection.
	CoordinationSystemIntervention CoordinationKind = "system_intervention"
	// CoordinationWorkflow records workflow-level coordination such as
	// multiple lanes acting at once.
	CoordinationWorkflow CoordinationKind = "workflow_coordination"
	// CoordinationConflictResolution records contention outcomes.
	CoordinationConflictResolution CoordinationKind = "conflict_resolution"
)

// CoordinationEvent is a pure audit record of agent-to-agent or
// agent-to-system coordination. It has no control-flow effect.
type CoordinationEvent struct {
	ID           string           `json:"id"`
	SessionID    string           `json:"sessionId"`
	Kind         CoordinationKind `json:"type"`
	Description  string           `json:"description"`
	Participants []string         `json:"participants"`
	Outcome      string           `json:"outcome,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}
