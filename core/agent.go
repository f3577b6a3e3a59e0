package core

import "time"

// AgentStatus describes where a persona agent currently is in its turn cycle.
type AgentStatus string

const (
	// AgentIdle means the agent is waiting for something to react to.
	AgentIdle AgentStatus = "idle"
	// AgentThinking means a generation call is in flight for the agent.
	AgentThinking AgentStatus = "thinking"
	// AgentResponding means the agent has just emitted a message.
	AgentResponding AgentStatus = "responding"
	// AgentListening means the agent observed a message addressed to the group.
	AgentListening AgentStatus = "listening"
	// AgentActing means the agent is executing its current workflow action.
	AgentActing AgentStatus = "acting"
	// AgentWaitingForSystem means the agent has an outstanding system reply pending.
	AgentWaitingForSystem AgentStatus = "waiting_for_system"
	// AgentStalled means generation for the agent's current action exhausted
	// its retries; the action is parked until a manual nudge or session end.
	AgentStalled AgentStatus = "stalled"
)

// PersonaAgent is one persona participating in one session. It is owned
// exclusively by its session; all mutation happens under the session lock.
//
// Contract:
//   - Persona is copied at session start and immutable thereafter
//   - CurrentAction is nil exactly when the agent has exhausted its lane
//     (workflow mode) or the session has no workflow
//   - The sequence of CurrentAction.Order values observed over time is
//     strictly increasing
type PersonaAgent struct {
	ID                    string          `json:"id"`
	PersonaID             string          `json:"personaId"`
	Name                  string          `json:"name"`
	Persona               Persona         `json:"persona"`
	Status                AgentStatus     `json:"status"`
	MessageCount          int             `json:"messageCount"`
	LastActivity          time.Time       `json:"lastActivity"`
	CurrentAction         *WorkflowAction `json:"currentAction,omitempty"`
	LaneID                string          `json:"laneId,omitempty"`
	PendingSystemResponse bool            `json:"pendingSystemResponse"`
	LastSystemContact     time.Time       `json:"lastSystemContact,omitempty"`
}

// SystemAgentType categorizes system agent implementations.
type SystemAgentType string

// SystemAgentCoordinator is the only system agent type in use today.
const SystemAgentCoordinator SystemAgentType = "coordinator"

// SystemAgent represents the environment the personas interact with. Exactly
// one exists per session and it never migrates between sessions.
type SystemAgent struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Type         SystemAgentType  `json:"type"`
	Status       AgentStatus      `json:"status"`
	Capabilities []string         `json:"capabilities"`
	Patterns     ResponsePatterns `json:"responsePatterns"`
}

// ResponsePatterns holds canned reply templates per category. They flavor
// synthesized replies and serve as fallback text when generation times out.
type ResponsePatterns struct {
	Success      []string `json:"success"`
	Error        []string `json:"error"`
	Guidance     []string `json:"guidance"`
	Confirmation []string `json:"confirmation"`
}

// DefaultResponsePatterns returns the stock coordinator reply templates.
func DefaultResponsePatterns() ResponsePatterns {
	return ResponsePatterns{
		Success: []string{
			"Your request was processed successfully.",
			"Done. The system has recorded your input.",
		},
		Error: []string{
			"Something went wrong handling that request. Please try again.",
			"The system hit an error processing your last step.",
		},
		Guidance: []string{
			"Here is some guidance on how to proceed with the current step.",
			"You can continue by completing the highlighted action.",
		},
		Confirmation: []string{
			"Confirmed. Your change has been saved.",
			"Acknowledged. The system has applied your update.",
		},
	}
}

// NewSystemAgent constructs the coordinator agent for a session.
func NewSystemAgent(sessionID string) *SystemAgent {
	return &SystemAgent{
		ID:     "system_" + sessionID,
		Name:   "System",
		Type:   SystemAgentCoordinator,
		Status: AgentIdle,
		Capabilities: []string{
			"acknowledge",
			"error_feedback",
			"guidance",
			"state_tracking",
		},
		Patterns: DefaultResponsePatterns(),
	}
}
