package core

import (
	"time"

	"github.com/google/uuid"
)

// Well known sender sentinels used in AgentMessage.FromAgentID.
const (
	// SystemSender marks messages authored by the system agent.
	SystemSender = "system"
	// UserSender marks messages injected by a human operator.
	UserSender = "user"
)

// MessageKind categorizes transcript messages.
type MessageKind string

const (
	// MessageDirect is addressed to a single agent.
	MessageDirect MessageKind = "direct"
	// MessageBroadcast is addressed to every agent in the session.
	MessageBroadcast MessageKind = "broadcast"
	// MessageCoordination carries session-wide orchestration framing.
	MessageCoordination MessageKind = "coordination"
	// MessageAnalysis carries analysis output.
	MessageAnalysis MessageKind = "analysis"
	// MessageWorkflowAction is an agent's response to a workflow action.
	MessageWorkflowAction MessageKind = "workflow_action"
	// MessageSystemFeedback is a system agent reply to an agent message.
	MessageSystemFeedback MessageKind = "system_feedback"
)

// ResponseType classifies a system feedback reply by the intent of the
// message that triggered it.
type ResponseType string

const (
	// ResponseErrorHandling replies to error/problem reports.
	ResponseErrorHandling ResponseType = "error_handling"
	// ResponseConfirmation replies to state changing actions.
	ResponseConfirmation ResponseType = "confirmation"
	// ResponseGuidance replies to help requests.
	ResponseGuidance ResponseType = "guidance"
	// ResponseFeedback is the default ambient reply classification.
	ResponseFeedback ResponseType = "feedback"
)

// MessageMeta carries the per-kind metadata a message needs. It replaces the
// free-form metadata bag of earlier revisions with a fixed shape so consumers
// do not have to type-assert.
type MessageMeta struct {
	AgentName     string       `json:"agentName,omitempty"`
	MessageNumber int          `json:"messageNumber,omitempty"`
	Topic         string       `json:"topic,omitempty"`
	TotalAgents   int          `json:"totalAgents,omitempty"`
	FromUser      bool         `json:"fromUser,omitempty"`
	ResponseType  ResponseType `json:"responseType,omitempty"`
	ActionID      string       `json:"actionId,omitempty"`
	Fallback      bool         `json:"fallback,omitempty"`
}

// AgentMessage is the atomic unit of communication. Once appended to a
// session transcript it is immutable; Seq is assigned by the session and is
// the authoritative ordering for replay and analysis.
type AgentMessage struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"sessionId"`
	FromAgentID string          `json:"fromAgentId"`
	ToAgentID   string          `json:"toAgentId,omitempty"` // empty means broadcast
	Kind        MessageKind     `json:"type"`
	Content     string          `json:"content"`
	Timestamp   time.Time       `json:"timestamp"`
	Seq         int64           `json:"seq"`
	Action      *WorkflowAction `json:"action,omitempty"`
	Meta        MessageMeta     `json:"metadata"`
}

// NewAgentMessage constructs a message ready for transcript append. ID is
// assigned here; Timestamp and Seq are assigned on append.
func NewAgentMessage(sessionID, from string, kind MessageKind, content string) AgentMessage {
	return AgentMessage{
		ID:          NewID(),
		SessionID:   sessionID,
		FromAgentID: from,
		Kind:        kind,
		Content:     content,
	}
}

// NewID generates a unique identifier for messages, events and agents.
func NewID() string { return uuid.NewString() }
