package engine

import (
	"encoding/json"

	"github.com/hupe1980/personamesh/core"
)

// handleAgentMessage consumes agent traffic echoed back from the broker and
// tracks the sender as listening. Purely observational; drivers do not
// depend on the broker round trip.
func (e *Engine) handleAgentMessage(payload []byte) {
	var msg core.AgentMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		e.logger.Warn("failed to decode agent message from bus", "error", err)
		return
	}
	sess, agent, ok := e.store.FindAgent(msg.FromAgentID)
	if !ok {
		return
	}
	sess.SetAgentStatus(agent.ID, core.AgentListening)
	e.logger.Debug("agent message observed on bus",
		"session_id", msg.SessionID,
		"from", msg.Meta.AgentName,
	)
}

// handleCoordinationMessage logs coordination broadcasts from the fanout
// exchange.
func (e *Engine) handleCoordinationMessage(payload []byte) {
	var msg core.AgentMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		e.logger.Warn("failed to decode coordination message from bus", "error", err)
		return
	}
	e.logger.Debug("coordination message observed on bus", "session_id", msg.SessionID)
}
