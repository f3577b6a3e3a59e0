package engine

import (
	"fmt"

	"github.com/hupe1980/personamesh/core"
)

// recordSystemIntervention audits one system responder injection. Pure
// recorder; it never influences control flow.
func (e *Engine) recordSystemIntervention(sess *core.MultiAgentSession, agentID string, responseType core.ResponseType) {
	agentName := agentID
	if agent := sess.Agent(agentID); agent != nil {
		agentName = agent.Name
	}
	sess.AppendCoordination(core.CoordinationEvent{
		SessionID:    sess.ID,
		Kind:         core.CoordinationSystemIntervention,
		Description:  fmt.Sprintf("system replied to %s", agentName),
		Participants: []string{sess.SystemAgent.ID, agentID},
		Outcome:      string(responseType),
	})
}
