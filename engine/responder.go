package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/personamesh/bus"
	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/model"
)

// triggerPhrases force a system reply whenever one appears in a message.
// Matching is case-insensitive substring search.
var triggerPhrases = []string{
	"help", "error", "problem", "stuck", "confused", "how to",
	"can't", "unable", "submit", "save", "confirm", "delete",
	"create", "update",
}

// shouldSystemRespond implements the responder decision policy: trigger
// phrases always elicit a reply, workflow action responses always elicit a
// reply, everything else replies with the baseline probability to simulate
// ambient system chatter.
func (e *Engine) shouldSystemRespond(msg core.AgentMessage) bool {
	content := strings.ToLower(msg.Content)
	for _, phrase := range triggerPhrases {
		if strings.Contains(content, phrase) {
			return true
		}
	}
	if msg.Kind == core.MessageWorkflowAction {
		return true
	}
	return e.randFloat() < e.cfg.BaselineResponseProbability
}

// classifyResponse derives the reply classification from the triggering
// message, scanning for intent keywords.
func classifyResponse(msg core.AgentMessage) core.ResponseType {
	content := strings.ToLower(msg.Content)
	switch {
	case containsAny(content, "error", "problem", "stuck", "can't", "unable", "fail"):
		return core.ResponseErrorHandling
	case containsAny(content, "submit", "save", "confirm", "delete", "create", "update"):
		return core.ResponseConfirmation
	case containsAny(content, "help", "how to", "confused", "guide"):
		return core.ResponseGuidance
	default:
		return core.ResponseFeedback
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// evaluateSystemResponse decides whether the system agent replies to msg
// and, if so, synthesizes and appends that reply. Messages authored by the
// system or user sentinels are never evaluated. Generation failure leaves
// the agent's pending flag set; it will appear as waiting_for_system until a
// later successful attempt or session end.
func (e *Engine) evaluateSystemResponse(run *sessionRun, sess *core.MultiAgentSession, msg core.AgentMessage) {
	if msg.FromAgentID == core.SystemSender || msg.FromAgentID == core.UserSender {
		return
	}
	if run.ctx.Err() != nil {
		return
	}
	if !e.shouldSystemRespond(msg) {
		return
	}

	agentID := msg.FromAgentID
	sess.SetPendingSystemResponse(agentID, true)
	sess.SetAgentStatus(agentID, core.AgentWaitingForSystem)

	responseType := classifyResponse(msg)
	text, err := e.generate(run.ctx, model.Request{
		SystemPrompt: e.systemResponderPrompt(sess, agentID),
		UserPrompt:   msg.Content,
		MaxTokens:    e.cfg.ResponseMaxTokens,
		Temperature:  e.cfg.ResponseTemperature,
	})
	fallback := false
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			sess.AppendSystemEvent(core.SystemEvent{
				SessionID:      sess.ID,
				Kind:           core.SystemEventError,
				Content:        fmt.Sprintf("system response generation failed: %v", err),
				TriggerAgentID: agentID,
				Severity:       core.SeverityError,
			})
			return
		}
		text = e.cannedResponse(sess.SystemAgent, responseType)
		fallback = true
	}

	reply := core.NewAgentMessage(sess.ID, core.SystemSender, core.MessageSystemFeedback, text)
	reply.ToAgentID = agentID
	reply.Meta = core.MessageMeta{
		AgentName:    sess.SystemAgent.Name,
		ResponseType: responseType,
		Fallback:     fallback,
	}
	reply = sess.AppendMessage(reply)

	sess.AppendSystemEvent(core.SystemEvent{
		SessionID:      sess.ID,
		Kind:           core.SystemEventResponse,
		Content:        text,
		TriggerAgentID: agentID,
		AffectedAgents: []string{agentID},
		Severity:       core.SeverityInfo,
		Metadata:       map[string]string{"responseType": string(responseType)},
	})
	sess.SetPendingSystemResponse(agentID, false)
	// A workflow lane may have moved the agent to acting while we were
	// generating; only release it if it is still waiting on us.
	sess.CompareAndSetAgentStatus(agentID, core.AgentWaitingForSystem, core.AgentIdle)
	e.publish(bus.ExchangeAgents, bus.SystemResponseKey(agentID), reply)
	e.recordSystemIntervention(sess, agentID, responseType)
}

// cannedResponse picks a flavor template for the response type; used when
// generation timed out.
func (e *Engine) cannedResponse(sys *core.SystemAgent, responseType core.ResponseType) string {
	var pool []string
	switch responseType {
	case core.ResponseErrorHandling:
		pool = sys.Patterns.Error
	case core.ResponseConfirmation:
		pool = sys.Patterns.Confirmation
	case core.ResponseGuidance:
		pool = sys.Patterns.Guidance
	default:
		pool = sys.Patterns.Success
	}
	if len(pool) == 0 {
		return "Acknowledged."
	}
	idx := int(e.randFloat() * float64(len(pool)))
	if idx >= len(pool) {
		idx = len(pool) - 1
	}
	return pool[idx]
}

// systemResponderPrompt frames the system reply with the session's declared
// product context and the acting agent's persona snapshot.
func (e *Engine) systemResponderPrompt(sess *core.MultiAgentSession, agentID string) string {
	var sb strings.Builder
	sb.WriteString("You are the system a group of test personas is interacting with. ")
	sb.WriteString("Reply briefly (1-2 sentences) as the product itself: acknowledgements, error feedback or guidance.\n")
	if info := sess.SystemInfo; info != nil {
		if info.Title != "" {
			fmt.Fprintf(&sb, "\nProduct: %s", info.Title)
		}
		if info.Description != "" {
			fmt.Fprintf(&sb, "\nDescription: %s", info.Description)
		}
		if info.TargetPlatform != "" {
			fmt.Fprintf(&sb, "\nPlatform: %s", info.TargetPlatform)
		}
	}
	if agent := sess.Agent(agentID); agent != nil {
		fmt.Fprintf(&sb, "\n\nThe user you are replying to: %s", agent.Name)
		if agent.Persona.Occupation != "" {
			fmt.Fprintf(&sb, " (%s)", agent.Persona.Occupation)
		}
	}
	return sb.String()
}
