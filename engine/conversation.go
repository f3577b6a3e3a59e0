package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/personamesh/bus"
	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/model"
)

// thinkingFallback stands in for an agent reply when generation times out.
const thinkingFallback = "I'm thinking about this..."

// startConversation runs free-form discussion mode: a topic framing
// broadcast from the system sentinel, concurrent opening responses from
// every agent, then a probabilistic follow-up chain bounded by the turn
// budget and the session's cancellation token.
func (e *Engine) startConversation(run *sessionRun, sess *core.MultiAgentSession) {
	sess.TransitionTo(core.SessionActive)

	init := core.NewAgentMessage(sess.ID, core.SystemSender, core.MessageCoordination,
		fmt.Sprintf("Welcome to multi-agent discussion: %q. Please introduce yourself and share your perspective.", sess.Topic))
	init.Meta = core.MessageMeta{Topic: sess.Topic, TotalAgents: len(sess.AgentIDs())}
	init = sess.AppendMessage(init)
	e.publish(bus.ExchangeCoordination, "", init)

	for _, id := range sess.AgentIDs() {
		go e.triggerAgentResponse(run, sess, id, init)
	}
}

// triggerAgentResponse runs one agent turn: generate a reply to the prompt
// message conditioned on the persona snapshot, append it to the transcript,
// publish it, hand it to the system responder and schedule follow-ups.
// Failures revert the agent to idle and never propagate.
func (e *Engine) triggerAgentResponse(run *sessionRun, sess *core.MultiAgentSession, agentID string, prompt core.AgentMessage) {
	if run.ctx.Err() != nil || sess.CurrentStatus() != core.SessionActive {
		return
	}
	if int(run.turns.Add(1)) > e.cfg.MaxConversationTurns {
		e.logger.Info("conversation turn budget exhausted", "session_id", sess.ID)
		return
	}

	agent := sess.Agent(agentID)
	if agent == nil {
		return
	}
	start := time.Now()
	sess.SetAgentStatus(agentID, core.AgentThinking)

	text, err := e.generate(run.ctx, model.Request{
		SystemPrompt: e.personaPrompt(sess, agent),
		UserPrompt:   prompt.Content,
		MaxTokens:    e.cfg.ResponseMaxTokens,
		Temperature:  e.cfg.ResponseTemperature,
	})
	fallback := false
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			sess.SetAgentStatus(agentID, core.AgentIdle)
			return
		}
		text = thinkingFallback
		fallback = true
	}
	if sess.CurrentStatus() != core.SessionActive {
		sess.SetAgentStatus(agentID, core.AgentIdle)
		return
	}

	sess.MarkAgentResponded(agentID)
	msg := core.NewAgentMessage(sess.ID, agentID, core.MessageBroadcast, text)
	msg.Meta = core.MessageMeta{
		AgentName:     agent.Name,
		MessageNumber: sess.Agent(agentID).MessageCount,
		Fallback:      fallback,
	}
	msg = sess.AppendMessage(msg)
	e.publish(bus.ExchangeAgents, bus.AgentMessageKey(agentID), msg)
	e.logger.Debug("agent responded",
		"session_id", sess.ID,
		"agent_id", agentID,
		"duration", time.Since(start),
		"fallback", fallback,
	)

	go e.evaluateSystemResponse(run, sess, msg)
	sess.SetAgentStatus(agentID, core.AgentIdle)

	go e.triggerFollowUps(run, sess, msg)
}

// triggerFollowUps probabilistically selects up to MaxFollowUpResponders of
// the other idle agents to respond to msg, each after a jittered delay. The
// sender of msg is never its own respondent.
func (e *Engine) triggerFollowUps(run *sessionRun, sess *core.MultiAgentSession, msg core.AgentMessage) {
	if run.ctx.Err() != nil || sess.CurrentStatus() != core.SessionActive {
		return
	}

	limit := 1
	if e.cfg.MaxFollowUpResponders > 1 && e.randFloat() > 0.5 {
		limit = e.cfg.MaxFollowUpResponders
	}

	var selected []string
	for _, id := range sess.AgentIDs() {
		if len(selected) == limit {
			break
		}
		if id == msg.FromAgentID || sess.AgentStatusOf(id) != core.AgentIdle {
			continue
		}
		if e.randFloat() >= e.cfg.FollowUpProbability {
			continue
		}
		selected = append(selected, id)
	}

	for _, id := range selected {
		select {
		case <-run.ctx.Done():
			return
		case <-time.After(e.followUpDelay()):
		}
		e.triggerAgentResponse(run, sess, id, msg)
	}
}

// followUpDelay returns a jittered pause within the configured bounds.
func (e *Engine) followUpDelay() time.Duration {
	min, max := e.cfg.FollowUpDelayMin, e.cfg.FollowUpDelayMax
	if max <= min {
		return min
	}
	return min + time.Duration(e.randFloat()*float64(max-min))
}

// personaPrompt frames the generation call with the agent's immutable
// persona snapshot and the tail of the conversation.
func (e *Engine) personaPrompt(sess *core.MultiAgentSession, agent *core.PersonaAgent) string {
	p := agent.Persona
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, participating in a group discussion with %d other people.\n\n", agent.Name, len(sess.AgentIDs())-1)
	sb.WriteString("Your Background:\n")
	if p.Age > 0 {
		fmt.Fprintf(&sb, "- Age: %d\n", p.Age)
	}
	if p.Occupation != "" {
		fmt.Fprintf(&sb, "- Occupation: %s\n", p.Occupation)
	}
	if p.Location != "" {
		fmt.Fprintf(&sb, "- Location: %s\n", p.Location)
	}
	if len(p.PersonalityTraits) > 0 {
		fmt.Fprintf(&sb, "\nYour Personality:\n- Key traits: %s\n", strings.Join(p.PersonalityTraits, ", "))
	}
	sb.WriteString("\nInstructions:\n")
	fmt.Fprintf(&sb, "1. Respond as %s would, based on your background and personality\n", agent.Name)
	sb.WriteString("2. Keep responses conversational and under 2-3 sentences\n")
	sb.WriteString("3. Reference other participants' ideas when relevant\n")
	sb.WriteString("4. Show your unique perspective based on your background\n")

	recent := sess.RecentMessages(3)
	if len(recent) > 0 {
		sb.WriteString("\nPrevious messages in conversation:\n")
		for _, m := range recent {
			name := m.Meta.AgentName
			if name == "" {
				name = m.FromAgentID
			}
			fmt.Fprintf(&sb, "%s: %s\n", name, m.Content)
		}
	}
	fmt.Fprintf(&sb, "\nRespond naturally as %s:", agent.Name)
	return sb.String()
}
