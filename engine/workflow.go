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

// startWorkflow runs structured mode: every agent whose lane carries at
// least one action is walked through its action list concurrently. Lanes
// have no ordering dependency on each other regardless of the workflow's
// declared collaboration type; within one lane actions are strictly ordered.
func (e *Engine) startWorkflow(run *sessionRun, sess *core.MultiAgentSession) {
	sess.TransitionTo(core.SessionActive)

	for _, id := range sess.AgentIDs() {
		if sess.CurrentActionOf(id) == nil {
			continue
		}
		go e.runLane(run, sess, id)
	}
}

// runLane is the per-agent workflow state machine: idle -> acting -> idle
// until the lane is exhausted (terminal, CurrentAction nil). Generation
// failures retry with bounded exponential backoff; exhausting the retries
// parks the agent as stalled with its current action unchanged, a
// recoverable fault that never fails the session.
func (e *Engine) runLane(run *sessionRun, sess *core.MultiAgentSession, agentID string) {
	for {
		if run.ctx.Err() != nil {
			sess.SetAgentStatus(agentID, core.AgentIdle)
			return
		}
		current := sess.CurrentActionOf(agentID)
		if current == nil {
			break
		}
		action := *current
		agent := sess.Agent(agentID)

		sess.SetAgentStatus(agentID, core.AgentActing)
		e.recordLaneContention(sess)

		text, err := e.generateActionResponse(run.ctx, sess, agentID, action)
		if err != nil {
			// Session cancellation is not a generation fault; leave quietly.
			if errors.Is(err, context.Canceled) {
				sess.SetAgentStatus(agentID, core.AgentIdle)
				return
			}
			sess.SetAgentStatus(agentID, core.AgentStalled)
			sess.AppendSystemEvent(core.SystemEvent{
				SessionID:      sess.ID,
				Kind:           core.SystemEventError,
				Content:        fmt.Sprintf("agent %s stalled on action %q: %v", agent.Name, action.Title, err),
				TriggerAgentID: agentID,
				Severity:       core.SeverityError,
			})
			e.logger.Warn("agent stalled on workflow action",
				"session_id", sess.ID,
				"agent_id", agentID,
				"action_id", action.ID,
				"error", err,
			)
			return
		}

		sess.MarkAgentResponded(agentID)
		msg := core.NewAgentMessage(sess.ID, agentID, core.MessageWorkflowAction, text)
		msg.Action = &action
		msg.Meta = core.MessageMeta{
			AgentName:     agent.Name,
			MessageNumber: sess.Agent(agentID).MessageCount,
			ActionID:      action.ID,
		}
		msg = sess.AppendMessage(msg)
		e.publish(bus.ExchangeAgents, bus.WorkflowActionKey(agentID), msg)

		go e.evaluateSystemResponse(run, sess, msg)

		_, terminal := sess.AdvanceAction(agentID)
		sess.SetAgentStatus(agentID, core.AgentIdle)
		if terminal {
			break
		}
	}

	if sess.AllAgentsTerminal() {
		e.completeSession(run, sess)
	}
}

// generateActionResponse produces the agent's response for one workflow
// action. A timed-out generation falls back to a canned acknowledgement;
// provider errors retry with doubling backoff up to MaxActionRetries.
func (e *Engine) generateActionResponse(ctx context.Context, sess *core.MultiAgentSession, agentID string, action core.WorkflowAction) (string, error) {
	agent := sess.Agent(agentID)
	req := model.Request{
		SystemPrompt: e.actionPrompt(sess, agent, action),
		UserPrompt:   fmt.Sprintf("Perform the step %q and describe, in character, what you do and experience.", action.Title),
		MaxTokens:    e.cfg.ResponseMaxTokens,
		Temperature:  e.cfg.ResponseTemperature,
	}

	backoff := e.cfg.RetryBackoffBase
	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxActionRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, err := e.generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Sprintf("%s works through %q.", agent.Name, action.Title), nil
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("action generation exhausted %d retries: %w", e.cfg.MaxActionRetries, lastErr)
}

// actionPrompt frames a workflow action generation with the persona
// snapshot, the product context and the lane position.
func (e *Engine) actionPrompt(sess *core.MultiAgentSession, agent *core.PersonaAgent, action core.WorkflowAction) string {
	p := agent.Persona
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, testing a product by walking through an assigned task list.\n\n", agent.Name)
	if sess.SystemInfo != nil {
		if sess.SystemInfo.Title != "" {
			fmt.Fprintf(&sb, "Product: %s\n", sess.SystemInfo.Title)
		}
		if sess.SystemInfo.Description != "" {
			fmt.Fprintf(&sb, "Description: %s\n", sess.SystemInfo.Description)
		}
		if sess.SystemInfo.TargetPlatform != "" {
			fmt.Fprintf(&sb, "Platform: %s\n", sess.SystemInfo.TargetPlatform)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Your Background:\n")
	if p.Occupation != "" {
		fmt.Fprintf(&sb, "- Occupation: %s\n", p.Occupation)
	}
	if p.Introduction != "" {
		fmt.Fprintf(&sb, "- About you: %s\n", p.Introduction)
	}
	fmt.Fprintf(&sb, "\nCurrent step (#%d): %s", action.Order, action.Title)
	if action.Description != "" {
		fmt.Fprintf(&sb, " - %s", action.Description)
	}
	sb.WriteString("\n\nDescribe in 2-3 sentences, first person and in character, how you perform this step, including any friction you hit.")
	return sb.String()
}

// recordLaneContention emits a coordination event whenever more than one
// agent is acting at the same time, surfacing lane parallelism for the
// analysis phase.
func (e *Engine) recordLaneContention(sess *core.MultiAgentSession) {
	acting := sess.ActingAgentIDs()
	if len(acting) < 2 {
		return
	}
	sess.AppendCoordination(core.CoordinationEvent{
		SessionID:    sess.ID,
		Kind:         core.CoordinationWorkflow,
		Description:  fmt.Sprintf("%d agents acting concurrently", len(acting)),
		Participants: acting,
		Outcome:      "parallel execution",
	})
}
