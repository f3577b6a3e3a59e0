package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/personamesh/core"
)

// responderFixture hands back a live session with one persona agent whose
// run is already registered on the engine.
func responderFixture(t *testing.T, e *Engine) (*core.MultiAgentSession, string, *sessionRun) {
	t.Helper()
	sess := core.NewSession(core.NewID(), "fixture", "")
	sess.Agents = append(sess.Agents, &core.PersonaAgent{
		ID:        "agent_p1_test",
		PersonaID: "p1",
		Name:      "Maya",
		Persona:   core.Persona{ID: "p1", Name: "Maya", Occupation: "nurse"},
		Status:    core.AgentIdle,
	})
	sess.TransitionTo(core.SessionActive)
	require.NoError(t, e.store.Put(sess))
	return sess, "agent_p1_test", e.runFor(sess)
}

func TestShouldSystemRespond(t *testing.T) {
	e, _ := testEngine() // rand 0.99 keeps the baseline branch silent

	msg := func(kind core.MessageKind, content string) core.AgentMessage {
		return core.AgentMessage{Kind: kind, Content: content}
	}

	assert.True(t, e.shouldSystemRespond(msg(core.MessageBroadcast, "I got an ERROR on checkout")))
	assert.True(t, e.shouldSystemRespond(msg(core.MessageBroadcast, "how to change my address?")))
	assert.True(t, e.shouldSystemRespond(msg(core.MessageWorkflowAction, "clicking around happily")))
	assert.False(t, e.shouldSystemRespond(msg(core.MessageBroadcast, "lovely weather today")))

	e.randFloat = func() float64 { return 0.0 }
	assert.True(t, e.shouldSystemRespond(msg(core.MessageBroadcast, "lovely weather today")),
		"baseline probability must apply when no trigger matched")
}

func TestClassifyResponse(t *testing.T) {
	cases := []struct {
		content string
		want    core.ResponseType
	}{
		{"I hit a problem submitting", core.ResponseErrorHandling},
		{"can't find the button", core.ResponseErrorHandling},
		{"please save my draft", core.ResponseConfirmation},
		{"I want to delete my account", core.ResponseConfirmation},
		{"how to get started?", core.ResponseGuidance},
		{"a bit confused here", core.ResponseGuidance},
		{"this flow feels smooth", core.ResponseFeedback},
	}
	for _, tc := range cases {
		got := classifyResponse(core.AgentMessage{Content: tc.content})
		assert.Equal(t, tc.want, got, "content %q", tc.content)
	}
}

func TestEvaluateSystemResponse_AppendsFeedback(t *testing.T) {
	e, completer := testEngine()
	completer.RespondWith("Your form was saved successfully.")
	sess, agentID, run := responderFixture(t, e)

	msg := core.NewAgentMessage(sess.ID, agentID, core.MessageBroadcast, "I tried to save my profile but got an error")
	msg = sess.AppendMessage(msg)

	e.evaluateSystemResponse(run, sess, msg)

	transcript := sess.Transcript()
	require.Len(t, transcript, 2)
	reply := transcript[1]
	assert.Equal(t, core.MessageSystemFeedback, reply.Kind)
	assert.Equal(t, core.SystemSender, reply.FromAgentID)
	assert.Equal(t, agentID, reply.ToAgentID)
	assert.Equal(t, core.ResponseErrorHandling, reply.Meta.ResponseType)
	assert.False(t, reply.Meta.Fallback)

	agent := sess.Agent(agentID)
	assert.False(t, agent.PendingSystemResponse, "pending flag must clear after the reply")
	assert.Equal(t, core.AgentIdle, sess.AgentStatusOf(agentID))
	assert.False(t, agent.LastSystemContact.IsZero())

	// One coordination entry records the intervention.
	snap := sess.Snapshot()
	require.Len(t, snap.CoordinationLog, 1)
	assert.Equal(t, core.CoordinationSystemIntervention, snap.CoordinationLog[0].Kind)
	assert.Equal(t, string(core.ResponseErrorHandling), snap.CoordinationLog[0].Outcome)
}

func TestEvaluateSystemResponse_SkipsSentinels(t *testing.T) {
	e, _ := testEngine()
	sess, _, run := responderFixture(t, e)

	for _, from := range []string{core.SystemSender, core.UserSender} {
		msg := core.NewAgentMessage(sess.ID, from, core.MessageBroadcast, "error error error")
		msg = sess.AppendMessage(msg)
		e.evaluateSystemResponse(run, sess, msg)
	}
	assert.Zero(t, countKind(sess.Transcript(), core.MessageSystemFeedback))
}

func TestEvaluateSystemResponse_GenerationFailureKeepsPending(t *testing.T) {
	e, completer := testEngine()
	completer.FailWith(errors.New("provider down"))
	sess, agentID, run := responderFixture(t, e)

	msg := core.NewAgentMessage(sess.ID, agentID, core.MessageBroadcast, "stuck on the login page")
	msg = sess.AppendMessage(msg)

	e.evaluateSystemResponse(run, sess, msg)

	assert.Zero(t, countKind(sess.Transcript(), core.MessageSystemFeedback))
	assert.True(t, sess.Agent(agentID).PendingSystemResponse)
	assert.Equal(t, core.AgentWaitingForSystem, sess.AgentStatusOf(agentID))

	snap := sess.Snapshot()
	require.NotEmpty(t, snap.SystemEvents)
	assert.Equal(t, core.SystemEventError, snap.SystemEvents[len(snap.SystemEvents)-1].Kind)
}

func TestEvaluateSystemResponse_TimeoutFallsBackToCanned(t *testing.T) {
	e, completer := testEngine(func(o *Options) {
		o.Config.GenerationTimeout = 10 * time.Millisecond
	})
	completer.SetDelay(200 * time.Millisecond)
	sess, agentID, run := responderFixture(t, e)

	msg := core.NewAgentMessage(sess.ID, agentID, core.MessageBroadcast, "please confirm my order was created")
	msg = sess.AppendMessage(msg)

	e.evaluateSystemResponse(run, sess, msg)

	transcript := sess.Transcript()
	require.Len(t, transcript, 2)
	reply := transcript[1]
	assert.Equal(t, core.MessageSystemFeedback, reply.Kind)
	assert.True(t, reply.Meta.Fallback)
	assert.Equal(t, core.ResponseConfirmation, reply.Meta.ResponseType)
	assert.Contains(t, sess.SystemAgent.Patterns.Confirmation, reply.Content)
}

func TestEvaluateSystemResponse_DoesNotClobberActingAgent(t *testing.T) {
	e, completer := testEngine()
	completer.SetDelay(100 * time.Millisecond)
	sess, agentID, run := responderFixture(t, e)

	msg := core.NewAgentMessage(sess.ID, agentID, core.MessageWorkflowAction, "filling the signup form")
	msg = sess.AppendMessage(msg)

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.evaluateSystemResponse(run, sess, msg)
	}()

	// Wait for the responder to park the agent, then pick it up again the
	// way a workflow lane starting the next action would.
	require.Eventually(t, func() bool {
		return sess.AgentStatusOf(agentID) == core.AgentWaitingForSystem
	}, time.Second, time.Millisecond)
	sess.SetAgentStatus(agentID, core.AgentActing)

	<-done
	assert.Equal(t, 1, countKind(sess.Transcript(), core.MessageSystemFeedback))
	assert.Equal(t, core.AgentActing, sess.AgentStatusOf(agentID),
		"an agent already acting again keeps its status")
	assert.False(t, sess.Agent(agentID).PendingSystemResponse)
}

func TestCannedResponse_EmptyPool(t *testing.T) {
	e, _ := testEngine()
	sys := core.NewSystemAgent("s1")
	sys.Patterns = core.ResponsePatterns{}
	assert.Equal(t, "Acknowledged.", e.cannedResponse(sys, core.ResponseGuidance))
}

func TestEvaluateSystemResponse_CancelledRunIsNoop(t *testing.T) {
	e, _ := testEngine()
	sess, agentID, run := responderFixture(t, e)
	run.cancel()

	msg := core.NewAgentMessage(sess.ID, agentID, core.MessageBroadcast, "error!")
	msg = sess.AppendMessage(msg)
	e.evaluateSystemResponse(run, sess, msg)

	assert.Zero(t, countKind(sess.Transcript(), core.MessageSystemFeedback))
}
