package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/personamesh/core"
)

func analysisFixture(t *testing.T, e *Engine, wf *core.Workflow) *core.MultiAgentSession {
	t.Helper()
	sess := core.NewSession(core.NewID(), "fixture", "")
	sess.Workflow = wf
	sess.Agents = append(sess.Agents,
		&core.PersonaAgent{ID: "a1", PersonaID: "p1", Name: "Maya"},
		&core.PersonaAgent{ID: "a2", PersonaID: "p2", Name: "Jonas"},
	)
	for _, text := range []string{"first message", "second message", "third message"} {
		sess.AppendMessage(core.NewAgentMessage(sess.ID, "a1", core.MessageBroadcast, text))
	}
	require.NoError(t, e.store.Put(sess))
	return sess
}

func TestSynthesizeAnalysis_Conversation(t *testing.T) {
	e, completer := testEngine()
	completer.RespondWith("The group converged on affordability concerns.")
	sess := analysisFixture(t, e, nil)

	result := e.synthesizeAnalysis(sess)
	require.NotNil(t, result)
	assert.Equal(t, "The group converged on affordability concerns.", result.Summary)
	assert.Equal(t, 3, result.MessageCount)
	assert.Equal(t, 2, result.AgentCount)
	assert.False(t, result.Degraded)
	assert.False(t, result.GeneratedAt.IsZero())
}

func TestSynthesizeAnalysis_WorkflowJSON(t *testing.T) {
	e, completer := testEngine()
	completer.RespondWith("```json\n" + `{
		"summary": "Checkout flow mostly works.",
		"implications": [
			{"category": "ui", "severity": "high", "description": "Button hidden on mobile", "recommendation": "Raise above the fold"}
		],
		"painPoints": [
			{"laneId": "L1", "severity": "medium", "description": "Shopper waited on confirmation"}
		]
	}` + "\n```")
	sess := analysisFixture(t, e, twoLaneWorkflow())

	result := e.synthesizeAnalysis(sess)
	require.NotNil(t, result)
	assert.Equal(t, "Checkout flow mostly works.", result.Summary)

	require.Len(t, result.Implications, 1)
	assert.Equal(t, core.ImplicationUI, result.Implications[0].Category)
	assert.Equal(t, core.PainHigh, result.Implications[0].Severity)

	require.Len(t, result.PainPoints, 1)
	pp := result.PainPoints[0]
	assert.Equal(t, "L1", pp.LaneID)
	assert.Equal(t, "Shopper", pp.LaneName, "lane name enriched from the workflow")
	assert.Equal(t, "p1", pp.PersonaID)
}

func TestSynthesizeAnalysis_MalformedJSONKeepsRawText(t *testing.T) {
	e, completer := testEngine()
	completer.RespondWith("The walkthrough went fine overall, nothing structured to report.")
	sess := analysisFixture(t, e, twoLaneWorkflow())

	result := e.synthesizeAnalysis(sess)
	require.NotNil(t, result)
	assert.Equal(t, "The walkthrough went fine overall, nothing structured to report.", result.Summary)
	assert.Empty(t, result.Implications)
	assert.Empty(t, result.PainPoints)
}

func TestSynthesizeAnalysis_Degraded(t *testing.T) {
	e, completer := testEngine()
	completer.FailWith(errors.New("provider down"))
	sess := analysisFixture(t, e, nil)

	result := e.synthesizeAnalysis(sess)
	require.NotNil(t, result)
	assert.True(t, result.Degraded)
	assert.Equal(t, "Analysis generation failed", result.Summary)
	assert.Equal(t, 3, result.MessageCount)
	assert.Equal(t, 2, result.AgentCount)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
