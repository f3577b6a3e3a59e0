package core

import (
	"testing"
	"time"
)

func workflowFixture() *Workflow {
	wf := &Workflow{
		ID:   "wf1",
		Name: "Checkout",
		SwimLanes: []WorkflowLane{
			{
				ID:        "L1",
				Name:      "Shopper",
				PersonaID: "p1",
				Actions: []WorkflowAction{
					{ID: "a2", Title: "Pay", Order: 2},
					{ID: "a1", Title: "Sign up", Order: 1},
					{ID: "a3", Title: "Review", Order: 3},
				},
			},
		},
	}
	wf.Normalize()
	return wf
}

func TestSession_TranscriptAppendOnlyAndOrdered(t *testing.T) {
	s := NewSession("s1", "test", "")
	for i := 0; i < 5; i++ {
		s.AppendMessage(NewAgentMessage(s.ID, "a1", MessageBroadcast, "hello"))
	}
	msgs := s.Transcript()
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].Seq <= msgs[i-1].Seq {
			t.Errorf("seq not strictly increasing at %d", i)
		}
		if msgs[i].Timestamp.Before(msgs[i-1].Timestamp) {
			t.Errorf("timestamp order violated at %d", i)
		}
	}
	// Mutating the returned slice must not touch the transcript.
	msgs[0].Content = "changed"
	if s.Transcript()[0].Content != "hello" {
		t.Error("transcript entries must be immutable")
	}
}

func TestSession_StatusTransitionsMonotonic(t *testing.T) {
	s := NewSession("s1", "test", "")
	if !s.TransitionTo(SessionActive) {
		t.Fatal("initializing -> active should be allowed")
	}
	if s.TransitionTo(SessionInitializing) {
		t.Error("active -> initializing must be rejected")
	}
	if !s.TransitionTo(SessionCompleted) {
		t.Fatal("active -> completed should be allowed")
	}
	if s.TransitionTo(SessionActive) {
		t.Error("completed is terminal")
	}
	if s.TransitionTo(SessionError) {
		t.Error("completed -> error must be rejected")
	}
	if s.TransitionTo(SessionCompleted) {
		t.Error("repeated transition must report no change")
	}
}

func TestSession_ErrorReachableFromAnyNonTerminalState(t *testing.T) {
	s := NewSession("s1", "test", "")
	if !s.TransitionTo(SessionError) {
		t.Error("initializing -> error should be allowed")
	}
	s2 := NewSession("s2", "test", "")
	s2.TransitionTo(SessionActive)
	if !s2.TransitionTo(SessionError) {
		t.Error("active -> error should be allowed")
	}
}

func TestSession_AdvanceActionStrictOrder(t *testing.T) {
	s := NewSession("s1", "test", "")
	s.Workflow = workflowFixture()
	first := s.Workflow.SwimLanes[0].Actions[0]
	s.Agents = append(s.Agents, &PersonaAgent{
		ID:            "agent1",
		PersonaID:     "p1",
		Name:          "Pat",
		Status:        AgentIdle,
		LaneID:        "L1",
		CurrentAction: &first,
	})

	var observed []int
	observed = append(observed, s.Agent("agent1").CurrentAction.Order)
	for {
		next, terminal := s.AdvanceAction("agent1")
		if terminal {
			break
		}
		observed = append(observed, next.Order)
	}
	want := []int{1, 2, 3}
	if len(observed) != len(want) {
		t.Fatalf("observed %v, want %v", observed, want)
	}
	for i := range want {
		if observed[i] != want[i] {
			t.Fatalf("observed %v, want %v", observed, want)
		}
	}
	if s.Agent("agent1").CurrentAction != nil {
		t.Error("terminal agent must have nil current action")
	}
	if !s.AllAgentsTerminal() {
		t.Error("session should report all agents terminal")
	}
	// Advancing a terminal agent is a no-op.
	if _, terminal := s.AdvanceAction("agent1"); terminal {
		t.Error("advancing a terminal agent must not report a new terminal transition")
	}
}

func TestSession_SetAnalysisOnce(t *testing.T) {
	s := NewSession("s1", "test", "")
	first := &AnalysisResult{Summary: "first", GeneratedAt: time.Now()}
	if !s.SetAnalysis(first) {
		t.Fatal("first analysis should be stored")
	}
	if s.SetAnalysis(&AnalysisResult{Summary: "second"}) {
		t.Error("second analysis must be rejected")
	}
	if s.Analysis().Summary != "first" {
		t.Error("stored analysis must not be replaced")
	}
}

func TestSession_SnapshotIsIndependent(t *testing.T) {
	s := NewSession("s1", "test", "")
	s.Agents = append(s.Agents, &PersonaAgent{ID: "agent1", Name: "Pat", Status: AgentIdle})
	s.AppendMessage(NewAgentMessage(s.ID, "agent1", MessageBroadcast, "hi"))

	snap := s.Snapshot()
	s.SetAgentStatus("agent1", AgentActing)
	s.AppendMessage(NewAgentMessage(s.ID, "agent1", MessageBroadcast, "again"))

	if snap.Agents[0].Status != AgentIdle {
		t.Error("snapshot agent must not observe later mutation")
	}
	if len(snap.Messages) != 1 {
		t.Errorf("snapshot transcript grew: %d", len(snap.Messages))
	}
}

func TestSession_CompareAndSetAgentStatus(t *testing.T) {
	s := NewSession("s1", "test", "")
	s.Agents = append(s.Agents, &PersonaAgent{ID: "agent1", Name: "Pat", Status: AgentWaitingForSystem})

	if !s.CompareAndSetAgentStatus("agent1", AgentWaitingForSystem, AgentIdle) {
		t.Fatal("swap from the expected status should succeed")
	}
	if got := s.AgentStatusOf("agent1"); got != AgentIdle {
		t.Errorf("status = %q, want idle", got)
	}

	s.SetAgentStatus("agent1", AgentActing)
	if s.CompareAndSetAgentStatus("agent1", AgentWaitingForSystem, AgentIdle) {
		t.Error("swap must fail once the status has moved on")
	}
	if got := s.AgentStatusOf("agent1"); got != AgentActing {
		t.Errorf("status = %q, want acting untouched", got)
	}
	if s.CompareAndSetAgentStatus("ghost", AgentActing, AgentIdle) {
		t.Error("unknown agent must not swap")
	}
}

func TestSession_PendingSystemResponseFlag(t *testing.T) {
	s := NewSession("s1", "test", "")
	s.Agents = append(s.Agents, &PersonaAgent{ID: "agent1", Name: "Pat", Status: AgentIdle})
	s.SetPendingSystemResponse("agent1", true)
	if !s.Agent("agent1").PendingSystemResponse {
		t.Fatal("flag should be set")
	}
	s.SetPendingSystemResponse("agent1", false)
	a := s.Agent("agent1")
	if a.PendingSystemResponse {
		t.Error("flag should be cleared")
	}
	if a.LastSystemContact.IsZero() {
		t.Error("clearing the flag must stamp last system contact")
	}
}
