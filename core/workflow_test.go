package core

import "testing"

func TestWorkflow_NormalizeSortsActions(t *testing.T) {
	wf := workflowFixture()
	actions := wf.SwimLanes[0].Actions
	for i := 1; i < len(actions); i++ {
		if actions[i].Order < actions[i-1].Order {
			t.Fatalf("actions not sorted: %+v", actions)
		}
	}
}

func TestWorkflow_LaneLookups(t *testing.T) {
	wf := workflowFixture()
	if wf.Lane("L1") == nil {
		t.Error("expected lane L1")
	}
	if wf.Lane("missing") != nil {
		t.Error("unknown lane id should return nil")
	}
	if lane := wf.LaneForPersona("p1"); lane == nil || lane.ID != "L1" {
		t.Error("expected persona p1 to map to lane L1")
	}
	if wf.LaneForPersona("p9") != nil {
		t.Error("unknown persona should return nil lane")
	}
}
