package core

import "sort"

// CollaborationType declares how a workflow's lanes relate to each other.
// The engine currently runs all lanes concurrently regardless of this value;
// the field is carried for callers that want to render or later gate on it.
type CollaborationType string

const (
	// CollaborationSequential declares lanes as logically ordered.
	CollaborationSequential CollaborationType = "sequential"
	// CollaborationParallel declares lanes as independent.
	CollaborationParallel CollaborationType = "parallel"
	// CollaborationHybrid declares a mix of ordered and independent lanes.
	CollaborationHybrid CollaborationType = "hybrid"
)

// WorkflowAction is one step inside a swim lane. Actions within a lane are
// processed strictly in ascending Order.
type WorkflowAction struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Description   string `json:"description,omitempty"`
	Order         int    `json:"order"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
}

// WorkflowLane assigns an ordered list of actions to a single persona.
type WorkflowLane struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	PersonaID   string           `json:"personaId"`
	Color       string           `json:"color,omitempty"`
	Description string           `json:"description,omitempty"`
	Actions     []WorkflowAction `json:"actions"`
}

// Workflow is an externally supplied structured plan consumed by the
// workflow driver. It is collaborator data: the core walks it but never
// mutates it.
type Workflow struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	SwimLanes         []WorkflowLane    `json:"swimLanes"`
	CollaborationType CollaborationType `json:"collaborationType,omitempty"`
}

// Normalize sorts every lane's actions by ascending Order so that cursor
// advancement can rely on positional iteration. Called once at session
// creation; sorting is stable for equal orders.
func (w *Workflow) Normalize() {
	for i := range w.SwimLanes {
		actions := w.SwimLanes[i].Actions
		sort.SliceStable(actions, func(a, b int) bool { return actions[a].Order < actions[b].Order })
	}
}

// Lane returns the lane with the given id, or nil.
func (w *Workflow) Lane(id string) *WorkflowLane {
	for i := range w.SwimLanes {
		if w.SwimLanes[i].ID == id {
			return &w.SwimLanes[i]
		}
	}
	return nil
}

// LaneForPersona returns the first lane assigned to the given persona, or nil.
func (w *Workflow) LaneForPersona(personaID string) *WorkflowLane {
	for i := range w.SwimLanes {
		if w.SwimLanes[i].PersonaID == personaID {
			return &w.SwimLanes[i]
		}
	}
	return nil
}
