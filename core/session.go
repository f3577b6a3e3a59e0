package core

import (
	"sync"
	"time"
)

// SessionStatus is the lifecycle state of a MultiAgentSession.
type SessionStatus string

const (
	// SessionInitializing is the state before a driver has started.
	SessionInitializing SessionStatus = "initializing"
	// SessionActive means a driver is scheduling agent work.
	SessionActive SessionStatus = "active"
	// SessionCompleted is terminal; the transcript stays readable but no
	// further agent work is scheduled.
	SessionCompleted SessionStatus = "completed"
	// SessionError is terminal and reachable from any state on
	// unrecoverable failure.
	SessionError SessionStatus = "error"
)

// SystemInfo is the optional product context a session is framed with. The
// responder folds it into synthesized system replies.
type SystemInfo struct {
	Title          string `json:"title,omitempty"`
	Description    string `json:"description,omitempty"`
	Requirements   string `json:"requirements,omitempty"`
	Constraints    string `json:"constraints,omitempty"`
	TargetPlatform string `json:"targetPlatform,omitempty"`
	BusinessGoals  string `json:"businessGoals,omitempty"`
}

// MultiAgentSession is the aggregate root. It exclusively owns its agents,
// system agent and all three append-only logs; no agent is shared across
// sessions.
//
// Contract:
//   - Transcript/system event/coordination appends are linearized by the
//     session lock and never edited or removed afterwards
//   - Status transitions are monotonic: initializing -> active -> completed,
//     with error reachable from any non-terminal state
//   - Snapshot returns a deep copy safe for serialization
type MultiAgentSession struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Topic           string              `json:"topic,omitempty"`
	Workflow        *Workflow           `json:"workflow,omitempty"`
	SystemInfo      *SystemInfo         `json:"systemInfo,omitempty"`
	Agents          []*PersonaAgent     `json:"agents"`
	SystemAgent     *SystemAgent        `json:"systemAgent"`
	Status          SessionStatus       `json:"status"`
	StartedAt       time.Time           `json:"startedAt"`
	Messages        []AgentMessage      `json:"messages"`
	SystemEvents    []SystemEvent       `json:"systemEvents"`
	CoordinationLog []CoordinationEvent `json:"coordinationLog"`
	AnalysisResults *AnalysisResult     `json:"analysisResults,omitempty"`
	CurrentStep     int                 `json:"currentStep,omitempty"`

	mu  sync.RWMutex
	seq int64
}

// NewSession constructs a session in the initializing state.
func NewSession(id, name, description string) *MultiAgentSession {
	return &MultiAgentSession{
		ID:              id,
		Name:            name,
		Description:     description,
		Status:          SessionInitializing,
		StartedAt:       time.Now().UTC(),
		Agents:          []*PersonaAgent{},
		Messages:        []AgentMessage{},
		SystemEvents:    []SystemEvent{},
		CoordinationLog: []CoordinationEvent{},
		SystemAgent:     NewSystemAgent(id),
	}
}

// TransitionTo moves the session to next if the transition is allowed.
// It reports whether the status actually changed; repeating a transition or
// attempting to leave a terminal state is a no-op.
func (s *MultiAgentSession) TransitionTo(next SessionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Status == next {
		return false
	}
	switch s.Status {
	case SessionInitializing:
		if next == SessionActive || next == SessionCompleted || next == SessionError {
			s.Status = next
			return true
		}
	case SessionActive:
		if next == SessionCompleted || next == SessionError {
			s.Status = next
			return true
		}
	}
	return false
}

// CurrentStatus returns the lifecycle status under the read lock.
func (s *MultiAgentSession) CurrentStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Status
}

// AppendMessage stamps the message with the session's emission sequence and
// timestamp and appends it to the transcript. The stamped message is
// returned so callers can publish the exact transcript entry.
func (s *MultiAgentSession) AppendMessage(msg AgentMessage) AgentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	msg.Seq = s.seq
	msg.Timestamp = time.Now().UTC()
	if msg.ID == "" {
		msg.ID = NewID()
	}
	s.Messages = append(s.Messages, msg)
	return msg
}

// AppendSystemEvent records a system responder event.
func (s *MultiAgentSession) AppendSystemEvent(ev SystemEvent) SystemEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = NewID()
	}
	ev.Timestamp = time.Now().UTC()
	s.SystemEvents = append(s.SystemEvents, ev)
	return ev
}

// AppendCoordination records a coordination audit event.
func (s *MultiAgentSession) AppendCoordination(ev CoordinationEvent) CoordinationEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.ID == "" {
		ev.ID = NewID()
	}
	ev.Timestamp = time.Now().UTC()
	s.CoordinationLog = append(s.CoordinationLog, ev)
	return ev
}

// Agent returns the persona agent with the given id, or nil.
func (s *MultiAgentSession) Agent(id string) *PersonaAgent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agentLocked(id)
}

func (s *MultiAgentSession) agentLocked(id string) *PersonaAgent {
	for _, a := range s.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// AgentIDs returns the ids of all persona agents in creation order.
func (s *MultiAgentSession) AgentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.Agents))
	for i, a := range s.Agents {
		ids[i] = a.ID
	}
	return ids
}

// SetAgentStatus updates an agent's status and activity timestamp.
func (s *MultiAgentSession) SetAgentStatus(agentID string, status AgentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.agentLocked(agentID); a != nil {
		a.Status = status
		a.LastActivity = time.Now().UTC()
	}
}

// CompareAndSetAgentStatus updates the agent's status only when it still
// equals expected, in one critical section. It reports whether the swap
// happened. Concurrent drivers use it to avoid clobbering a status another
// driver moved in the meantime.
func (s *MultiAgentSession) CompareAndSetAgentStatus(agentID string, expected, next AgentStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.agentLocked(agentID)
	if a == nil || a.Status != expected {
		return false
	}
	a.Status = next
	a.LastActivity = time.Now().UTC()
	return true
}

// AgentStatusOf returns the current status of the agent, or "" if unknown.
func (s *MultiAgentSession) AgentStatusOf(agentID string) AgentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a := s.agentLocked(agentID); a != nil {
		return a.Status
	}
	return ""
}

// MarkAgentResponded bumps the agent's message count and stamps activity.
func (s *MultiAgentSession) MarkAgentResponded(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.agentLocked(agentID); a != nil {
		a.MessageCount++
		a.Status = AgentResponding
		a.LastActivity = time.Now().UTC()
	}
}

// SetPendingSystemResponse flips the agent's outstanding-system-reply flag.
// Clearing it also stamps the last system contact time.
func (s *MultiAgentSession) SetPendingSystemResponse(agentID string, pending bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.agentLocked(agentID); a != nil {
		a.PendingSystemResponse = pending
		if !pending {
			a.LastSystemContact = time.Now().UTC()
		}
	}
}

// CurrentActionOf returns a copy of the agent's current workflow action, or
// nil when the agent is terminal or unknown.
func (s *MultiAgentSession) CurrentActionOf(agentID string) *WorkflowAction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a := s.agentLocked(agentID)
	if a == nil || a.CurrentAction == nil {
		return nil
	}
	action := *a.CurrentAction
	return &action
}

// AdvanceAction moves the agent's workflow cursor to the next action in its
// lane, or to nil (terminal) when the lane is exhausted. It returns the new
// current action and whether the agent just became terminal. Advancing an
// agent with no current action is a no-op.
func (s *MultiAgentSession) AdvanceAction(agentID string) (*WorkflowAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.agentLocked(agentID)
	if a == nil || a.CurrentAction == nil || s.Workflow == nil {
		return nil, false
	}
	lane := s.Workflow.Lane(a.LaneID)
	if lane == nil {
		a.CurrentAction = nil
		return nil, true
	}
	for i := range lane.Actions {
		if lane.Actions[i].ID == a.CurrentAction.ID {
			if i+1 < len(lane.Actions) {
				next := lane.Actions[i+1]
				a.CurrentAction = &next
				return &next, false
			}
			break
		}
	}
	a.CurrentAction = nil
	return nil, true
}

// AllAgentsTerminal reports whether every agent has exhausted its lane.
func (s *MultiAgentSession) AllAgentsTerminal() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.Agents {
		if a.CurrentAction != nil {
			return false
		}
	}
	return true
}

// ActingAgentIDs returns the ids of all agents currently in the acting state.
func (s *MultiAgentSession) ActingAgentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, a := range s.Agents {
		if a.Status == AgentActing {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// SetAnalysis records the final report if none has been stored yet and
// reports whether it was stored. Ending a session twice must not duplicate
// or replace the analysis.
func (s *MultiAgentSession) SetAnalysis(result *AnalysisResult) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.AnalysisResults != nil {
		return false
	}
	s.AnalysisResults = result
	return true
}

// Analysis returns the stored analysis result, or nil.
func (s *MultiAgentSession) Analysis() *AnalysisResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.AnalysisResults
}

// RecentMessages returns up to n transcript entries from the tail, copied.
func (s *MultiAgentSession) RecentMessages(n int) []AgentMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.Messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]AgentMessage, len(s.Messages)-start)
	copy(out, s.Messages[start:])
	return out
}

// Transcript returns a defensive copy of the full transcript.
func (s *MultiAgentSession) Transcript() []AgentMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]AgentMessage, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// Snapshot returns a deep copy of the session safe for serialization while
// drivers keep mutating the original.
func (s *MultiAgentSession) Snapshot() *MultiAgentSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := &MultiAgentSession{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Topic:       s.Topic,
		Workflow:    s.Workflow,
		SystemInfo:  s.SystemInfo,
		Status:      s.Status,
		StartedAt:   s.StartedAt,
		CurrentStep: s.CurrentStep,
		seq:         s.seq,
	}
	snap.Agents = make([]*PersonaAgent, len(s.Agents))
	for i, a := range s.Agents {
		cp := *a
		if a.CurrentAction != nil {
			action := *a.CurrentAction
			cp.CurrentAction = &action
		}
		snap.Agents[i] = &cp
	}
	if s.SystemAgent != nil {
		sa := *s.SystemAgent
		snap.SystemAgent = &sa
	}
	snap.Messages = make([]AgentMessage, len(s.Messages))
	copy(snap.Messages, s.Messages)
	snap.SystemEvents = make([]SystemEvent, len(s.SystemEvents))
	copy(snap.SystemEvents, s.SystemEvents)
	snap.CoordinationLog = make([]CoordinationEvent, len(s.CoordinationLog))
	copy(snap.CoordinationLog, s.CoordinationLog)
	if s.AnalysisResults != nil {
		ar := *s.AnalysisResults
		snap.AnalysisResults = &ar
	}
	return snap
}

// SessionStore persists session aggregates and indexes their agents. The
// in-memory implementation lives in the session package; the interface
// exists so drivers do not care whether sessions are durable.
type SessionStore interface {
	Put(session *MultiAgentSession) error
	Get(id string) (*MultiAgentSession, error)
	List() []*MultiAgentSession
	FindAgent(agentID string) (*MultiAgentSession, *PersonaAgent, bool)
}
