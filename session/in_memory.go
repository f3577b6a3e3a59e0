// Package session provides the in-memory SessionStore. Sessions are
// ephemeral by design: they live only in process memory and are lost on
// restart. The store doubles as the agent registry, indexing every persona
// agent back to its owning session.
package session

import (
	"sync"

	"github.com/hupe1980/personamesh/core"
)

// InMemoryStore is a volatile core.SessionStore storing session aggregates
// in a process-local map. It is safe for concurrent access. The store hands
// out the live aggregate, not a copy: per-session mutation is linearized by
// the aggregate's own lock, and readers that need a stable view take a
// Snapshot.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*core.MultiAgentSession
	agents   map[string]string // agent id -> session id
}

// NewInMemoryStore constructs an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]*core.MultiAgentSession),
		agents:   make(map[string]string),
	}
}

// Put implements core.SessionStore, registering the session and indexing all
// of its agents.
func (s *InMemoryStore) Put(session *core.MultiAgentSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	for _, id := range session.AgentIDs() {
		s.agents[id] = session.ID
	}
	return nil
}

// Get implements core.SessionStore.
func (s *InMemoryStore) Get(id string) (*core.MultiAgentSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, core.ErrSessionNotFound
	}
	return session, nil
}

// List implements core.SessionStore. Order is unspecified.
func (s *InMemoryStore) List() []*core.MultiAgentSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.MultiAgentSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// FindAgent implements core.SessionStore, resolving an agent id to its
// owning session and agent record.
func (s *InMemoryStore) FindAgent(agentID string) (*core.MultiAgentSession, *core.PersonaAgent, bool) {
	s.mu.RLock()
	sessionID, ok := s.agents[agentID]
	session := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || session == nil {
		return nil, nil, false
	}
	agent := session.Agent(agentID)
	if agent == nil {
		return nil, nil, false
	}
	return session, agent, true
}
