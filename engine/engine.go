package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/personamesh/bus"
	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/logging"
	"github.com/hupe1980/personamesh/model"
	"github.com/hupe1980/personamesh/persona"
	"github.com/hupe1980/personamesh/session"
)

// Config defines tuning parameters for the engine's coordination behavior.
// All probabilities and delays that used to be literals in the drivers are
// surfaced here so deployments (and tests) can control pacing and
// termination.
type Config struct {
	// BaselineResponseProbability is the chance the system agent replies to
	// a message that matched no trigger phrase and is not a workflow action.
	BaselineResponseProbability float64

	// FollowUpProbability is the per-agent chance of producing a follow-up
	// after another agent's message in conversation mode.
	FollowUpProbability float64

	// MaxFollowUpResponders caps how many agents are picked per follow-up
	// round.
	MaxFollowUpResponders int

	// MaxConversationTurns is the global turn budget for conversation mode.
	// Once exhausted no further follow-ups are scheduled, guaranteeing
	// eventual termination of the probabilistic response chain.
	MaxConversationTurns int

	// FollowUpDelayMin/Max bound the jittered pause before a follow-up
	// generation, emulating thinking time and avoiding a thundering herd.
	FollowUpDelayMin time.Duration
	FollowUpDelayMax time.Duration

	// GenerationTimeout bounds every single completion call. On timeout a
	// canned fallback response is used instead of stalling the turn.
	GenerationTimeout time.Duration

	// MaxActionRetries bounds generation retries for one workflow action
	// before the agent is parked as stalled.
	MaxActionRetries int

	// RetryBackoffBase is the first retry delay; it doubles per attempt.
	RetryBackoffBase time.Duration

	// ResponseMaxTokens / ResponseTemperature apply to agent and system
	// replies; AnalysisMaxTokens / AnalysisTemperature to the final report.
	ResponseMaxTokens   int
	ResponseTemperature float64
	AnalysisMaxTokens   int
	AnalysisTemperature float64
}

// DefaultConfig mirrors the platform's production tuning.
var DefaultConfig = Config{
	BaselineResponseProbability: 0.3,
	FollowUpProbability:         0.6,
	MaxFollowUpResponders:       2,
	MaxConversationTurns:        60,
	FollowUpDelayMin:            2 * time.Second,
	FollowUpDelayMax:            5 * time.Second,
	GenerationTimeout:           30 * time.Second,
	MaxActionRetries:            3,
	RetryBackoffBase:            500 * time.Millisecond,
	ResponseMaxTokens:           300,
	ResponseTemperature:         0.8,
	AnalysisMaxTokens:           1000,
	AnalysisTemperature:         0.3,
}

// Options configures an Engine using the functional options pattern. Every
// dependency has an in-memory default so tests and demos need no wiring.
type Options struct {
	// Config contains coordination tuning. Defaults to DefaultConfig.
	Config Config

	// Store holds session aggregates. Defaults to the in-memory store.
	Store core.SessionStore

	// Personas resolves persona ids at session creation. Defaults to an
	// empty in-memory directory.
	Personas persona.Directory

	// Completer is the generative-text capability. Defaults to a mock.
	Completer model.Completer

	// Bus carries agent traffic to the broker. Defaults to NopBus.
	Bus bus.Bus

	// Logger receives structured diagnostics. Defaults to NoOp.
	Logger logging.Logger

	// Rand supplies the probability source; override for deterministic
	// tests. Defaults to math/rand.
	Rand func() float64
}

// Engine is the session lifecycle manager and home of the workflow driver,
// conversation driver, system responder, coordination recorder and analysis
// synthesizer. Public methods are safe for concurrent use.
type Engine struct {
	cfg       Config
	store     core.SessionStore
	personas  persona.Directory
	completer model.Completer
	bus       bus.Bus
	logger    logging.Logger
	randFloat func() float64

	mu   sync.Mutex
	runs map[string]*sessionRun
}

// sessionRun tracks the live scheduling state of one session: the
// cancellation token honored by all in-flight agent tasks, the conversation
// turn budget and the once-guard around completion.
type sessionRun struct {
	ctx    context.Context
	cancel context.CancelFunc
	turns  atomic.Int64
	done   sync.Once
}

// New constructs an Engine with optional overrides.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config:    DefaultConfig,
		Store:     session.NewInMemoryStore(),
		Personas:  persona.NewInMemoryDirectory(),
		Completer: model.NewMockCompleter(),
		Bus:       bus.NopBus{},
		Logger:    logging.NoOpLogger{},
		Rand:      rand.Float64,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Engine{
		cfg:       opts.Config,
		store:     opts.Store,
		personas:  opts.Personas,
		completer: opts.Completer,
		bus:       opts.Bus,
		logger:    opts.Logger,
		randFloat: opts.Rand,
		runs:      make(map[string]*sessionRun),
	}
	e.setupConsumers()
	return e
}

// CreateSessionInput carries the caller-supplied session parameters.
type CreateSessionInput struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	PersonaIDs  []string         `json:"personaIds"`
	Workflow    *core.Workflow   `json:"workflow,omitempty"`
	SystemInfo  *core.SystemInfo `json:"systemInfo,omitempty"`
	Topic       string           `json:"topic,omitempty"`
}

// CreateSession resolves personas, builds the aggregate, registers it and
// starts the matching driver. With neither workflow nor topic the session is
// created but stays in the initializing state; that is a caller mistake, not
// a failure. At least one persona id must resolve.
func (e *Engine) CreateSession(ctx context.Context, in CreateSessionInput) (*core.MultiAgentSession, error) {
	personas, err := e.personas.GetPersonas(ctx, in.PersonaIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve personas: %w", err)
	}
	if len(personas) == 0 {
		return nil, core.ErrNoPersonas
	}

	sess := core.NewSession(core.NewID(), in.Name, in.Description)
	sess.Topic = in.Topic
	sess.SystemInfo = in.SystemInfo
	if in.Workflow != nil {
		wf := *in.Workflow
		wf.Normalize()
		sess.Workflow = &wf
	}

	for _, p := range personas {
		agent := &core.PersonaAgent{
			ID:           fmt.Sprintf("agent_%s_%s", p.ID, shortID(sess.ID)),
			PersonaID:    p.ID,
			Name:         p.Name,
			Persona:      p,
			Status:       core.AgentIdle,
			LastActivity: time.Now().UTC(),
		}
		if sess.Workflow != nil {
			if lane := sess.Workflow.LaneForPersona(p.ID); lane != nil {
				agent.LaneID = lane.ID
				if len(lane.Actions) > 0 {
					first := lane.Actions[0]
					agent.CurrentAction = &first
				}
			}
		}
		sess.Agents = append(sess.Agents, agent)
	}

	if err := e.store.Put(sess); err != nil {
		return nil, fmt.Errorf("register session: %w", err)
	}

	switch {
	case sess.Workflow != nil && hasActions(sess.Workflow):
		e.startWorkflow(e.newRun(sess.ID), sess)
	case sess.Topic != "":
		e.startConversation(e.newRun(sess.ID), sess)
	default:
		e.logger.Warn("session created without workflow or topic, staying initializing", "session_id", sess.ID)
	}

	return sess, nil
}

func hasActions(wf *core.Workflow) bool {
	for _, lane := range wf.SwimLanes {
		if len(lane.Actions) > 0 {
			return true
		}
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// GetSession returns the session aggregate for id.
func (e *Engine) GetSession(id string) (*core.MultiAgentSession, error) {
	return e.store.Get(id)
}

// ListSessions returns all registered sessions.
func (e *Engine) ListSessions() []*core.MultiAgentSession {
	return e.store.List()
}

// EndSession cancels all in-flight agent tasks, marks the session completed
// and triggers the analysis synthesizer exactly once. Ending an already
// completed session is a no-op.
func (e *Engine) EndSession(id string) error {
	sess, err := e.store.Get(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	run, ok := e.runs[id]
	if !ok {
		// Session never started a driver (initializing) or the engine
		// restarted; finish it with a fresh run record.
		run = e.newRunLocked(id)
	}
	e.mu.Unlock()

	run.cancel()
	e.completeSession(run, sess)
	return nil
}

// TriggeredAgent reports one agent asked to react to an injected message.
type TriggeredAgent struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Status    string `json:"status"`
}

// SendResult is the outcome of SendMessage.
type SendResult struct {
	MessageID       string           `json:"messageId"`
	TriggeredAgents []TriggeredAgent `json:"triggeredAgents"`
}

// SendMessage injects a user or operator message into an active session and
// asks every agent other than the sender to react.
func (e *Engine) SendMessage(ctx context.Context, sessionID, text, fromAgentID string) (*SendResult, error) {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CurrentStatus() == core.SessionCompleted || sess.CurrentStatus() == core.SessionError {
		return nil, core.ErrSessionCompleted
	}
	if fromAgentID != "" && sess.Agent(fromAgentID) == nil {
		return nil, core.ErrAgentNotFound
	}

	from := fromAgentID
	if from == "" {
		from = core.UserSender
	}
	msg := core.NewAgentMessage(sessionID, from, core.MessageBroadcast, text)
	msg.Meta = core.MessageMeta{FromUser: fromAgentID == ""}
	msg = sess.AppendMessage(msg)
	e.publish(bus.ExchangeAgents, bus.RoutingKeyUserMessage, msg)

	run := e.runFor(sess)
	var triggered []TriggeredAgent
	for _, id := range sess.AgentIDs() {
		if id == fromAgentID {
			continue
		}
		agent := sess.Agent(id)
		triggered = append(triggered, TriggeredAgent{AgentID: id, AgentName: agent.Name, Status: "triggered"})
		go e.triggerAgentResponse(run, sess, id, msg)
	}

	return &SendResult{MessageID: msg.ID, TriggeredAgents: triggered}, nil
}

// Shutdown cancels every live session run. Sessions are left in their
// current state; the store stays readable.
func (e *Engine) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, run := range e.runs {
		run.cancel()
	}
}

// newRun registers the scheduling state for a session.
func (e *Engine) newRun(sessionID string) *sessionRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newRunLocked(sessionID)
}

func (e *Engine) newRunLocked(sessionID string) *sessionRun {
	if run, ok := e.runs[sessionID]; ok {
		return run
	}
	ctx, cancel := context.WithCancel(context.Background())
	run := &sessionRun{ctx: ctx, cancel: cancel}
	e.runs[sessionID] = run
	return run
}

// runFor returns the live run for a session, creating one for sessions that
// were injected into the store without a driver (tests, replays).
func (e *Engine) runFor(sess *core.MultiAgentSession) *sessionRun {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.newRunLocked(sess.ID)
}

// completeSession transitions the session to completed and synthesizes the
// final report. Guarded so the workflow driver and EndSession cannot both
// produce an analysis.
func (e *Engine) completeSession(run *sessionRun, sess *core.MultiAgentSession) {
	run.done.Do(func() {
		if sess.TransitionTo(core.SessionCompleted) {
			sess.AppendSystemEvent(core.SystemEvent{
				SessionID: sess.ID,
				Kind:      core.SystemEventStateChange,
				Content:   "session completed",
				Severity:  core.SeverityInfo,
			})
		}
		result := e.synthesizeAnalysis(sess)
		if sess.SetAnalysis(result) {
			e.logger.Info("session analysis stored",
				"session_id", sess.ID,
				"degraded", result.Degraded,
				"message_count", result.MessageCount,
			)
		}
	})
}

// generate wraps the completer with the per-generation timeout. Callers
// decide what to do with a deadline error (usually a canned fallback).
func (e *Engine) generate(ctx context.Context, req model.Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.GenerationTimeout)
	defer cancel()

	start := time.Now()
	text, err := e.completer.Complete(ctx, req)
	if err != nil {
		e.logger.Warn("generation failed",
			"provider", e.completer.Info().Provider,
			"duration", time.Since(start),
			"error", err,
		)
		return "", err
	}
	return text, nil
}

// publish sends a payload to the bus; transport failures never surface to
// the session, the adapter degrades to no-op on its own.
func (e *Engine) publish(exchange, routingKey string, payload any) {
	if err := e.bus.Publish(context.Background(), exchange, routingKey, payload); err != nil {
		e.logger.Warn("bus publish failed", "exchange", exchange, "routing_key", routingKey, "error", err)
	}
}

// setupConsumers attaches the status-tracking consumers when a broker is
// reachable. In-memory mode skips this entirely.
func (e *Engine) setupConsumers() {
	if !e.bus.Healthy() {
		return
	}
	if err := e.bus.Subscribe(bus.ExchangeAgents, bus.PatternAgentMessages, e.handleAgentMessage); err != nil {
		e.logger.Warn("failed to subscribe to agent messages", "error", err)
	}
	if err := e.bus.Subscribe(bus.ExchangeCoordination, "", e.handleCoordinationMessage); err != nil {
		e.logger.Warn("failed to subscribe to coordination messages", "error", err)
	}
}
