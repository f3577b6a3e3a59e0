// Package personamesh provides a high-level façade over the session engine
// for driving multi-persona test sessions. Most applications interact with
// this package by:
//  1. Creating a Mesh via New() (optionally overriding the default in-memory
//     store, persona directory, completer and bus)
//  2. Creating sessions in workflow or conversation mode (CreateSession)
//  3. Injecting messages (SendMessage) and ending sessions (EndSession)
//
// The façade delegates coordination to engine.Engine while keeping setup and
// usage ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a real model provider, a
// persona directory backed by their persona catalog and an AMQP bus.
package personamesh

import (
	"context"

	"github.com/hupe1980/personamesh/bus"
	"github.com/hupe1980/personamesh/core"
	"github.com/hupe1980/personamesh/engine"
	"github.com/hupe1980/personamesh/logging"
	"github.com/hupe1980/personamesh/model"
	"github.com/hupe1980/personamesh/persona"
	"github.com/hupe1980/personamesh/session"
)

// Options configures the Mesh instance.
type Options struct {
	// EngineConfig tunes coordination behavior (probabilities, delays,
	// timeouts, retry and turn budgets).
	EngineConfig engine.Config

	// SessionStore holds session aggregates. Defaults to in-memory.
	SessionStore core.SessionStore

	// Personas resolves persona ids at session creation. Defaults to an
	// empty in-memory directory.
	Personas persona.Directory

	// Completer is the generative-text backend. Defaults to a mock.
	Completer model.Completer

	// Bus carries agent traffic to a broker. Defaults to NopBus.
	Bus bus.Bus

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Mesh is the high-level façade aggregating the underlying engine and services.
type Mesh struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new Mesh instance with optional overrides. Any unset service
// is initialized with an in-memory implementation.
func New(optFns ...func(o *Options)) *Mesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		SessionStore: session.NewInMemoryStore(),
		Personas:     persona.NewInMemoryDirectory(),
		Completer:    model.NewMockCompleter(),
		Bus:          bus.NopBus{},
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Store = opts.SessionStore
		o.Personas = opts.Personas
		o.Completer = opts.Completer
		o.Bus = opts.Bus
		o.Logger = opts.Logger
	})

	return &Mesh{opts: opts, engine: e}
}

// CreateSession starts a session in workflow mode (when a workflow with
// actions is supplied) or conversation mode (when a topic is supplied).
func (m *Mesh) CreateSession(ctx context.Context, in engine.CreateSessionInput) (*core.MultiAgentSession, error) {
	return m.engine.CreateSession(ctx, in)
}

// GetSession returns the session aggregate for id.
func (m *Mesh) GetSession(id string) (*core.MultiAgentSession, error) {
	return m.engine.GetSession(id)
}

// ListSessions returns all registered sessions.
func (m *Mesh) ListSessions() []*core.MultiAgentSession {
	return m.engine.ListSessions()
}

// SendMessage injects a user or operator message into an active session and
// triggers the other agents to react.
func (m *Mesh) SendMessage(ctx context.Context, sessionID, text, fromAgentID string) (*engine.SendResult, error) {
	return m.engine.SendMessage(ctx, sessionID, text, fromAgentID)
}

// EndSession completes a session, cancels its in-flight agent tasks and
// synthesizes the final analysis exactly once.
func (m *Mesh) EndSession(id string) error {
	return m.engine.EndSession(id)
}

// Shutdown cancels every live session run.
func (m *Mesh) Shutdown() {
	m.engine.Shutdown()
}
