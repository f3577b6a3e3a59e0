// Package bus wraps the durable publish/subscribe broker carrying agent
// traffic. The wire topology mirrors the platform's original deployment: a
// topic exchange for per-agent routed messages and a fanout exchange for
// session-wide coordination broadcasts.
//
// Durability is best effort. If the broker is unreachable the system keeps
// operating purely in-memory: the AMQP adapter degrades to a logged no-op
// instead of failing callers (see the amqp subpackage), and NopBus serves
// tests and broker-less deployments outright.
package bus

import "context"

// Exchange and routing key layout.
const (
	// ExchangeAgents is the topic exchange carrying per-agent routed
	// messages.
	ExchangeAgents = "persona_agents"
	// ExchangeCoordination is the fanout exchange carrying session-wide
	// coordination broadcasts.
	ExchangeCoordination = "agent_coordination"

	// RoutingKeyUserMessage routes operator-injected messages.
	RoutingKeyUserMessage = "user.message"

	// PatternAgentMessages matches every per-agent message on the topic
	// exchange.
	PatternAgentMessages = "agent.message.#"
	// PatternWorkflowActions matches every workflow action response.
	PatternWorkflowActions = "workflow.action.#"
)

// AgentMessageKey returns the routing key for an agent's own messages.
func AgentMessageKey(agentID string) string { return "agent.message." + agentID }

// WorkflowActionKey returns the routing key for an agent's workflow action
// responses.
func WorkflowActionKey(agentID string) string { return "workflow.action." + agentID }

// SystemResponseKey returns the routing key for system replies to an agent.
func SystemResponseKey(agentID string) string { return "system.response." + agentID }

// Handler consumes a raw message payload from a subscription.
type Handler func(payload []byte)

// Bus is the broker abstraction used by the engine. Publish must be safe for
// concurrent use and must not fail the caller when the broker is down.
// Subscribe binds a consumer to an exchange with a routing pattern; the
// pattern is ignored on fanout exchanges.
type Bus interface {
	Publish(ctx context.Context, exchange, routingKey string, payload any) error
	Subscribe(exchange, pattern string, handler Handler) error
	Healthy() bool
	Close() error
}

// NopBus discards all traffic. It stands in for the broker in tests and in
// deployments that run without one.
type NopBus struct{}

// Publish implements Bus.
func (NopBus) Publish(context.Context, string, string, any) error { return nil }

// Subscribe implements Bus.
func (NopBus) Subscribe(string, string, Handler) error { return nil }

// Healthy implements Bus.
func (NopBus) Healthy() bool { return false }

// Close implements Bus.
func (NopBus) Close() error { return nil }
