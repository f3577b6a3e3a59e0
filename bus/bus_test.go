package bus

import (
	"context"
	"testing"
)

func TestRoutingKeys(t *testing.T) {
	if got := AgentMessageKey("a1"); got != "agent.message.a1" {
		t.Errorf("unexpected agent key %q", got)
	}
	if got := WorkflowActionKey("a1"); got != "workflow.action.a1" {
		t.Errorf("unexpected workflow key %q", got)
	}
	if got := SystemResponseKey("a1"); got != "system.response.a1" {
		t.Errorf("unexpected system key %q", got)
	}
}

func TestNopBus(t *testing.T) {
	var b Bus = NopBus{}
	if err := b.Publish(context.Background(), ExchangeAgents, "agent.message.x", map[string]string{"k": "v"}); err != nil {
		t.Errorf("NopBus.Publish must never fail: %v", err)
	}
	if err := b.Subscribe(ExchangeAgents, PatternAgentMessages, func([]byte) {}); err != nil {
		t.Errorf("NopBus.Subscribe must never fail: %v", err)
	}
	if b.Healthy() {
		t.Error("NopBus is never healthy")
	}
	if err := b.Close(); err != nil {
		t.Errorf("NopBus.Close must never fail: %v", err)
	}
}
