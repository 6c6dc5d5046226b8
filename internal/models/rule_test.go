package models

import (
	"strings"
	"testing"
)

func TestUnmarshalActions(t *testing.T) {
	data := []byte(`[
		{"type": "assign", "params": {"agent_id": "agent-7"}},
		{"type": "change_priority", "params": {"priority": "high"}},
		{"type": "escalate"},
		{"type": "webhook", "params": {"url": "https://example.com/hook", "timeout_ms": 5000}}
	]`)

	actions, err := UnmarshalActions(data)
	if err != nil {
		t.Fatalf("UnmarshalActions error: %v", err)
	}
	if len(actions) != 4 {
		t.Fatalf("len(actions) = %d, want 4", len(actions))
	}

	assign, ok := actions[0].(AssignAction)
	if !ok || assign.AgentID != "agent-7" {
		t.Errorf("actions[0] = %#v, want AssignAction{agent-7}", actions[0])
	}
	priority, ok := actions[1].(ChangePriorityAction)
	if !ok || priority.Priority != PriorityHigh {
		t.Errorf("actions[1] = %#v, want ChangePriorityAction{high}", actions[1])
	}
	if _, ok := actions[2].(EscalateAction); !ok {
		t.Errorf("actions[2] = %#v, want EscalateAction", actions[2])
	}
	hook, ok := actions[3].(WebhookAction)
	if !ok || hook.URL != "https://example.com/hook" || hook.TimeoutMS != 5000 {
		t.Errorf("actions[3] = %#v, want WebhookAction", actions[3])
	}
}

func TestUnmarshalActionsRejectsUnknownType(t *testing.T) {
	_, err := UnmarshalActions([]byte(`[{"type": "teleport", "params": {}}]`))
	if err == nil {
		t.Fatal("expected error for unknown action type")
	}
	if !strings.Contains(err.Error(), "teleport") {
		t.Errorf("error %q should name the unknown type", err)
	}
}

func TestUnmarshalActionsDecodesDeferred(t *testing.T) {
	data := []byte(`[{
		"type": "schedule_follow_up",
		"params": {
			"delay_minutes": 30,
			"action": {"type": "add_tag", "params": {"tag": "follow-up"}}
		}
	}]`)

	actions, err := UnmarshalActions(data)
	if err != nil {
		t.Fatalf("UnmarshalActions error: %v", err)
	}
	followUp, ok := actions[0].(ScheduleFollowUpAction)
	if !ok {
		t.Fatalf("actions[0] = %#v, want ScheduleFollowUpAction", actions[0])
	}
	if followUp.DelayMinutes != 30 {
		t.Errorf("DelayMinutes = %d, want 30", followUp.DelayMinutes)
	}
	tag, ok := followUp.Action.(AddTagAction)
	if !ok || tag.Tag != "follow-up" {
		t.Errorf("deferred action = %#v, want AddTagAction{follow-up}", followUp.Action)
	}
}

func TestUnmarshalActionsRejectsUnknownDeferredType(t *testing.T) {
	data := []byte(`[{
		"type": "schedule_follow_up",
		"params": {"delay_minutes": 5, "action": {"type": "bogus"}}
	}]`)
	if _, err := UnmarshalActions(data); err == nil {
		t.Fatal("expected error for unknown deferred action type")
	}
}

func TestMarshalActionsRoundTrip(t *testing.T) {
	in := []Action{
		ChangeStatusAction{Status: StatusResolved},
		SendEmailAction{TemplateID: "sla_breach_email", Recipient: "ops@example.com"},
	}
	data, err := MarshalActions(in)
	if err != nil {
		t.Fatalf("MarshalActions error: %v", err)
	}
	out, err := UnmarshalActions(data)
	if err != nil {
		t.Fatalf("UnmarshalActions error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if status, ok := out[0].(ChangeStatusAction); !ok || status.Status != StatusResolved {
		t.Errorf("out[0] = %#v", out[0])
	}
	if mail, ok := out[1].(SendEmailAction); !ok || mail.Recipient != "ops@example.com" {
		t.Errorf("out[1] = %#v", out[1])
	}
}
