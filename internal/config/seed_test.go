package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

const sampleSeed = `
agents:
  - id: agent-7
    organization: acme
    name: Sam Doe
    email: sam@example.com
calendars:
  - organization: acme
    name: weekdays
    timezone: Europe/Berlin
    start_time: "09:00"
    end_time: "17:00"
    working_days: [monday, tuesday, wednesday, thursday, friday]
    holidays:
      - name: new year
        month: 1
        day: 1
policies:
  - organization: acme
    name: default
    response_time_minutes: 60
    resolution_time_minutes: 480
    calendar: weekdays
rules:
  - organization: acme
    name: escalate breaches
    trigger_type: sla_breach
    conditions:
      - field: sla_type
        operator: equals
        value: response
    actions:
      - type: escalate
      - type: add_tag
        params:
          tag: sla-breached
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	if err := os.WriteFile(path, []byte(sampleSeed), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSeed(t *testing.T) {
	seed, err := ParseSeed(writeSeed(t))
	if err != nil {
		t.Fatalf("ParseSeed error: %v", err)
	}
	if len(seed.Agents) != 1 || len(seed.Calendars) != 1 || len(seed.Policies) != 1 || len(seed.Rules) != 1 {
		t.Fatalf("seed = %+v", seed)
	}
	if seed.Policies[0].Calendar != "weekdays" {
		t.Errorf("policy calendar = %q", seed.Policies[0].Calendar)
	}
}

func TestSeedRuleTypedActions(t *testing.T) {
	seed, err := ParseSeed(writeSeed(t))
	if err != nil {
		t.Fatalf("ParseSeed error: %v", err)
	}
	actions, err := seed.Rules[0].TypedActions()
	if err != nil {
		t.Fatalf("TypedActions error: %v", err)
	}
	if len(actions) != 2 {
		t.Fatalf("len(actions) = %d, want 2", len(actions))
	}
	if _, ok := actions[0].(models.EscalateAction); !ok {
		t.Errorf("actions[0] = %#v", actions[0])
	}
	if tag, ok := actions[1].(models.AddTagAction); !ok || tag.Tag != "sla-breached" {
		t.Errorf("actions[1] = %#v", actions[1])
	}
}

func TestSeedRuleRejectsUnknownAction(t *testing.T) {
	rule := SeedRule{
		Name:    "bad",
		Actions: []SeedAction{{Type: "teleport"}},
	}
	if _, err := rule.TypedActions(); err == nil {
		t.Fatal("expected error for unknown action type")
	}
}
