package config

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// Seed is declarative bootstrap data: agents, calendars, SLA policies, and
// automation rules loaded once at startup into an empty installation.
type Seed struct {
	Agents    []SeedAgent    `yaml:"agents"`
	Calendars []SeedCalendar `yaml:"calendars"`
	Policies  []SeedPolicy   `yaml:"policies"`
	Rules     []SeedRule     `yaml:"rules"`
}

// SeedAgent describes one assignable agent.
type SeedAgent struct {
	ID           string `yaml:"id"`
	Organization string `yaml:"organization"`
	Name         string `yaml:"name"`
	Email        string `yaml:"email"`
}

// SeedCalendar describes one business-hours calendar.
type SeedCalendar struct {
	Organization string   `yaml:"organization"`
	Name         string   `yaml:"name"`
	Timezone     string   `yaml:"timezone"`
	StartTime    string   `yaml:"start_time"`
	EndTime      string   `yaml:"end_time"`
	WorkingDays  []string `yaml:"working_days"`
	Holidays     []struct {
		Name  string `yaml:"name"`
		Month int    `yaml:"month"`
		Day   int    `yaml:"day"`
		Year  int    `yaml:"year"`
	} `yaml:"holidays"`
}

// SeedPolicy describes one SLA policy.
type SeedPolicy struct {
	Organization          string          `yaml:"organization"`
	Name                  string          `yaml:"name"`
	ResponseTimeMinutes   int             `yaml:"response_time_minutes"`
	ResolutionTimeMinutes int             `yaml:"resolution_time_minutes"`
	Priority              int             `yaml:"priority"`
	Calendar              string          `yaml:"calendar"`
	Conditions            []SeedCondition `yaml:"conditions"`
}

// SeedCondition is one field/operator/value predicate.
type SeedCondition struct {
	Field    string      `yaml:"field"`
	Operator string      `yaml:"operator"`
	Value    interface{} `yaml:"value"`
}

// SeedRule describes one automation rule. Action params stay loosely typed
// in YAML and are normalized through the typed action codec.
type SeedRule struct {
	Organization   string          `yaml:"organization"`
	Name           string          `yaml:"name"`
	TriggerType    string          `yaml:"trigger_type"`
	ExecutionOrder int             `yaml:"execution_order"`
	StopOnMatch    bool            `yaml:"stop_on_match"`
	Conditions     []SeedCondition `yaml:"conditions"`
	Actions        []SeedAction    `yaml:"actions"`
}

// SeedAction is the YAML form of an action envelope.
type SeedAction struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}

// ParseSeed reads a YAML seed file.
func ParseSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return &seed, nil
}

// TypedActions normalizes a seed rule's actions into the closed action set.
// Unknown action types fail here, before the rule reaches storage.
func (r SeedRule) TypedActions() ([]models.Action, error) {
	type envelope struct {
		Type   string                 `json:"type"`
		Params map[string]interface{} `json:"params"`
	}
	envelopes := make([]envelope, 0, len(r.Actions))
	for _, a := range r.Actions {
		envelopes = append(envelopes, envelope{Type: a.Type, Params: a.Params})
	}
	data, err := json.Marshal(envelopes)
	if err != nil {
		return nil, fmt.Errorf("rule %q: failed to encode actions: %w", r.Name, err)
	}
	actions, err := models.UnmarshalActions(data)
	if err != nil {
		return nil, fmt.Errorf("rule %q: %w", r.Name, err)
	}
	return actions, nil
}

// TypedConditions converts seed conditions.
func typedConditions(in []SeedCondition) []models.Condition {
	out := make([]models.Condition, 0, len(in))
	for _, c := range in {
		out = append(out, models.Condition{
			Field:    c.Field,
			Operator: models.ConditionOperator(c.Operator),
			Value:    c.Value,
		})
	}
	return out
}

// TypedConditions converts the rule's conditions.
func (r SeedRule) TypedConditions() []models.Condition { return typedConditions(r.Conditions) }

// TypedConditions converts the policy's conditions.
func (p SeedPolicy) TypedConditions() []models.Condition { return typedConditions(p.Conditions) }
