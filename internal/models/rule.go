package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TriggerType represents the lifecycle event that activates rule matching.
type TriggerType string

const (
	TriggerTicketCreated       TriggerType = "ticket_created"
	TriggerTicketUpdated       TriggerType = "ticket_updated"
	TriggerTicketAssigned      TriggerType = "ticket_assigned"
	TriggerTicketStatusChanged TriggerType = "ticket_status_changed"
	TriggerWorkOrderCreated    TriggerType = "work_order_created"
	TriggerWorkOrderAssigned   TriggerType = "work_order_assigned"
	TriggerTimeBased           TriggerType = "time_based"
	TriggerSLABreach           TriggerType = "sla_breach"
)

// ConditionOperator represents a predicate applied to a field value.
type ConditionOperator string

const (
	OperatorEquals         ConditionOperator = "equals"
	OperatorNotEquals      ConditionOperator = "not_equals"
	OperatorContains       ConditionOperator = "contains"
	OperatorNotContains    ConditionOperator = "not_contains"
	OperatorIn             ConditionOperator = "in"
	OperatorNotIn          ConditionOperator = "not_in"
	OperatorGreaterThan    ConditionOperator = "greater_than"
	OperatorLessThan       ConditionOperator = "less_than"
	OperatorGreaterOrEqual ConditionOperator = "greater_or_equal"
	OperatorLessOrEqual    ConditionOperator = "less_or_equal"
	OperatorIsNull         ConditionOperator = "is_null"
	OperatorIsNotNull      ConditionOperator = "is_not_null"
	OperatorStartsWith     ConditionOperator = "starts_with"
	OperatorEndsWith       ConditionOperator = "ends_with"
)

// Condition is a single field/operator/value predicate. A rule's condition
// list is AND-combined; there is no OR or grouping.
type Condition struct {
	Field    string            `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value,omitempty"`
}

// ActionType tags an action variant.
type ActionType string

const (
	ActionAssign            ActionType = "assign"
	ActionChangeStatus      ActionType = "change_status"
	ActionChangePriority    ActionType = "change_priority"
	ActionAddTag            ActionType = "add_tag"
	ActionRemoveTag         ActionType = "remove_tag"
	ActionSendEmail         ActionType = "send_email"
	ActionCreateComment     ActionType = "create_comment"
	ActionEscalate          ActionType = "escalate"
	ActionWebhook           ActionType = "webhook"
	ActionSlackNotification ActionType = "slack_notification"
	ActionCreateTicket      ActionType = "create_ticket"
	ActionUpdateCustomField ActionType = "update_custom_field"
	ActionScheduleFollowUp  ActionType = "schedule_follow_up"
)

// Action is the closed set of automation effects. Each variant carries its
// own typed parameters, so the executor can switch exhaustively instead of
// dispatching through a string-keyed table.
type Action interface {
	ActionType() ActionType
}

// AssignAction sets the assigned agent, resolved within the same organization.
type AssignAction struct {
	AgentID string `json:"agent_id"`
}

func (AssignAction) ActionType() ActionType { return ActionAssign }

// ChangeStatusAction sets the ticket status and stamps milestones.
type ChangeStatusAction struct {
	Status TicketStatus `json:"status"`
}

func (ChangeStatusAction) ActionType() ActionType { return ActionChangeStatus }

// ChangePriorityAction sets the ticket priority.
type ChangePriorityAction struct {
	Priority TicketPriority `json:"priority"`
}

func (ChangePriorityAction) ActionType() ActionType { return ActionChangePriority }

// AddTagAction adds a tag with set semantics.
type AddTagAction struct {
	Tag string `json:"tag"`
}

func (AddTagAction) ActionType() ActionType { return ActionAddTag }

// RemoveTagAction removes a tag with set semantics.
type RemoveTagAction struct {
	Tag string `json:"tag"`
}

func (RemoveTagAction) ActionType() ActionType { return ActionRemoveTag }

// SendEmailAction renders a template and dispatches mail via the Mailer.
type SendEmailAction struct {
	TemplateID string                 `json:"template_id"`
	Recipient  string                 `json:"recipient"`
	Vars       map[string]interface{} `json:"vars,omitempty"`
}

func (SendEmailAction) ActionType() ActionType { return ActionSendEmail }

// CreateCommentAction appends a comment to the ticket.
type CreateCommentAction struct {
	Body       string `json:"body"`
	IsInternal bool   `json:"is_internal"`
}

func (CreateCommentAction) ActionType() ActionType { return ActionCreateComment }

// EscalateAction advances priority one step up the fixed ladder.
type EscalateAction struct{}

func (EscalateAction) ActionType() ActionType { return ActionEscalate }

// WebhookAction POSTs a payload to a configured URL with a bounded timeout.
type WebhookAction struct {
	URL       string                 `json:"url"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	TimeoutMS int                    `json:"timeout_ms,omitempty"`
}

func (WebhookAction) ActionType() ActionType { return ActionWebhook }

// SlackNotificationAction renders and posts a message to a chat webhook.
type SlackNotificationAction struct {
	WebhookURL string                 `json:"webhook_url"`
	TemplateID string                 `json:"template_id"`
	Vars       map[string]interface{} `json:"vars,omitempty"`
}

func (SlackNotificationAction) ActionType() ActionType { return ActionSlackNotification }

// CreateTicketAction creates a new ticket with the supplied fields.
type CreateTicketAction struct {
	Title    string                 `json:"title"`
	Status   TicketStatus           `json:"status,omitempty"`
	Priority TicketPriority         `json:"priority,omitempty"`
	Fields   map[string]interface{} `json:"fields,omitempty"`
}

func (CreateTicketAction) ActionType() ActionType { return ActionCreateTicket }

// UpdateCustomFieldAction merges one key into the ticket's custom fields.
type UpdateCustomFieldAction struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

func (UpdateCustomFieldAction) ActionType() ActionType { return ActionUpdateCustomField }

// ScheduleFollowUpAction enqueues a deferred action with an ETA.
type ScheduleFollowUpAction struct {
	DelayMinutes int    `json:"delay_minutes"`
	Action       Action `json:"-"`
	// RawAction carries the deferred action envelope until decode time.
	RawAction json.RawMessage `json:"action"`
}

func (ScheduleFollowUpAction) ActionType() ActionType { return ActionScheduleFollowUp }

// AutomationRule matches a lifecycle trigger against conditions and carries
// the actions to execute. Rules are read-only at evaluation time; only
// UsageCount and LastExecuted are updated after a match.
type AutomationRule struct {
	ID             int64       `json:"id" db:"id"`
	Organization   string      `json:"organization" db:"organization"`
	Name           string      `json:"name" db:"name"`
	TriggerType    TriggerType `json:"trigger_type" db:"trigger_type"`
	Conditions     []Condition `json:"conditions"`
	Actions        []Action    `json:"actions"`
	ExecutionOrder int         `json:"execution_order" db:"execution_order"`
	IsActive       bool        `json:"is_active" db:"is_active"`
	StopOnMatch    bool        `json:"stop_on_match" db:"stop_on_match"`
	UsageCount     int64       `json:"usage_count" db:"usage_count"`
	LastExecuted   *time.Time  `json:"last_executed,omitempty" db:"last_executed"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// actionEnvelope is the stored wire form of an action.
type actionEnvelope struct {
	Type   ActionType      `json:"type"`
	Params json.RawMessage `json:"params"`
}

// UnmarshalActions normalizes a stored JSON action list into typed variants.
// This is the single ingestion boundary: rules loaded from storage pass
// through here once, and nothing downstream sees raw JSON.
func UnmarshalActions(data []byte) ([]Action, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var envelopes []actionEnvelope
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("failed to decode action list: %w", err)
	}

	actions := make([]Action, 0, len(envelopes))
	for i, env := range envelopes {
		action, err := decodeAction(env)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, action)
	}
	return actions, nil
}

func decodeAction(env actionEnvelope) (Action, error) {
	params := env.Params
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}

	decode := func(dst interface{}) error {
		if err := json.Unmarshal(params, dst); err != nil {
			return fmt.Errorf("invalid %s params: %w", env.Type, err)
		}
		return nil
	}

	switch env.Type {
	case ActionAssign:
		var a AssignAction
		return a, decode(&a)
	case ActionChangeStatus:
		var a ChangeStatusAction
		return a, decode(&a)
	case ActionChangePriority:
		var a ChangePriorityAction
		return a, decode(&a)
	case ActionAddTag:
		var a AddTagAction
		return a, decode(&a)
	case ActionRemoveTag:
		var a RemoveTagAction
		return a, decode(&a)
	case ActionSendEmail:
		var a SendEmailAction
		return a, decode(&a)
	case ActionCreateComment:
		var a CreateCommentAction
		return a, decode(&a)
	case ActionEscalate:
		var a EscalateAction
		return a, decode(&a)
	case ActionWebhook:
		var a WebhookAction
		return a, decode(&a)
	case ActionSlackNotification:
		var a SlackNotificationAction
		return a, decode(&a)
	case ActionCreateTicket:
		var a CreateTicketAction
		return a, decode(&a)
	case ActionUpdateCustomField:
		var a UpdateCustomFieldAction
		return a, decode(&a)
	case ActionScheduleFollowUp:
		var a ScheduleFollowUpAction
		if err := decode(&a); err != nil {
			return nil, err
		}
		if len(a.RawAction) > 0 {
			var inner actionEnvelope
			if err := json.Unmarshal(a.RawAction, &inner); err != nil {
				return nil, fmt.Errorf("invalid deferred action: %w", err)
			}
			deferred, err := decodeAction(inner)
			if err != nil {
				return nil, fmt.Errorf("invalid deferred action: %w", err)
			}
			a.Action = deferred
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", env.Type)
	}
}

// MarshalActions serializes typed actions back to the stored envelope form.
func MarshalActions(actions []Action) ([]byte, error) {
	envelopes := make([]actionEnvelope, 0, len(actions))
	for _, action := range actions {
		params, err := json.Marshal(action)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s action: %w", action.ActionType(), err)
		}
		envelopes = append(envelopes, actionEnvelope{Type: action.ActionType(), Params: params})
	}
	return json.Marshal(envelopes)
}

// MarshalAction serializes one action to its envelope form.
func MarshalAction(action Action) ([]byte, error) {
	params, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s action: %w", action.ActionType(), err)
	}
	return json.Marshal(actionEnvelope{Type: action.ActionType(), Params: params})
}

// UnmarshalAction decodes one enveloped action.
func UnmarshalAction(data []byte) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode action: %w", err)
	}
	return decodeAction(env)
}

// UnmarshalConditions normalizes a stored JSON condition list.
func UnmarshalConditions(data []byte) ([]Condition, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var conditions []Condition
	if err := json.Unmarshal(data, &conditions); err != nil {
		return nil, fmt.Errorf("failed to decode condition list: %w", err)
	}
	return conditions, nil
}
