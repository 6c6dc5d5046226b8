package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// MemoryRuleRepository is an in-memory RuleSource for development and tests.
type MemoryRuleRepository struct {
	mu     sync.RWMutex
	rules  map[int64]*models.AutomationRule
	nextID int64
}

// NewMemoryRuleRepository creates an empty repository.
func NewMemoryRuleRepository() *MemoryRuleRepository {
	return &MemoryRuleRepository{
		rules:  make(map[int64]*models.AutomationRule),
		nextID: 1,
	}
}

// CreateRule stores a rule and assigns its ID.
func (r *MemoryRuleRepository) CreateRule(_ context.Context, rule *models.AutomationRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule.ID = r.nextID
	r.nextID++
	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

// ListActiveRules returns copies of active rules for the organization and
// trigger.
func (r *MemoryRuleRepository) ListActiveRules(_ context.Context, organization string, trigger models.TriggerType) ([]*models.AutomationRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*models.AutomationRule
	for _, rule := range r.rules {
		if rule.Organization != organization || rule.TriggerType != trigger || !rule.IsActive {
			continue
		}
		clone := *rule
		matched = append(matched, &clone)
	}
	return matched, nil
}

// MarkExecuted bumps usage statistics on the stored rule.
func (r *MemoryRuleRepository) MarkExecuted(_ context.Context, ruleID int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.rules[ruleID]
	if !ok {
		return fmt.Errorf("rule %d: %w", ruleID, ErrNotFound)
	}
	rule.UsageCount++
	rule.LastExecuted = &at
	return nil
}

// GetRule returns a copy of a stored rule, for assertions in tests.
func (r *MemoryRuleRepository) GetRule(id int64) (*models.AutomationRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return nil, false
	}
	clone := *rule
	return &clone, true
}
