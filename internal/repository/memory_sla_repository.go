package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// MemorySLARepository is an in-memory PolicyStore and CalendarStore for
// development and tests.
type MemorySLARepository struct {
	mu             sync.RWMutex
	policies       map[int64]*models.SLAPolicy
	calendars      map[int64]*models.BusinessHoursConfig
	nextPolicyID   int64
	nextCalendarID int64
}

// NewMemorySLARepository creates an empty repository.
func NewMemorySLARepository() *MemorySLARepository {
	return &MemorySLARepository{
		policies:       make(map[int64]*models.SLAPolicy),
		calendars:      make(map[int64]*models.BusinessHoursConfig),
		nextPolicyID:   1,
		nextCalendarID: 1,
	}
}

// CreatePolicy stores a policy and assigns its ID.
func (r *MemorySLARepository) CreatePolicy(_ context.Context, policy *models.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	policy.ID = r.nextPolicyID
	r.nextPolicyID++
	stored := *policy
	r.policies[policy.ID] = &stored
	return nil
}

// ListActivePolicies returns active policies scoped to one organization.
func (r *MemorySLARepository) ListActivePolicies(_ context.Context, organization string) ([]*models.SLAPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*models.SLAPolicy
	for _, policy := range r.policies {
		if policy.Organization != organization || !policy.IsActive {
			continue
		}
		clone := *policy
		matched = append(matched, &clone)
	}
	return matched, nil
}

// ListActiveGlobalPolicies returns active policies with no organization.
func (r *MemorySLARepository) ListActiveGlobalPolicies(ctx context.Context) ([]*models.SLAPolicy, error) {
	return r.ListActivePolicies(ctx, "")
}

// CreateCalendar validates and stores a calendar configuration.
func (r *MemorySLARepository) CreateCalendar(_ context.Context, config *models.BusinessHoursConfig) error {
	if err := config.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	config.ID = r.nextCalendarID
	r.nextCalendarID++
	stored := *config
	r.calendars[config.ID] = &stored
	return nil
}

// GetCalendar loads one business-hours configuration.
func (r *MemorySLARepository) GetCalendar(_ context.Context, id int64) (*models.BusinessHoursConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.calendars[id]
	if !ok {
		return nil, fmt.Errorf("calendar %d: %w", id, ErrNotFound)
	}
	clone := *config
	return &clone, nil
}
