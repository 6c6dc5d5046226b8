package sla

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
)

// ErrNoPolicy is returned when neither organization-scoped nor global
// policies match a ticket.
var ErrNoPolicy = errors.New("no applicable SLA policy")

// PolicyStore loads active SLA policies.
type PolicyStore interface {
	ListActivePolicies(ctx context.Context, organization string) ([]*models.SLAPolicy, error)
	ListActiveGlobalPolicies(ctx context.Context) ([]*models.SLAPolicy, error)
}

// PolicyResolver picks the policy that applies to a ticket. Resolution is
// performed fresh on every call; results are never cached because matching
// depends on mutable ticket fields.
type PolicyResolver struct {
	policies   PolicyStore
	conditions *automation.ConditionEvaluator
	logger     *log.Logger
}

// ResolverOption configures a PolicyResolver.
type ResolverOption func(*PolicyResolver)

// WithResolverLogger overrides the default logger.
func WithResolverLogger(logger *log.Logger) ResolverOption {
	return func(r *PolicyResolver) { r.logger = logger }
}

// NewPolicyResolver creates a resolver using the shared condition evaluator.
func NewPolicyResolver(policies PolicyStore, conditions *automation.ConditionEvaluator, opts ...ResolverOption) *PolicyResolver {
	r := &PolicyResolver{
		policies:   policies,
		conditions: conditions,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the most specific active policy matching the ticket.
// Organization-scoped policies are tried first; global policies are the
// fallback, never mixed into the same candidate set. Returns ErrNoPolicy
// when nothing matches.
func (r *PolicyResolver) Resolve(ctx context.Context, ticket *models.Ticket) (*models.SLAPolicy, error) {
	if ticket.Organization != "" {
		scoped, err := r.policies.ListActivePolicies(ctx, ticket.Organization)
		if err != nil {
			return nil, fmt.Errorf("failed to load policies for organization %q: %w", ticket.Organization, err)
		}
		if policy := r.pickMatch(scoped, ticket); policy != nil {
			return policy, nil
		}
	}

	global, err := r.policies.ListActiveGlobalPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global policies: %w", err)
	}
	if policy := r.pickMatch(global, ticket); policy != nil {
		return policy, nil
	}
	return nil, ErrNoPolicy
}

// pickMatch filters candidates by condition match and returns the most
// specific one.
func (r *PolicyResolver) pickMatch(candidates []*models.SLAPolicy, ticket *models.Ticket) *models.SLAPolicy {
	matched := candidates[:0:0]
	for _, policy := range candidates {
		if !policy.IsActive {
			continue
		}
		if r.conditions.Evaluate(policy.Conditions, ticket, nil) {
			matched = append(matched, policy)
		}
	}
	if len(matched) == 0 {
		return nil
	}
	sortBySpecificity(matched)
	return matched[0]
}

// sortBySpecificity orders matched policies best-first: more conditions,
// then higher priority, then older, then lower ID. The chain is total, so
// resolution is deterministic for any candidate set.
func sortBySpecificity(policies []*models.SLAPolicy) {
	sort.SliceStable(policies, func(i, j int) bool {
		if len(policies[i].Conditions) != len(policies[j].Conditions) {
			return len(policies[i].Conditions) > len(policies[j].Conditions)
		}
		if policies[i].Priority != policies[j].Priority {
			return policies[i].Priority > policies[j].Priority
		}
		if !policies[i].CreatedAt.Equal(policies[j].CreatedAt) {
			return policies[i].CreatedAt.Before(policies[j].CreatedAt)
		}
		return policies[i].ID < policies[j].ID
	})
}
