// Package metrics exposes Prometheus collectors for the rule engine and
// SLA subsystems. Collectors register on the default registry via promauto
// and are served from the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RulesEvaluated counts rules considered for a trigger, matched or not.
	RulesEvaluated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketflow_rules_evaluated_total",
		Help: "Number of automation rules evaluated.",
	})

	// RulesMatched counts rules whose conditions all held.
	RulesMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketflow_rules_matched_total",
		Help: "Number of automation rules that matched and executed.",
	})

	// ActionFailures counts failed action executions by action type.
	ActionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketflow_action_failures_total",
		Help: "Number of failed automation actions.",
	}, []string{"action_type"})

	// ActionDuration observes per-action execution latency.
	ActionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ticketflow_action_duration_seconds",
		Help:    "Automation action execution latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"action_type"})

	// BreachChecks counts SLA breach evaluations by outcome.
	BreachChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketflow_sla_breach_checks_total",
		Help: "Number of SLA breach checks by result.",
	}, []string{"sla_type", "result"})

	// BreachSweepDuration observes full breach sweep latency.
	BreachSweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ticketflow_sla_sweep_duration_seconds",
		Help:    "Duration of the periodic SLA breach sweep.",
		Buckets: prometheus.DefBuckets,
	})

	// WebhookDeliveries counts webhook delivery attempts by outcome.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticketflow_webhook_deliveries_total",
		Help: "Number of webhook deliveries by result.",
	}, []string{"result"})

	// DeferredEnqueued counts follow-up actions scheduled for later delivery.
	DeferredEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketflow_deferred_actions_enqueued_total",
		Help: "Number of follow-up actions enqueued.",
	})

	// DeferredDispatched counts deferred actions whose ETA arrived and ran.
	DeferredDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticketflow_deferred_actions_dispatched_total",
		Help: "Number of follow-up actions dispatched.",
	})
)
