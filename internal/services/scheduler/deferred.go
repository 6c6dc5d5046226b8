package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ticketflow-io/ticketflow/internal/models"
	"github.com/ticketflow-io/ticketflow/internal/services/automation"
)

// DeferredQueue parks follow-up actions until their ETA and hands back the
// due ones.
type DeferredQueue interface {
	automation.DeferredScheduler
	PopDue(ctx context.Context, now time.Time, limit int) ([]automation.DeferredAction, error)
}

// deferredEnvelope is the stored wire form of a parked action.
type deferredEnvelope struct {
	ID           string          `json:"id"`
	TicketID     int64           `json:"ticket_id"`
	Organization string          `json:"organization"`
	ETA          time.Time       `json:"eta"`
	Action       json.RawMessage `json:"action"`
}

func encodeDeferred(item automation.DeferredAction) ([]byte, error) {
	action, err := models.MarshalAction(item.Action)
	if err != nil {
		return nil, err
	}
	return json.Marshal(deferredEnvelope{
		ID:           item.ID,
		TicketID:     item.TicketID,
		Organization: item.Organization,
		ETA:          item.ETA,
		Action:       action,
	})
}

func decodeDeferred(data []byte) (automation.DeferredAction, error) {
	var env deferredEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return automation.DeferredAction{}, fmt.Errorf("failed to decode deferred action: %w", err)
	}
	action, err := models.UnmarshalAction(env.Action)
	if err != nil {
		return automation.DeferredAction{}, fmt.Errorf("deferred action %s: %w", env.ID, err)
	}
	return automation.DeferredAction{
		ID:           env.ID,
		TicketID:     env.TicketID,
		Organization: env.Organization,
		Action:       action,
		ETA:          env.ETA,
	}, nil
}

// RedisDeferredQueue stores parked actions in a sorted set scored by ETA.
// ZREM before dispatch keeps delivery single-consumer safe across replicas.
type RedisDeferredQueue struct {
	client *redis.Client
	key    string
}

// NewRedisDeferredQueue creates a queue on the given Redis connection.
func NewRedisDeferredQueue(client *redis.Client) *RedisDeferredQueue {
	return &RedisDeferredQueue{client: client, key: "ticketflow:deferred"}
}

// Enqueue parks one action until its ETA.
func (q *RedisDeferredQueue) Enqueue(ctx context.Context, item automation.DeferredAction) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	payload, err := encodeDeferred(item)
	if err != nil {
		return fmt.Errorf("failed to encode deferred action: %w", err)
	}
	if err := q.client.ZAdd(ctx, q.key, redis.Z{
		Score:  float64(item.ETA.Unix()),
		Member: payload,
	}).Err(); err != nil {
		return fmt.Errorf("failed to enqueue deferred action: %w", err)
	}
	return nil
}

// PopDue removes and returns actions whose ETA has arrived.
func (q *RedisDeferredQueue) PopDue(ctx context.Context, now time.Time, limit int) ([]automation.DeferredAction, error) {
	members, err := q.client.ZRangeByScore(ctx, q.key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%d", now.Unix()),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read deferred queue: %w", err)
	}

	var due []automation.DeferredAction
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.key, member).Result()
		if err != nil {
			return due, fmt.Errorf("failed to claim deferred action: %w", err)
		}
		if removed == 0 {
			// Another replica claimed it first.
			continue
		}
		item, err := decodeDeferred([]byte(member))
		if err != nil {
			return due, err
		}
		due = append(due, item)
	}
	return due, nil
}

// MemoryDeferredQueue is an in-process queue for development and tests.
type MemoryDeferredQueue struct {
	mu    sync.Mutex
	items []automation.DeferredAction
}

// NewMemoryDeferredQueue creates an empty queue.
func NewMemoryDeferredQueue() *MemoryDeferredQueue {
	return &MemoryDeferredQueue{}
}

// Enqueue parks one action until its ETA.
func (q *MemoryDeferredQueue) Enqueue(_ context.Context, item automation.DeferredAction) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, item)
	return nil
}

// PopDue removes and returns actions whose ETA has arrived, oldest first.
func (q *MemoryDeferredQueue) PopDue(_ context.Context, now time.Time, limit int) ([]automation.DeferredAction, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	sort.SliceStable(q.items, func(i, j int) bool { return q.items[i].ETA.Before(q.items[j].ETA) })

	var due []automation.DeferredAction
	var remaining []automation.DeferredAction
	for _, item := range q.items {
		if !item.ETA.After(now) && len(due) < limit {
			due = append(due, item)
			continue
		}
		remaining = append(remaining, item)
	}
	q.items = remaining
	return due, nil
}

// Len reports the number of parked actions, for assertions in tests.
func (q *MemoryDeferredQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
