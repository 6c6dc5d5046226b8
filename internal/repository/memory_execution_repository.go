package repository

import (
	"context"
	"sync"

	"github.com/ticketflow-io/ticketflow/internal/models"
)

// MemoryExecutionRepository is an in-memory ExecutionRecorder for
// development and tests.
type MemoryExecutionRepository struct {
	mu      sync.RWMutex
	records []*models.ExecutionRecord
}

// NewMemoryExecutionRepository creates an empty recorder.
func NewMemoryExecutionRepository() *MemoryExecutionRepository {
	return &MemoryExecutionRepository{}
}

// RecordExecution appends one record.
func (r *MemoryExecutionRepository) RecordExecution(_ context.Context, record *models.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
	return nil
}

// Records returns all stored records, for assertions in tests.
func (r *MemoryExecutionRepository) Records() []*models.ExecutionRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*models.ExecutionRecord(nil), r.records...)
}
