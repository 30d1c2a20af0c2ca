package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
)

type RunLockRepository struct {
	mu      sync.RWMutex
	records map[string]runlock.Record
}

func NewRunLockRepository() *RunLockRepository {
	return &RunLockRepository{records: make(map[string]runlock.Record)}
}

func (r *RunLockRepository) Get(_ context.Context, name string) (runlock.Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[name]
	return record, ok, nil
}

func (r *RunLockRepository) Put(_ context.Context, record runlock.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.Name] = record
	return nil
}
