package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
)

type NotificationStateRepository struct {
	mu     sync.RWMutex
	states map[notification.StateKey]notification.State
}

func NewNotificationStateRepository(seed ...notification.State) *NotificationStateRepository {
	states := make(map[notification.StateKey]notification.State, len(seed))
	for _, item := range seed {
		states[item.Key] = item
	}
	return &NotificationStateRepository{states: states}
}

func (r *NotificationStateRepository) GetByKeys(_ context.Context, keys []notification.StateKey) (map[notification.StateKey]notification.State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[notification.StateKey]notification.State, len(keys))
	for _, key := range keys {
		if item, ok := r.states[key]; ok {
			out[key] = item
		}
	}
	return out, nil
}

func (r *NotificationStateRepository) Upsert(_ context.Context, state notification.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states[state.Key] = state
	return nil
}

// NotificationLogRepository keeps the latest entry per event id. A later
// rejected attempt never overwrites an accepted one.
type NotificationLogRepository struct {
	mu      sync.RWMutex
	entries map[string]notification.Log
}

func NewNotificationLogRepository() *NotificationLogRepository {
	return &NotificationLogRepository{entries: make(map[string]notification.Log)}
}

func (r *NotificationLogRepository) AcceptedEventIDs(_ context.Context, eventIDs []string) (map[string]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]struct{})
	for _, eventID := range eventIDs {
		if item, ok := r.entries[eventID]; ok && item.Accepted {
			out[eventID] = struct{}{}
		}
	}
	return out, nil
}

func (r *NotificationLogRepository) Upsert(_ context.Context, entry notification.Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entries[entry.EventID]; ok && existing.Accepted && !entry.Accepted {
		return nil
	}
	r.entries[entry.EventID] = entry
	return nil
}

// Entries returns a snapshot of the ledger, for inspection in tests and the
// dev CLI.
func (r *NotificationLogRepository) Entries() []notification.Log {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]notification.Log, 0, len(r.entries))
	for _, item := range r.entries {
		out = append(out, item)
	}
	return out
}
