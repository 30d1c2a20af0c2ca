package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
)

type SubscriptionRepository struct {
	mu    sync.RWMutex
	items []subscription.PushSubscription
}

func NewSubscriptionRepository(items ...subscription.PushSubscription) *SubscriptionRepository {
	return &SubscriptionRepository{items: append([]subscription.PushSubscription(nil), items...)}
}

func (r *SubscriptionRepository) ListActiveByUsers(_ context.Context, userIDs []string) (map[string][]subscription.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]struct{}, len(userIDs))
	for _, userID := range userIDs {
		wanted[userID] = struct{}{}
	}

	out := make(map[string][]subscription.PushSubscription)
	for _, item := range r.items {
		if !item.IsActive {
			continue
		}
		if _, ok := wanted[item.UserID]; !ok {
			continue
		}
		out[item.UserID] = append(out[item.UserID], item)
	}
	return out, nil
}

func (r *SubscriptionRepository) UpdateHealth(_ context.Context, update subscription.HealthUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.items {
		item := &r.items[i]
		if item.UserID != update.UserID || item.DeviceToken != update.DeviceToken {
			continue
		}
		checkedAt := update.CheckedAt
		item.Subscribed = update.Subscribed
		item.Invalid = update.Invalid
		item.LastCheckedAt = &checkedAt
		if update.LastActiveAt != nil {
			lastActive := *update.LastActiveAt
			item.LastActiveAt = &lastActive
		}
	}
	return nil
}

func (r *SubscriptionRepository) Get(userID, deviceToken string) (subscription.PushSubscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, item := range r.items {
		if item.UserID == userID && item.DeviceToken == deviceToken {
			return item, true
		}
	}
	return subscription.PushSubscription{}, false
}
