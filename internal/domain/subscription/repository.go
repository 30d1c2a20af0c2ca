package subscription

import "context"

type Repository interface {
	// ListActiveByUsers returns active subscriptions grouped by user id.
	ListActiveByUsers(ctx context.Context, userIDs []string) (map[string][]PushSubscription, error)
	UpdateHealth(ctx context.Context, update HealthUpdate) error
}
