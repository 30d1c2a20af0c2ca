package usecase

import (
	"context"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

const defaultHealthCacheTTL = time.Hour

type HealthResult struct {
	Subscribed bool
	Cached     bool
	Raw        map[string]any
}

// SubscriptionHealthChecker decides whether a device token is worth sending
// to, caching positive answers on the subscription row.
type SubscriptionHealthChecker struct {
	repo     subscription.Repository
	provider PushProvider
	ttl      time.Duration
	logger   *logging.Logger
	now      func() time.Time
}

func NewSubscriptionHealthChecker(repo subscription.Repository, provider PushProvider, ttl time.Duration, logger *logging.Logger) *SubscriptionHealthChecker {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = defaultHealthCacheTTL
	}
	return &SubscriptionHealthChecker{
		repo:     repo,
		provider: provider,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// ClassifySubscribed treats an unreported status as subscribed when a token
// exists and nothing says otherwise. This sends to some dead tokens in
// exchange for not dropping devices the provider has not caught up with yet.
func ClassifySubscribed(player PushPlayer, tokenPresent bool) bool {
	explicitlySubscribed := player.NotificationTypes != nil && *player.NotificationTypes > 0
	explicitlyUnsubscribed := player.InvalidIdentifier || (player.NotificationTypes != nil && *player.NotificationTypes < 0)
	unknown := player.NotificationTypes == nil || *player.NotificationTypes == 0
	return explicitlySubscribed || (unknown && tokenPresent && !explicitlyUnsubscribed)
}

func (c *SubscriptionHealthChecker) Verify(ctx context.Context, sub subscription.PushSubscription) HealthResult {
	ctx, span := startUsecaseSpan(ctx, "usecase.SubscriptionHealthChecker.Verify")
	defer span.End()

	now := c.now().UTC()
	if sub.FreshlySubscribed(now, c.ttl) {
		return HealthResult{Subscribed: true, Cached: true}
	}
	if !sub.HasToken() {
		return HealthResult{Subscribed: false}
	}

	player, err := c.provider.GetPlayer(ctx, sub.DeviceToken)
	if err != nil {
		// Keep the last known answer; a never-checked token is given the benefit of the doubt.
		fallback := sub.Subscribed || sub.LastCheckedAt == nil
		c.logger.WarnContext(ctx, "push health check failed, using last known state",
			"user_id", sub.UserID,
			"subscribed", fallback,
			"error", err,
		)
		return HealthResult{Subscribed: fallback}
	}

	subscribed := ClassifySubscribed(player, sub.HasToken())
	update := subscription.HealthUpdate{
		UserID:       sub.UserID,
		DeviceToken:  sub.DeviceToken,
		Subscribed:   subscribed,
		Invalid:      player.InvalidIdentifier,
		CheckedAt:    now,
		LastActiveAt: player.LastActive,
	}
	if err := c.repo.UpdateHealth(ctx, update); err != nil {
		c.logger.WarnContext(ctx, "persist push health failed",
			"user_id", sub.UserID,
			"error", err,
		)
	}

	return HealthResult{Subscribed: subscribed, Raw: player.Raw}
}
