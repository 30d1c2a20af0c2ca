package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
	qb "github.com/riskibarqy/livescore-sync/internal/platform/querybuilder"
)

type SubscriptionRepository struct {
	db *sqlx.DB
}

func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) ListActiveByUsers(ctx context.Context, userIDs []string) (map[string][]subscription.PushSubscription, error) {
	out := make(map[string][]subscription.PushSubscription, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select(
		"user_id",
		"device_token",
		"is_active",
		"subscribed",
		"invalid",
		"last_checked_at",
		"last_active_at",
	).From("push_subscriptions").
		Where(
			qb.In("user_id", stringsToAny(userIDs)),
			qb.Eq("is_active", true),
		).
		OrderBy("user_id", "device_token").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select push subscriptions query: %w", err)
	}

	var rows []pushSubscriptionTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select push subscriptions users=%d: %w", len(userIDs), err)
	}
	for _, row := range rows {
		out[row.UserID] = append(out[row.UserID], subscription.PushSubscription{
			UserID:        row.UserID,
			DeviceToken:   strings.TrimSpace(row.DeviceToken.String),
			IsActive:      row.IsActive,
			Subscribed:    row.Subscribed,
			Invalid:       row.Invalid,
			LastCheckedAt: nullTimePtr(row.LastCheckedAt),
			LastActiveAt:  nullTimePtr(row.LastActiveAt),
		})
	}
	return out, nil
}

func (r *SubscriptionRepository) UpdateHealth(ctx context.Context, update subscription.HealthUpdate) error {
	if strings.TrimSpace(update.UserID) == "" || strings.TrimSpace(update.DeviceToken) == "" {
		return fmt.Errorf("user id and device token are required")
	}

	builder := qb.Update("push_subscriptions").
		Set("subscribed", update.Subscribed).
		Set("invalid", update.Invalid).
		Set("last_checked_at", update.CheckedAt.UTC())
	if update.LastActiveAt != nil {
		builder = builder.Set("last_active_at", sql.NullTime{Time: update.LastActiveAt.UTC(), Valid: true})
	}
	query, args, err := builder.
		Where(
			qb.Eq("user_id", update.UserID),
			qb.Eq("device_token", update.DeviceToken),
		).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update push subscription health query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update push subscription health user_id=%s: %w", update.UserID, err)
	}
	return nil
}
