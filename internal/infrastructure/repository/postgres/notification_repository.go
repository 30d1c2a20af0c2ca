package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	qb "github.com/riskibarqy/livescore-sync/internal/platform/querybuilder"
)

type NotificationStateRepository struct {
	db *sqlx.DB
}

func NewNotificationStateRepository(db *sqlx.DB) *NotificationStateRepository {
	return &NotificationStateRepository{db: db}
}

func (r *NotificationStateRepository) GetByKeys(ctx context.Context, keys []notification.StateKey) (map[notification.StateKey]notification.State, error) {
	out := make(map[notification.StateKey]notification.State, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values := make([]any, 0, len(keys))
	for _, key := range keys {
		values = append(values, string(key))
	}
	query, args, err := qb.Select(
		"state_key",
		"last_notified_home",
		"last_notified_away",
		"last_notified_status",
		"last_notified_at",
	).From("notification_states").
		Where(qb.In("state_key", values)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select notification states query: %w", err)
	}

	var rows []notificationStateTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select notification states: %w", err)
	}
	for _, row := range rows {
		key := notification.StateKey(row.StateKey)
		out[key] = notification.State{
			Key:                key,
			LastNotifiedHome:   row.LastNotifiedHome,
			LastNotifiedAway:   row.LastNotifiedAway,
			LastNotifiedStatus: livescore.ParseStatus(row.LastNotifiedStatus),
			LastNotifiedAt:     row.LastNotifiedAt.UTC(),
		}
	}
	return out, nil
}

func (r *NotificationStateRepository) Upsert(ctx context.Context, state notification.State) error {
	if strings.TrimSpace(string(state.Key)) == "" {
		return fmt.Errorf("state key is required")
	}
	at := state.LastNotifiedAt.UTC()
	if at.IsZero() {
		at = time.Now().UTC()
	}

	model := notificationStateTableModel{
		StateKey:           string(state.Key),
		LastNotifiedHome:   state.LastNotifiedHome,
		LastNotifiedAway:   state.LastNotifiedAway,
		LastNotifiedStatus: string(state.LastNotifiedStatus),
		LastNotifiedAt:     at,
	}
	query, args, err := qb.UpsertModel("notification_states", model, "state_key")
	if err != nil {
		return fmt.Errorf("build upsert notification state query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert notification state key=%s: %w", state.Key, err)
	}
	return nil
}

// NotificationLogRepository is the per-(event, user) dispatch ledger.
type NotificationLogRepository struct {
	db *sqlx.DB
}

func NewNotificationLogRepository(db *sqlx.DB) *NotificationLogRepository {
	return &NotificationLogRepository{db: db}
}

func (r *NotificationLogRepository) AcceptedEventIDs(ctx context.Context, eventIDs []string) (map[string]struct{}, error) {
	out := make(map[string]struct{}, len(eventIDs))
	if len(eventIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select("event_id").From("notification_logs").
		Where(
			qb.In("event_id", stringsToAny(eventIDs)),
			qb.Eq("accepted", true),
		).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select accepted notification logs query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select accepted notification logs: %w", err)
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}

// Upsert records one attempt. A row already marked accepted keeps its
// provider details; later rejected attempts only bump attempts.
func (r *NotificationLogRepository) Upsert(ctx context.Context, entry notification.Log) error {
	eventID := strings.TrimSpace(entry.EventID)
	if eventID == "" {
		return fmt.Errorf("event id is required")
	}
	sentAt := entry.SentAt.UTC()
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	model := notificationLogInsertModel{
		EventID:                eventID,
		UserID:                 entry.UserID,
		StateKey:               string(entry.StateKey),
		Kind:                   string(entry.Kind),
		Title:                  entry.Title,
		Body:                   entry.Body,
		Accepted:               entry.Accepted,
		ProviderNotificationID: nullableString(entry.ProviderNotificationID),
		ProviderRecipients:     entry.ProviderRecipients,
		LastError:              nullableString(entry.ErrorMessage),
		SentAt:                 sentAt,
		TraceID:                nullableString(entry.TraceID),
		SpanID:                 nullableString(entry.SpanID),
	}

	query, args, err := qb.InsertModel("notification_logs", model, `ON CONFLICT (event_id)
DO UPDATE SET
    attempts = notification_logs.attempts + 1,
    accepted = EXCLUDED.accepted,
    provider_notification_id = EXCLUDED.provider_notification_id,
    provider_recipients = EXCLUDED.provider_recipients,
    last_error = EXCLUDED.last_error,
    title = EXCLUDED.title,
    body = EXCLUDED.body,
    sent_at = EXCLUDED.sent_at,
    trace_id = EXCLUDED.trace_id,
    span_id = EXCLUDED.span_id
WHERE notification_logs.accepted = FALSE`)
	if err != nil {
		return fmt.Errorf("build upsert notification log query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert notification log event_id=%s accepted=%t: %w", eventID, entry.Accepted, err)
	}
	return nil
}
