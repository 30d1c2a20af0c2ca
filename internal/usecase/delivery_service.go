package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

// DeliveryEvent is one ledger entry a delivery settles.
type DeliveryEvent struct {
	EventID  string
	StateKey notification.StateKey
}

// Delivery is one push to one user. A generic kickoff push settles several
// events at once.
type Delivery struct {
	UserID  string
	Message Message
	Events  []DeliveryEvent
}

// DeliveryReport counts deliveries by outcome. Partial deliveries reached
// the provider but some devices were refused; they are included in Sent.
type DeliveryReport struct {
	Sent      int `json:"sent"`
	Partial   int `json:"partial"`
	Duplicate int `json:"duplicate"`
	NoDevice  int `json:"no_device"`
	Failed    int `json:"failed"`
}

func (r *DeliveryReport) Add(other DeliveryReport) {
	r.Sent += other.Sent
	r.Partial += other.Partial
	r.Duplicate += other.Duplicate
	r.NoDevice += other.NoDevice
	r.Failed += other.Failed
}

type deliveryOutcome int

const (
	outcomeSent deliveryOutcome = iota
	outcomePartial
	outcomeNoDevice
	outcomeFailed
)

// DeliveryService fans deliveries out per user over a bounded worker pool and
// records every attempt in the notification log. Deliver returns only after
// every send has finished.
type DeliveryService struct {
	subs    subscription.Repository
	logs    notification.LogRepository
	health  *SubscriptionHealthChecker
	push    *PushDispatcher
	workers int
	logger  *logging.Logger
	now     func() time.Time
}

func NewDeliveryService(
	subs subscription.Repository,
	logs notification.LogRepository,
	health *SubscriptionHealthChecker,
	push *PushDispatcher,
	workers int,
	logger *logging.Logger,
) *DeliveryService {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 8
	}
	return &DeliveryService{
		subs:    subs,
		logs:    logs,
		health:  health,
		push:    push,
		workers: workers,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *DeliveryService) Deliver(ctx context.Context, deliveries []Delivery) (DeliveryReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DeliveryService.Deliver")
	defer span.End()

	var report DeliveryReport
	if len(deliveries) == 0 {
		return report, nil
	}

	eventIDs := make([]string, 0, len(deliveries))
	for _, d := range deliveries {
		for _, ev := range d.events() {
			eventIDs = append(eventIDs, ev.EventID)
		}
	}
	delivered, err := s.logs.AcceptedEventIDs(ctx, eventIDs)
	if err != nil {
		return report, fmt.Errorf("load notification log: %w", err)
	}

	pending := make([]Delivery, 0, len(deliveries))
	userIDs := make([]string, 0, len(deliveries))
	seenUser := make(map[string]struct{}, len(deliveries))
	for _, d := range deliveries {
		open := make([]DeliveryEvent, 0, len(d.events()))
		for _, ev := range d.events() {
			if _, done := delivered[ev.EventID]; !done {
				open = append(open, ev)
			}
		}
		if len(open) == 0 {
			report.Duplicate++
			continue
		}
		d.Events = open
		pending = append(pending, d)
		if _, ok := seenUser[d.UserID]; !ok {
			seenUser[d.UserID] = struct{}{}
			userIDs = append(userIDs, d.UserID)
		}
	}
	if len(pending) == 0 {
		return report, nil
	}

	subsByUser, err := s.subs.ListActiveByUsers(ctx, userIDs)
	if err != nil {
		return report, fmt.Errorf("list push subscriptions: %w", err)
	}

	pool, err := ants.NewPool(min(s.workers, len(pending)))
	if err != nil {
		return report, fmt.Errorf("create dispatch pool: %w", err)
	}
	defer func() {
		if err := pool.ReleaseTimeout(5 * time.Second); err != nil {
			s.logger.WarnContext(ctx, "dispatch pool release timed out", "error", err)
		}
	}()

	var sent, partial, noDevice, failed atomic.Int64
	var wg sync.WaitGroup
	for _, d := range pending {
		d := d
		wg.Add(1)
		task := func() {
			defer wg.Done()
			switch s.deliverOne(ctx, d, subsByUser[d.UserID]) {
			case outcomeSent:
				sent.Add(1)
			case outcomePartial:
				sent.Add(1)
				partial.Add(1)
			case outcomeNoDevice:
				noDevice.Add(1)
			default:
				failed.Add(1)
			}
		}
		if err := pool.Submit(task); err != nil {
			task()
		}
	}
	wg.Wait()

	report.Sent = int(sent.Load())
	report.Partial = int(partial.Load())
	report.NoDevice = int(noDevice.Load())
	report.Failed = int(failed.Load())
	return report, nil
}

func (s *DeliveryService) deliverOne(ctx context.Context, d Delivery, subs []subscription.PushSubscription) deliveryOutcome {
	tokens := make([]string, 0, len(subs))
	seen := make(map[string]struct{}, len(subs))
	for _, sub := range subs {
		if !sub.IsActive || !sub.HasToken() {
			continue
		}
		if _, dup := seen[sub.DeviceToken]; dup {
			continue
		}
		if !s.health.Verify(ctx, sub).Subscribed {
			continue
		}
		seen[sub.DeviceToken] = struct{}{}
		tokens = append(tokens, sub.DeviceToken)
	}
	if len(tokens) == 0 {
		s.logger.DebugContext(ctx, "no deliverable device for user", "user_id", d.UserID, "kind", d.Message.Kind)
		return outcomeNoDevice
	}

	result, sendErr := s.push.Send(ctx, tokens, d.Message.Title, d.Message.Body, d.Message.Data)
	errMessage := strings.Join(result.Errors, "; ")
	if sendErr != nil && errMessage == "" {
		errMessage = sendErr.Error()
	}

	delivered := sendErr == nil && result.Delivered()

	traceID, spanID := traceMetaFromContext(ctx)
	sentAt := s.now().UTC()
	for _, ev := range d.events() {
		entry := notification.Log{
			EventID:                ev.EventID,
			UserID:                 d.UserID,
			StateKey:               ev.StateKey,
			Kind:                   d.Message.Kind,
			Title:                  d.Message.Title,
			Body:                   d.Message.Body,
			Accepted:               delivered,
			ProviderNotificationID: result.NotificationID,
			ProviderRecipients:     result.ProviderRecipientCount,
			ErrorMessage:           errMessage,
			SentAt:                 sentAt,
			TraceID:                traceID,
			SpanID:                 spanID,
		}
		if err := s.logs.Upsert(ctx, entry); err != nil {
			s.logger.WarnContext(ctx, "record notification log failed",
				"event_id", ev.EventID,
				"user_id", d.UserID,
				"error", err,
			)
		}
	}

	if !delivered {
		s.logger.WarnContext(ctx, "push delivery failed",
			"user_id", d.UserID,
			"kind", d.Message.Kind,
			"event_id", d.Message.EventID,
			"errors", errMessage,
		)
		return outcomeFailed
	}
	if len(result.Errors) == 0 {
		return outcomeSent
	}

	// Created but some devices were refused; the rest already have it.
	s.logger.WarnContext(ctx, "push delivered with device errors",
		"user_id", d.UserID,
		"kind", d.Message.Kind,
		"notification_id", result.NotificationID,
		"errors", errMessage,
	)
	s.markInvalid(ctx, d.UserID, result.InvalidTokens)
	return outcomePartial
}

func (s *DeliveryService) markInvalid(ctx context.Context, userID string, tokens []string) {
	checkedAt := s.now().UTC()
	for _, token := range tokens {
		update := subscription.HealthUpdate{
			UserID:      userID,
			DeviceToken: token,
			Invalid:     true,
			CheckedAt:   checkedAt,
		}
		if err := s.subs.UpdateHealth(ctx, update); err != nil {
			s.logger.WarnContext(ctx, "mark push token invalid failed",
				"user_id", userID,
				"error", err,
			)
		}
	}
}

func (d Delivery) events() []DeliveryEvent {
	if len(d.Events) > 0 {
		return d.Events
	}
	key, _ := d.Message.Data["state_key"].(string)
	return []DeliveryEvent{{EventID: d.Message.EventID, StateKey: notification.StateKey(key)}}
}
