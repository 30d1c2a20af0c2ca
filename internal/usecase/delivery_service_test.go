package usecase

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
	"github.com/riskibarqy/livescore-sync/internal/infrastructure/repository/memory"
	notificationmock "github.com/riskibarqy/livescore-sync/internal/mocks/domain/notification"
)

func newTestDelivery(subs subscription.Repository, logs notification.LogRepository, push PushProvider, workers int) *DeliveryService {
	health := NewSubscriptionHealthChecker(subs, push, 0, nil)
	return NewDeliveryService(subs, logs, health, NewPushDispatcher(push, 0, nil), workers, nil)
}

func goalDelivery(userID string, home int) Delivery {
	return Delivery{
		UserID: userID,
		Message: NotificationComposer{}.Compose(ComposeInput{
			Kind:    notification.EventScoreChanged,
			Fixture: fixture.Fixture{ExternalMatchID: 9, Gameweek: 4},
			Score:   livescore.LiveScore{ExternalMatchID: 9, HomeScore: home},
			UserID:  userID,
		}),
	}
}

func TestDeliveryService_FanOutAndDedup(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	users := make([]subscription.PushSubscription, 0, 20)
	deliveries := make([]Delivery, 0, 21)
	for i := 0; i < 20; i++ {
		userID := fmt.Sprintf("u%02d", i)
		users = append(users, subscription.PushSubscription{UserID: userID, DeviceToken: "p-" + userID, IsActive: true})
		deliveries = append(deliveries, goalDelivery(userID, 1))
	}
	deliveries = append(deliveries, goalDelivery("no-device", 1))

	subs := memory.NewSubscriptionRepository(users...)
	logs := memory.NewNotificationLogRepository()
	push := &stubPushProvider{}
	svc := newTestDelivery(subs, logs, push, 4)

	report, err := svc.Deliver(ctx, deliveries)
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if report.Sent != 20 || report.NoDevice != 1 || report.Failed != 0 || report.Duplicate != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if len(push.messages()) != 20 {
		t.Fatalf("unexpected push count got=%d want=20", len(push.messages()))
	}
	if len(logs.Entries()) != 20 {
		t.Fatalf("unexpected ledger size got=%d want=20", len(logs.Entries()))
	}
	for _, entry := range logs.Entries() {
		if !entry.Accepted || entry.StateKey != "9" || entry.Kind != notification.EventScoreChanged {
			t.Fatalf("unexpected ledger entry: %+v", entry)
		}
	}

	push.reset()
	again, err := svc.Deliver(ctx, deliveries)
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if again.Duplicate != 20 || again.Sent != 0 || again.NoDevice != 1 {
		t.Fatalf("unexpected report on replay: %+v", again)
	}
	if len(push.messages()) != 0 {
		t.Fatalf("replay must not push, got=%d", len(push.messages()))
	}

	// A new scoreline is a new event.
	next, err := svc.Deliver(ctx, []Delivery{goalDelivery("u00", 2)})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if next.Sent != 1 {
		t.Fatalf("unexpected report for new score: %+v", next)
	}
}

func TestDeliveryService_RejectedSendIsRetried(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	subs := memory.NewSubscriptionRepository(subscription.PushSubscription{UserID: "u1", DeviceToken: "p1", IsActive: true})
	logs := memory.NewNotificationLogRepository()
	push := &stubPushProvider{rejectErrors: []string{"invalid app id"}}
	svc := newTestDelivery(subs, logs, push, 2)

	report, err := svc.Deliver(ctx, []Delivery{goalDelivery("u1", 1)})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	entries := logs.Entries()
	if len(entries) != 1 || entries[0].Accepted || entries[0].ErrorMessage != "invalid app id" {
		t.Fatalf("failed attempt not recorded: %+v", entries)
	}

	push.rejectErrors = nil
	report, err = svc.Deliver(ctx, []Delivery{goalDelivery("u1", 1)})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if report.Sent != 1 {
		t.Fatalf("expected retry to send: %+v", report)
	}
}

func TestDeliveryService_DeviceErrorsSettleTheEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	subs := memory.NewSubscriptionRepository(
		subscription.PushSubscription{UserID: "u1", DeviceToken: "p1", IsActive: true},
		subscription.PushSubscription{UserID: "u1", DeviceToken: "p2", IsActive: true},
	)
	logs := memory.NewNotificationLogRepository()
	push := &stubPushProvider{deviceErrors: []string{"invalid_player_ids: p2"}, invalid: []string{"p2"}}
	svc := newTestDelivery(subs, logs, push, 2)

	report, err := svc.Deliver(ctx, []Delivery{goalDelivery("u1", 1)})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if report.Sent != 1 || report.Partial != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
	entries := logs.Entries()
	if len(entries) != 1 || !entries[0].Accepted || entries[0].ErrorMessage != "invalid_player_ids: p2" {
		t.Fatalf("partial delivery not settled: %+v", entries)
	}
	if sub, _ := subs.Get("u1", "p2"); !sub.Invalid || sub.Subscribed {
		t.Fatalf("refused token not marked invalid: %+v", sub)
	}
	if sub, _ := subs.Get("u1", "p1"); sub.Invalid {
		t.Fatalf("good token marked invalid: %+v", sub)
	}

	push.reset()
	again, err := svc.Deliver(ctx, []Delivery{goalDelivery("u1", 1)})
	if err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	if again.Duplicate != 1 || len(push.messages()) != 0 {
		t.Fatalf("partial delivery resent: report=%+v pushes=%d", again, len(push.messages()))
	}
}

func TestDeliveryService_DeduplicatesTokens(t *testing.T) {
	t.Parallel()

	subs := memory.NewSubscriptionRepository(
		subscription.PushSubscription{UserID: "u1", DeviceToken: "p1", IsActive: true},
		subscription.PushSubscription{UserID: "u1", DeviceToken: "p1", IsActive: true},
		subscription.PushSubscription{UserID: "u1", DeviceToken: "p2", IsActive: true},
		subscription.PushSubscription{UserID: "u1", DeviceToken: "p3", IsActive: false},
	)
	push := &stubPushProvider{}
	svc := newTestDelivery(subs, memory.NewNotificationLogRepository(), push, 1)

	if _, err := svc.Deliver(context.Background(), []Delivery{goalDelivery("u1", 1)}); err != nil {
		t.Fatalf("Deliver error: %v", err)
	}
	msgs := push.messages()
	if len(msgs) != 1 || len(msgs[0].Recipients) != 2 {
		t.Fatalf("unexpected recipients: %+v", msgs)
	}
}

func TestDeliveryService_LedgerReadErrorUsingMockery(t *testing.T) {
	t.Parallel()

	logs := notificationmock.NewLogRepository(t)
	logs.
		On("AcceptedEventIDs", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("pq: connection refused")).
		Once()

	push := &stubPushProvider{}
	svc := newTestDelivery(memory.NewSubscriptionRepository(), logs, push, 1)
	if _, err := svc.Deliver(context.Background(), []Delivery{goalDelivery("u1", 1)}); err == nil {
		t.Fatalf("expected ledger error")
	}
	if len(push.messages()) != 0 {
		t.Fatalf("nothing may be sent when the ledger is unreadable")
	}
}
