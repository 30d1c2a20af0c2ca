package usecase

import (
	"context"
	"errors"
	"testing"
)

func TestPushDispatcher_UnderReportedRecipientsStillAccepted(t *testing.T) {
	t.Parallel()

	push := &stubPushProvider{recipients: 1}
	dispatcher := NewPushDispatcher(push, 0, nil)

	got, err := dispatcher.Send(context.Background(), []string{"p1", "p2", "p3"}, "title", "body", nil)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if !got.Accepted {
		t.Fatalf("expected accepted dispatch: %+v", got)
	}
	if got.ProviderRecipientCount != 1 || got.NotificationID == "" {
		t.Fatalf("unexpected dispatch result: %+v", got)
	}
}

func TestPushDispatcher_ProviderErrorsRejected(t *testing.T) {
	t.Parallel()

	push := &stubPushProvider{rejectErrors: []string{"All included players are not subscribed"}}
	dispatcher := NewPushDispatcher(push, 10, nil)

	got, err := dispatcher.Send(context.Background(), []string{"p1"}, "title", "body", nil)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got.Accepted || len(got.Errors) != 1 {
		t.Fatalf("expected rejected dispatch: %+v", got)
	}
}

func TestPushDispatcher_DeviceErrorsStillDelivered(t *testing.T) {
	t.Parallel()

	push := &stubPushProvider{deviceErrors: []string{"invalid_player_ids: p2"}, invalid: []string{"p2"}}
	dispatcher := NewPushDispatcher(push, 0, nil)

	got, err := dispatcher.Send(context.Background(), []string{"p1", "p2"}, "title", "body", nil)
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if got.Accepted || !got.Delivered() {
		t.Fatalf("expected delivered but not accepted: %+v", got)
	}
	if len(got.InvalidTokens) != 1 || got.InvalidTokens[0] != "p2" {
		t.Fatalf("unexpected invalid tokens: %v", got.InvalidTokens)
	}
}

func TestPushDispatcher_TransportErrorAndEmptyTokens(t *testing.T) {
	t.Parallel()

	push := &stubPushProvider{sendErr: errors.New("dial tcp: timeout")}
	dispatcher := NewPushDispatcher(push, 0, nil)

	got, err := dispatcher.Send(context.Background(), []string{"p1"}, "title", "body", nil)
	if err == nil || got.Accepted {
		t.Fatalf("expected transport error, got=%+v err=%v", got, err)
	}

	if _, err := dispatcher.Send(context.Background(), nil, "title", "body", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected error got=%v want=%v", err, ErrInvalidInput)
	}
}
