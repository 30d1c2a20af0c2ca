package subscription

import (
	"testing"
	"time"
)

func TestFreshlySubscribed(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-2 * time.Hour)

	if !(PushSubscription{Subscribed: true, LastCheckedAt: &recent}).FreshlySubscribed(now, time.Hour) {
		t.Fatalf("expected recent subscribed check to be fresh")
	}
	if (PushSubscription{Subscribed: true, LastCheckedAt: &stale}).FreshlySubscribed(now, time.Hour) {
		t.Fatalf("expected stale check not to be fresh")
	}
	if (PushSubscription{Subscribed: false, LastCheckedAt: &recent}).FreshlySubscribed(now, time.Hour) {
		t.Fatalf("cached unsubscribed results are never reused")
	}
	if (PushSubscription{Subscribed: true}).FreshlySubscribed(now, time.Hour) {
		t.Fatalf("never-checked subscription is not fresh")
	}
}
