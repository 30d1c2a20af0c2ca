package subscription

import (
	"strings"
	"time"
)

type PushSubscription struct {
	UserID        string
	DeviceToken   string
	IsActive      bool
	Subscribed    bool
	Invalid       bool
	LastCheckedAt *time.Time
	LastActiveAt  *time.Time
}

func (s PushSubscription) HasToken() bool {
	return strings.TrimSpace(s.DeviceToken) != ""
}

// FreshlySubscribed reports a cached subscribed=true younger than ttl.
func (s PushSubscription) FreshlySubscribed(now time.Time, ttl time.Duration) bool {
	if !s.Subscribed || s.LastCheckedAt == nil {
		return false
	}
	return now.Sub(*s.LastCheckedAt) < ttl
}

// HealthUpdate is written back after a provider health check.
type HealthUpdate struct {
	UserID       string
	DeviceToken  string
	Subscribed   bool
	Invalid      bool
	CheckedAt    time.Time
	LastActiveAt *time.Time
}
