package usecase

import (
	"context"
	"time"
)

// ExternalScore is one score block of a provider payload. Nil sides were
// absent from the payload.
type ExternalScore struct {
	Home *int
	Away *int
}

func (s ExternalScore) present() bool {
	return s.Home != nil || s.Away != nil
}

type ExternalGoal struct {
	Minute     *int
	ScorerName string
	ScorerID   int64
	TeamName   string
	TeamID     int64
}

type ExternalBooking struct {
	Minute     *int
	PlayerName string
	PlayerID   int64
	TeamName   string
	TeamID     int64
	Card       string
}

// ExternalMatch is the provider's view of one match, decoded but not yet
// normalised.
type ExternalMatch struct {
	ID       int64
	Status   string
	Minute   *int
	UTCDate  time.Time
	HomeTeam string
	AwayTeam string
	FullTime ExternalScore
	HalfTime ExternalScore
	Current  ExternalScore
	Goals    []ExternalGoal
	Bookings []ExternalBooking
}

// ScoreProvider fetches one match. A nil match with a nil error means the
// provider asked us to back off (429/5xx) or answered with a non-2xx status;
// the match is retried next cycle.
type ScoreProvider interface {
	FetchMatch(ctx context.Context, matchID int64) (*ExternalMatch, error)
}

type PushMessage struct {
	Recipients []string
	Title      string
	Body       string
	Data       map[string]any
}

// PushResponse is the provider answer. InvalidRecipients lists tokens the
// provider refused as unknown or unsubscribed.
type PushResponse struct {
	NotificationID    string
	Recipients        int
	Errors            []string
	InvalidRecipients []string
}

// PushPlayer is the provider's health record for one device token.
// NotificationTypes is nil when the provider did not report it.
type PushPlayer struct {
	Identifier        string
	InvalidIdentifier bool
	NotificationTypes *int
	LastActive        *time.Time
	Raw               map[string]any
}

type PushProvider interface {
	SendNotification(ctx context.Context, msg PushMessage) (PushResponse, error)
	GetPlayer(ctx context.Context, playerID string) (PushPlayer, error)
}

// JobQueue publishes a delayed call back into this service.
type JobQueue interface {
	Enqueue(ctx context.Context, path string, payload any, delay time.Duration, deduplicationID string) error
}

type noopJobQueue struct{}

func (noopJobQueue) Enqueue(_ context.Context, _ string, _ any, _ time.Duration, _ string) error {
	return nil
}

func NewNoopJobQueue() JobQueue {
	return noopJobQueue{}
}
