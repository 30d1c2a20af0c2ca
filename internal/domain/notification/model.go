package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
)

type EventKind string

const (
	EventScoreChanged      EventKind = "scoreChanged"
	EventNewMatchWithScore EventKind = "newMatchWithScore"
	EventJustFinished      EventKind = "justFinished"
	EventJustKickedOff     EventKind = "justKickedOff"
	EventGameweekComplete  EventKind = "gameweekComplete"
)

// StateKey identifies a NotificationState row: a match id, or the reserved
// per-gameweek sentinel.
type StateKey string

const gameweekSentinelPrefix = "gameweek:"

func MatchStateKey(matchID int64) StateKey {
	return StateKey(strconv.FormatInt(matchID, 10))
}

func GameweekSentinelKey(gameweek int) StateKey {
	return StateKey(fmt.Sprintf("%s%d", gameweekSentinelPrefix, gameweek))
}

func (k StateKey) IsGameweekSentinel() bool {
	return strings.HasPrefix(string(k), gameweekSentinelPrefix)
}

// State is the last thing users were told about a match.
type State struct {
	Key                StateKey
	LastNotifiedHome   int
	LastNotifiedAway   int
	LastNotifiedStatus livescore.Status
	LastNotifiedAt     time.Time
}

// StateFromScore records score as notified at the given time.
func StateFromScore(score livescore.LiveScore, at time.Time) State {
	return State{
		Key:                MatchStateKey(score.ExternalMatchID),
		LastNotifiedHome:   score.HomeScore,
		LastNotifiedAway:   score.AwayScore,
		LastNotifiedStatus: score.Status,
		LastNotifiedAt:     at,
	}
}

// Log is one (event, user) dispatch attempt. Accepted means the provider
// created a notification for it, even when some devices were refused; such
// an event is never sent again.
type Log struct {
	EventID                string
	UserID                 string
	StateKey               StateKey
	Kind                   EventKind
	Title                  string
	Body                   string
	Accepted               bool
	ProviderNotificationID string
	ProviderRecipients     int
	ErrorMessage           string
	SentAt                 time.Time
	TraceID                string
	SpanID                 string
}
