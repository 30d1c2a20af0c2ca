package usecase

import (
	"fmt"
	"strconv"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	"github.com/riskibarqy/livescore-sync/internal/platform/id"
)

// Message is one push for one user.
type Message struct {
	Kind    notification.EventKind
	Title   string
	Body    string
	EventID string
	Data    map[string]any
}

// ComposeInput describes a single-match notification. Correct is nil when
// the copy does not depend on the user's pick.
type ComposeInput struct {
	Kind     notification.EventKind
	Fixture  fixture.Fixture
	Score    livescore.LiveScore
	Previous *notification.State
	Correct  *bool
	UserID   string
}

// NotificationComposer builds copy and deterministic event ids. Wording is
// free to change; event ids must not.
type NotificationComposer struct{}

// EventID is stable for (kind scope, state key, user). Score events include
// the score and the time of the last notification in their scope, so a
// scoreline reached again after a disallowed goal is still a new event while
// a retry against the same state keeps its id.
func EventID(kind notification.EventKind, score livescore.LiveScore, prev *notification.State, key notification.StateKey, userID string) string {
	return id.Deterministic(eventScope(kind, score, prev), string(key), userID)
}

func eventScope(kind notification.EventKind, score livescore.LiveScore, prev *notification.State) string {
	switch kind {
	case notification.EventScoreChanged, notification.EventNewMatchWithScore:
		scope := fmt.Sprintf("score:%d-%d", score.HomeScore, score.AwayScore)
		if prev != nil && !prev.LastNotifiedAt.IsZero() {
			scope += ":after:" + strconv.FormatInt(prev.LastNotifiedAt.UnixMilli(), 10)
		}
		return scope
	case notification.EventJustFinished:
		return "final"
	case notification.EventJustKickedOff:
		return "kickoff"
	case notification.EventGameweekComplete:
		return "gameweek-complete"
	default:
		return string(kind)
	}
}

func (NotificationComposer) Compose(in ComposeInput) Message {
	key := notification.MatchStateKey(in.Fixture.ExternalMatchID)
	msg := Message{
		Kind:    in.Kind,
		EventID: EventID(in.Kind, in.Score, in.Previous, key, in.UserID),
	}
	scoreline := fmt.Sprintf("%s %d-%d %s", in.Score.HomeTeam, in.Score.HomeScore, in.Score.AwayScore, in.Score.AwayTeam)

	switch in.Kind {
	case notification.EventJustKickedOff:
		msg.Title = fmt.Sprintf("Kick-off: %s vs %s", in.Fixture.HomeTeam, in.Fixture.AwayTeam)
		msg.Body = "Your pick is in play. Follow it live."
	case notification.EventScoreChanged, notification.EventNewMatchWithScore:
		msg.Title = scoreTitle(in.Previous, in.Score) + scoreline
		msg.Body = correctnessBody(in.Correct, "Your pick is looking good.", "Your pick needs a turnaround.", "Tap to follow the match.")
	case notification.EventJustFinished:
		msg.Title = "Full time: " + scoreline
		msg.Body = correctnessBody(in.Correct, "You called it! Your pick was correct.", "Not this time. Your pick missed.", "Tap for the final result.")
	default:
		msg.Title = scoreline
	}

	msg.Data = messageData(msg, key, in.Fixture.Gameweek)
	return msg
}

// ComposeKickoffGroup is the generic copy shared by every match of a
// multi-kickoff bucket. fx selects the event id.
func (NotificationComposer) ComposeKickoffGroup(count int, fx fixture.Fixture, userID string) Message {
	key := notification.MatchStateKey(fx.ExternalMatchID)
	msg := Message{
		Kind:    notification.EventJustKickedOff,
		Title:   fmt.Sprintf("%d games starting", count),
		Body:    "Kick-off time. Follow your picks live.",
		EventID: EventID(notification.EventJustKickedOff, livescore.LiveScore{}, nil, key, userID),
	}
	msg.Data = messageData(msg, key, fx.Gameweek)
	return msg
}

func (NotificationComposer) ComposeGameweekSummary(gameweek, correct, total int, userID string) Message {
	key := notification.GameweekSentinelKey(gameweek)
	msg := Message{
		Kind:    notification.EventGameweekComplete,
		Title:   fmt.Sprintf("Gameweek %d complete", gameweek),
		Body:    fmt.Sprintf("You got %d/%d picks right.", correct, total),
		EventID: EventID(notification.EventGameweekComplete, livescore.LiveScore{}, nil, key, userID),
	}
	msg.Data = messageData(msg, key, gameweek)
	return msg
}

func scoreTitle(prev *notification.State, curr livescore.LiveScore) string {
	minute := ""
	if curr.Minute != nil {
		minute = strconv.Itoa(*curr.Minute) + "' "
	}
	if prev != nil && curr.HomeScore+curr.AwayScore < prev.LastNotifiedHome+prev.LastNotifiedAway {
		return "Score update: " + minute
	}
	return "GOAL! " + minute
}

func correctnessBody(correct *bool, yes, no, unknown string) string {
	switch {
	case correct == nil:
		return unknown
	case *correct:
		return yes
	default:
		return no
	}
}

func messageData(msg Message, key notification.StateKey, gameweek int) map[string]any {
	return map[string]any{
		"type":      string(msg.Kind),
		"event_id":  msg.EventID,
		"state_key": string(key),
		"gameweek":  gameweek,
	}
}
