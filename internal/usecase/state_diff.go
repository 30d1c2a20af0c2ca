package usecase

import (
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
)

// EventSet is the set of transitions detected for one match in one cycle.
type EventSet struct {
	ScoreChanged      bool
	NewMatchWithScore bool
	JustFinished      bool
	JustKickedOff     bool
}

func (e EventSet) Empty() bool {
	return !e.ScoreChanged && !e.NewMatchWithScore && !e.JustFinished && !e.JustKickedOff
}

func (e EventSet) Has(kind notification.EventKind) bool {
	switch kind {
	case notification.EventScoreChanged:
		return e.ScoreChanged
	case notification.EventNewMatchWithScore:
		return e.NewMatchWithScore
	case notification.EventJustFinished:
		return e.JustFinished
	case notification.EventJustKickedOff:
		return e.JustKickedOff
	default:
		return false
	}
}

// Primary is the one event users hear about this cycle.
func (e EventSet) Primary() (notification.EventKind, bool) {
	switch {
	case e.JustFinished:
		return notification.EventJustFinished, true
	case e.ScoreChanged:
		return notification.EventScoreChanged, true
	case e.NewMatchWithScore:
		return notification.EventNewMatchWithScore, true
	case e.JustKickedOff:
		return notification.EventJustKickedOff, true
	default:
		return "", false
	}
}

func (e EventSet) Kinds() []notification.EventKind {
	out := make([]notification.EventKind, 0, 4)
	for _, kind := range []notification.EventKind{
		notification.EventJustKickedOff,
		notification.EventNewMatchWithScore,
		notification.EventScoreChanged,
		notification.EventJustFinished,
	} {
		if e.Has(kind) {
			out = append(out, kind)
		}
	}
	return out
}

// Classify compares the last notified state with the current score. It reads
// nothing else, so equal inputs always give equal output.
func Classify(prev *notification.State, curr livescore.LiveScore) EventSet {
	var events EventSet

	if prev != nil {
		events.ScoreChanged = !curr.SameScore(prev.LastNotifiedHome, prev.LastNotifiedAway)
		events.JustFinished = prev.LastNotifiedStatus != livescore.StatusFinished && curr.Status.IsFinished()
	} else {
		events.NewMatchWithScore = !curr.IsGoalless() || curr.Status.IsFinished()
		events.JustFinished = curr.Status.IsFinished()
	}

	prevStarted := prev != nil && (prev.LastNotifiedStatus.IsLive() || prev.LastNotifiedStatus.IsFinished())
	if !prevStarted && curr.Status.IsLive() && curr.IsGoalless() {
		events.JustKickedOff = true
	}

	if events.JustFinished {
		events.ScoreChanged = false
		events.NewMatchWithScore = false
	}
	return events
}
