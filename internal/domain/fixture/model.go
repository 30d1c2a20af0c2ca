package fixture

import (
	"strings"
	"time"
)

const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
	StatusCancelled = "CANCELLED"
	StatusPostponed = "POSTPONED"
)

// Fixture is one scheduled match as stored by an upstream fixture table.
// Status is the upstream copy and may lag the live score.
type Fixture struct {
	ExternalMatchID int64
	Gameweek        int
	FixtureIndex    int
	HomeTeam        string
	AwayTeam        string
	KickoffAt       time.Time
	Status          string
	Source          string
}

// Window is an inclusive gameweek range.
type Window struct {
	From int
	To   int
}

func NewWindow(current, lookahead int) Window {
	if lookahead < 0 {
		lookahead = 0
	}
	return Window{From: current, To: current + lookahead}
}

func (w Window) Contains(gameweek int) bool {
	return gameweek >= w.From && gameweek <= w.To
}

func NormalizeStatus(value string) string {
	status := strings.ToUpper(strings.TrimSpace(value))
	if status == "" {
		return StatusScheduled
	}
	return status
}

func IsFinishedStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusFinished, "FT", "AET", "PEN", "AWARDED":
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch NormalizeStatus(status) {
	case StatusCancelled, StatusPostponed, "ABANDONED", "SUSPENDED":
		return true
	default:
		return false
	}
}

// IsTerminalStatus reports whether the upstream row will not change again.
func IsTerminalStatus(status string) bool {
	return IsFinishedStatus(status) || IsCancelledLikeStatus(status)
}

// IsPlaceholderTeam matches names used before a side is known.
func IsPlaceholderTeam(name string) bool {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "", "TBD", "TBC", "?", "UNKNOWN":
		return true
	default:
		return false
	}
}

// Completeness scores how much usable data a row carries. Higher wins when
// two sources describe the same match.
func (f Fixture) Completeness() int {
	score := 0
	if !IsPlaceholderTeam(f.HomeTeam) {
		score += 2
	}
	if !IsPlaceholderTeam(f.AwayTeam) {
		score += 2
	}
	if !f.KickoffAt.IsZero() {
		score++
	}
	if f.FixtureIndex > 0 {
		score++
	}
	if f.Gameweek > 0 {
		score++
	}
	return score
}
