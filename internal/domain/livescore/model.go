package livescore

import (
	"strings"
	"time"
)

// Status is the canonical match status. Provider strings are mapped onto it
// by ParseStatus.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusInPlay    Status = "IN_PLAY"
	StatusPaused    Status = "PAUSED"
	StatusFinished  Status = "FINISHED"
)

// Minutes outside (0, MaxMinute) are treated as unknown.
const MaxMinute = 130

// ParseStatus maps a provider status onto Status. Unknown or empty values
// fall back to StatusScheduled.
func ParseStatus(raw string) Status {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "IN_PLAY", "LIVE", "1H", "2H", "ET", "EXTRA_TIME", "PENALTY_SHOOTOUT":
		return StatusInPlay
	case "PAUSED", "HT", "HALFTIME", "HALF_TIME", "BREAK":
		return StatusPaused
	case "FINISHED", "FT", "AET", "PEN", "AWARDED":
		return StatusFinished
	default:
		return StatusScheduled
	}
}

// IsLive reports IN_PLAY or PAUSED.
func (s Status) IsLive() bool {
	return s == StatusInPlay || s == StatusPaused
}

func (s Status) IsFinished() bool {
	return s == StatusFinished
}

func (s Status) String() string {
	return string(s)
}

type Goal struct {
	Minute     *int   `json:"minute,omitempty"`
	ScorerName string `json:"scorer_name"`
	ScorerID   int64  `json:"scorer_id,omitempty"`
	TeamName   string `json:"team_name"`
	TeamID     int64  `json:"team_id,omitempty"`
}

type Card struct {
	Minute     *int   `json:"minute,omitempty"`
	PlayerName string `json:"player_name"`
	PlayerID   int64  `json:"player_id,omitempty"`
	TeamName   string `json:"team_name"`
	TeamID     int64  `json:"team_id,omitempty"`
	Card       string `json:"card"`
}

// LiveScore is the canonical current state of one match.
type LiveScore struct {
	ExternalMatchID int64
	Gameweek        int
	FixtureIndex    int
	HomeTeam        string
	AwayTeam        string
	HomeScore       int
	AwayScore       int
	Status          Status
	ProviderStatus  string
	Minute          *int
	Goals           []Goal
	RedCards        []Card
	KickoffAt       time.Time
	UpdatedAt       time.Time
}

func (l LiveScore) IsGoalless() bool {
	return l.HomeScore == 0 && l.AwayScore == 0
}

func (l LiveScore) SameScore(home, away int) bool {
	return l.HomeScore == home && l.AwayScore == away
}

func ValidMinute(minute int) bool {
	return minute > 0 && minute < MaxMinute
}

// IsRedCard accepts the provider codes RED and RED_CARD only. Second-yellow
// codes such as YELLOW_RED are not counted.
func IsRedCard(code string) bool {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "RED", "RED_CARD":
		return true
	default:
		return false
	}
}
