package footballdata

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

var leadingDigitsRegex = regexp.MustCompile(`^\s*(\d+)`)

// matchEnvelope accepts both the v4 body (the match itself) and the older
// {"match": {...}} wrapper.
type matchEnvelope struct {
	matchPayload
	Match *matchPayload `json:"match"`
}

func (e matchEnvelope) match() matchPayload {
	if e.ID == 0 && e.Match != nil {
		return *e.Match
	}
	return e.matchPayload
}

type matchPayload struct {
	ID       int64         `json:"id"`
	UTCDate  string        `json:"utcDate"`
	Status   string        `json:"status"`
	Minute   any           `json:"minute"`
	HomeTeam teamRef       `json:"homeTeam"`
	AwayTeam teamRef       `json:"awayTeam"`
	Score    scorePayload  `json:"score"`
	Goals    []goalItem    `json:"goals"`
	Bookings []bookingItem `json:"bookings"`
}

type teamRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"shortName"`
}

type personRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type scoreBlock struct {
	Home any `json:"home"`
	Away any `json:"away"`
}

type scorePayload struct {
	FullTime scoreBlock `json:"fullTime"`
	HalfTime scoreBlock `json:"halfTime"`
	Current  scoreBlock `json:"current"`
}

type goalItem struct {
	Minute any       `json:"minute"`
	Team   teamRef   `json:"team"`
	Scorer personRef `json:"scorer"`
}

type bookingItem struct {
	Minute any       `json:"minute"`
	Team   teamRef   `json:"team"`
	Player personRef `json:"player"`
	Card   string    `json:"card"`
}

func (m matchPayload) toExternal() *usecase.ExternalMatch {
	out := &usecase.ExternalMatch{
		ID:       m.ID,
		Status:   strings.TrimSpace(m.Status),
		Minute:   parseNumber(m.Minute),
		HomeTeam: strings.TrimSpace(m.HomeTeam.Name),
		AwayTeam: strings.TrimSpace(m.AwayTeam.Name),
		FullTime: m.Score.FullTime.toExternal(),
		HalfTime: m.Score.HalfTime.toExternal(),
		Current:  m.Score.Current.toExternal(),
	}
	if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(m.UTCDate)); err == nil {
		out.UTCDate = parsed.UTC()
	}

	for _, g := range m.Goals {
		out.Goals = append(out.Goals, usecase.ExternalGoal{
			Minute:     parseNumber(g.Minute),
			ScorerName: g.Scorer.Name,
			ScorerID:   g.Scorer.ID,
			TeamName:   g.Team.Name,
			TeamID:     g.Team.ID,
		})
	}
	for _, b := range m.Bookings {
		out.Bookings = append(out.Bookings, usecase.ExternalBooking{
			Minute:     parseNumber(b.Minute),
			PlayerName: b.Player.Name,
			PlayerID:   b.Player.ID,
			TeamName:   b.Team.Name,
			TeamID:     b.Team.ID,
			Card:       b.Card,
		})
	}
	return out
}

func (s scoreBlock) toExternal() usecase.ExternalScore {
	return usecase.ExternalScore{Home: parseNumber(s.Home), Away: parseNumber(s.Away)}
}

// parseNumber reads JSON numbers and numeric strings such as "45+2". Anything
// else, including negatives, is treated as absent.
func parseNumber(raw any) *int {
	var value int
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || v < 0 || v > math.MaxInt32 {
			return nil
		}
		value = int(v)
	case int64:
		if v < 0 || v > math.MaxInt32 {
			return nil
		}
		value = int(v)
	case string:
		match := leadingDigitsRegex.FindStringSubmatch(v)
		if len(match) < 2 {
			return nil
		}
		parsed, err := strconv.Atoi(match[1])
		if err != nil {
			return nil
		}
		value = parsed
	default:
		return nil
	}
	return &value
}
