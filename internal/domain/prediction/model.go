package prediction

import "strings"

// Outcome is a predicted or actual match result.
type Outcome string

const (
	OutcomeHome Outcome = "H"
	OutcomeDraw Outcome = "D"
	OutcomeAway Outcome = "A"
)

// ParseOutcome accepts H/D/A and the long forms used by older tables.
func ParseOutcome(raw string) (Outcome, bool) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "H", "HOME", "1":
		return OutcomeHome, true
	case "D", "DRAW", "X":
		return OutcomeDraw, true
	case "A", "AWAY", "2":
		return OutcomeAway, true
	default:
		return "", false
	}
}

func ResultOf(home, away int) Outcome {
	switch {
	case home > away:
		return OutcomeHome
	case away > home:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

func IsCorrect(predicted Outcome, home, away int) bool {
	return predicted == ResultOf(home, away)
}

type Prediction struct {
	UserID       string
	Gameweek     int
	FixtureIndex int
	Outcome      Outcome
	Source       string
}
