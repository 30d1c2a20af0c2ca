package notification

import (
	"testing"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
)

func TestStateKeys(t *testing.T) {
	t.Parallel()

	if got := MatchStateKey(1001); got != "1001" || got.IsGameweekSentinel() {
		t.Fatalf("unexpected match key %q", got)
	}
	if got := GameweekSentinelKey(7); got != "gameweek:7" || !got.IsGameweekSentinel() {
		t.Fatalf("unexpected sentinel key %q", got)
	}
}

func TestStateFromScore(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 1, 15, 30, 0, 0, time.UTC)
	state := StateFromScore(livescore.LiveScore{ExternalMatchID: 9, HomeScore: 2, AwayScore: 1, Status: livescore.StatusInPlay}, at)
	if state.Key != "9" || state.LastNotifiedHome != 2 || state.LastNotifiedAway != 1 || state.LastNotifiedStatus != livescore.StatusInPlay || !state.LastNotifiedAt.Equal(at) {
		t.Fatalf("unexpected state %+v", state)
	}
}
