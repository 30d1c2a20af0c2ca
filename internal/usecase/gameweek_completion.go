package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/domain/notification"
	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

// GameweekReport describes one completion check. UnscoredFixtures are
// finished upstream but have no final live score, so they are left out of
// every tally.
type GameweekReport struct {
	Gameweek         int            `json:"gameweek"`
	Complete         bool           `json:"complete"`
	AlreadyNotified  bool           `json:"already_notified"`
	SentinelWritten  bool           `json:"sentinel_written"`
	UnscoredFixtures []int64        `json:"unscored_fixtures,omitempty"`
	Delivery         DeliveryReport `json:"delivery"`
}

// GameweekTally is one user's correct picks out of their finished picks.
type GameweekTally struct {
	Correct int
	Total   int
}

// GameweekCompletionDetector sends each predicting user one summary once
// every fixture of a gameweek has finished, guarded by a sentinel state row.
type GameweekCompletionDetector struct {
	states   notification.StateRepository
	delivery *DeliveryService
	composer NotificationComposer
	logger   *logging.Logger
	now      func() time.Time
}

func NewGameweekCompletionDetector(states notification.StateRepository, delivery *DeliveryService, logger *logging.Logger) *GameweekCompletionDetector {
	if logger == nil {
		logger = logging.Default()
	}
	return &GameweekCompletionDetector{
		states:   states,
		delivery: delivery,
		logger:   logger,
		now:      time.Now,
	}
}

// IsGameweekComplete reports whether every playable fixture is FINISHED.
// Cancelled or postponed fixtures are left out; a gameweek with nothing
// playable is never complete.
func IsGameweekComplete(fixtures []fixture.Fixture, scores map[int64]livescore.LiveScore) bool {
	playable := 0
	for _, fx := range fixtures {
		if fx.ExternalMatchID <= 0 || fixture.IsCancelledLikeStatus(fx.Status) {
			continue
		}
		playable++
		if score, ok := scores[fx.ExternalMatchID]; ok && score.Status.IsFinished() {
			continue
		}
		if fixture.IsFinishedStatus(fx.Status) {
			continue
		}
		return false
	}
	return playable > 0
}

// TallyGameweek counts correct picks per user over fixtures with a final
// score. Playable fixtures without one are returned as unscored.
func TallyGameweek(fixtures []fixture.Fixture, scores map[int64]livescore.LiveScore, audiences map[int]Audience) (map[string]GameweekTally, []int64) {
	out := make(map[string]GameweekTally)
	var unscored []int64
	for _, fx := range fixtures {
		if fx.ExternalMatchID <= 0 || fixture.IsCancelledLikeStatus(fx.Status) {
			continue
		}
		score, ok := scores[fx.ExternalMatchID]
		if !ok || !score.Status.IsFinished() {
			unscored = append(unscored, fx.ExternalMatchID)
			continue
		}
		for userID, outcome := range audiences[fx.FixtureIndex] {
			tally := out[userID]
			tally.Total++
			if prediction.IsCorrect(outcome, score.HomeScore, score.AwayScore) {
				tally.Correct++
			}
			out[userID] = tally
		}
	}
	return out, unscored
}

func (d *GameweekCompletionDetector) Check(
	ctx context.Context,
	gameweek int,
	fixtures []fixture.Fixture,
	scores map[int64]livescore.LiveScore,
	audience *AudienceResolver,
) (GameweekReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.GameweekCompletionDetector.Check")
	defer span.End()

	report := GameweekReport{Gameweek: gameweek}
	if !IsGameweekComplete(fixtures, scores) {
		return report, nil
	}
	report.Complete = true

	key := notification.GameweekSentinelKey(gameweek)
	existing, err := d.states.GetByKeys(ctx, []notification.StateKey{key})
	if err != nil {
		return report, fmt.Errorf("load gameweek sentinel: %w", err)
	}
	if _, ok := existing[key]; ok {
		report.AlreadyNotified = true
		return report, nil
	}

	audiences, err := audience.ForGameweek(ctx, gameweek)
	if err != nil {
		return report, fmt.Errorf("resolve gameweek audience: %w", err)
	}
	tallies, unscored := TallyGameweek(fixtures, scores, audiences)
	if len(unscored) > 0 {
		report.UnscoredFixtures = unscored
		d.logger.WarnContext(ctx, "finished fixtures without a final score left out of gameweek tally",
			"gameweek", gameweek,
			"external_match_ids", unscored,
			"error", ErrDataInconsistency,
		)
	}

	userIDs := make([]string, 0, len(tallies))
	for userID := range tallies {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)

	deliveries := make([]Delivery, 0, len(userIDs))
	for _, userID := range userIDs {
		tally := tallies[userID]
		deliveries = append(deliveries, Delivery{
			UserID:  userID,
			Message: d.composer.ComposeGameweekSummary(gameweek, tally.Correct, tally.Total, userID),
		})
	}

	delivery, err := d.delivery.Deliver(ctx, deliveries)
	report.Delivery = delivery
	if err != nil {
		return report, fmt.Errorf("deliver gameweek summaries: %w", err)
	}
	if delivery.Failed > 0 {
		d.logger.WarnContext(ctx, "gameweek summary partially failed, retrying next cycle",
			"gameweek", gameweek,
			"failed", delivery.Failed,
			"sent", delivery.Sent,
		)
		return report, nil
	}

	sentinel := notification.State{
		Key:                key,
		LastNotifiedStatus: livescore.StatusFinished,
		LastNotifiedAt:     d.now().UTC(),
	}
	if err := d.states.Upsert(ctx, sentinel); err != nil {
		return report, fmt.Errorf("write gameweek sentinel: %w", err)
	}
	report.SentinelWritten = true

	d.logger.InfoContext(ctx, "gameweek complete notified",
		"gameweek", gameweek,
		"users", len(userIDs),
		"sent", delivery.Sent,
		"duplicate", delivery.Duplicate,
		"no_device", delivery.NoDevice,
	)
	return report, nil
}
