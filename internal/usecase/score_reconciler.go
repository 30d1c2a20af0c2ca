package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

// ScoreReconciler turns a provider payload into the canonical LiveScore and
// persists it.
type ScoreReconciler struct {
	repo    livescore.Repository
	aliases *livescore.TeamAliases
	logger  *logging.Logger
	now     func() time.Time
}

func NewScoreReconciler(repo livescore.Repository, aliases *livescore.TeamAliases, logger *logging.Logger) *ScoreReconciler {
	if logger == nil {
		logger = logging.Default()
	}
	if aliases == nil {
		aliases = livescore.DefaultTeamAliases()
	}
	return &ScoreReconciler{
		repo:    repo,
		aliases: aliases,
		logger:  logger,
		now:     time.Now,
	}
}

// Reconcile normalises payload for fx and upserts it. prev is the persisted
// row, if any. A FINISHED prev is never overwritten by a non-FINISHED
// payload; in that case prev is returned and written is false.
func (r *ScoreReconciler) Reconcile(ctx context.Context, fx fixture.Fixture, payload ExternalMatch, prev *livescore.LiveScore) (livescore.LiveScore, bool, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ScoreReconciler.Reconcile")
	defer span.End()

	next := r.Normalize(fx, payload)
	if prev != nil && prev.Status.IsFinished() && !next.Status.IsFinished() {
		r.logger.WarnContext(ctx, "provider status regressed after full time, keeping final score",
			"external_match_id", fx.ExternalMatchID,
			"provider_status", payload.Status,
			"final_home", prev.HomeScore,
			"final_away", prev.AwayScore,
		)
		return *prev, false, nil
	}

	if err := r.repo.Upsert(ctx, next); err != nil {
		return livescore.LiveScore{}, false, fmt.Errorf("upsert live score match=%d: %w", fx.ExternalMatchID, err)
	}
	return next, true, nil
}

// Normalize is the pure part of Reconcile.
func (r *ScoreReconciler) Normalize(fx fixture.Fixture, payload ExternalMatch) livescore.LiveScore {
	now := r.now().UTC()
	status := livescore.ParseStatus(payload.Status)
	home, away := pickScore(payload.FullTime, payload.HalfTime, payload.Current)

	kickoff := fx.KickoffAt
	if kickoff.IsZero() {
		kickoff = payload.UTCDate
	}

	homeTeam := firstNonEmpty(payload.HomeTeam, fx.HomeTeam)
	awayTeam := firstNonEmpty(payload.AwayTeam, fx.AwayTeam)

	return livescore.LiveScore{
		ExternalMatchID: fx.ExternalMatchID,
		Gameweek:        fx.Gameweek,
		FixtureIndex:    fx.FixtureIndex,
		HomeTeam:        r.aliases.Canonical(homeTeam),
		AwayTeam:        r.aliases.Canonical(awayTeam),
		HomeScore:       home,
		AwayScore:       away,
		Status:          status,
		ProviderStatus:  strings.ToUpper(strings.TrimSpace(payload.Status)),
		Minute:          resolveMinute(payload.Minute, status, kickoff, now),
		Goals:           extractGoals(payload.Goals, r.aliases),
		RedCards:        extractRedCards(payload.Bookings, r.aliases),
		KickoffAt:       kickoff,
		UpdatedAt:       now,
	}
}

// pickScore takes the first block that carries any value: full time, then
// half time, then current. A missing side counts as zero.
func pickScore(blocks ...ExternalScore) (int, int) {
	for _, block := range blocks {
		if !block.present() {
			continue
		}
		return nonNegative(block.Home), nonNegative(block.Away)
	}
	return 0, 0
}

func nonNegative(v *int) int {
	if v == nil || *v < 0 {
		return 0
	}
	return *v
}

// resolveMinute prefers the provider minute. While the match is live and the
// provider omits it, elapsed wall time since kickoff is used; this drifts
// across half-time and stoppage time.
func resolveMinute(provided *int, status livescore.Status, kickoff, now time.Time) *int {
	if provided != nil {
		if livescore.ValidMinute(*provided) {
			minute := *provided
			return &minute
		}
		return nil
	}
	if !status.IsLive() || kickoff.IsZero() {
		return nil
	}
	minute := int(now.Sub(kickoff) / time.Minute)
	if !livescore.ValidMinute(minute) {
		return nil
	}
	return &minute
}

func extractGoals(items []ExternalGoal, aliases *livescore.TeamAliases) []livescore.Goal {
	out := make([]livescore.Goal, 0, len(items))
	for _, item := range items {
		out = append(out, livescore.Goal{
			Minute:     validMinutePtr(item.Minute),
			ScorerName: strings.TrimSpace(item.ScorerName),
			ScorerID:   item.ScorerID,
			TeamName:   aliases.Canonical(item.TeamName),
			TeamID:     item.TeamID,
		})
	}
	return out
}

func extractRedCards(items []ExternalBooking, aliases *livescore.TeamAliases) []livescore.Card {
	out := make([]livescore.Card, 0)
	for _, item := range items {
		if !livescore.IsRedCard(item.Card) {
			continue
		}
		out = append(out, livescore.Card{
			Minute:     validMinutePtr(item.Minute),
			PlayerName: strings.TrimSpace(item.PlayerName),
			PlayerID:   item.PlayerID,
			TeamName:   aliases.Canonical(item.TeamName),
			TeamID:     item.TeamID,
			Card:       strings.ToUpper(strings.TrimSpace(item.Card)),
		})
	}
	return out
}

func validMinutePtr(v *int) *int {
	if v == nil || !livescore.ValidMinute(*v) {
		return nil
	}
	minute := *v
	return &minute
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
