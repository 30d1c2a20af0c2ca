package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	qb "github.com/riskibarqy/livescore-sync/internal/platform/querybuilder"
)

var liveScoreColumns = []string{
	"external_match_id",
	"gameweek",
	"fixture_index",
	"home_team",
	"away_team",
	"home_score",
	"away_score",
	"status",
	"provider_status",
	"minute",
	"goals",
	"red_cards",
	"kickoff_at",
	"updated_at",
}

type LiveScoreRepository struct {
	db *sqlx.DB
}

func NewLiveScoreRepository(db *sqlx.DB) *LiveScoreRepository {
	return &LiveScoreRepository{db: db}
}

func (r *LiveScoreRepository) GetByMatchIDs(ctx context.Context, matchIDs []int64) (map[int64]livescore.LiveScore, error) {
	out := make(map[int64]livescore.LiveScore, len(matchIDs))
	if len(matchIDs) == 0 {
		return out, nil
	}

	query, args, err := qb.Select(liveScoreColumns...).From("live_scores").
		Where(qb.In("external_match_id", int64sToAny(matchIDs))).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select live scores by match ids query: %w", err)
	}

	var rows []liveScoreTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select live scores by match ids: %w", err)
	}
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out[item.ExternalMatchID] = item
	}
	return out, nil
}

func (r *LiveScoreRepository) ListByGameweeks(ctx context.Context, fromGameweek, toGameweek int) ([]livescore.LiveScore, error) {
	query, args, err := qb.Select(liveScoreColumns...).From("live_scores").
		Where(
			qb.Gte("gameweek", fromGameweek),
			qb.Lte("gameweek", toGameweek),
		).
		OrderBy("gameweek", "external_match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select live scores by gameweeks query: %w", err)
	}

	var rows []liveScoreTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select live scores gameweeks=%d..%d: %w", fromGameweek, toGameweek, err)
	}
	out := make([]livescore.LiveScore, 0, len(rows))
	for _, row := range rows {
		item, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (r *LiveScoreRepository) Upsert(ctx context.Context, score livescore.LiveScore) error {
	if score.ExternalMatchID <= 0 {
		return fmt.Errorf("external match id is required")
	}

	goals, err := marshalJSONColumn(score.Goals)
	if err != nil {
		return fmt.Errorf("marshal goals match_id=%d: %w", score.ExternalMatchID, err)
	}
	cards, err := marshalJSONColumn(score.RedCards)
	if err != nil {
		return fmt.Errorf("marshal red cards match_id=%d: %w", score.ExternalMatchID, err)
	}

	updatedAt := score.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	model := liveScoreUpsertModel{
		ExternalMatchID: score.ExternalMatchID,
		Gameweek:        score.Gameweek,
		FixtureIndex:    score.FixtureIndex,
		HomeTeam:        score.HomeTeam,
		AwayTeam:        score.AwayTeam,
		HomeScore:       score.HomeScore,
		AwayScore:       score.AwayScore,
		Status:          string(score.Status),
		ProviderStatus:  nullableString(score.ProviderStatus),
		Minute:          intPtrToNull(score.Minute),
		Goals:           goals,
		RedCards:        cards,
		KickoffAt:       sql.NullTime{Time: score.KickoffAt.UTC(), Valid: !score.KickoffAt.IsZero()},
		UpdatedAt:       updatedAt,
	}

	query, args, err := qb.UpsertModel("live_scores", model, "external_match_id")
	if err != nil {
		return fmt.Errorf("build upsert live score query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert live score match_id=%d: %w", score.ExternalMatchID, err)
	}
	return nil
}

func (m liveScoreTableModel) toDomain() (livescore.LiveScore, error) {
	item := livescore.LiveScore{
		ExternalMatchID: m.ExternalMatchID,
		Gameweek:        m.Gameweek,
		FixtureIndex:    m.FixtureIndex,
		HomeTeam:        m.HomeTeam,
		AwayTeam:        m.AwayTeam,
		HomeScore:       m.HomeScore,
		AwayScore:       m.AwayScore,
		Status:          livescore.ParseStatus(m.Status),
		ProviderStatus:  m.ProviderStatus.String,
		Minute:          nullIntPtr(m.Minute),
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
	if m.KickoffAt.Valid {
		item.KickoffAt = m.KickoffAt.Time.UTC()
	}
	if err := unmarshalJSONColumn(m.Goals, &item.Goals); err != nil {
		return livescore.LiveScore{}, fmt.Errorf("decode goals match_id=%d: %w", m.ExternalMatchID, err)
	}
	if err := unmarshalJSONColumn(m.RedCards, &item.RedCards); err != nil {
		return livescore.LiveScore{}, fmt.Errorf("decode red cards match_id=%d: %w", m.ExternalMatchID, err)
	}
	return item, nil
}
