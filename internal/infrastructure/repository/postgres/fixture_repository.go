package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	qb "github.com/riskibarqy/livescore-sync/internal/platform/querybuilder"
)

// FixtureSource reads one fixture table. Several tables with the same shape
// can be registered, one source each.
type FixtureSource struct {
	db    *sqlx.DB
	table string
}

func NewFixtureSource(db *sqlx.DB, table string) (*FixtureSource, error) {
	name, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	return &FixtureSource{db: db, table: name}, nil
}

func (s *FixtureSource) Name() string {
	return s.table
}

func (s *FixtureSource) ListByWindow(ctx context.Context, window fixture.Window) ([]fixture.Fixture, error) {
	query, args, err := qb.Select(
		"external_match_id",
		"gameweek",
		"fixture_index",
		"home_team",
		"away_team",
		"kickoff_at",
		"status",
	).From(s.table).
		Where(
			qb.IsNotNull("external_match_id"),
			qb.Gte("gameweek", window.From),
			qb.Lte("gameweek", window.To),
		).
		OrderBy("gameweek", "kickoff_at", "external_match_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select %s by window query: %w", s.table, err)
	}

	var rows []fixtureTableModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s gameweeks=%d..%d: %w", s.table, window.From, window.To, err)
	}

	out := make([]fixture.Fixture, 0, len(rows))
	for _, row := range rows {
		if row.ExternalMatchID <= 0 {
			continue
		}
		item := fixture.Fixture{
			ExternalMatchID: row.ExternalMatchID,
			Gameweek:        row.Gameweek,
			FixtureIndex:    int(row.FixtureIndex.Int64),
			HomeTeam:        strings.TrimSpace(row.HomeTeam.String),
			AwayTeam:        strings.TrimSpace(row.AwayTeam.String),
			Status:          fixture.NormalizeStatus(row.Status.String),
			Source:          s.table,
		}
		if row.KickoffAt.Valid {
			item.KickoffAt = row.KickoffAt.Time.UTC()
		}
		out = append(out, item)
	}
	return out, nil
}

// GameweekReader reads the gameweeks calendar table.
type GameweekReader struct {
	db *sqlx.DB
}

func NewGameweekReader(db *sqlx.DB) *GameweekReader {
	return &GameweekReader{db: db}
}

// CurrentGameweek prefers the row flagged is_current and otherwise falls back
// to the latest gameweek that has started.
func (r *GameweekReader) CurrentGameweek(ctx context.Context) (int, error) {
	query, args, err := qb.Select("gameweek").From("gameweeks").
		Where(qb.Eq("is_current", true)).
		OrderBy("gameweek DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build select current gameweek query: %w", err)
	}

	var gameweek int
	err = r.db.GetContext(ctx, &gameweek, query, args...)
	if err == nil {
		return gameweek, nil
	}
	if !isNotFound(err) {
		return 0, fmt.Errorf("select current gameweek: %w", err)
	}

	query, args, err = qb.Select("gameweek").From("gameweeks").
		Where(qb.Expr("starts_at <= NOW()")).
		OrderBy("starts_at DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build select started gameweek query: %w", err)
	}
	if err := r.db.GetContext(ctx, &gameweek, query, args...); err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("no gameweek has started yet: %w", err)
		}
		return 0, fmt.Errorf("select started gameweek: %w", err)
	}
	return gameweek, nil
}
