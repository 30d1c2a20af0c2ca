package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	qb "github.com/riskibarqy/livescore-sync/internal/platform/querybuilder"
)

// PredictionSource reads one prediction table. Rows with an outcome the
// parser does not recognise are dropped.
type PredictionSource struct {
	db    *sqlx.DB
	table string
}

func NewPredictionSource(db *sqlx.DB, table string) (*PredictionSource, error) {
	name, err := checkTable(table)
	if err != nil {
		return nil, err
	}
	return &PredictionSource{db: db, table: name}, nil
}

func (s *PredictionSource) Name() string {
	return s.table
}

func (s *PredictionSource) ListByGameweek(ctx context.Context, gameweek int) ([]prediction.Prediction, error) {
	query, args, err := qb.Select("user_id", "gameweek", "fixture_index", "outcome").From(s.table).
		Where(qb.Eq("gameweek", gameweek)).
		OrderBy("user_id", "fixture_index").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select %s by gameweek query: %w", s.table, err)
	}

	var rows []predictionTableModel
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select %s gameweek=%d: %w", s.table, gameweek, err)
	}

	out := make([]prediction.Prediction, 0, len(rows))
	for _, row := range rows {
		outcome, ok := prediction.ParseOutcome(row.Outcome)
		userID := strings.TrimSpace(row.UserID)
		if !ok || userID == "" {
			continue
		}
		out = append(out, prediction.Prediction{
			UserID:       userID,
			Gameweek:     row.Gameweek,
			FixtureIndex: row.FixtureIndex,
			Outcome:      outcome,
			Source:       s.table,
		})
	}
	return out, nil
}
