package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
	qb "github.com/riskibarqy/livescore-sync/internal/platform/querybuilder"
)

type RunLockRepository struct {
	db *sqlx.DB
}

func NewRunLockRepository(db *sqlx.DB) *RunLockRepository {
	return &RunLockRepository{db: db}
}

func (r *RunLockRepository) Get(ctx context.Context, name string) (runlock.Record, bool, error) {
	query, args, err := qb.Select("name", "last_poll_time").From("run_locks").
		Where(qb.Eq("name", name)).
		Limit(1).
		ToSQL()
	if err != nil {
		return runlock.Record{}, false, fmt.Errorf("build select run lock query: %w", err)
	}

	var row runLockTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return runlock.Record{}, false, nil
		}
		return runlock.Record{}, false, fmt.Errorf("select run lock name=%s: %w", name, err)
	}
	return runlock.Record{Name: row.Name, LastPollTime: row.LastPollTime.UTC()}, true, nil
}

func (r *RunLockRepository) Put(ctx context.Context, record runlock.Record) error {
	query, args, err := qb.UpsertModel("run_locks", runLockTableModel{
		Name:         record.Name,
		LastPollTime: record.LastPollTime.UTC(),
	}, "name")
	if err != nil {
		return fmt.Errorf("build upsert run lock query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert run lock name=%s: %w", record.Name, err)
	}
	return nil
}
