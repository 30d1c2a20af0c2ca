package livescore

import "context"

type Repository interface {
	GetByMatchIDs(ctx context.Context, matchIDs []int64) (map[int64]LiveScore, error)
	ListByGameweeks(ctx context.Context, fromGameweek, toGameweek int) ([]LiveScore, error)
	// Upsert replaces the whole row keyed by ExternalMatchID.
	Upsert(ctx context.Context, score LiveScore) error
}
