package prediction

import "context"

// Source is one prediction table.
type Source interface {
	Name() string
	ListByGameweek(ctx context.Context, gameweek int) ([]Prediction, error)
}
