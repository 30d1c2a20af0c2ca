package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
)

type PredictionSource struct {
	name string

	mu    sync.RWMutex
	items []prediction.Prediction
}

func NewPredictionSource(name string, items []prediction.Prediction) *PredictionSource {
	out := make([]prediction.Prediction, 0, len(items))
	for _, item := range items {
		item.Source = name
		out = append(out, item)
	}
	return &PredictionSource{name: name, items: out}
}

func (s *PredictionSource) Name() string {
	return s.name
}

func (s *PredictionSource) ListByGameweek(_ context.Context, gameweek int) ([]prediction.Prediction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]prediction.Prediction, 0)
	for _, item := range s.items {
		if item.Gameweek == gameweek {
			out = append(out, item)
		}
	}
	return out, nil
}
