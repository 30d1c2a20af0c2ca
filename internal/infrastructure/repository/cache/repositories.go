package cache

import (
	"context"
	"strconv"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	basecache "github.com/riskibarqy/livescore-sync/internal/platform/cache"
)

// PredictionSource caches a prediction table per gameweek. Picks are locked
// at kickoff, so a short TTL only delays late edits to unstarted fixtures.
type PredictionSource struct {
	next  prediction.Source
	cache *basecache.Store
}

func NewPredictionSource(next prediction.Source, cache *basecache.Store) *PredictionSource {
	return &PredictionSource{next: next, cache: cache}
}

func (s *PredictionSource) Name() string {
	return s.next.Name()
}

func (s *PredictionSource) ListByGameweek(ctx context.Context, gameweek int) ([]prediction.Prediction, error) {
	key := "prediction:" + s.next.Name() + ":gw:" + strconv.Itoa(gameweek)
	items, err := basecache.Load(ctx, s.cache, key, func(ctx context.Context) ([]prediction.Prediction, error) {
		items, err := s.next.ListByGameweek(ctx, gameweek)
		if err != nil {
			return nil, err
		}
		return append([]prediction.Prediction(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	return append([]prediction.Prediction(nil), items...), nil
}

type GameweekReader struct {
	next  fixture.GameweekReader
	cache *basecache.Store
}

func NewGameweekReader(next fixture.GameweekReader, cache *basecache.Store) *GameweekReader {
	return &GameweekReader{next: next, cache: cache}
}

func (r *GameweekReader) CurrentGameweek(ctx context.Context) (int, error) {
	return basecache.Load(ctx, r.cache, "gameweek:current", r.next.CurrentGameweek)
}
