package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
)

type LiveScoreRepository struct {
	mu     sync.RWMutex
	scores map[int64]livescore.LiveScore
	writes int
}

func NewLiveScoreRepository(seed ...livescore.LiveScore) *LiveScoreRepository {
	scores := make(map[int64]livescore.LiveScore, len(seed))
	for _, item := range seed {
		scores[item.ExternalMatchID] = item
	}
	return &LiveScoreRepository{scores: scores}
}

func (r *LiveScoreRepository) GetByMatchIDs(_ context.Context, matchIDs []int64) (map[int64]livescore.LiveScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]livescore.LiveScore, len(matchIDs))
	for _, matchID := range matchIDs {
		if item, ok := r.scores[matchID]; ok {
			out[matchID] = cloneLiveScore(item)
		}
	}
	return out, nil
}

func (r *LiveScoreRepository) ListByGameweeks(_ context.Context, fromGameweek, toGameweek int) ([]livescore.LiveScore, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]livescore.LiveScore, 0)
	for _, item := range r.scores {
		if item.Gameweek < fromGameweek || item.Gameweek > toGameweek {
			continue
		}
		out = append(out, cloneLiveScore(item))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalMatchID < out[j].ExternalMatchID })
	return out, nil
}

func (r *LiveScoreRepository) Upsert(_ context.Context, score livescore.LiveScore) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.scores[score.ExternalMatchID] = cloneLiveScore(score)
	r.writes++
	return nil
}

// Writes counts Upsert calls since construction.
func (r *LiveScoreRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.writes
}

func cloneLiveScore(in livescore.LiveScore) livescore.LiveScore {
	out := in
	if in.Minute != nil {
		minute := *in.Minute
		out.Minute = &minute
	}
	out.Goals = append([]livescore.Goal(nil), in.Goals...)
	out.RedCards = append([]livescore.Card(nil), in.RedCards...)
	return out
}
