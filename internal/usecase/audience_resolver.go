package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	"github.com/riskibarqy/livescore-sync/internal/platform/cache"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

// Audience maps user id to predicted outcome for one fixture.
type Audience map[string]prediction.Outcome

// Users returns the audience's user ids in a stable order.
func (a Audience) Users() []string {
	out := make([]string, 0, len(a))
	for userID := range a {
		out = append(out, userID)
	}
	sort.Strings(out)
	return out
}

// AudienceResolver answers "who predicted this fixture" across N prediction
// tables. Earlier sources win when a user appears in more than one.
type AudienceResolver struct {
	sources []prediction.Source
	cache   *cache.Store
	logger  *logging.Logger
}

// NewAudienceResolver memoises per-gameweek loads in store. Pass a fresh
// store per run.
func NewAudienceResolver(sources []prediction.Source, store *cache.Store, logger *logging.Logger) *AudienceResolver {
	if logger == nil {
		logger = logging.Default()
	}
	if store == nil {
		store = cache.NewStore(0)
	}
	return &AudienceResolver{sources: sources, cache: store, logger: logger}
}

func (a *AudienceResolver) ForFixture(ctx context.Context, gameweek, fixtureIndex int) (Audience, error) {
	byFixture, err := a.ForGameweek(ctx, gameweek)
	if err != nil {
		return nil, err
	}
	audience := byFixture[fixtureIndex]
	if audience == nil {
		audience = Audience{}
	}
	return audience, nil
}

// ForGameweek returns audiences keyed by fixture index. Any failing source
// fails the call so a partial audience is never notified.
func (a *AudienceResolver) ForGameweek(ctx context.Context, gameweek int) (map[int]Audience, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AudienceResolver.ForGameweek")
	defer span.End()

	type loaded struct {
		index int
		rows  []prediction.Prediction
		err   error
	}

	p := pool.NewWithResults[loaded]().WithMaxGoroutines(max(1, len(a.sources)))
	for i, src := range a.sources {
		i, src := i, src
		p.Go(func() loaded {
			key := "predictions:" + src.Name() + ":" + strconv.Itoa(gameweek)
			rows, err := cache.Load(ctx, a.cache, key, func(ctx context.Context) ([]prediction.Prediction, error) {
				return src.ListByGameweek(ctx, gameweek)
			})
			if err != nil {
				err = fmt.Errorf("load predictions source=%s gameweek=%d: %w", src.Name(), gameweek, err)
			}
			return loaded{index: i, rows: rows, err: err}
		})
	}
	results := p.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].index < results[j].index })

	out := make(map[int]Audience)
	for _, res := range results {
		if res.err != nil {
			return nil, res.err
		}
		for _, row := range res.rows {
			if row.UserID == "" || row.Gameweek != gameweek {
				continue
			}
			audience := out[row.FixtureIndex]
			if audience == nil {
				audience = Audience{}
				out[row.FixtureIndex] = audience
			}
			if _, taken := audience[row.UserID]; taken {
				continue
			}
			audience[row.UserID] = row.Outcome
		}
	}
	return out, nil
}
