package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/livescore"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
)

// Resolution is the canonical fixture set for one cycle.
type Resolution struct {
	Window fixture.Window
	// Active is the poll set: non-terminal fixtures ordered by kickoff.
	Active []fixture.Fixture
	// All indexes every fixture in the window, terminal ones included.
	All          map[int64]fixture.Fixture
	FailedSource []string
}

// ForGameweek returns every fixture of one gameweek, ordered by index.
func (r Resolution) ForGameweek(gameweek int) []fixture.Fixture {
	out := make([]fixture.Fixture, 0)
	for _, item := range r.All {
		if item.Gameweek == gameweek {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FixtureIndex != out[j].FixtureIndex {
			return out[i].FixtureIndex < out[j].FixtureIndex
		}
		return out[i].ExternalMatchID < out[j].ExternalMatchID
	})
	return out
}

// FixtureResolver merges fixture rows from N tables into one set keyed by
// external match id.
type FixtureResolver struct {
	sources   []fixture.Source
	gameweeks fixture.GameweekReader
	lookahead int
	aliases   *livescore.TeamAliases
	logger    *logging.Logger
}

func NewFixtureResolver(
	gameweeks fixture.GameweekReader,
	sources []fixture.Source,
	lookahead int,
	aliases *livescore.TeamAliases,
	logger *logging.Logger,
) *FixtureResolver {
	if logger == nil {
		logger = logging.Default()
	}
	if aliases == nil {
		aliases = livescore.DefaultTeamAliases()
	}
	if lookahead < 0 {
		lookahead = 0
	}
	return &FixtureResolver{
		sources:   sources,
		gameweeks: gameweeks,
		lookahead: lookahead,
		aliases:   aliases,
		logger:    logger,
	}
}

// CurrentWindow is [current, current+lookahead].
func (r *FixtureResolver) CurrentWindow(ctx context.Context) (fixture.Window, error) {
	current, err := r.gameweeks.CurrentGameweek(ctx)
	if err != nil {
		return fixture.Window{}, fmt.Errorf("resolve current gameweek: %w", err)
	}
	if current <= 0 {
		return fixture.Window{}, fmt.Errorf("%w: current gameweek=%d", ErrDataInconsistency, current)
	}
	return fixture.NewWindow(current, r.lookahead), nil
}

type sourceRows struct {
	index int
	name  string
	rows  []fixture.Fixture
	err   error
}

func (r *FixtureResolver) Resolve(ctx context.Context, window fixture.Window) (Resolution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FixtureResolver.Resolve")
	defer span.End()

	if len(r.sources) == 0 {
		return Resolution{}, fmt.Errorf("%w: no fixture sources registered", ErrInvalidInput)
	}

	p := pool.NewWithResults[sourceRows]().WithMaxGoroutines(len(r.sources))
	for i, src := range r.sources {
		i, src := i, src
		p.Go(func() sourceRows {
			rows, err := src.ListByWindow(ctx, window)
			return sourceRows{index: i, name: src.Name(), rows: rows, err: err}
		})
	}
	loaded := p.Wait()
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].index < loaded[j].index })

	resolution := Resolution{Window: window, All: make(map[int64]fixture.Fixture)}
	candidates := make(map[int64][]fixture.Fixture)
	active := make(map[int64]bool)
	var errs []error
	for _, src := range loaded {
		if src.err != nil {
			r.logger.WarnContext(ctx, "fixture source failed, skipping",
				"source", src.name,
				"gameweek_from", window.From,
				"gameweek_to", window.To,
				"error", src.err,
			)
			resolution.FailedSource = append(resolution.FailedSource, src.name)
			errs = append(errs, fmt.Errorf("source %s: %w", src.name, src.err))
			continue
		}
		for _, row := range src.rows {
			if row.ExternalMatchID <= 0 || !window.Contains(row.Gameweek) {
				continue
			}
			if row.Source == "" {
				row.Source = src.name
			}
			candidates[row.ExternalMatchID] = append(candidates[row.ExternalMatchID], row)
			if !fixture.IsTerminalStatus(row.Status) {
				active[row.ExternalMatchID] = true
			}
		}
	}
	if len(errs) == len(r.sources) {
		return Resolution{}, fmt.Errorf("all fixture sources failed: %w", errors.Join(errs...))
	}

	for matchID, rows := range candidates {
		merged := r.merge(ctx, rows)
		resolution.All[matchID] = merged
		if active[matchID] {
			resolution.Active = append(resolution.Active, merged)
		}
	}

	sort.Slice(resolution.Active, func(i, j int) bool {
		left, right := resolution.Active[i], resolution.Active[j]
		if !left.KickoffAt.Equal(right.KickoffAt) {
			return left.KickoffAt.Before(right.KickoffAt)
		}
		return left.ExternalMatchID < right.ExternalMatchID
	})

	return resolution, nil
}

// merge picks the most complete candidate, earlier sources winning ties, and
// fills its gaps from the others.
func (r *FixtureResolver) merge(ctx context.Context, rows []fixture.Fixture) fixture.Fixture {
	best := 0
	for i := 1; i < len(rows); i++ {
		if rows[i].Completeness() > rows[best].Completeness() {
			best = i
		}
	}
	merged := rows[best]

	for i, other := range rows {
		if i == best {
			continue
		}
		if fixture.IsPlaceholderTeam(merged.HomeTeam) && !fixture.IsPlaceholderTeam(other.HomeTeam) {
			merged.HomeTeam = other.HomeTeam
		}
		if fixture.IsPlaceholderTeam(merged.AwayTeam) && !fixture.IsPlaceholderTeam(other.AwayTeam) {
			merged.AwayTeam = other.AwayTeam
		}
		if merged.KickoffAt.IsZero() {
			merged.KickoffAt = other.KickoffAt
		}
		if merged.FixtureIndex <= 0 {
			merged.FixtureIndex = other.FixtureIndex
		}
		if !fixture.IsPlaceholderTeam(other.HomeTeam) && !r.aliases.Same(merged.HomeTeam, other.HomeTeam) ||
			!fixture.IsPlaceholderTeam(other.AwayTeam) && !r.aliases.Same(merged.AwayTeam, other.AwayTeam) {
			r.logger.DebugContext(ctx, "fixture sources disagree on teams",
				"external_match_id", merged.ExternalMatchID,
				"chosen_source", merged.Source,
				"other_source", other.Source,
				"chosen", merged.HomeTeam+" v "+merged.AwayTeam,
				"other", other.HomeTeam+" v "+other.AwayTeam,
			)
		}
	}

	merged.HomeTeam = r.aliases.Canonical(merged.HomeTeam)
	merged.AwayTeam = r.aliases.Canonical(merged.AwayTeam)
	return merged
}
