package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
)

// FixtureSource is one in-memory fixture table.
type FixtureSource struct {
	name string

	mu    sync.RWMutex
	items map[int64]fixture.Fixture
}

func NewFixtureSource(name string, fixtures []fixture.Fixture) *FixtureSource {
	items := make(map[int64]fixture.Fixture, len(fixtures))
	for _, item := range fixtures {
		item.Source = name
		items[item.ExternalMatchID] = item
	}
	return &FixtureSource{name: name, items: items}
}

func (s *FixtureSource) Name() string {
	return s.name
}

func (s *FixtureSource) ListByWindow(_ context.Context, window fixture.Window) ([]fixture.Fixture, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(s.items))
	for _, item := range s.items {
		if item.ExternalMatchID <= 0 || !window.Contains(item.Gameweek) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalMatchID < out[j].ExternalMatchID })
	return out, nil
}

// Put replaces one fixture row, e.g. when upstream marks it finished.
func (s *FixtureSource) Put(item fixture.Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.Source = s.name
	s.items[item.ExternalMatchID] = item
}

type GameweekReader struct {
	mu      sync.RWMutex
	current int
}

func NewGameweekReader(current int) *GameweekReader {
	return &GameweekReader{current: current}
}

func (r *GameweekReader) CurrentGameweek(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.current, nil
}

func (r *GameweekReader) Set(current int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.current = current
}
