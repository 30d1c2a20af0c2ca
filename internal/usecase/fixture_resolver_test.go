package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/infrastructure/repository/memory"
)

type failingFixtureSource struct {
	name string
}

func (s failingFixtureSource) Name() string { return s.name }

func (s failingFixtureSource) ListByWindow(context.Context, fixture.Window) ([]fixture.Fixture, error) {
	return nil, errors.New("relation does not exist")
}

func TestFixtureResolver_CurrentWindow(t *testing.T) {
	t.Parallel()

	resolver := NewFixtureResolver(memory.NewGameweekReader(12), nil, 1, nil, nil)
	window, err := resolver.CurrentWindow(context.Background())
	if err != nil {
		t.Fatalf("CurrentWindow error: %v", err)
	}
	if window.From != 12 || window.To != 13 {
		t.Fatalf("unexpected window: %+v", window)
	}

	resolver = NewFixtureResolver(memory.NewGameweekReader(0), nil, 1, nil, nil)
	if _, err := resolver.CurrentWindow(context.Background()); !errors.Is(err, ErrDataInconsistency) {
		t.Fatalf("unexpected error got=%v want=%v", err, ErrDataInconsistency)
	}
}

func TestFixtureResolver_MergesSourcesByMatchID(t *testing.T) {
	t.Parallel()

	kickoff := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	primary := memory.NewFixtureSource("fixtures_primary", []fixture.Fixture{
		{ExternalMatchID: 100, Gameweek: 5, FixtureIndex: 1, HomeTeam: "Manchester United", AwayTeam: "TBD", KickoffAt: kickoff, Status: "SCHEDULED"},
		{ExternalMatchID: 101, Gameweek: 5, FixtureIndex: 2, HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: kickoff.Add(-time.Hour), Status: "FINISHED"},
	})
	secondary := memory.NewFixtureSource("fixtures_secondary", []fixture.Fixture{
		{ExternalMatchID: 100, Gameweek: 5, HomeTeam: "Man Utd", AwayTeam: "Tottenham Hotspur", Status: "SCHEDULED"},
		{ExternalMatchID: 102, Gameweek: 6, FixtureIndex: 1, HomeTeam: "Wolves", AwayTeam: "Brighton", KickoffAt: kickoff.Add(-2 * time.Hour), Status: "IN_PLAY"},
		{ExternalMatchID: 103, Gameweek: 9, FixtureIndex: 1, HomeTeam: "Everton", AwayTeam: "Fulham", KickoffAt: kickoff, Status: "SCHEDULED"},
	})

	resolver := NewFixtureResolver(memory.NewGameweekReader(5), []fixture.Source{primary, secondary}, 1, nil, nil)
	got, err := resolver.Resolve(context.Background(), fixture.NewWindow(5, 1))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	if len(got.All) != 3 {
		t.Fatalf("unexpected fixture count got=%d want=3", len(got.All))
	}
	if _, ok := got.All[103]; ok {
		t.Fatalf("fixture outside window must be dropped")
	}
	if len(got.Active) != 2 {
		t.Fatalf("unexpected active count got=%d want=2", len(got.Active))
	}
	if got.Active[0].ExternalMatchID != 102 || got.Active[1].ExternalMatchID != 100 {
		t.Fatalf("active set not ordered by kickoff: %+v", got.Active)
	}

	merged := got.All[100]
	if merged.Source != "fixtures_primary" {
		t.Fatalf("unexpected winning source got=%s want=fixtures_primary", merged.Source)
	}
	if merged.HomeTeam != "Man Utd" || merged.AwayTeam != "Spurs" {
		t.Fatalf("unexpected merged teams: %s v %s", merged.HomeTeam, merged.AwayTeam)
	}
	if merged.FixtureIndex != 1 || !merged.KickoffAt.Equal(kickoff) {
		t.Fatalf("unexpected merged fields: %+v", merged)
	}
}

func TestFixtureResolver_FailingSourceIsSkipped(t *testing.T) {
	t.Parallel()

	ok := memory.NewFixtureSource("fixtures_ok", []fixture.Fixture{
		{ExternalMatchID: 1, Gameweek: 3, FixtureIndex: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", Status: "SCHEDULED"},
	})
	resolver := NewFixtureResolver(memory.NewGameweekReader(3), []fixture.Source{failingFixtureSource{name: "fixtures_broken"}, ok}, 0, nil, nil)

	got, err := resolver.Resolve(context.Background(), fixture.NewWindow(3, 0))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(got.Active) != 1 {
		t.Fatalf("unexpected active count got=%d want=1", len(got.Active))
	}
	if len(got.FailedSource) != 1 || got.FailedSource[0] != "fixtures_broken" {
		t.Fatalf("unexpected failed sources: %v", got.FailedSource)
	}

	resolver = NewFixtureResolver(memory.NewGameweekReader(3), []fixture.Source{failingFixtureSource{name: "a"}, failingFixtureSource{name: "b"}}, 0, nil, nil)
	if _, err := resolver.Resolve(context.Background(), fixture.NewWindow(3, 0)); err == nil {
		t.Fatalf("expected error when every source fails")
	}
}

func TestResolution_ForGameweek(t *testing.T) {
	t.Parallel()

	res := Resolution{All: map[int64]fixture.Fixture{
		3: {ExternalMatchID: 3, Gameweek: 4, FixtureIndex: 2},
		1: {ExternalMatchID: 1, Gameweek: 4, FixtureIndex: 1},
		2: {ExternalMatchID: 2, Gameweek: 5, FixtureIndex: 1},
	}}

	got := res.ForGameweek(4)
	if len(got) != 2 || got[0].ExternalMatchID != 1 || got[1].ExternalMatchID != 3 {
		t.Fatalf("unexpected gameweek fixtures: %+v", got)
	}
}
