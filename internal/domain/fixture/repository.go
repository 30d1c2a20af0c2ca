package fixture

import "context"

// Source is one fixture table. Implementations return every row with a known
// external match id inside the window, terminal rows included.
type Source interface {
	Name() string
	ListByWindow(ctx context.Context, window Window) ([]Fixture, error)
}

// GameweekReader resolves the gameweek currently being played.
type GameweekReader interface {
	CurrentGameweek(ctx context.Context) (int, error)
}
