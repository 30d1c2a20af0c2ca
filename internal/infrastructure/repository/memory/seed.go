package memory

import (
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	"github.com/riskibarqy/livescore-sync/internal/domain/subscription"
)

const (
	SeedFixtureSource    = "fixtures"
	SeedPredictionSource = "predictions"
	SeedGameweek         = 1
)

// SeedFixtures is a small gameweek for local runs without a database.
// Kickoffs are relative to now so the dev loop always has something live.
func SeedFixtures(now time.Time) []fixture.Fixture {
	base := now.UTC().Truncate(time.Minute)
	return []fixture.Fixture{
		{ExternalMatchID: 537785, Gameweek: SeedGameweek, FixtureIndex: 1, HomeTeam: "Arsenal", AwayTeam: "Chelsea", KickoffAt: base.Add(-30 * time.Minute), Status: "IN_PLAY"},
		{ExternalMatchID: 537786, Gameweek: SeedGameweek, FixtureIndex: 2, HomeTeam: "Liverpool", AwayTeam: "Everton", KickoffAt: base.Add(-30 * time.Minute), Status: "IN_PLAY"},
		{ExternalMatchID: 537787, Gameweek: SeedGameweek, FixtureIndex: 3, HomeTeam: "Manchester United", AwayTeam: "Tottenham Hotspur", KickoffAt: base.Add(2 * time.Hour), Status: "SCHEDULED"},
		{ExternalMatchID: 537788, Gameweek: SeedGameweek + 1, FixtureIndex: 1, HomeTeam: "Newcastle United", AwayTeam: "Aston Villa", KickoffAt: base.Add(7 * 24 * time.Hour), Status: "SCHEDULED"},
	}
}

func SeedPredictions() []prediction.Prediction {
	return []prediction.Prediction{
		{UserID: "user-ayu", Gameweek: SeedGameweek, FixtureIndex: 1, Outcome: prediction.OutcomeHome},
		{UserID: "user-ayu", Gameweek: SeedGameweek, FixtureIndex: 2, Outcome: prediction.OutcomeDraw},
		{UserID: "user-budi", Gameweek: SeedGameweek, FixtureIndex: 1, Outcome: prediction.OutcomeAway},
		{UserID: "user-budi", Gameweek: SeedGameweek, FixtureIndex: 3, Outcome: prediction.OutcomeHome},
	}
}

func SeedSubscriptions() []subscription.PushSubscription {
	return []subscription.PushSubscription{
		{UserID: "user-ayu", DeviceToken: "dev-player-ayu", IsActive: true, Subscribed: true},
		{UserID: "user-budi", DeviceToken: "dev-player-budi", IsActive: true, Subscribed: true},
	}
}
