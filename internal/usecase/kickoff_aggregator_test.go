package usecase

import (
	"testing"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
)

func TestBucketKickoffs(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	fixtures := []fixture.Fixture{
		{ExternalMatchID: 4, KickoffAt: base.Add(2 * time.Hour)},
		{ExternalMatchID: 2, KickoffAt: base.Add(5 * time.Minute)},
		{ExternalMatchID: 1, KickoffAt: base},
		{ExternalMatchID: 3, KickoffAt: base.Add(-7 * time.Minute)},
	}

	got := BucketKickoffs(fixtures, 15*time.Minute)
	if len(got) != 2 {
		t.Fatalf("unexpected bucket count got=%d want=2", len(got))
	}

	first := got[0]
	if !first.Slot.Equal(base) || !first.Generic() {
		t.Fatalf("unexpected first bucket: %+v", first)
	}
	if len(first.Fixtures) != 3 || first.Fixtures[0].ExternalMatchID != 1 || first.Fixtures[2].ExternalMatchID != 3 {
		t.Fatalf("unexpected first bucket fixtures: %+v", first.Fixtures)
	}
	if got[1].Generic() || got[1].Fixtures[0].ExternalMatchID != 4 {
		t.Fatalf("unexpected second bucket: %+v", got[1])
	}
}

func TestBucketKickoffs_DefaultSlot(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	got := BucketKickoffs([]fixture.Fixture{
		{ExternalMatchID: 1, KickoffAt: base},
		{ExternalMatchID: 2, KickoffAt: base.Add(20 * time.Minute)},
	}, 0)
	if len(got) != 2 {
		t.Fatalf("unexpected bucket count got=%d want=2", len(got))
	}
}

func TestBucketKickoffs_UnknownKickoffStaysAlone(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 7, 15, 0, 0, 0, time.UTC)
	got := BucketKickoffs([]fixture.Fixture{
		{ExternalMatchID: 7},
		{ExternalMatchID: 5},
		{ExternalMatchID: 6, KickoffAt: base},
	}, 15*time.Minute)
	if len(got) != 3 {
		t.Fatalf("unexpected bucket count got=%d want=3", len(got))
	}
	for i, want := range []int64{5, 7, 6} {
		if got[i].Generic() || got[i].Fixtures[0].ExternalMatchID != want {
			t.Fatalf("bucket %d: got=%+v want match %d alone", i, got[i], want)
		}
	}
}
