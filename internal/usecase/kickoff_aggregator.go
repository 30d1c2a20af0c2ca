package usecase

import (
	"sort"
	"time"

	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
)

const defaultKickoffSlot = 15 * time.Minute

// KickoffBucket holds fixtures whose kickoff rounds to the same slot.
type KickoffBucket struct {
	Slot     time.Time
	Fixtures []fixture.Fixture
}

// Generic reports whether the bucket gets the shared "N games starting" copy.
func (b KickoffBucket) Generic() bool {
	return len(b.Fixtures) > 1
}

// BucketKickoffs groups fixtures by kickoff rounded to the nearest slot.
// A fixture with no kickoff time always gets a bucket of its own. Buckets and
// their fixtures are returned in time then id order.
func BucketKickoffs(fixtures []fixture.Fixture, slot time.Duration) []KickoffBucket {
	if slot <= 0 {
		slot = defaultKickoffSlot
	}

	out := make([]KickoffBucket, 0, len(fixtures))
	bySlot := make(map[time.Time][]fixture.Fixture)
	for _, item := range fixtures {
		if item.KickoffAt.IsZero() {
			out = append(out, KickoffBucket{Fixtures: []fixture.Fixture{item}})
			continue
		}
		key := item.KickoffAt.UTC().Round(slot)
		bySlot[key] = append(bySlot[key], item)
	}

	for key, items := range bySlot {
		sort.Slice(items, func(i, j int) bool { return items[i].ExternalMatchID < items[j].ExternalMatchID })
		out = append(out, KickoffBucket{Slot: key, Fixtures: items})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Slot.Equal(out[j].Slot) {
			return out[i].Slot.Before(out[j].Slot)
		}
		return out[i].Fixtures[0].ExternalMatchID < out[j].Fixtures[0].ExternalMatchID
	})
	return out
}
