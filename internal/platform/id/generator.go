package id

import (
	"strings"

	"github.com/google/uuid"
)

// eventNamespace scopes deterministic ids so they never collide with ids
// minted by other systems from the same inputs.
var eventNamespace = uuid.MustParse("6f1c2a7e-3d5b-4c8e-9a41-2b7d0e5f9c13")

// Generator creates opaque ids for runs and dispatches.
type Generator interface {
	NewID() string
}

type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

// NewID returns a time-ordered UUIDv7, falling back to v4.
func (g *RandomGenerator) NewID() string {
	if v, err := uuid.NewV7(); err == nil {
		return v.String()
	}
	return uuid.NewString()
}

// Deterministic derives a UUIDv5 from the given parts. The same parts always
// produce the same id.
func Deterministic(parts ...string) string {
	return uuid.NewSHA1(eventNamespace, []byte(strings.Join(parts, "|"))).String()
}
