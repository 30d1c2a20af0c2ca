package runlock

import "time"

// LiveScoresLock names the singleton guarding the live score cycle.
const LiveScoresLock = "live_scores"

type Result string

const (
	ResultAcquired Result = "acquired"
	ResultSkipped  Result = "skipped"
)

// Record is the persisted singleton row.
type Record struct {
	Name         string
	LastPollTime time.Time
}
