package notification

import "context"

type StateRepository interface {
	GetByKeys(ctx context.Context, keys []StateKey) (map[StateKey]State, error)
	Upsert(ctx context.Context, state State) error
}

// LogRepository is the per-user dispatch ledger.
type LogRepository interface {
	// AcceptedEventIDs returns the subset of eventIDs already delivered.
	AcceptedEventIDs(ctx context.Context, eventIDs []string) (map[string]struct{}, error)
	Upsert(ctx context.Context, entry Log) error
}
