package runlock

import "context"

// Repository is a plain read/write store for the lock row. It offers no
// compare-and-swap.
type Repository interface {
	Get(ctx context.Context, name string) (Record, bool, error)
	Put(ctx context.Context, record Record) error
}
