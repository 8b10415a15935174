// Package metadata persists the local credential entries as rows of the
// metadata key/value table.
package metadata

import (
	"context"
)

// Repository reads and writes metadata rows. Put and Remove take several keys
// so callers can group a whole record in one transaction.
type Repository interface {
	All(ctx context.Context) (map[string]string, error)
	Put(ctx context.Context, entries map[string]string) error
	Remove(ctx context.Context, keys ...string) error
}
