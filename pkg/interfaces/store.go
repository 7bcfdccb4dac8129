package interfaces

import (
	"context"

	"swipee/pkg/types"
)

// RecordStore is the durable keyed map from SessionKey to SessionRecord.
// The physical backend is pluggable; the engine only needs these three
// operations, each atomic at the granularity of a single record. A reader
// never observes a record mid-write: a failed Put leaves the prior value
// intact, never a partial one.
//
// RecordStore does not serialize read-modify-write sequences; that is the
// engine's job (per-key locking). Implementations must only guarantee that
// individual Get/Put/Delete calls are atomic.
type RecordStore interface {
	// Get returns the record for key, or ErrSessionNotFound.
	Get(ctx context.Context, key types.SessionKey) (*types.SessionRecord, error)

	// Put durably replaces the full record bound to key, all or nothing.
	Put(ctx context.Context, key types.SessionKey, record *types.SessionRecord) error

	// Delete removes the record. Idempotent: an absent key is not an error.
	Delete(ctx context.Context, key types.SessionKey) error

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}
