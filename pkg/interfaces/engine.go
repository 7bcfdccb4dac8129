package interfaces

import (
	"context"

	"swipee/pkg/types"
)

// GameEngine owns the authoritative per-session record. Every mutation is
// an atomic read-modify-write against the RecordStore, serialized per key;
// operations on different keys never block each other.
type GameEngine interface {
	// Initialize creates or overwrites the record with the given config and
	// empty event/score logs. Overwrite semantics are deliberate: callers
	// relying on create-if-absent must Get first.
	Initialize(ctx context.Context, key types.SessionKey, gameType string, config types.SessionConfig) error

	// AppendEvent stamps the event with the engine clock, appends it and
	// returns the resulting phase. ErrSessionNotFound if no record exists.
	AppendEvent(ctx context.Context, key types.SessionKey, name types.EventName) (types.Phase, error)

	// AppendScore stamps and appends a score entry.
	// ErrSessionNotFound if no record exists.
	AppendScore(ctx context.Context, key types.SessionKey, entry types.ScoreEntry) error

	// ReplaceConfig swaps the config wholesale, leaving both logs intact.
	// ErrSessionNotFound if no record exists.
	ReplaceConfig(ctx context.Context, key types.SessionKey, config types.SessionConfig) error

	// GetRecord returns the full record. Late-joining clients use this to
	// reconstruct phase without having observed earlier channel messages.
	GetRecord(ctx context.Context, key types.SessionKey) (*types.SessionRecord, error)

	// Delete removes the record. Idempotent.
	Delete(ctx context.Context, key types.SessionKey) error
}
