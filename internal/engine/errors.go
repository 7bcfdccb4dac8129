package engine

import "errors"

// Engine error types. Not-found and storage errors are re-exported from
// pkg/interfaces by the store; these cover engine-level validation.
var (
	ErrInvalidGameType = errors.New("game type cannot be empty")
)
