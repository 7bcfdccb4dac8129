package interfaces

import "errors"

// Error taxonomy shared across components.
var (
	// ErrSessionNotFound: an operation referenced a session key with no
	// record, e.g. an append before initialize. A deleted session is
	// indistinguishable from one that was never created.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStorageFailure: store I/O failed. The previously durable value
	// remains intact; the write as a whole did not happen.
	ErrStorageFailure = errors.New("storage failure")

	// ErrTransportUnavailable: the realtime channel could not publish or
	// subscribe. Never fatal; clients recover by reconnecting and reading
	// the durable record.
	ErrTransportUnavailable = errors.New("realtime transport unavailable")

	// ErrConflict is reserved for create-if-absent initialize semantics.
	// Not currently returned: initialize is overwrite-only.
	ErrConflict = errors.New("session already exists")
)
