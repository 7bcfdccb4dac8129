package types

import "errors"

// Validation errors shared by the gateway and the engine.
var (
	ErrInvalidPresentationID = errors.New("presentation ID must be 1-64 characters, alphanumeric + underscore only")
	ErrInvalidSlideID        = errors.New("slide ID must be 1-64 characters, alphanumeric + underscore only")
	ErrInvalidAudienceID     = errors.New("audience ID must be 1-64 characters, alphanumeric + underscore/hyphen only")
	ErrInvalidEventName      = errors.New("event name must be STARTED or STOPPED")
	ErrInvalidQuestion       = errors.New("question must have an ID and exactly two options")
	ErrEmptyConfig           = errors.New("session config must contain at least one question")
	ErrInvalidMessageType    = errors.New("invalid realtime message type")
	ErrMissingPayload        = errors.New("realtime message payload missing or malformed")
)
