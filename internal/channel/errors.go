package channel

import "errors"

// Channel error types.
var (
	ErrBrokerClosed       = errors.New("broker is closed")
	ErrConnectionClosed   = errors.New("connection is closed")
	ErrWriteTimeout       = errors.New("write timed out")
	ErrInvalidTopic       = errors.New("topic must be 1-128 characters")
	ErrClientClosed       = errors.New("client is closed")
	ErrTopicMismatch      = errors.New("client is bound to a different topic")
	ErrAlreadyConnected   = errors.New("client already started")
	ErrConnectTimeout     = errors.New("timed out connecting to broker")
	ErrSubscriberNotFound = errors.New("subscription already cancelled")
)
