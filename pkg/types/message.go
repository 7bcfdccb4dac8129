package types

import (
	"encoding/json"
	"fmt"
)

// MessageType tags a realtime channel message.
type MessageType string

const (
	MessageGameStart   MessageType = "GAME_START"
	MessageGameStop    MessageType = "GAME_STOP"
	MessageScoreUpdate MessageType = "SCORE_UPDATE"
)

// StartPayload announces a phase transition to RUNNING. Timestamp is the
// engine-assigned timestamp of the STARTED event, not the publish time.
type StartPayload struct {
	Config    SessionConfig `json:"config"`
	Timestamp int64         `json:"timestamp"`
}

// StopPayload announces a phase transition out of RUNNING.
type StopPayload struct {
	Timestamp int64 `json:"timestamp"`
}

// ScorePayload streams an appended score entry to the presenter.
type ScorePayload struct {
	Key       SessionKey `json:"key"`
	Entry     ScoreEntry `json:"entry"`
	Timestamp int64      `json:"timestamp"`
}

// Message is the realtime channel envelope: a tagged union over the three
// message kinds. Exactly one payload pointer is set, matching Type. ID is
// assigned by the publisher so subscribers can drop duplicate deliveries.
//
// Subscribers must treat the embedded payload timestamp, never arrival
// order, as the source of truth for "latest state".
type Message struct {
	ID    string
	Type  MessageType
	Start *StartPayload
	Stop  *StopPayload
	Score *ScorePayload
}

// Timestamp returns the embedded payload timestamp, or 0 for a message
// with no payload set.
func (m Message) Timestamp() int64 {
	switch m.Type {
	case MessageGameStart:
		if m.Start != nil {
			return m.Start.Timestamp
		}
	case MessageGameStop:
		if m.Stop != nil {
			return m.Stop.Timestamp
		}
	case MessageScoreUpdate:
		if m.Score != nil {
			return m.Score.Timestamp
		}
	}
	return 0
}

// Validate checks that the type tag is known and the matching payload is set.
func (m *Message) Validate() error {
	switch m.Type {
	case MessageGameStart:
		if m.Start == nil {
			return ErrMissingPayload
		}
	case MessageGameStop:
		if m.Stop == nil {
			return ErrMissingPayload
		}
	case MessageScoreUpdate:
		if m.Score == nil {
			return ErrMissingPayload
		}
	default:
		return ErrInvalidMessageType
	}
	return nil
}

// envelope is the wire shape: {"id": ..., "type": ..., "payload": ...}.
type envelope struct {
	ID      string          `json:"id,omitempty"`
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the set payload under the wire envelope.
func (m Message) MarshalJSON() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	var payload any
	switch m.Type {
	case MessageGameStart:
		payload = m.Start
	case MessageGameStop:
		payload = m.Stop
	case MessageScoreUpdate:
		payload = m.Score
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", m.Type, err)
	}
	return json.Marshal(envelope{ID: m.ID, Type: m.Type, Payload: raw})
}

// UnmarshalJSON dispatches the envelope payload into the typed variant.
func (m *Message) UnmarshalJSON(data []byte) error {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*m = Message{ID: env.ID, Type: env.Type}
	if len(env.Payload) == 0 {
		return ErrMissingPayload
	}
	switch env.Type {
	case MessageGameStart:
		m.Start = &StartPayload{}
		if err := json.Unmarshal(env.Payload, m.Start); err != nil {
			return fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	case MessageGameStop:
		m.Stop = &StopPayload{}
		if err := json.Unmarshal(env.Payload, m.Stop); err != nil {
			return fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	case MessageScoreUpdate:
		m.Score = &ScorePayload{}
		if err := json.Unmarshal(env.Payload, m.Score); err != nil {
			return fmt.Errorf("decode %s payload: %w", env.Type, err)
		}
	default:
		return ErrInvalidMessageType
	}
	return nil
}
