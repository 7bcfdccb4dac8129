package types

// Game type tag stored on every session record. Other activity types may
// share the store later; the engine itself never interprets the tag.
const GameTypeSwipee = "swipee"

// EventName identifies a lifecycle transition in a session's event log.
type EventName string

const (
	EventStarted EventName = "STARTED"
	EventStopped EventName = "STOPPED"
)

// Phase is the derived running state of a session. It is never stored;
// the engine derives it from the event log.
type Phase string

const (
	PhaseStoppedOrNew Phase = "STOPPED_OR_NEW"
	PhaseRunning      Phase = "RUNNING"
)

// SessionKey identifies a session by its presentation and slide pair.
// ID formats are restricted so the flattened "{presentation}-{slide}"
// store key stays collision free across distinct pairs.
type SessionKey struct {
	PresentationID string `json:"presentationId"`
	SlideID        string `json:"slideId"`
}

// NewSessionKey builds a validated session key.
func NewSessionKey(presentationID, slideID string) (SessionKey, error) {
	if !IsValidID(presentationID) {
		return SessionKey{}, ErrInvalidPresentationID
	}
	if !IsValidID(slideID) {
		return SessionKey{}, ErrInvalidSlideID
	}
	return SessionKey{PresentationID: presentationID, SlideID: slideID}, nil
}

// String returns the flattened store key for this session.
func (k SessionKey) String() string {
	return k.PresentationID + "-" + k.SlideID
}

// Option is one side of a swipe question card.
type Option struct {
	Title     string `json:"title"`
	ImageURL  string `json:"imageUrl"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a binary-choice card. Options holds exactly two entries;
// a right swipe selects Options[0].
type Question struct {
	ID      string   `json:"id"`
	Options []Option `json:"options"`
}

// SessionConfig is the presenter-owned quiz definition. It is set at
// initialization and only ever replaced wholesale, never patched.
type SessionConfig struct {
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// LifecycleEvent is one entry in a session's append-only event log.
// Timestamp is assigned by the engine at append time, in milliseconds
// since epoch, and is non-decreasing within a session.
type LifecycleEvent struct {
	EventName EventName `json:"event_name"`
	Timestamp int64     `json:"timestamp"`
}

// ScoreEntry is one entry in a session's append-only score log.
// AudienceID identifies a participant within the session only.
type ScoreEntry struct {
	AudienceID    string `json:"audienceId"`
	AudienceName  string `json:"audienceName,omitempty"`
	AudienceEmoji string `json:"audienceEmoji,omitempty"`
	Score         int    `json:"score"`
	Timestamp     int64  `json:"timestamp"`
}

// SessionRecord is the full authoritative value bound to a SessionKey.
// Events and Scores are append-only and ordered by append time. Version
// counts writes so callers can detect that a record was overwritten; the
// engine bumps it on every mutation but never rejects on mismatch.
type SessionRecord struct {
	Type    string           `json:"type"`
	Config  SessionConfig    `json:"config"`
	Events  []LifecycleEvent `json:"events"`
	Scores  []ScoreEntry     `json:"scores"`
	Version int64            `json:"version"`
}

// Clone returns a deep copy of the record. Stores hand out clones so a
// caller can never mutate durable state behind the engine's back.
func (r *SessionRecord) Clone() *SessionRecord {
	if r == nil {
		return nil
	}
	out := &SessionRecord{
		Type:    r.Type,
		Version: r.Version,
		Config: SessionConfig{
			Title:     r.Config.Title,
			Questions: make([]Question, len(r.Config.Questions)),
		},
		Events: make([]LifecycleEvent, len(r.Events)),
		Scores: make([]ScoreEntry, len(r.Scores)),
	}
	for i, q := range r.Config.Questions {
		cq := Question{ID: q.ID, Options: make([]Option, len(q.Options))}
		copy(cq.Options, q.Options)
		out.Config.Questions[i] = cq
	}
	copy(out.Events, r.Events)
	copy(out.Scores, r.Scores)
	return out
}
