package types

import "regexp"

// Compiled once at package initialization; validation runs on every
// gateway request.
var (
	// Hyphens are excluded from session identifiers because the store key
	// joins the pair with a hyphen; allowing them would let distinct pairs
	// collide ("a-b"+"c" vs "a"+"b-c").
	sessionIDRegex  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	audienceIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// IsValidID checks a presentation or slide identifier.
func IsValidID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}
	return sessionIDRegex.MatchString(id)
}

// IsValidAudienceID checks a participant identifier.
func IsValidAudienceID(id string) bool {
	if len(id) < 1 || len(id) > 64 {
		return false
	}
	return audienceIDRegex.MatchString(id)
}

// IsValidEventName checks a lifecycle event name.
func IsValidEventName(name EventName) bool {
	return name == EventStarted || name == EventStopped
}

// Validate ensures a question is well formed: non-empty ID and exactly
// two options.
func (q *Question) Validate() error {
	if q.ID == "" || len(q.Options) != 2 {
		return ErrInvalidQuestion
	}
	return nil
}

// Validate ensures a config carries at least one well-formed question.
func (c *SessionConfig) Validate() error {
	if len(c.Questions) == 0 {
		return ErrEmptyConfig
	}
	for i := range c.Questions {
		if err := c.Questions[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate ensures a score entry names a valid participant.
func (s *ScoreEntry) Validate() error {
	if !IsValidAudienceID(s.AudienceID) {
		return ErrInvalidAudienceID
	}
	return nil
}
