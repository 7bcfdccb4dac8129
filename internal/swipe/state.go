package swipe

import (
	"sync"

	"swipee/pkg/types"
)

// StateKind is the client-local play state.
type StateKind string

const (
	StateWaitingForStart StateKind = "WAITING_FOR_START"
	StateAnswering       StateKind = "ANSWERING"
	StateComplete        StateKind = "COMPLETE"
)

// PlayState is one audience member's local view of the game. It advances
// on swipes and on realtime messages, and is deliberately tolerant of the
// channel's delivery quirks: duplicate and out-of-order messages are
// applied by comparing embedded timestamps, so a replayed GAME_START never
// resets a running timer and a stale GAME_STOP never overrides a newer
// start.
type PlayState struct {
	mu sync.Mutex

	questions []types.Question
	state     StateKind
	index     int
	correct   int

	startedAt   int64 // timestamp of the applied STARTED transition, ms
	lastApplied int64 // newest embedded timestamp applied so far
}

// NewPlayState creates a state machine waiting for the game to start.
func NewPlayState(questions []types.Question) *PlayState {
	return &PlayState{
		questions: questions,
		state:     StateWaitingForStart,
	}
}

// Apply folds a realtime message into the local state. Returns true when
// the message changed anything; duplicates and stale messages return
// false. SCORE_UPDATE messages are presenter-side telemetry and are
// ignored here.
func (p *PlayState) Apply(msg types.Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	ts := msg.Timestamp()
	switch msg.Type {
	case types.MessageGameStart:
		if ts <= p.lastApplied {
			return false // duplicate or older than what we already applied
		}
		if msg.Start != nil && len(msg.Start.Config.Questions) > 0 {
			p.questions = msg.Start.Config.Questions
		}
		p.startRunning(ts)
		return true

	case types.MessageGameStop:
		if ts <= p.lastApplied {
			// A stop older than the applied start must not override the
			// newer running state.
			return false
		}
		p.lastApplied = ts
		p.state = StateWaitingForStart
		p.index = 0
		p.correct = 0
		p.startedAt = 0
		return true

	default:
		return false
	}
}

// SyncRecord reconciles local state from the durable record, e.g. on
// initial load or after a reconnect during which channel messages were
// missed. The record is authoritative: pub/sub is only a latency hint.
func (p *PlayState) SyncRecord(record *types.SessionRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if record == nil || len(record.Events) == 0 {
		return
	}
	last := record.Events[len(record.Events)-1]
	if last.Timestamp <= p.lastApplied {
		return
	}
	if len(record.Config.Questions) > 0 {
		p.questions = record.Config.Questions
	}
	if last.EventName == types.EventStarted {
		p.startRunning(last.Timestamp)
	} else {
		p.lastApplied = last.Timestamp
		p.state = StateWaitingForStart
		p.index = 0
		p.correct = 0
		p.startedAt = 0
	}
}

// startRunning transitions to ANSWERING(0). Caller holds the lock.
func (p *PlayState) startRunning(ts int64) {
	p.lastApplied = ts
	p.startedAt = ts
	p.state = StateAnswering
	p.index = 0
	p.correct = 0
}

// Swipe answers (or skips) the current question. It reports whether the
// answer was correct and whether the deck is now complete. Swipes outside
// the ANSWERING state do nothing.
func (p *PlayState) Swipe(direction Direction) (wasCorrect bool, done bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateAnswering {
		return false, p.state == StateComplete
	}

	var current *types.Question
	if p.index >= 0 && p.index < len(p.questions) {
		current = &p.questions[p.index]
	}
	wasCorrect = IsCorrect(current, direction)
	if wasCorrect {
		p.correct++
	}

	next := NextIndex(p.questions, p.index, direction)
	if next == -1 {
		p.state = StateComplete
		return wasCorrect, true
	}
	p.index = next
	return wasCorrect, false
}

// State returns the current state kind.
func (p *PlayState) State() StateKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// QuestionIndex returns the index of the question being answered.
func (p *PlayState) QuestionIndex() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// CorrectCount returns how many answers were correct so far.
func (p *PlayState) CorrectCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.correct
}

// StartedAt returns the timestamp the running game started from, in
// milliseconds, or 0 when not running. Elapsed-time displays derive from
// this baseline, never from message arrival times.
func (p *PlayState) StartedAt() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.startedAt
}
