package swipe

import (
	"testing"

	"swipee/pkg/types"
)

func startMsg(ts int64, questions []types.Question) types.Message {
	return types.Message{
		ID:   "start",
		Type: types.MessageGameStart,
		Start: &types.StartPayload{
			Config:    types.SessionConfig{Questions: questions},
			Timestamp: ts,
		},
	}
}

func stopMsg(ts int64) types.Message {
	return types.Message{
		ID:   "stop",
		Type: types.MessageGameStop,
		Stop: &types.StopPayload{Timestamp: ts},
	}
}

func TestPlayState_StartTransition(t *testing.T) {
	p := NewPlayState(nil)
	if p.State() != StateWaitingForStart {
		t.Fatalf("initial state must be WAITING_FOR_START, got %s", p.State())
	}

	if !p.Apply(startMsg(100, deck(2))) {
		t.Fatal("first GAME_START must apply")
	}
	if p.State() != StateAnswering || p.QuestionIndex() != 0 {
		t.Errorf("expected ANSWERING(0), got %s(%d)", p.State(), p.QuestionIndex())
	}
	if p.StartedAt() != 100 {
		t.Errorf("timer baseline must come from the embedded timestamp, got %d", p.StartedAt())
	}
}

func TestPlayState_DuplicateStartDoesNotResetTimer(t *testing.T) {
	p := NewPlayState(deck(3))
	p.Apply(startMsg(100, nil))
	p.Swipe(DirectionRight)

	// The channel redelivers the same GAME_START.
	if p.Apply(startMsg(100, nil)) {
		t.Error("duplicate GAME_START must be a no-op")
	}
	if p.StartedAt() != 100 {
		t.Errorf("timer baseline moved on a duplicate: %d", p.StartedAt())
	}
	if p.QuestionIndex() != 1 {
		t.Errorf("progress reset by a duplicate: index %d", p.QuestionIndex())
	}
}

func TestPlayState_StaleStopDoesNotOverrideNewerStart(t *testing.T) {
	p := NewPlayState(deck(3))
	p.Apply(startMsg(200, nil))

	// An older GAME_STOP arrives late, out of order.
	if p.Apply(stopMsg(150)) {
		t.Error("stale GAME_STOP must not apply")
	}
	if p.State() != StateAnswering {
		t.Errorf("stale stop overrode running state: %s", p.State())
	}
}

func TestPlayState_StopForcesWaiting(t *testing.T) {
	p := NewPlayState(deck(3))
	p.Apply(startMsg(100, nil))
	p.Swipe(DirectionRight)

	if !p.Apply(stopMsg(300)) {
		t.Fatal("newer GAME_STOP must apply")
	}
	if p.State() != StateWaitingForStart {
		t.Errorf("GAME_STOP must force WAITING_FOR_START, got %s", p.State())
	}
	if p.StartedAt() != 0 {
		t.Error("timer baseline must clear on stop")
	}
}

func TestPlayState_SwipeThroughDeck(t *testing.T) {
	questions := []types.Question{
		{ID: "q1", Options: []types.Option{{IsCorrect: true}, {}}},
		{ID: "q2", Options: []types.Option{{}, {IsCorrect: true}}},
	}
	p := NewPlayState(questions)
	p.Apply(startMsg(100, nil))

	correct, done := p.Swipe(DirectionRight) // q1: first option correct
	if !correct || done {
		t.Errorf("q1 right swipe: correct=%v done=%v, want true,false", correct, done)
	}

	correct, done = p.Swipe(DirectionRight) // q2: first option wrong
	if correct {
		t.Error("q2 right swipe must be incorrect")
	}
	if !done {
		t.Error("deck must be complete after the last question")
	}
	if p.State() != StateComplete {
		t.Errorf("expected COMPLETE, got %s", p.State())
	}
	if p.CorrectCount() != 1 {
		t.Errorf("expected 1 correct answer, got %d", p.CorrectCount())
	}

	// Swiping in COMPLETE does nothing.
	if correct, done = p.Swipe(DirectionLeft); correct || !done {
		t.Error("swipes after completion must be no-ops")
	}
}

func TestPlayState_SkipDoesNotAdvance(t *testing.T) {
	p := NewPlayState(deck(2))
	p.Apply(startMsg(100, nil))

	correct, done := p.Swipe(DirectionUp)
	if correct || done {
		t.Error("skip gesture must not answer or finish")
	}
	if p.QuestionIndex() != 0 {
		t.Errorf("skip gesture must not advance, index %d", p.QuestionIndex())
	}
}

func TestPlayState_SwipeWhileWaitingIsIgnored(t *testing.T) {
	p := NewPlayState(deck(2))
	if correct, done := p.Swipe(DirectionRight); correct || done {
		t.Error("swipes before GAME_START must be ignored")
	}
	if p.QuestionIndex() != 0 {
		t.Error("index must not move before the game starts")
	}
}

func TestPlayState_SyncRecordDiscoversRunningPhase(t *testing.T) {
	// A late joiner never saw GAME_START on the channel; it loads the
	// durable record instead.
	record := &types.SessionRecord{
		Config: types.SessionConfig{Questions: deck(2)},
		Events: []types.LifecycleEvent{
			{EventName: types.EventStarted, Timestamp: 500},
		},
	}
	p := NewPlayState(nil)
	p.SyncRecord(record)

	if p.State() != StateAnswering {
		t.Errorf("sync against a running record must enter ANSWERING, got %s", p.State())
	}
	if p.StartedAt() != 500 {
		t.Errorf("timer baseline must be the STARTED event timestamp, got %d", p.StartedAt())
	}
}

func TestPlayState_SyncRecordOlderThanApplied(t *testing.T) {
	p := NewPlayState(deck(2))
	p.Apply(startMsg(1000, nil))
	p.Swipe(DirectionRight)

	// Record fetched before our applied start; must not rewind.
	record := &types.SessionRecord{Events: []types.LifecycleEvent{
		{EventName: types.EventStopped, Timestamp: 900},
	}}
	p.SyncRecord(record)

	if p.State() != StateAnswering || p.QuestionIndex() != 1 {
		t.Errorf("stale record sync rewound state: %s(%d)", p.State(), p.QuestionIndex())
	}
}
