// Package swipe holds the game semantics that run on the audience side:
// pure swipe evaluation and the client-local play state machine. Nothing
// here touches the server record; scores flow back through the outbox.
package swipe

import (
	"math"

	"swipee/pkg/types"
)

// Direction is a swipe gesture. Left and right answer the current
// question; up and down are non-answering skip gestures.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
	DirectionDown  Direction = "down"
)

// NextIndex returns the question index to show after a swipe, or -1 when
// the deck is exhausted. Up/down leave the index unchanged. An empty deck
// or an out-of-range current index yields -1.
func NextIndex(questions []types.Question, currentIndex int, direction Direction) int {
	if len(questions) == 0 || currentIndex < 0 || currentIndex >= len(questions) {
		return -1
	}
	if direction != DirectionLeft && direction != DirectionRight {
		return currentIndex
	}
	next := currentIndex + 1
	if next >= len(questions) {
		return -1
	}
	return next
}

// IsCorrect reports whether the swipe answers the question correctly:
// a right swipe claims the first option. Up/down give no answer.
// Evaluation is total: a nil or malformed question is simply incorrect,
// never an error.
func IsCorrect(question *types.Question, direction Direction) bool {
	if question == nil || len(question.Options) == 0 {
		return false
	}
	if direction != DirectionLeft && direction != DirectionRight {
		return false
	}
	return (direction == DirectionRight) == question.Options[0].IsCorrect
}

// PercentScore converts a correct-answer count into a 0-100 score.
func PercentScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
