package types

import "fmt"

// DummyQuestions returns a fixed five-question true/false deck, useful
// for demos and local development before a real config is authored.
// Correctness alternates so both swipe directions get exercised.
func DummyQuestions() []Question {
	questions := make([]Question, 5)
	for i := range questions {
		correct := i%2 == 0
		questions[i] = Question{
			ID: fmt.Sprintf("dummy_%d", i+1),
			Options: []Option{
				{Title: "True", IsCorrect: correct},
				{Title: "False", IsCorrect: !correct},
			},
		}
	}
	return questions
}

// DummyConfig wraps DummyQuestions in a ready-to-use config.
func DummyConfig() SessionConfig {
	return SessionConfig{
		Title:     "Demo deck",
		Questions: DummyQuestions(),
	}
}
