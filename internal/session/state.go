package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/records"
)

// State is one active session. A Manager without a session holds a nil
// *State, so an active State always has a quiz id.
type State struct {
	QuizID          string           `json:"quizId"`
	QuestionIndices []int            `json:"questionIndices"` // session order
	CurrentAttempt  map[int]string   `json:"currentAttempt"`
	ShuffledOptions map[int][]string `json:"shuffledOptions"` // fixed for the session
	Submitted       bool             `json:"submitted"`
	Timestamp       int64            `json:"timestamp"` // epoch millis of the last transition
}

func (s *State) clone() *State {
	if s == nil {
		return nil
	}
	out := &State{
		QuizID:          s.QuizID,
		QuestionIndices: slices.Clone(s.QuestionIndices),
		CurrentAttempt:  maps.Clone(s.CurrentAttempt),
		ShuffledOptions: make(map[int][]string, len(s.ShuffledOptions)),
		Submitted:       s.Submitted,
		Timestamp:       s.Timestamp,
	}
	if out.CurrentAttempt == nil {
		out.CurrentAttempt = map[int]string{}
	}
	for k, v := range s.ShuffledOptions {
		out.ShuffledOptions[k] = slices.Clone(v)
	}
	return out
}

// inPool reports whether idx is one of the session's questions.
func (s *State) inPool(idx int) bool { return slices.Contains(s.QuestionIndices, idx) }

func (s *State) record() records.Session {
	c := s.clone()
	return records.Session{
		QuizID:          c.QuizID,
		QuestionIndices: c.QuestionIndices,
		CurrentAttempt:  c.CurrentAttempt,
		ShuffledOptions: c.ShuffledOptions,
		Submitted:       c.Submitted,
		Timestamp:       c.Timestamp,
	}
}

// fromRecord rebuilds a State from its persisted form, rejecting anything that
// no longer fits the quiz's current questions.
func fromRecord(rec records.Session, questions []bank.Question) (*State, error) {
	if len(rec.QuestionIndices) == 0 {
		return nil, errors.New("empty question pool")
	}
	seen := make(map[int]struct{}, len(rec.QuestionIndices))
	for _, idx := range rec.QuestionIndices {
		if idx < 0 || idx >= len(questions) {
			return nil, fmt.Errorf("index %d out of range (quiz has %d questions)", idx, len(questions))
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("duplicate index %d", idx)
		}
		seen[idx] = struct{}{}
	}
	for idx, opts := range rec.ShuffledOptions {
		if _, ok := seen[idx]; !ok {
			return nil, fmt.Errorf("shuffled options for index %d outside the pool", idx)
		}
		if !isPermutation(opts, questions[idx].Options) {
			return nil, fmt.Errorf("options of question %d changed", idx)
		}
	}

	s := &State{
		QuizID:          rec.QuizID,
		QuestionIndices: slices.Clone(rec.QuestionIndices),
		CurrentAttempt:  map[int]string{},
		ShuffledOptions: map[int][]string{},
		Submitted:       rec.Submitted,
		Timestamp:       rec.Timestamp,
	}
	for idx, v := range rec.CurrentAttempt {
		if _, ok := seen[idx]; ok {
			s.CurrentAttempt[idx] = v
		}
	}
	for idx, opts := range rec.ShuffledOptions {
		s.ShuffledOptions[idx] = slices.Clone(opts)
	}
	return s, nil
}

func isPermutation(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	count := make(map[string]int, len(a))
	for _, s := range a {
		count[s]++
	}
	for _, s := range b {
		count[s]--
		if count[s] < 0 {
			return false
		}
	}
	return true
}
