package grading

import (
	"github.com/mind-engage/mindengage-quiz/internal/bank"
)

// Strategy decides whether a candidate answers a single question.
type Strategy interface {
	Correct(q bank.Question, candidate string) bool
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Correct(q bank.Question, candidate string) bool
}

type defaultGrader struct {
	strategies map[bank.QuestionType]Strategy
	fallback   Strategy
}

func (g *defaultGrader) Correct(q bank.Question, candidate string) bool {
	s, ok := g.strategies[q.Kind()]
	if !ok {
		s = g.fallback
	}
	return s.Correct(q, candidate)
}

// NewDefaultGrader installs the built-in strategies. Unknown types are graded
// like multiple choice.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[bank.QuestionType]Strategy{
			bank.MultipleChoice: exactStrategy{},
			bank.TextInput:      compactStrategy{},
		},
		fallback: exactStrategy{},
	}
}

// --- Strategies ---

// exactStrategy: the candidate comes from a fixed option set, so byte equality.
type exactStrategy struct{}

func (exactStrategy) Correct(q bank.Question, candidate string) bool {
	return candidate == q.Answer
}

// compactStrategy ignores case and every whitespace rune.
type compactStrategy struct{}

func (compactStrategy) Correct(q bank.Question, candidate string) bool {
	if candidate == "" {
		return false
	}
	return compact(candidate) == compact(q.Answer)
}

var std = NewDefaultGrader()

// Correct grades with the default strategies.
func Correct(q bank.Question, candidate string) bool { return std.Correct(q, candidate) }

// Score counts correct attempts over indices. Missing attempts and indices
// outside questions count as wrong.
func Score(g Grader, indices []int, attempts map[int]string, questions []bank.Question) int {
	if g == nil {
		g = std
	}
	score := 0
	for _, idx := range indices {
		if idx < 0 || idx >= len(questions) {
			continue
		}
		attempt, ok := attempts[idx]
		if !ok {
			continue
		}
		if g.Correct(questions[idx], attempt) {
			score++
		}
	}
	return score
}

// Percent returns round(100*score/total), or 0 when total is 0.
func Percent(score, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*score + total) / (2 * total)
}
