package session

import (
	"slices"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
)

type QuestionResult struct {
	Index    int    `json:"index"`
	Attempt  string `json:"attempt,omitempty"`
	Answered bool   `json:"answered"`
	Correct  bool   `json:"correct"`
	Answer   string `json:"answer"`
}

type Results struct {
	QuizID    string           `json:"quizId"`
	Score     int              `json:"score"`
	Total     int              `json:"total"`
	Percent   int              `json:"percent"`
	Questions []QuestionResult `json:"questions"` // session order
}

func (m *Manager) grade(a *State, questions []bank.Question) Results {
	res := Results{
		QuizID:    a.QuizID,
		Total:     len(a.QuestionIndices),
		Score:     grading.Score(m.grader, a.QuestionIndices, a.CurrentAttempt, questions),
		Questions: make([]QuestionResult, 0, len(a.QuestionIndices)),
	}
	for _, idx := range a.QuestionIndices {
		q := questions[idx]
		attempt, answered := a.CurrentAttempt[idx]
		res.Questions = append(res.Questions, QuestionResult{
			Index:    idx,
			Attempt:  attempt,
			Answered: answered,
			Correct:  answered && m.grader.Correct(q, attempt),
			Answer:   q.Answer,
		})
	}
	res.Percent = grading.Percent(res.Score, res.Total)
	return res
}

// Progress is what a submit confirmation needs: "answered 3 of 5".
type Progress struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

func (p Progress) Complete() bool { return p.Answered >= p.Total }

func (m *Manager) Progress() (Progress, error) {
	a := m.active
	if a == nil {
		return Progress{}, ErrNoSession
	}
	p := Progress{Total: len(a.QuestionIndices)}
	for _, idx := range a.QuestionIndices {
		if _, ok := a.CurrentAttempt[idx]; ok {
			p.Answered++
		}
	}
	return p, nil
}

// Item is one cell of the navigation grid.
type Item struct {
	Position int   `json:"position"` // 0-based place in the session
	Index    int   `json:"index"`    // local index in the quiz
	Answered bool  `json:"answered"`
	Flagged  bool  `json:"flagged"`
	Correct  *bool `json:"correct,omitempty"` // set once submitted
}

// Overview lists the session's questions in session order for navigation.
func (m *Manager) Overview() ([]Item, error) {
	a := m.active
	if a == nil {
		return nil, ErrNoSession
	}
	questions, _ := m.bank.Questions(a.QuizID)
	items := make([]Item, 0, len(a.QuestionIndices))
	for pos, idx := range a.QuestionIndices {
		attempt, answered := a.CurrentAttempt[idx]
		it := Item{
			Position: pos,
			Index:    idx,
			Answered: answered,
			Flagged:  m.ledger.IsFlagged(progress.Key{QuizID: a.QuizID, Index: idx}),
		}
		if a.Submitted && idx < len(questions) {
			ok := answered && m.grader.Correct(questions[idx], attempt)
			it.Correct = &ok
		}
		items = append(items, it)
	}
	return items, nil
}

// FlaggedItems filters Overview down to flagged questions.
func (m *Manager) FlaggedItems() ([]Item, error) {
	items, err := m.Overview()
	if err != nil {
		return nil, err
	}
	return slices.DeleteFunc(items, func(it Item) bool { return !it.Flagged }), nil
}

// Options returns the fixed option order for question idx. Sessions saved
// without a shuffle fall back to bank order; plain-answer questions have none.
func (m *Manager) Options(idx int) ([]string, bool) {
	a := m.active
	if a == nil || !a.inPool(idx) {
		return nil, false
	}
	if opts, ok := a.ShuffledOptions[idx]; ok {
		return slices.Clone(opts), true
	}
	questions, _ := m.bank.Questions(a.QuizID)
	if idx >= len(questions) || !questions[idx].HasOptions() {
		return nil, false
	}
	return slices.Clone(questions[idx].Options), true
}
