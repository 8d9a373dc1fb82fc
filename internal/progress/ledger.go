package progress

import (
	"context"
	"log"
	"slices"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/records"
)

type Stats struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Ledger holds the global answer history and the flag set, indexed per quiz.
// Every mutation is written through to the records repo; a failed write is
// logged and the in-memory state stays authoritative. Not safe for concurrent use.
type Ledger struct {
	repo    *records.Repo
	answers map[string]map[int]string
	flags   map[string]map[int]struct{}
	lastErr error
}

// NewLedger returns an empty ledger. repo may be nil for a memory-only ledger.
func NewLedger(repo *records.Repo) *Ledger {
	return &Ledger{
		repo:    repo,
		answers: map[string]map[int]string{},
		flags:   map[string]map[int]struct{}{},
	}
}

// Load replaces the in-memory state with the persisted records.
func (l *Ledger) Load(ctx context.Context) {
	l.answers = map[string]map[int]string{}
	l.flags = map[string]map[int]struct{}{}
	if l.repo == nil {
		return
	}

	answers, st := l.repo.LoadAnswers(ctx)
	logRead("answers", st)
	dropped := 0
	for raw, v := range answers {
		k, ok := ParseKey(raw)
		if !ok {
			dropped++
			continue
		}
		l.setAnswer(k, v)
	}

	flags, st := l.repo.LoadFlags(ctx)
	logRead("flags", st)
	for raw := range flags {
		k, ok := ParseKey(raw)
		if !ok {
			dropped++
			continue
		}
		l.setFlag(k)
	}
	if dropped > 0 {
		log.Printf("progress: dropped %d malformed keys", dropped)
	}
}

func logRead(what string, st records.ReadStatus) {
	if st == records.ReadCorrupt || st == records.ReadFailed {
		log.Printf("progress: %s record %s, starting empty", what, st)
	}
}

// LastError is the outcome of the most recent persistence write.
func (l *Ledger) LastError() error { return l.lastErr }

func (l *Ledger) setAnswer(k Key, v string) {
	m, ok := l.answers[k.QuizID]
	if !ok {
		m = map[int]string{}
		l.answers[k.QuizID] = m
	}
	m[k.Index] = v
}

func (l *Ledger) setFlag(k Key) {
	m, ok := l.flags[k.QuizID]
	if !ok {
		m = map[int]struct{}{}
		l.flags[k.QuizID] = m
	}
	m[k.Index] = struct{}{}
}

// RecordCorrect upserts key -> canonical answer.
func (l *Ledger) RecordCorrect(ctx context.Context, k Key, canonical string) {
	l.setAnswer(k, canonical)
	l.saveAnswers(ctx)
}

// IsAnsweredCorrectly reports whether the stored answer for k equals the
// bank's current canonical answer.
func (l *Ledger) IsAnsweredCorrectly(k Key, canonical string) bool {
	v, ok := l.answers[k.QuizID][k.Index]
	return ok && v == canonical
}

// StatsFor counts the quiz's questions whose stored answer still matches.
func (l *Ledger) StatsFor(quizID string, questions []bank.Question) Stats {
	s := Stats{Total: len(questions)}
	for i, q := range questions {
		if l.IsAnsweredCorrectly(Key{QuizID: quizID, Index: i}, q.Answer) {
			s.Correct++
		}
	}
	s.Percent = grading.Percent(s.Correct, s.Total)
	return s
}

// ToggleFlag flips k's membership in the flag set and returns the new state.
func (l *Ledger) ToggleFlag(ctx context.Context, k Key) bool {
	on := !l.IsFlagged(k)
	if on {
		l.setFlag(k)
	} else {
		delete(l.flags[k.QuizID], k.Index)
		if len(l.flags[k.QuizID]) == 0 {
			delete(l.flags, k.QuizID)
		}
	}
	l.saveFlags(ctx)
	return on
}

func (l *Ledger) IsFlagged(k Key) bool {
	_, ok := l.flags[k.QuizID][k.Index]
	return ok
}

// Flagged returns the quiz's flagged keys in index order.
func (l *Ledger) Flagged(quizID string) []Key {
	out := make([]Key, 0, len(l.flags[quizID]))
	for idx := range l.flags[quizID] {
		out = append(out, Key{QuizID: quizID, Index: idx})
	}
	slices.SortFunc(out, Compare)
	return out
}

// Answered returns every key with a stored answer, sorted.
func (l *Ledger) Answered() []Key {
	var out []Key
	for quiz, m := range l.answers {
		for idx := range m {
			out = append(out, Key{QuizID: quiz, Index: idx})
		}
	}
	slices.SortFunc(out, Compare)
	return out
}

// ResetQuiz drops the quiz's answer history and flags. Other quizzes are untouched.
func (l *Ledger) ResetQuiz(ctx context.Context, quizID string) {
	delete(l.answers, quizID)
	delete(l.flags, quizID)
	l.saveAnswers(ctx)
	l.saveFlags(ctx)
}

// ResetAll drops every answer and flag and removes the persisted records,
// including the session record.
func (l *Ledger) ResetAll(ctx context.Context) {
	l.answers = map[string]map[int]string{}
	l.flags = map[string]map[int]struct{}{}
	if l.repo != nil {
		l.persisted("all records", l.repo.ResetAll(ctx))
	}
}

func (l *Ledger) saveAnswers(ctx context.Context) {
	if l.repo == nil {
		return
	}
	flat := make(map[string]string)
	for quiz, m := range l.answers {
		for idx, v := range m {
			flat[Key{QuizID: quiz, Index: idx}.String()] = v
		}
	}
	l.persisted("answers", l.repo.SaveAnswers(ctx, flat))
}

func (l *Ledger) saveFlags(ctx context.Context) {
	if l.repo == nil {
		return
	}
	flat := make(map[string]bool)
	for quiz, m := range l.flags {
		for idx := range m {
			flat[Key{QuizID: quiz, Index: idx}.String()] = true
		}
	}
	l.persisted("flags", l.repo.SaveFlags(ctx, flat))
}

// persisted applies the write-failure policy: log and carry on in memory.
func (l *Ledger) persisted(what string, err error) {
	l.lastErr = err
	if err != nil {
		log.Printf("progress: persist %s failed, keeping in-memory state: %v", what, err)
	}
}
