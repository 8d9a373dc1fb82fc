package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"slices"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/grading"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/records"
)

// DefaultSize caps the number of questions served in one session.
const DefaultSize = 30

var (
	ErrUnknownQuiz = errors.New("session: unknown quiz")
	ErrNoSession   = errors.New("session: no active session")
)

type Outcome string

const (
	OutcomeStarted   Outcome = "started"
	OutcomeResumed   Outcome = "resumed"
	OutcomeExhausted Outcome = "exhausted" // every question already answered correctly
)

type StartResult struct {
	Outcome Outcome `json:"outcome"`
	Session *State  `json:"session,omitempty"` // nil when exhausted
}

type HomeOutcome string

const (
	HomeIdle      HomeOutcome = "idle"      // there was no session
	HomeKept      HomeOutcome = "kept"      // unsubmitted with attempts, saved for later
	HomeDiscarded HomeOutcome = "discarded" // submitted or untouched, erased
)

type Option func(*Manager)

// WithRand sets the shuffle source. Tests pass a seeded source.
func WithRand(r *rand.Rand) Option { return func(m *Manager) { m.rng = r } }

func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithSize overrides DefaultSize. Non-positive values are ignored.
func WithSize(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.size = n
		}
	}
}

func WithGrader(g grading.Grader) Option { return func(m *Manager) { m.grader = g } }

// Manager owns the single active session. It is not safe for concurrent use;
// callers serialize access (one user event at a time).
type Manager struct {
	bank   bank.Bank
	ledger *progress.Ledger
	repo   *records.Repo // nil: memory only
	grader grading.Grader
	rng    *rand.Rand
	now    func() time.Time
	size   int

	active  *State
	lastErr error
}

func NewManager(b bank.Bank, ledger *progress.Ledger, repo *records.Repo, opts ...Option) *Manager {
	m := &Manager{
		bank:   b,
		ledger: ledger,
		repo:   repo,
		grader: grading.NewDefaultGrader(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		now:    time.Now,
		size:   DefaultSize,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Restore rehydrates the active session from the persisted record. A record
// that points at a missing quiz or no longer fits its questions is erased.
// Returns a snapshot, or nil when there is nothing to resume.
func (m *Manager) Restore(ctx context.Context) *State {
	m.active = nil
	if m.repo == nil {
		return nil
	}
	rec, st := m.repo.LoadSession(ctx)
	switch st {
	case records.ReadOK:
	case records.ReadCorrupt, records.ReadFailed:
		log.Printf("session: stored session %s, starting without one", st)
		return nil
	default:
		return nil
	}
	questions, ok := m.bank.Questions(rec.QuizID)
	if !ok {
		log.Printf("session: dropping stored session for unknown quiz %q", rec.QuizID)
		m.clear(ctx)
		return nil
	}
	s, err := fromRecord(*rec, questions)
	if err != nil {
		log.Printf("session: dropping stored session for %q: %v", rec.QuizID, err)
		m.clear(ctx)
		return nil
	}
	m.active = s
	return s.clone()
}

// Current returns a copy of the active session, or nil.
func (m *Manager) Current() *State { return m.active.clone() }

// LastError is the outcome of the most recent session write.
func (m *Manager) LastError() error { return m.lastErr }

// EligiblePool lists the quiz's indices not yet answered correctly, in bank order.
func (m *Manager) EligiblePool(quizID string) ([]int, error) {
	questions, ok := m.bank.Questions(quizID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownQuiz, quizID)
	}
	return m.eligible(quizID, questions), nil
}

func (m *Manager) eligible(quizID string, questions []bank.Question) []int {
	pool := make([]int, 0, len(questions))
	for i, q := range questions {
		if !m.ledger.IsAnsweredCorrectly(progress.Key{QuizID: quizID, Index: i}, q.Answer) {
			pool = append(pool, i)
		}
	}
	return pool
}

// Start resumes the quiz's unsubmitted session if there is one, otherwise
// draws a new one from the eligible pool. When every question has already been
// answered correctly the outcome is OutcomeExhausted and nothing changes.
func (m *Manager) Start(ctx context.Context, quizID string) (StartResult, error) {
	questions, ok := m.bank.Questions(quizID)
	if !ok {
		return StartResult{}, fmt.Errorf("%w: %s", ErrUnknownQuiz, quizID)
	}
	if a := m.active; a != nil && a.QuizID == quizID && !a.Submitted && len(a.QuestionIndices) > 0 {
		return StartResult{Outcome: OutcomeResumed, Session: a.clone()}, nil
	}

	pool := m.eligible(quizID, questions)
	if len(pool) == 0 {
		return StartResult{Outcome: OutcomeExhausted}, nil
	}
	shuffle(m.rng, pool)
	if len(pool) > m.size {
		pool = slices.Clone(pool[:m.size])
	}

	shuffled := make(map[int][]string)
	for _, idx := range pool {
		q := questions[idx]
		if !q.HasOptions() {
			continue
		}
		opts := slices.Clone(q.Options)
		shuffle(m.rng, opts)
		shuffled[idx] = opts
	}

	m.active = &State{
		QuizID:          quizID,
		QuestionIndices: pool,
		CurrentAttempt:  map[int]string{},
		ShuffledOptions: shuffled,
	}
	m.save(ctx)
	return StartResult{Outcome: OutcomeStarted, Session: m.active.clone()}, nil
}

// Restart is the way out of OutcomeExhausted: wipe the quiz's history, then Start.
func (m *Manager) Restart(ctx context.Context, quizID string) (StartResult, error) {
	if _, ok := m.bank.Questions(quizID); !ok {
		return StartResult{}, fmt.Errorf("%w: %s", ErrUnknownQuiz, quizID)
	}
	m.ResetQuiz(ctx, quizID)
	return m.Start(ctx, quizID)
}

// RecordAttempt stores value as the answer for question idx. It is ignored
// after submission, without a session, or for an index outside the session.
func (m *Manager) RecordAttempt(ctx context.Context, idx int, value string) bool {
	a := m.active
	if a == nil || a.Submitted || !a.inPool(idx) {
		return false
	}
	a.CurrentAttempt[idx] = value
	m.save(ctx)
	return true
}

// ToggleFlag flips the global flag of question idx. It returns the new flag
// state and whether anything changed.
func (m *Manager) ToggleFlag(ctx context.Context, idx int) (flagged, applied bool) {
	a := m.active
	if a == nil || a.Submitted || !a.inPool(idx) {
		return false, false
	}
	return m.ledger.ToggleFlag(ctx, progress.Key{QuizID: a.QuizID, Index: idx}), true
}

// Submit grades the session, records every correct answer in the ledger and
// seals the session. Submitting again re-grades to the same ledger state.
func (m *Manager) Submit(ctx context.Context) (Results, error) {
	a := m.active
	if a == nil {
		return Results{}, ErrNoSession
	}
	questions, ok := m.bank.Questions(a.QuizID)
	if !ok {
		m.active = nil
		m.clear(ctx)
		return Results{}, fmt.Errorf("%w: %s", ErrUnknownQuiz, a.QuizID)
	}

	res := m.grade(a, questions)
	for _, qr := range res.Questions {
		if qr.Correct {
			m.ledger.RecordCorrect(ctx, progress.Key{QuizID: a.QuizID, Index: qr.Index}, questions[qr.Index].Answer)
		}
	}
	a.Submitted = true
	m.save(ctx)
	return res, nil
}

// Results grades the active session without touching the ledger, e.g. to
// redraw the results screen after a reload.
func (m *Manager) Results() (Results, error) {
	a := m.active
	if a == nil {
		return Results{}, ErrNoSession
	}
	questions, ok := m.bank.Questions(a.QuizID)
	if !ok {
		return Results{}, fmt.Errorf("%w: %s", ErrUnknownQuiz, a.QuizID)
	}
	return m.grade(a, questions), nil
}

// ReturnHome leaves the quiz view. An unsubmitted session with at least one
// attempt is kept for later; anything else is discarded along with its record.
func (m *Manager) ReturnHome(ctx context.Context) HomeOutcome {
	a := m.active
	if a == nil {
		m.clear(ctx)
		return HomeIdle
	}
	if !a.Submitted && len(a.CurrentAttempt) > 0 {
		m.save(ctx)
		return HomeKept
	}
	m.active = nil
	m.clear(ctx)
	return HomeDiscarded
}

// Stats reports the quiz's completion; unknown quizzes report zeros.
func (m *Manager) Stats(quizID string) progress.Stats {
	questions, _ := m.bank.Questions(quizID)
	return m.ledger.StatsFor(quizID, questions)
}

// ResetQuiz erases the quiz's answers and flags and drops the active session.
// Irreversible: confirm with the user first.
func (m *Manager) ResetQuiz(ctx context.Context, quizID string) {
	m.ledger.ResetQuiz(ctx, quizID)
	m.active = nil
	m.clear(ctx)
}

// ResetAll erases all answers, flags and the session.
func (m *Manager) ResetAll(ctx context.Context) {
	m.ledger.ResetAll(ctx)
	m.active = nil
	m.lastErr = m.ledger.LastError()
}

func (m *Manager) save(ctx context.Context) {
	if m.active == nil {
		return
	}
	m.active.Timestamp = m.now().UnixMilli()
	if m.repo == nil {
		return
	}
	m.persisted("save", m.repo.SaveSession(ctx, m.active.record()))
}

func (m *Manager) clear(ctx context.Context) {
	if m.repo == nil {
		return
	}
	m.persisted("clear", m.repo.ClearSession(ctx))
}

// persisted applies the write-failure policy: log and keep the in-memory session.
func (m *Manager) persisted(op string, err error) {
	m.lastErr = err
	if err != nil {
		log.Printf("session: %s failed, keeping in-memory state: %v", op, err)
	}
}

// shuffle is an in-place Fisher-Yates.
func shuffle[T any](r *rand.Rand, s []T) {
	for i := len(s) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
