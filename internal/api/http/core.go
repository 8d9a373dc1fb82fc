package http

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/records"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

// Core bundles what the handlers need. Session and ledger are single-threaded,
// so every request runs under mu, one user event at a time.
type Core struct {
	mu      sync.Mutex
	Manager *session.Manager
	Bank    *bank.Memory
	Records *records.Repo // theme only
}

func NewCore(m *session.Manager, b *bank.Memory, r *records.Repo) *Core {
	return &Core{Manager: m, Bank: b, Records: r}
}

func (c *Core) locked(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type questionView struct {
	Index    int               `json:"index"`
	Question string            `json:"question"`
	Type     bank.QuestionType `json:"type"`
	Options  []string          `json:"options,omitempty"` // session order
	Answer   string            `json:"answer,omitempty"`  // only once submitted
}

type sessionView struct {
	Outcome   session.Outcome `json:"outcome,omitempty"`
	Title     string          `json:"title,omitempty"`
	Session   *session.State  `json:"session"`
	Questions []questionView  `json:"questions"`
}

// view renders the active session for a UI. Caller holds mu.
func (c *Core) view(outcome session.Outcome) (sessionView, bool) {
	s := c.Manager.Current()
	if s == nil {
		return sessionView{}, false
	}
	questions, _ := c.Bank.Questions(s.QuizID)
	v := sessionView{
		Outcome:   outcome,
		Title:     c.Bank.Title(s.QuizID),
		Session:   s,
		Questions: make([]questionView, 0, len(s.QuestionIndices)),
	}
	for _, idx := range s.QuestionIndices {
		q := questions[idx]
		qv := questionView{Index: idx, Question: q.Question, Type: q.Kind()}
		qv.Options, _ = c.Manager.Options(idx)
		if s.Submitted {
			qv.Answer = q.Answer
		}
		v.Questions = append(v.Questions, qv)
	}
	return v, true
}
