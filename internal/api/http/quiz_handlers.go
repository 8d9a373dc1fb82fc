package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/records"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

// Mount registers the quiz routes on r.
func Mount(r chi.Router, c *Core) {
	r.Get("/categories", ListCategoriesHandler(c))
	r.Route("/quizzes/{quizID}", func(qr chi.Router) {
		qr.Get("/stats", QuizStatsHandler(c))
		qr.Post("/start", StartQuizHandler(c))
		qr.Post("/restart", RestartQuizHandler(c))
		qr.Delete("/progress", ResetQuizHandler(c))
	})
	r.Delete("/progress", ResetAllHandler(c))

	r.Route("/session", func(sr chi.Router) {
		sr.Get("/", GetSessionHandler(c))
		sr.Get("/overview", OverviewHandler(c))
		sr.Get("/progress", SessionProgressHandler(c))
		sr.Get("/results", ResultsHandler(c))
		sr.Put("/attempts/{index}", RecordAttemptHandler(c))
		sr.Post("/flags/{index}", ToggleFlagHandler(c))
		sr.Post("/submit", SubmitHandler(c))
		sr.Post("/home", ReturnHomeHandler(c))
	})

	r.Get("/theme", GetThemeHandler(c))
	r.Put("/theme", PutThemeHandler(c))
}

// GET /categories: listing metadata plus per-quiz completion.
func ListCategoriesHandler(c *Core) http.HandlerFunc {
	type quiz struct {
		bank.QuizInfo
		Stats progress.Stats `json:"stats"`
	}
	type category struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Quizzes []quiz `json:"quizzes"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var out []category
		c.locked(func() {
			for _, cat := range c.Bank.Categories() {
				cc := category{ID: cat.ID, Title: cat.Title, Quizzes: make([]quiz, 0, len(cat.Quizzes))}
				for _, q := range cat.Quizzes {
					cc.Quizzes = append(cc.Quizzes, quiz{QuizInfo: q, Stats: c.Manager.Stats(q.ID)})
				}
				out = append(out, cc)
			}
		})
		writeJSON(w, http.StatusOK, out)
	}
}

func QuizStatsHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if _, ok := c.Bank.Questions(id); !ok {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		var st progress.Stats
		c.locked(func() { st = c.Manager.Stats(id) })
		writeJSON(w, http.StatusOK, st)
	}
}

// POST /quizzes/{quizID}/start: 200 with the session, or 409 when every
// question is already mastered so the UI can offer a reset.
func StartQuizHandler(c *Core) http.HandlerFunc {
	return startWith(c, (*session.Manager).Start)
}

// POST /quizzes/{quizID}/restart: reset the quiz's history, then start.
func RestartQuizHandler(c *Core) http.HandlerFunc {
	return startWith(c, (*session.Manager).Restart)
}

type startFunc func(*session.Manager, context.Context, string) (session.StartResult, error)

func startWith(c *Core, start startFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		var (
			res  session.StartResult
			err  error
			view sessionView
		)
		c.locked(func() {
			res, err = start(c.Manager, r.Context(), id)
			if err == nil && res.Outcome != session.OutcomeExhausted {
				view, _ = c.view(res.Outcome)
			}
		})
		switch {
		case errors.Is(err, session.ErrUnknownQuiz):
			http.Error(w, "quiz not found", http.StatusNotFound)
		case err != nil:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		case res.Outcome == session.OutcomeExhausted:
			writeJSON(w, http.StatusConflict, res)
		default:
			writeJSON(w, http.StatusOK, view)
		}
	}
}

func ResetQuizHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		if _, ok := c.Bank.Questions(id); !ok {
			http.Error(w, "quiz not found", http.StatusNotFound)
			return
		}
		c.locked(func() { c.Manager.ResetQuiz(r.Context(), id) })
		w.WriteHeader(http.StatusNoContent)
	}
}

func ResetAllHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.locked(func() { c.Manager.ResetAll(r.Context()) })
		w.WriteHeader(http.StatusNoContent)
	}
}

func GetSessionHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			v  sessionView
			ok bool
		)
		c.locked(func() { v, ok = c.view("") })
		if !ok {
			http.Error(w, "no active session", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func OverviewHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			items []session.Item
			err   error
		)
		c.locked(func() {
			if r.URL.Query().Get("flagged") == "true" {
				items, err = c.Manager.FlaggedItems()
				return
			}
			items, err = c.Manager.Overview()
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func SessionProgressHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			p   session.Progress
			err error
		)
		c.locked(func() { p, err = c.Manager.Progress() })
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func ResultsHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			res session.Results
			err error
		)
		c.locked(func() {
			if cur := c.Manager.Current(); cur != nil && !cur.Submitted {
				err = errors.New("session not submitted")
				return
			}
			res, err = c.Manager.Results()
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func pathIndex(r *http.Request) (int, bool) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	return idx, err == nil && idx >= 0
}

// PUT /session/attempts/{index} {"value": "..."}
func RecordAttemptHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := pathIndex(r)
		if !ok {
			http.Error(w, "bad index", http.StatusBadRequest)
			return
		}
		var req struct {
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var applied bool
		c.locked(func() { applied = c.Manager.RecordAttempt(r.Context(), idx, req.Value) })
		if !applied {
			http.Error(w, "attempt not accepted", http.StatusConflict)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func ToggleFlagHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, ok := pathIndex(r)
		if !ok {
			http.Error(w, "bad index", http.StatusBadRequest)
			return
		}
		var flagged, applied bool
		c.locked(func() { flagged, applied = c.Manager.ToggleFlag(r.Context(), idx) })
		if !applied {
			http.Error(w, "flag not accepted", http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"flagged": flagged})
	}
}

func SubmitHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			res session.Results
			err error
		)
		c.locked(func() { res, err = c.Manager.Submit(r.Context()) })
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ReturnHomeHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var out session.HomeOutcome
		c.locked(func() { out = c.Manager.ReturnHome(r.Context()) })
		writeJSON(w, http.StatusOK, map[string]session.HomeOutcome{"outcome": out})
	}
}

func GetThemeHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var th records.Theme
		c.locked(func() { th, _ = c.Records.LoadTheme(r.Context()) })
		writeJSON(w, http.StatusOK, map[string]records.Theme{"theme": th})
	}
}

func PutThemeHandler(c *Core) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Theme records.Theme `json:"theme"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Theme.Valid() {
			http.Error(w, "theme must be dark or light", http.StatusBadRequest)
			return
		}
		var err error
		c.locked(func() { err = c.Records.SaveTheme(r.Context(), req.Theme) })
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
