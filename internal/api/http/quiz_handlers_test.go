package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	"github.com/mind-engage/mindengage-quiz/internal/bank"
	"github.com/mind-engage/mindengage-quiz/internal/kv"
	"github.com/mind-engage/mindengage-quiz/internal/progress"
	"github.com/mind-engage/mindengage-quiz/internal/records"
	"github.com/mind-engage/mindengage-quiz/internal/session"
)

/* ---------------- fixture ---------------- */

func geography() *bank.Memory {
	return bank.New(
		map[string][]bank.Question{
			"geo": {
				{Question: "Capital of France?", Options: []string{"Paris", "Rome", "Oslo"}, Answer: "Paris"},
				{Question: "Capital of Italy?", Options: []string{"Paris", "Rome", "Oslo"}, Answer: "Rome"},
				{Question: "Capital of Norway?", Answer: "Oslo", Type: bank.TextInput},
			},
		},
		[]bank.Category{{ID: "world", Title: "World", Quizzes: []bank.QuizInfo{{ID: "geo", Title: "Capitals"}}}},
	)
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	b := geography()
	repo := records.New(kv.NewMemory(), records.DefaultPrefix)
	ledger := progress.NewLedger(repo)
	ledger.Load(context.Background())
	mgr := session.NewManager(b, ledger, repo, session.WithRand(rand.New(rand.NewSource(3))))
	mgr.Restore(context.Background())

	r := chi.NewRouter()
	api.Mount(r, api.NewCore(mgr, b, repo))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

type viewDTO struct {
	Outcome string `json:"outcome"`
	Title   string `json:"title"`
	Session struct {
		QuizID          string `json:"quizId"`
		QuestionIndices []int  `json:"questionIndices"`
		Submitted       bool   `json:"submitted"`
	} `json:"session"`
	Questions []struct {
		Index    int      `json:"index"`
		Question string   `json:"question"`
		Type     string   `json:"type"`
		Options  []string `json:"options"`
		Answer   string   `json:"answer"`
	} `json:"questions"`
}

var answers = map[string]string{
	"Capital of France?": "Paris",
	"Capital of Italy?":  "Rome",
	"Capital of Norway?": "oslo",
}

/* ---------------- tests ---------------- */

func TestQuizFlow(t *testing.T) {
	srv := newServer(t)

	var v viewDTO
	if code := do(t, srv, http.MethodPost, "/quizzes/geo/start", "", &v); code != http.StatusOK {
		t.Fatalf("start = %d", code)
	}
	if v.Outcome != "started" || v.Title != "Capitals" || len(v.Questions) != 3 {
		t.Fatalf("view = %+v", v)
	}
	for _, q := range v.Questions {
		if q.Answer != "" {
			t.Fatalf("answer leaked before submit: %+v", q)
		}
		if q.Type == string(bank.MultipleChoice) && len(q.Options) != 3 {
			t.Fatalf("options = %v", q.Options)
		}
	}

	var p session.Progress
	do(t, srv, http.MethodGet, "/session/progress", "", &p)
	if p.Answered != 0 || p.Total != 3 {
		t.Fatalf("progress = %+v", p)
	}

	if code := do(t, srv, http.MethodGet, "/session/results", "", nil); code != http.StatusConflict {
		t.Fatalf("results before submit = %d", code)
	}

	for _, q := range v.Questions {
		body := fmt.Sprintf(`{"value":%q}`, answers[q.Question])
		if code := do(t, srv, http.MethodPut, fmt.Sprintf("/session/attempts/%d", q.Index), body, nil); code != http.StatusNoContent {
			t.Fatalf("attempt %d = %d", q.Index, code)
		}
	}

	var flag map[string]bool
	first := v.Questions[0].Index
	if code := do(t, srv, http.MethodPost, fmt.Sprintf("/session/flags/%d", first), "", &flag); code != http.StatusOK || !flag["flagged"] {
		t.Fatalf("flag = %d %v", code, flag)
	}
	var items []session.Item
	do(t, srv, http.MethodGet, "/session/overview?flagged=true", "", &items)
	if len(items) != 1 || items[0].Index != first || items[0].Position != 0 {
		t.Fatalf("flagged items = %+v", items)
	}

	var res session.Results
	if code := do(t, srv, http.MethodPost, "/session/submit", "", &res); code != http.StatusOK {
		t.Fatalf("submit = %d", code)
	}
	if res.Score != 3 || res.Total != 3 || res.Percent != 100 {
		t.Fatalf("results = %+v", res)
	}

	do(t, srv, http.MethodGet, "/session", "", &v)
	if !v.Session.Submitted {
		t.Fatal("session should be submitted")
	}
	for _, q := range v.Questions {
		if q.Answer == "" {
			t.Fatalf("answer hidden after submit: %+v", q)
		}
	}

	var st progress.Stats
	do(t, srv, http.MethodGet, "/quizzes/geo/stats", "", &st)
	if st != (progress.Stats{Correct: 3, Total: 3, Percent: 100}) {
		t.Fatalf("stats = %+v", st)
	}

	var home map[string]string
	do(t, srv, http.MethodPost, "/session/home", "", &home)
	if home["outcome"] != string(session.HomeDiscarded) {
		t.Fatalf("home = %v", home)
	}
	if code := do(t, srv, http.MethodGet, "/session", "", nil); code != http.StatusNotFound {
		t.Fatalf("session after home = %d", code)
	}
}

func TestStartExhaustedThenRestart(t *testing.T) {
	srv := newServer(t)

	var v viewDTO
	do(t, srv, http.MethodPost, "/quizzes/geo/start", "", &v)
	for _, q := range v.Questions {
		do(t, srv, http.MethodPut, fmt.Sprintf("/session/attempts/%d", q.Index), fmt.Sprintf(`{"value":%q}`, answers[q.Question]), nil)
	}
	do(t, srv, http.MethodPost, "/session/submit", "", nil)
	do(t, srv, http.MethodPost, "/session/home", "", nil)

	if code := do(t, srv, http.MethodPost, "/quizzes/geo/start", "", nil); code != http.StatusConflict {
		t.Fatalf("start on mastered quiz = %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/quizzes/geo/restart", "", &v); code != http.StatusOK {
		t.Fatalf("restart = %d", code)
	}
	if len(v.Questions) != 3 || v.Session.Submitted {
		t.Fatalf("restart view = %+v", v)
	}

	var st progress.Stats
	do(t, srv, http.MethodGet, "/quizzes/geo/stats", "", &st)
	if st.Correct != 0 {
		t.Fatalf("restart should clear history, stats = %+v", st)
	}
}

func TestCategoriesIncludeStats(t *testing.T) {
	srv := newServer(t)

	var cats []struct {
		ID      string `json:"id"`
		Quizzes []struct {
			ID    string         `json:"id"`
			Title string         `json:"title"`
			Stats progress.Stats `json:"stats"`
		} `json:"quizzes"`
	}
	if code := do(t, srv, http.MethodGet, "/categories", "", &cats); code != http.StatusOK {
		t.Fatalf("categories = %d", code)
	}
	if len(cats) != 1 || len(cats[0].Quizzes) != 1 {
		t.Fatalf("categories = %+v", cats)
	}
	q := cats[0].Quizzes[0]
	if q.ID != "geo" || q.Title != "Capitals" || q.Stats.Total != 3 || q.Stats.Percent != 0 {
		t.Fatalf("quiz = %+v", q)
	}
}

func TestBadRequests(t *testing.T) {
	srv := newServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown quiz start", http.MethodPost, "/quizzes/nope/start", "", http.StatusNotFound},
		{"unknown quiz stats", http.MethodGet, "/quizzes/nope/stats", "", http.StatusNotFound},
		{"unknown quiz reset", http.MethodDelete, "/quizzes/nope/progress", "", http.StatusNotFound},
		{"no session", http.MethodGet, "/session", "", http.StatusNotFound},
		{"no session overview", http.MethodGet, "/session/overview", "", http.StatusNotFound},
		{"no session submit", http.MethodPost, "/session/submit", "", http.StatusConflict},
		{"attempt without session", http.MethodPut, "/session/attempts/0", `{"value":"Paris"}`, http.StatusConflict},
		{"non-numeric index", http.MethodPut, "/session/attempts/x", `{"value":"Paris"}`, http.StatusBadRequest},
		{"negative index", http.MethodPost, "/session/flags/-1", "", http.StatusBadRequest},
		{"bad json", http.MethodPut, "/session/attempts/0", `{`, http.StatusBadRequest},
		{"bad theme", http.MethodPut, "/theme", `{"theme":"blue"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := do(t, srv, tc.method, tc.path, tc.body, nil); code != tc.want {
				t.Fatalf("%s %s = %d, want %d", tc.method, tc.path, code, tc.want)
			}
		})
	}
}

func TestAttemptOutsidePool(t *testing.T) {
	srv := newServer(t)
	do(t, srv, http.MethodPost, "/quizzes/geo/start", "", nil)

	if code := do(t, srv, http.MethodPut, "/session/attempts/99", `{"value":"x"}`, nil); code != http.StatusConflict {
		t.Fatalf("attempt outside pool = %d", code)
	}
	if code := do(t, srv, http.MethodPost, "/session/flags/99", "", nil); code != http.StatusConflict {
		t.Fatalf("flag outside pool = %d", code)
	}
}

func TestReturnHomeKeepsAttempted(t *testing.T) {
	srv := newServer(t)

	var v viewDTO
	do(t, srv, http.MethodPost, "/quizzes/geo/start", "", &v)
	do(t, srv, http.MethodPut, fmt.Sprintf("/session/attempts/%d", v.Questions[0].Index), `{"value":"Rome"}`, nil)

	var home map[string]string
	do(t, srv, http.MethodPost, "/session/home", "", &home)
	if home["outcome"] != string(session.HomeKept) {
		t.Fatalf("home = %v", home)
	}

	var again viewDTO
	do(t, srv, http.MethodPost, "/quizzes/geo/start", "", &again)
	if again.Outcome != "resumed" {
		t.Fatalf("outcome = %q", again.Outcome)
	}
}

func TestResetAll(t *testing.T) {
	srv := newServer(t)
	do(t, srv, http.MethodPost, "/quizzes/geo/start", "", nil)

	if code := do(t, srv, http.MethodDelete, "/progress", "", nil); code != http.StatusNoContent {
		t.Fatalf("reset = %d", code)
	}
	if code := do(t, srv, http.MethodGet, "/session", "", nil); code != http.StatusNotFound {
		t.Fatalf("session after reset = %d", code)
	}
}

func TestTheme(t *testing.T) {
	srv := newServer(t)

	if code := do(t, srv, http.MethodPut, "/theme", `{"theme":"light"}`, nil); code != http.StatusNoContent {
		t.Fatalf("put theme = %d", code)
	}
	var got map[string]string
	do(t, srv, http.MethodGet, "/theme", "", &got)
	if got["theme"] != "light" {
		t.Fatalf("theme = %v", got)
	}
}
