package records

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/kv"
	"github.com/mind-engage/mindengage-quiz/internal/kv/kvtest"
)

func TestLoadDefaultsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemory(), DefaultPrefix)

	if m, st := r.LoadAnswers(ctx); st != ReadAbsent || len(m) != 0 || m == nil {
		t.Fatalf("answers: %v %v", m, st)
	}
	if m, st := r.LoadFlags(ctx); st != ReadAbsent || len(m) != 0 || m == nil {
		t.Fatalf("flags: %v %v", m, st)
	}
	if s, st := r.LoadSession(ctx); st != ReadAbsent || s != nil {
		t.Fatalf("session: %v %v", s, st)
	}
	if th, st := r.LoadTheme(ctx); st != ReadAbsent || th != "" {
		t.Fatalf("theme: %q %v", th, st)
	}
}

func TestLoadCorruptRecords(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := New(store, DefaultPrefix)
	n := r.Names()

	_ = store.Set(ctx, n.Answers, `{not json`)
	_ = store.Set(ctx, n.Flagged, `["a-0"]`)
	_ = store.Set(ctx, n.Session, `{"quizId":"q","questionIndices":"nope"}`)
	_ = store.Set(ctx, n.Theme, `purple`)

	if m, st := r.LoadAnswers(ctx); st != ReadCorrupt || len(m) != 0 {
		t.Fatalf("answers: %v %v", m, st)
	}
	if m, st := r.LoadFlags(ctx); st != ReadCorrupt || len(m) != 0 {
		t.Fatalf("flags: %v %v", m, st)
	}
	if s, st := r.LoadSession(ctx); st != ReadCorrupt || s != nil {
		t.Fatalf("session: %v %v", s, st)
	}
	if th, st := r.LoadTheme(ctx); st != ReadCorrupt || th != "" {
		t.Fatalf("theme: %q %v", th, st)
	}
}

func TestLoadSession_NullOrNoQuizIsAbsent(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := New(store, DefaultPrefix)

	for _, raw := range []string{`null`, `{"quizId":null,"questionIndices":[1]}`, `{"quizId":""}`} {
		_ = store.Set(ctx, r.Names().Session, raw)
		if s, st := r.LoadSession(ctx); st != ReadAbsent || s != nil {
			t.Fatalf("%s: got %v %v", raw, s, st)
		}
	}
}

func TestSessionRoundTripKeepsOptionOrder(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemory(), DefaultPrefix)
	in := Session{
		QuizID:          "cat-a1",
		QuestionIndices: []int{2, 0, 1},
		CurrentAttempt:  map[int]string{0: "Paris"},
		ShuffledOptions: map[int][]string{0: {"Rome", "Paris", "Oslo"}, 2: {"b", "a"}},
		Timestamp:       1700000000000,
	}
	if err := r.SaveSession(ctx, in); err != nil {
		t.Fatal(err)
	}
	out, st := r.LoadSession(ctx)
	if st != ReadOK {
		t.Fatalf("status %v", st)
	}
	if !reflect.DeepEqual(*out, in) {
		t.Fatalf("round trip:\n got %+v\nwant %+v", *out, in)
	}
}

func TestSaveSessionRejectsEmptyQuiz(t *testing.T) {
	r := New(kv.NewMemory(), DefaultPrefix)
	if err := r.SaveSession(context.Background(), Session{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadFlagsDropsFalse(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := New(store, DefaultPrefix)
	_ = store.Set(ctx, r.Names().Flagged, `{"a-0":true,"a-1":false}`)
	m, st := r.LoadFlags(ctx)
	if st != ReadOK || !reflect.DeepEqual(m, map[string]bool{"a-0": true}) {
		t.Fatalf("got %v %v", m, st)
	}
}

func TestWriteFailuresAreReturned(t *testing.T) {
	ctx := context.Background()
	store := kvtest.NewFaulty()
	r := New(store, DefaultPrefix)
	store.FailWrites(true)

	if err := r.SaveAnswers(ctx, map[string]string{"a-0": "x"}); !errors.Is(err, kvtest.ErrQuota) {
		t.Fatalf("SaveAnswers: %v", err)
	}
	if err := r.ClearSession(ctx); !errors.Is(err, kvtest.ErrQuota) {
		t.Fatalf("ClearSession: %v", err)
	}
	if err := r.ResetAll(ctx); !errors.Is(err, kvtest.ErrQuota) {
		t.Fatalf("ResetAll: %v", err)
	}
}

func TestReadFailureYieldsDefault(t *testing.T) {
	ctx := context.Background()
	store := kvtest.NewFaulty()
	r := New(store, DefaultPrefix)
	_ = r.SaveAnswers(ctx, map[string]string{"a-0": "x"})
	store.FailReads(true)
	if m, st := r.LoadAnswers(ctx); st != ReadFailed || len(m) != 0 {
		t.Fatalf("got %v %v", m, st)
	}
}

func TestThemeAndResetAll(t *testing.T) {
	ctx := context.Background()
	r := New(kv.NewMemory(), "x_")
	if err := r.SaveTheme(ctx, "blue"); err == nil {
		t.Fatal("invalid theme accepted")
	}
	if err := r.SaveTheme(ctx, ThemeDark); err != nil {
		t.Fatal(err)
	}
	_ = r.SaveAnswers(ctx, map[string]string{"q-1": "a"})
	_ = r.SaveSession(ctx, Session{QuizID: "q", QuestionIndices: []int{1}})

	if err := r.ResetAll(ctx); err != nil {
		t.Fatal(err)
	}
	if _, st := r.LoadAnswers(ctx); st != ReadAbsent {
		t.Fatalf("answers survived reset: %v", st)
	}
	if _, st := r.LoadSession(ctx); st != ReadAbsent {
		t.Fatalf("session survived reset: %v", st)
	}
	if th, _ := r.LoadTheme(ctx); th != ThemeDark {
		t.Fatalf("theme should survive reset, got %q", th)
	}
}
