// Package records maps the four persisted records (answers, flags, session,
// theme) onto a kv.Store.
//
// Reads never fail: an absent, unreadable or malformed record yields its empty
// default together with a ReadStatus describing what happened. Writes return
// the backend error and leave the recovery policy to the caller.
package records

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mind-engage/mindengage-quiz/internal/kv"
)

const DefaultPrefix = "medquiz_"

type ReadStatus int

const (
	ReadOK      ReadStatus = iota
	ReadAbsent             // no record stored
	ReadCorrupt            // stored value did not decode into the expected shape
	ReadFailed             // backend error
)

func (s ReadStatus) String() string {
	switch s {
	case ReadOK:
		return "ok"
	case ReadAbsent:
		return "absent"
	case ReadCorrupt:
		return "corrupt"
	case ReadFailed:
		return "failed"
	default:
		return fmt.Sprintf("ReadStatus(%d)", int(s))
	}
}

// Names are the store keys of the four records.
type Names struct {
	Answers string
	Flagged string
	Session string
	Theme   string
}

func NamesWithPrefix(prefix string) Names {
	return Names{
		Answers: prefix + "answers",
		Flagged: prefix + "flagged",
		Session: prefix + "session",
		Theme:   prefix + "theme",
	}
}

// Session is the persisted shape of an active session. Map keys are local
// question indices; encoding/json writes them as decimal strings.
type Session struct {
	QuizID          string           `json:"quizId"`
	QuestionIndices []int            `json:"questionIndices"`
	CurrentAttempt  map[int]string   `json:"currentAttempt"`
	ShuffledOptions map[int][]string `json:"shuffledOptions"`
	Submitted       bool             `json:"submitted"`
	Timestamp       int64            `json:"timestamp"`
}

type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

func (t Theme) Valid() bool { return t == ThemeDark || t == ThemeLight }

type Repo struct {
	store kv.Store
	names Names
}

func New(store kv.Store, prefix string) *Repo {
	return &Repo{store: store, names: NamesWithPrefix(prefix)}
}

func (r *Repo) Names() Names { return r.names }

func (r *Repo) read(ctx context.Context, key string) (string, ReadStatus) {
	raw, err := r.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return "", ReadAbsent
	}
	if err != nil {
		return "", ReadFailed
	}
	return raw, ReadOK
}

func (r *Repo) loadJSON(ctx context.Context, key string, dst any) ReadStatus {
	raw, st := r.read(ctx, key)
	if st != ReadOK {
		return st
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return ReadCorrupt
	}
	return ReadOK
}

func (r *Repo) saveJSON(ctx context.Context, key string, v any) error {
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("records: encode %s: %w", key, err)
	}
	if err := r.store.Set(ctx, key, string(buf)); err != nil {
		return fmt.Errorf("records: write %s: %w", key, err)
	}
	return nil
}

// LoadAnswers returns the flat "quizId-index" -> canonical answer record.
func (r *Repo) LoadAnswers(ctx context.Context) (map[string]string, ReadStatus) {
	var m map[string]string
	st := r.loadJSON(ctx, r.names.Answers, &m)
	if st != ReadOK || m == nil {
		return map[string]string{}, st
	}
	return m, st
}

func (r *Repo) SaveAnswers(ctx context.Context, m map[string]string) error {
	if m == nil {
		m = map[string]string{}
	}
	return r.saveJSON(ctx, r.names.Answers, m)
}

// LoadFlags returns the flat "quizId-index" -> true record. False entries are dropped.
func (r *Repo) LoadFlags(ctx context.Context) (map[string]bool, ReadStatus) {
	var m map[string]bool
	st := r.loadJSON(ctx, r.names.Flagged, &m)
	if st != ReadOK || m == nil {
		return map[string]bool{}, st
	}
	for k, v := range m {
		if !v {
			delete(m, k)
		}
	}
	return m, st
}

func (r *Repo) SaveFlags(ctx context.Context, m map[string]bool) error {
	if m == nil {
		m = map[string]bool{}
	}
	return r.saveJSON(ctx, r.names.Flagged, m)
}

// LoadSession returns nil when no session is stored. A stored null or a
// session without a quiz id reads as absent.
func (r *Repo) LoadSession(ctx context.Context) (*Session, ReadStatus) {
	var s *Session
	st := r.loadJSON(ctx, r.names.Session, &s)
	if st != ReadOK {
		return nil, st
	}
	if s == nil || s.QuizID == "" {
		return nil, ReadAbsent
	}
	return s, ReadOK
}

func (r *Repo) SaveSession(ctx context.Context, s Session) error {
	if s.QuizID == "" {
		return errors.New("records: refusing to persist a session without quiz id")
	}
	return r.saveJSON(ctx, r.names.Session, s)
}

func (r *Repo) ClearSession(ctx context.Context) error {
	if err := r.store.Remove(ctx, r.names.Session); err != nil {
		return fmt.Errorf("records: clear session: %w", err)
	}
	return nil
}

// LoadTheme reads the raw theme string. Anything but dark|light is corrupt.
func (r *Repo) LoadTheme(ctx context.Context) (Theme, ReadStatus) {
	raw, st := r.read(ctx, r.names.Theme)
	if st != ReadOK {
		return "", st
	}
	t := Theme(raw)
	if !t.Valid() {
		return "", ReadCorrupt
	}
	return t, ReadOK
}

func (r *Repo) SaveTheme(ctx context.Context, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("records: invalid theme %q", t)
	}
	if err := r.store.Set(ctx, r.names.Theme, string(t)); err != nil {
		return fmt.Errorf("records: write %s: %w", r.names.Theme, err)
	}
	return nil
}

// ResetAll removes answers, flags and session. The theme is left alone.
func (r *Repo) ResetAll(ctx context.Context) error {
	var errs []error
	for _, k := range []string{r.names.Answers, r.names.Flagged, r.names.Session} {
		if err := r.store.Remove(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("records: remove %s: %w", k, err))
		}
	}
	return errors.Join(errs...)
}
