package bank

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Bank is the read-only question source, keyed by quiz id.
type Bank interface {
	// Questions returns the quiz's questions in bank order. Callers must not
	// modify the returned slice.
	Questions(quizID string) ([]Question, bool)
}

// Memory is an immutable in-memory Bank. It is safe for concurrent reads.
type Memory struct {
	quizzes    map[string][]Question
	categories []Category
}

func New(quizzes map[string][]Question, categories []Category) *Memory {
	qs := make(map[string][]Question, len(quizzes))
	for id, list := range quizzes {
		cp := make([]Question, len(list))
		copy(cp, list)
		qs[id] = cp
	}
	cats := make([]Category, len(categories))
	copy(cats, categories)
	return &Memory{quizzes: qs, categories: cats}
}

func (m *Memory) Questions(quizID string) ([]Question, bool) {
	qs, ok := m.quizzes[quizID]
	return qs, ok
}

// Categories returns the listing metadata as loaded.
func (m *Memory) Categories() []Category {
	out := make([]Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// QuizIDs returns every quiz id in the bank, sorted.
func (m *Memory) QuizIDs() []string {
	ids := make([]string, 0, len(m.quizzes))
	for id := range m.quizzes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Title looks up a quiz title from the category listing.
func (m *Memory) Title(quizID string) string {
	for _, c := range m.categories {
		for _, q := range c.Quizzes {
			if q.ID == quizID {
				return q.Title
			}
		}
	}
	return ""
}

type fileFormat struct {
	Categories []Category             `json:"categories"`
	Quizzes    map[string][]Question `json:"quizzes"`
}

// Decode reads a bank document:
//
//	{"categories":[...], "quizzes":{"<quizId>":[{question,options,answer,type}]}}
func Decode(r io.Reader) (*Memory, error) {
	var doc fileFormat
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("bank: decode: %w", err)
	}
	if len(doc.Quizzes) == 0 {
		return nil, errors.New("bank: no quizzes")
	}
	for id, qs := range doc.Quizzes {
		if strings.TrimSpace(id) == "" {
			return nil, errors.New("bank: empty quiz id")
		}
		for i, q := range qs {
			switch q.Kind() {
			case MultipleChoice, TextInput:
			default:
				return nil, fmt.Errorf("bank: %s[%d]: unsupported type %q", id, i, q.Type)
			}
		}
	}
	return New(doc.Quizzes, doc.Categories), nil
}

// Load opens and decodes a bank file.
func Load(path string) (*Memory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bank: open: %w", err)
	}
	defer f.Close()
	return Decode(f)
}
