package bank

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TextInput      QuestionType = "text_input"
)

type Question struct {
	Question string       `json:"question"`
	Options  []string     `json:"options,omitempty"`
	Answer   string       `json:"answer"`
	Type     QuestionType `json:"type,omitempty"` // multiple_choice when empty
}

// Kind resolves the question type, defaulting to multiple choice.
func (q Question) Kind() QuestionType {
	if q.Type == "" {
		return MultipleChoice
	}
	return q.Type
}

// HasOptions reports whether the question is rendered from a fixed option set.
func (q Question) HasOptions() bool { return len(q.Options) > 0 }

// QuizInfo is listing metadata only; the core never reads it.
type QuizInfo struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

type Category struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Quizzes []QuizInfo `json:"quizzes"`
}
