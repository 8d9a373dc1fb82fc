package progress

import (
	"strconv"
	"strings"
)

// Key addresses one question across the whole bank.
type Key struct {
	QuizID string
	Index  int
}

// String is the persisted form, "quizId-index".
func (k Key) String() string { return k.QuizID + "-" + strconv.Itoa(k.Index) }

// Compare orders by quiz id, then index.
func Compare(a, b Key) int {
	if c := strings.Compare(a.QuizID, b.QuizID); c != 0 {
		return c
	}
	switch {
	case a.Index < b.Index:
		return -1
	case a.Index > b.Index:
		return 1
	}
	return 0
}

// ParseKey splits on the last dash, so quiz ids may contain dashes
// ("cat-a1-12" is quiz "cat-a1", index 12).
func ParseKey(s string) (Key, bool) {
	i := strings.LastIndexByte(s, '-')
	if i <= 0 || i == len(s)-1 {
		return Key{}, false
	}
	suffix := s[i+1:]
	idx, err := strconv.Atoi(suffix)
	if err != nil || idx < 0 || strconv.Itoa(idx) != suffix {
		return Key{}, false
	}
	return Key{QuizID: s[:i], Index: idx}, true
}
