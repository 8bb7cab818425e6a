package quiz

import (
	"math"
	"strconv"
	"strings"
)

// AccuracyPlaceholder is shown before the first judgment.
const AccuracyPlaceholder = "-"

type Verdict string

const (
	VerdictNone      Verdict = ""
	VerdictCorrect   Verdict = "correct"
	VerdictIncorrect Verdict = "incorrect"
	VerdictDisputed  Verdict = "disputed"
)

// Counted reports whether the verdict contributes to the correct count.
func (v Verdict) Counted() bool {
	return v == VerdictCorrect || v == VerdictDisputed
}

// Score holds the running counters of a session.
type Score struct {
	Attempted int `json:"attempted"`
	Correct   int `json:"correct"`
}

// Accuracy returns round(100*correct/attempted). ok is false when nothing
// has been attempted yet.
func (s Score) Accuracy() (pct int, ok bool) {
	if s.Attempted <= 0 {
		return 0, false
	}
	return int(math.Round(float64(s.Correct) / float64(s.Attempted) * 100)), true
}

func (s Score) AccuracyLabel() string {
	pct, ok := s.Accuracy()
	if !ok {
		return AccuracyPlaceholder
	}
	return strconv.Itoa(pct) + "%"
}

// Judge compares the trimmed answer with the reading answer. The comparison
// is exact: no case folding and no kana normalisation.
func Judge(answer, reading string) Verdict {
	if strings.TrimSpace(answer) == reading {
		return VerdictCorrect
	}
	return VerdictIncorrect
}

// Hint is the one-shot clue for the current question.
type Hint struct {
	First  string `json:"first"`
	Length int    `json:"length"`
}

// HintFor returns the first rune and rune count of the reading answer.
func HintFor(reading string) Hint {
	runes := []rune(reading)
	if len(runes) == 0 {
		return Hint{}
	}
	return Hint{First: string(runes[0]), Length: len(runes)}
}
