package quiz

import (
	"math/rand/v2"
	"strings"
)

// Item is a single question with its canonical reading answer and the
// human-facing display form shown next to it in feedback.
type Item struct {
	Question      string `json:"question"`
	DisplayAnswer string `json:"display_answer"`
	ReadingAnswer string `json:"reading_answer"`
}

// NewItem trims the fields and reports false when question or reading is
// empty. An empty display answer falls back to the reading answer.
func NewItem(question, display, reading string) (Item, bool) {
	question = strings.TrimSpace(question)
	display = strings.TrimSpace(display)
	reading = strings.TrimSpace(reading)
	if question == "" || reading == "" {
		return Item{}, false
	}
	if display == "" {
		display = reading
	}
	return Item{Question: question, DisplayAnswer: display, ReadingAnswer: reading}, true
}

// AnswerLabel formats the expected answer for feedback.
func (it Item) AnswerLabel() string {
	if it.DisplayAnswer != "" && it.DisplayAnswer != it.ReadingAnswer {
		return "「" + it.ReadingAnswer + " (" + it.DisplayAnswer + ")」"
	}
	return "「" + it.ReadingAnswer + "」"
}

// Shuffle returns a permuted copy of items. The input slice is left as is so
// callers can reuse a loaded dataset for several sessions.
func Shuffle(items []Item, rng *rand.Rand) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	if rng == nil {
		rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	for i := len(out) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
