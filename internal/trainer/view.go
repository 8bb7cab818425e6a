package trainer

import (
	"yomitore/internal/quiz"
)

type RevealView struct {
	Enabled       bool  `json:"enabled"`
	IntervalMS    int64 `json:"interval_ms"`
	MinIntervalMS int64 `json:"min_interval_ms"`
	MaxIntervalMS int64 `json:"max_interval_ms"`
	Running       bool  `json:"running"`
}

// View is the state the page renders after every action.
type View struct {
	SessionID        string       `json:"session_id"`
	Phase            quiz.Phase   `json:"phase"`
	QuestionNo       int          `json:"question_no"`
	Total            int          `json:"total"`
	QuestionText     string       `json:"question_text"`
	QuestionLength   int          `json:"question_length"`
	InputEnabled     bool         `json:"input_enabled"`
	Answer           string       `json:"answer,omitempty"`
	Verdict          quiz.Verdict `json:"verdict,omitempty"`
	IsCorrect        *bool        `json:"is_correct,omitempty"`
	CorrectAnswer    string       `json:"correct_answer,omitempty"`
	Attempted        int          `json:"attempted"`
	CorrectCount     int          `json:"correct_count"`
	Accuracy         *int         `json:"accuracy"`
	AccuracyLabel    string       `json:"accuracy_label"`
	DisputeAvailable bool         `json:"dispute_available"`
	HintAvailable    bool         `json:"hint_available"`
	Hint             *quiz.Hint   `json:"hint,omitempty"`
	Reveal           RevealView   `json:"reveal"`
	Finished         bool         `json:"finished"`
}

func buildView(id string, s quiz.Session, limits intervalLimits) *View {
	v := &View{
		SessionID:        id,
		Phase:            s.Phase,
		Total:            s.Total(),
		Attempted:        s.Score.Attempted,
		CorrectCount:     s.Score.Correct,
		AccuracyLabel:    s.Score.AccuracyLabel(),
		InputEnabled:     s.InputEnabled(),
		DisputeAvailable: s.DisputeAvailable(),
		HintAvailable:    s.HintAvailable(),
		Finished:         s.Phase == quiz.PhaseFinished,
		Reveal: RevealView{
			Enabled:       s.Reveal.Enabled,
			IntervalMS:    s.Reveal.Interval.Milliseconds(),
			MinIntervalMS: limits.min.Milliseconds(),
			MaxIntervalMS: limits.max.Milliseconds(),
			Running:       s.TimerRunning(),
		},
	}
	if pct, ok := s.Score.Accuracy(); ok {
		v.Accuracy = &pct
	}
	if s.Hint != nil {
		h := *s.Hint
		v.Hint = &h
	}

	it, ok := s.Current()
	if !ok {
		return v
	}
	v.QuestionNo = s.Index + 1
	v.QuestionText = s.RevealedText()
	v.QuestionLength = len([]rune(it.Question))
	if s.Phase == quiz.PhaseJudged {
		correct := s.Verdict.Counted()
		v.IsCorrect = &correct
		v.Verdict = s.Verdict
		v.Answer = s.Answer
		v.CorrectAnswer = it.AnswerLabel()
	}
	return v
}
