package quiz

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNoItems            = errors.New("quiz set is empty")
	ErrAlreadyStarted     = errors.New("quiz already started")
	ErrFinished           = errors.New("quiz is finished")
	ErrNotAnswerable      = errors.New("question is not answerable")
	ErrNotJudged          = errors.New("question is not judged yet")
	ErrDisputeUnavailable = errors.New("dispute is only available once after an incorrect answer")
	ErrHintUsed           = errors.New("hint already used for this question")
	ErrHintUnavailable    = errors.New("hint is not available in this phase")
	ErrInvalidInterval    = errors.New("reveal interval must be positive")
)

// Phase is the lifecycle position of the current question.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRevealing  Phase = "revealing"
	PhaseAnswerable Phase = "answerable"
	PhaseJudged     Phase = "judged"
	PhaseFinished   Phase = "finished"
)

// RevealSettings controls progressive reveal of question text.
type RevealSettings struct {
	Enabled  bool          `json:"enabled"`
	Interval time.Duration `json:"interval"`
}

// Session is the complete state of one quiz run. It is a plain value: every
// transition goes through Reduce and returns a new Session.
type Session struct {
	Items  []Item
	Index  int
	Score  Score
	Reveal RevealSettings

	Phase   Phase
	Shown   int
	Answer  string
	Verdict Verdict
	Hint    *Hint

	// anchor is the logical time of the last applied reveal tick. Zero when
	// no reveal timer is running.
	anchor time.Time
}

// NewSession builds an idle session over an already shuffled set.
func NewSession(items []Item, reveal RevealSettings) Session {
	return Session{Items: items, Reveal: reveal, Phase: PhaseIdle}
}

type EventKind int

const (
	EventStart EventKind = iota
	EventTick
	EventSync
	EventStop
	EventSubmit
	EventNext
	EventDispute
	EventHint
	EventSetInterval
	EventSetReveal
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventTick:
		return "tick"
	case EventSync:
		return "sync"
	case EventStop:
		return "stop"
	case EventSubmit:
		return "submit"
	case EventNext:
		return "next"
	case EventDispute:
		return "dispute"
	case EventHint:
		return "hint"
	case EventSetInterval:
		return "set_interval"
	case EventSetReveal:
		return "set_reveal"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is a user action or clock signal applied to a Session.
type Event struct {
	Kind     EventKind
	At       time.Time
	Answer   string
	Interval time.Duration
	Enabled  bool
}

// Reduce applies an event to the session. On error the returned session is
// the input unchanged.
func Reduce(s Session, ev Event) (Session, error) {
	switch ev.Kind {
	case EventStart:
		return start(s, ev.At)
	case EventTick:
		return tickReveal(s), nil
	case EventSync:
		return syncReveal(s, ev.At), nil
	case EventStop:
		if s.Phase == PhaseFinished {
			return s, ErrFinished
		}
		return stopReveal(s), nil
	case EventSubmit:
		return submit(s, ev.Answer)
	case EventNext:
		return next(s, ev.At)
	case EventDispute:
		return dispute(s)
	case EventHint:
		return useHint(s)
	case EventSetInterval:
		return setInterval(s, ev.Interval, ev.At)
	case EventSetReveal:
		return setReveal(s, ev.Enabled), nil
	}
	return s, fmt.Errorf("unknown event %s", ev.Kind)
}

// Current returns the item under the cursor.
func (s Session) Current() (Item, bool) {
	if s.Index < 0 || s.Index >= len(s.Items) {
		return Item{}, false
	}
	return s.Items[s.Index], true
}

func (s Session) Total() int {
	return len(s.Items)
}

// RevealedText is the part of the question that is visible right now.
func (s Session) RevealedText() string {
	it, ok := s.Current()
	if !ok {
		return ""
	}
	runes := []rune(it.Question)
	n := s.Shown
	if n > len(runes) {
		n = len(runes)
	}
	if n < 0 {
		n = 0
	}
	return string(runes[:n])
}

func (s Session) InputEnabled() bool {
	return s.Phase == PhaseAnswerable
}

func (s Session) DisputeAvailable() bool {
	return s.Phase == PhaseJudged && s.Verdict == VerdictIncorrect
}

func (s Session) HintAvailable() bool {
	return (s.Phase == PhaseRevealing || s.Phase == PhaseAnswerable) && s.Hint == nil
}

// TimerRunning reports whether a reveal timer is anchored.
func (s Session) TimerRunning() bool {
	return s.Phase == PhaseRevealing && !s.anchor.IsZero()
}

func start(s Session, at time.Time) (Session, error) {
	if s.Phase != PhaseIdle || s.Index != 0 {
		return s, ErrAlreadyStarted
	}
	if len(s.Items) == 0 {
		return s, ErrNoItems
	}
	return loadQuestion(s, at), nil
}

// loadQuestion resets per-question state and leaves Idle either for
// Revealing or for Answerable depending on the reveal toggle.
func loadQuestion(s Session, at time.Time) Session {
	s.Phase = PhaseIdle
	s.Shown = 0
	s.Answer = ""
	s.Verdict = VerdictNone
	s.Hint = nil
	s.anchor = time.Time{}

	it, _ := s.Current()
	total := len([]rune(it.Question))
	if s.Reveal.Enabled && s.Reveal.Interval > 0 && total > 0 {
		s.Phase = PhaseRevealing
		s.anchor = at
		return s
	}
	s.Phase = PhaseAnswerable
	s.Shown = total
	return s
}

// tickReveal appends one rune and moves the anchor one interval forward, so
// explicit ticks and Sync never apply the same step twice. Outside Revealing
// it does nothing; a late timer signal can never reopen a finished reveal.
func tickReveal(s Session) Session {
	if s.Phase != PhaseRevealing {
		return s
	}
	it, _ := s.Current()
	total := len([]rune(it.Question))
	s.Shown++
	if !s.anchor.IsZero() {
		s.anchor = s.anchor.Add(s.Reveal.Interval)
	}
	if s.Shown >= total {
		s.Shown = total
		s.Phase = PhaseAnswerable
		s.anchor = time.Time{}
	}
	return s
}

// syncReveal applies every tick due between the anchor and now.
func syncReveal(s Session, now time.Time) Session {
	if !s.TimerRunning() || s.Reveal.Interval <= 0 || !now.After(s.anchor) {
		return s
	}
	due := int(now.Sub(s.anchor) / s.Reveal.Interval)
	if due == 0 {
		return s
	}
	anchor := s.anchor.Add(time.Duration(due) * s.Reveal.Interval)
	for i := 0; i < due && s.Phase == PhaseRevealing; i++ {
		s = tickReveal(s)
	}
	if s.Phase == PhaseRevealing {
		s.anchor = anchor
	}
	return s
}

func stopReveal(s Session) Session {
	if s.Phase != PhaseRevealing {
		return s
	}
	it, _ := s.Current()
	s.Shown = len([]rune(it.Question))
	s.Phase = PhaseAnswerable
	s.anchor = time.Time{}
	return s
}

func submit(s Session, answer string) (Session, error) {
	switch s.Phase {
	case PhaseFinished:
		return s, ErrFinished
	case PhaseRevealing:
		s = stopReveal(s)
	case PhaseAnswerable:
	default:
		return s, ErrNotAnswerable
	}
	it, _ := s.Current()
	s.Verdict = Judge(answer, it.ReadingAnswer)
	s.Answer = strings.TrimSpace(answer)
	s.Score.Attempted++
	if s.Verdict == VerdictCorrect {
		s.Score.Correct++
	}
	s.Phase = PhaseJudged
	return s, nil
}

func next(s Session, at time.Time) (Session, error) {
	switch s.Phase {
	case PhaseFinished:
		return s, ErrFinished
	case PhaseJudged:
	default:
		return s, ErrNotJudged
	}
	s.Index++
	if s.Index >= len(s.Items) {
		s.Phase = PhaseFinished
		s.Shown = 0
		s.Answer = ""
		s.Verdict = VerdictNone
		s.Hint = nil
		s.anchor = time.Time{}
		return s, nil
	}
	return loadQuestion(s, at), nil
}

func dispute(s Session) (Session, error) {
	if s.Phase == PhaseFinished {
		return s, ErrFinished
	}
	if !s.DisputeAvailable() {
		return s, ErrDisputeUnavailable
	}
	s.Score.Correct++
	s.Verdict = VerdictDisputed
	return s, nil
}

func useHint(s Session) (Session, error) {
	switch s.Phase {
	case PhaseFinished:
		return s, ErrFinished
	case PhaseRevealing, PhaseAnswerable:
	default:
		return s, ErrHintUnavailable
	}
	if s.Hint != nil {
		return s, ErrHintUsed
	}
	it, _ := s.Current()
	h := HintFor(it.ReadingAnswer)
	s.Hint = &h
	return s, nil
}

// setInterval keeps the characters already shown and restarts the timer
// from at with the new interval.
func setInterval(s Session, d time.Duration, at time.Time) (Session, error) {
	if d <= 0 {
		return s, ErrInvalidInterval
	}
	if s.TimerRunning() {
		s = syncReveal(s, at)
		if s.Phase == PhaseRevealing {
			s.anchor = at
		}
	}
	s.Reveal.Interval = d
	return s, nil
}

func setReveal(s Session, enabled bool) Session {
	s.Reveal.Enabled = enabled
	if !enabled {
		s = stopReveal(s)
	}
	return s
}
