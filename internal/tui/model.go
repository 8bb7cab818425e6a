package tui

import (
	"time"

	"yomitore/internal/quiz"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the terminal quiz model.
type Options struct {
	Reveal      quiz.RevealSettings
	MinInterval time.Duration
	MaxInterval time.Duration
	// SpeedStep is the interval change per PgUp/PgDn press.
	SpeedStep time.Duration
	NoColor   bool
	Clock     quiz.Clock
}

// Model drives one quiz session in the terminal.
type Model struct {
	session quiz.Session
	input   textinput.Model
	keys    keyMap
	clock   quiz.Clock

	minInterval time.Duration
	maxInterval time.Duration
	speedStep   time.Duration

	// gen identifies the live reveal timer. Ticks carrying an older
	// generation belong to a cleared timer and are dropped.
	gen int

	status   string
	noColor  bool
	quitting bool
}

// revealTickMsg is one reveal timer tick.
type revealTickMsg struct {
	gen int
}

type keyMap struct {
	Enter   key.Binding
	Stop    key.Binding
	Dispute key.Binding
	Hint    key.Binding
	Toggle  key.Binding
	Faster  key.Binding
	Slower  key.Binding
	Quit    key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "回答/次へ")),
		Stop:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "全文表示")),
		Dispute: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "異議")),
		Hint:    key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "ヒント")),
		Toggle:  key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "順次表示 切替")),
		Faster:  key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "速く")),
		Slower:  key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "遅く")),
		Quit:    key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "終了")),
	}
}

// NewModel starts a session over items, which must already be shuffled.
func NewModel(items []quiz.Item, opts Options) (Model, error) {
	clock := opts.Clock
	if clock == nil {
		clock = quiz.SystemClock{}
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = 20 * time.Millisecond
	}
	if opts.MaxInterval < opts.MinInterval {
		opts.MaxInterval = max(time.Second, opts.MinInterval)
	}
	if opts.SpeedStep <= 0 {
		opts.SpeedStep = 20 * time.Millisecond
	}
	if opts.Reveal.Interval <= 0 {
		opts.Reveal.Interval = 100 * time.Millisecond
	}
	opts.Reveal.Interval = min(max(opts.Reveal.Interval, opts.MinInterval), opts.MaxInterval)

	session, err := quiz.Reduce(quiz.NewSession(items, opts.Reveal), quiz.Event{Kind: quiz.EventStart, At: clock.Now()})
	if err != nil {
		return Model{}, err
	}

	in := textinput.New()
	in.Placeholder = "よみを入力"
	in.CharLimit = 256
	in.Width = 40

	m := Model{
		session:     session,
		input:       in,
		keys:        defaultKeys(),
		clock:       clock,
		minInterval: opts.MinInterval,
		maxInterval: opts.MaxInterval,
		speedStep:   opts.SpeedStep,
		noColor:     opts.NoColor,
	}
	m.syncInput()
	return m, nil
}

// Session exposes the current quiz state.
func (m Model) Session() quiz.Session {
	return m.session
}

// Init starts the reveal timer for the first question when needed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.scheduleTick())
}

// Update routes key presses to quiz events and advances the reveal timer.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case revealTickMsg:
		if typed.gen != m.gen {
			return m, nil
		}
		m.session, _ = quiz.Reduce(m.session, quiz.Event{Kind: quiz.EventTick, At: m.clock.Now()})
		m.syncInput()
		return m, m.scheduleTick()
	case tea.KeyMsg:
		return m.handleKey(typed)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.gen++
		return m, tea.Quit
	case key.Matches(msg, m.keys.Enter):
		switch m.session.Phase {
		case quiz.PhaseJudged:
			return m.apply(quiz.Event{Kind: quiz.EventNext})
		case quiz.PhaseRevealing:
			return m.apply(quiz.Event{Kind: quiz.EventStop})
		case quiz.PhaseAnswerable:
			return m.apply(quiz.Event{Kind: quiz.EventSubmit, Answer: m.input.Value()})
		case quiz.PhaseFinished:
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	case key.Matches(msg, m.keys.Stop):
		return m.apply(quiz.Event{Kind: quiz.EventStop})
	case key.Matches(msg, m.keys.Dispute):
		return m.apply(quiz.Event{Kind: quiz.EventDispute})
	case key.Matches(msg, m.keys.Hint):
		return m.apply(quiz.Event{Kind: quiz.EventHint})
	case key.Matches(msg, m.keys.Toggle):
		return m.apply(quiz.Event{Kind: quiz.EventSetReveal, Enabled: !m.session.Reveal.Enabled})
	case key.Matches(msg, m.keys.Faster):
		return m.apply(quiz.Event{Kind: quiz.EventSetInterval, Interval: m.clampInterval(m.session.Reveal.Interval - m.speedStep)})
	case key.Matches(msg, m.keys.Slower):
		return m.apply(quiz.Event{Kind: quiz.EventSetInterval, Interval: m.clampInterval(m.session.Reveal.Interval + m.speedStep)})
	}

	if !m.session.InputEnabled() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// apply runs one quiz event and restarts the reveal timer when the event
// started, stopped or re-timed it.
func (m Model) apply(ev quiz.Event) (tea.Model, tea.Cmd) {
	ev.At = m.clock.Now()
	before := m.session
	after, err := quiz.Reduce(before, ev)
	if err != nil {
		m.status = err.Error()
		return m, nil
	}
	m.status = ""
	m.session = after
	if ev.Kind == quiz.EventNext {
		m.input.Reset()
	}
	m.syncInput()

	restart := before.TimerRunning() != after.TimerRunning() ||
		before.Index != after.Index ||
		before.Reveal.Interval != after.Reveal.Interval
	if !restart {
		return m, nil
	}
	m.gen++
	return m, m.scheduleTick()
}

func (m Model) scheduleTick() tea.Cmd {
	if !m.session.TimerRunning() {
		return nil
	}
	gen := m.gen
	return tea.Tick(m.session.Reveal.Interval, func(time.Time) tea.Msg {
		return revealTickMsg{gen: gen}
	})
}

func (m *Model) syncInput() {
	if m.session.InputEnabled() {
		m.input.Focus()
		return
	}
	m.input.Blur()
}

func (m Model) clampInterval(d time.Duration) time.Duration {
	return min(max(d, m.minInterval), m.maxInterval)
}

// View renders the question, feedback and controls.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	parts := []string{
		renderHeader(m.session, m.noColor),
		renderQuestion(m.session, m.noColor),
		renderAnswer(m.session, m.input.View(), m.noColor),
	}
	if hint := renderHint(m.session, m.noColor); hint != "" {
		parts = append(parts, hint)
	}
	if m.status != "" {
		parts = append(parts, stylize(m.status, m.noColor, lipgloss.Color("160")))
	}
	parts = append(parts, renderFooter(m.session, m.keys, m.noColor))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
