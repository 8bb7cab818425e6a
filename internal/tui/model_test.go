package tui

import (
	"strings"
	"testing"
	"time"

	"yomitore/internal/quiz"

	tea "github.com/charmbracelet/bubbletea"
)

func testItems() []quiz.Item {
	return []quiz.Item{
		{Question: "大阪", DisplayAnswer: "大阪", ReadingAnswer: "おおさか"},
		{Question: "東京", DisplayAnswer: "東京都", ReadingAnswer: "とうきょう"},
	}
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return out
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestModelAnswerAndAdvance(t *testing.T) {
	m, err := NewModel(testItems(), Options{NoColor: true})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if m.Session().Phase != quiz.PhaseAnswerable {
		t.Fatalf("expected answerable without reveal, got %s", m.Session().Phase)
	}

	m = typeText(t, m, "おおさか")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	s := m.Session()
	if s.Phase != quiz.PhaseJudged || s.Verdict != quiz.VerdictCorrect || s.Score.Correct != 1 {
		t.Fatalf("expected correct judgment, got %+v", s)
	}
	if !strings.Contains(m.View(), "正解！") {
		t.Fatalf("view should show verdict:\n%s", m.View())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Session().Index != 1 || m.Session().Phase != quiz.PhaseAnswerable {
		t.Fatalf("expected second question, got %+v", m.Session())
	}
	if m.input.Value() != "" {
		t.Fatalf("input should be cleared on next, got %q", m.input.Value())
	}
}

func TestModelDisputeOnce(t *testing.T) {
	m, _ := NewModel(testItems(), Options{NoColor: true})

	m = typeText(t, m, "おおざか")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.View(), "正解は 「おおさか」 です。") {
		t.Fatalf("view should show correct answer:\n%s", m.View())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.Session().Score.Correct != 1 || m.Session().Verdict != quiz.VerdictDisputed {
		t.Fatalf("dispute should count the answer, got %+v", m.Session().Score)
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})
	if m.Session().Score.Correct != 1 {
		t.Fatalf("second dispute must not count")
	}
	if m.status == "" {
		t.Fatalf("second dispute should report an error")
	}
}

func TestModelRevealIgnoresStaleTicks(t *testing.T) {
	m, err := NewModel(testItems(), Options{
		Reveal:  quiz.RevealSettings{Enabled: true, Interval: 100 * time.Millisecond},
		NoColor: true,
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	if m.Session().Phase != quiz.PhaseRevealing || m.Init() == nil {
		t.Fatalf("expected running reveal timer")
	}

	m = send(t, m, revealTickMsg{gen: m.gen})
	if m.Session().RevealedText() != "大" {
		t.Fatalf("expected one rune, got %q", m.Session().RevealedText())
	}

	stale := m.gen
	m = send(t, m, tea.KeyMsg{Type: tea.KeyPgUp})
	if m.Session().Reveal.Interval != 80*time.Millisecond {
		t.Fatalf("expected faster interval, got %s", m.Session().Reveal.Interval)
	}
	if m.gen == stale {
		t.Fatalf("speed change should restart the timer")
	}

	m = send(t, m, revealTickMsg{gen: stale})
	if m.Session().RevealedText() != "大" {
		t.Fatalf("stale tick must be ignored, got %q", m.Session().RevealedText())
	}

	next, cmd := m.Update(revealTickMsg{gen: m.gen})
	m = next.(Model)
	if m.Session().Phase != quiz.PhaseAnswerable || m.Session().RevealedText() != "大阪" {
		t.Fatalf("reveal should complete, got %+v", m.Session())
	}
	if cmd != nil {
		t.Fatalf("no tick should be scheduled after reveal completes")
	}
}

func TestModelStopAndToggle(t *testing.T) {
	m, _ := NewModel(testItems(), Options{
		Reveal:  quiz.RevealSettings{Enabled: true, Interval: 100 * time.Millisecond},
		NoColor: true,
	})

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Session().Phase != quiz.PhaseAnswerable || m.Session().RevealedText() != "大阪" {
		t.Fatalf("enter during reveal should show the full text, got %+v", m.Session())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlR})
	if m.Session().Reveal.Enabled {
		t.Fatalf("toggle should disable reveal")
	}

	m = typeText(t, m, "おおさか")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Session().Phase != quiz.PhaseAnswerable {
		t.Fatalf("next question should load without reveal, got %s", m.Session().Phase)
	}
}

func TestModelHintAndFinish(t *testing.T) {
	m, _ := NewModel(testItems()[:1], Options{NoColor: true})

	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlT})
	if !strings.Contains(m.View(), "ヒント: 「お」から始まる 4 文字") {
		t.Fatalf("hint not rendered:\n%s", m.View())
	}

	m = typeText(t, m, "おおさか")
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.Session().Phase != quiz.PhaseFinished {
		t.Fatalf("expected finished, got %s", m.Session().Phase)
	}
	if !strings.Contains(m.View(), "全問終了") {
		t.Fatalf("finish message missing:\n%s", m.View())
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("enter on finished quiz should quit")
	}
}

func TestNewModelRejectsEmptySet(t *testing.T) {
	if _, err := NewModel(nil, Options{}); err == nil {
		t.Fatalf("expected error for empty set")
	}
}
