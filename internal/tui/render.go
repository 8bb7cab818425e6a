package tui

import (
	"fmt"
	"strings"

	"yomitore/internal/quiz"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders progress, score and the reveal setting.
func renderHeader(s quiz.Session, noColor bool) string {
	line := fmt.Sprintf("問題 %d / %d | 正解率 %s (%d/%d)",
		min(s.Index+1, s.Total()), s.Total(), s.Score.AccuracyLabel(), s.Score.Correct, s.Score.Attempted)
	reveal := "OFF"
	if s.Reveal.Enabled {
		reveal = fmt.Sprintf("ON %dms", s.Reveal.Interval.Milliseconds())
	}
	line += " | 順次表示 " + reveal
	return stylize(line, noColor, lipgloss.Color("33"))
}

func renderQuestion(s quiz.Session, noColor bool) string {
	if s.Phase == quiz.PhaseFinished {
		return stylize("全問終了です。お疲れさまでした！", noColor, lipgloss.Color("35"))
	}
	text := s.RevealedText()
	if s.Phase == quiz.PhaseRevealing {
		text += "▌"
	}
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Bold(true).Padding(1, 0).Render(text)
}

// renderAnswer shows the input while answering and the verdict once judged.
func renderAnswer(s quiz.Session, input string, noColor bool) string {
	switch s.Phase {
	case quiz.PhaseAnswerable, quiz.PhaseRevealing:
		return input
	case quiz.PhaseJudged:
	default:
		return ""
	}

	it, _ := s.Current()
	lines := []string{"回答: " + s.Answer}
	switch s.Verdict {
	case quiz.VerdictCorrect:
		lines = append(lines, stylize("正解！", noColor, lipgloss.Color("34")))
	case quiz.VerdictDisputed:
		lines = append(lines, stylize("正解！ (異議により訂正)", noColor, lipgloss.Color("34")))
	default:
		lines = append(lines,
			stylize("不正解...", noColor, lipgloss.Color("160")),
			"正解は "+it.AnswerLabel()+" です。",
		)
	}
	return strings.Join(lines, "\n")
}

func renderHint(s quiz.Session, noColor bool) string {
	if s.Hint == nil {
		return ""
	}
	line := fmt.Sprintf("ヒント: 「%s」から始まる %d 文字", s.Hint.First, s.Hint.Length)
	return stylize(line, noColor, lipgloss.Color("178"))
}

// renderFooter lists the keys usable in the current phase.
func renderFooter(s quiz.Session, keys keyMap, noColor bool) string {
	bindings := []string{helpText(keys.Enter)}
	if s.TimerRunning() {
		bindings = append(bindings, helpText(keys.Stop))
	}
	if s.DisputeAvailable() {
		bindings = append(bindings, helpText(keys.Dispute))
	}
	if s.HintAvailable() {
		bindings = append(bindings, helpText(keys.Hint))
	}
	bindings = append(bindings, helpText(keys.Toggle), helpText(keys.Faster), helpText(keys.Slower), helpText(keys.Quit))
	return stylize(strings.Join(bindings, " · "), noColor, lipgloss.Color("244"))
}

func helpText(b key.Binding) string {
	h := b.Help()
	return h.Key + " " + h.Desc
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
