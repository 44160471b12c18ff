package components

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/ui/theme"
)

// MultiChoice is a single quiz question. The correct option is unknown
// until Reveal is called.
type MultiChoice struct {
	Question string
	Options  []string
	Selected int
	// Chosen is the submitted option, or -1.
	Chosen  int
	correct int
}

func NewMultiChoice(question string, options []string) MultiChoice {
	return MultiChoice{Question: question, Options: options, Chosen: -1, correct: -1}
}

// Submitted reports whether an option was chosen.
func (m MultiChoice) Submitted() bool {
	return m.Chosen >= 0
}

// Reveal marks the correct option for display.
func (m *MultiChoice) Reveal(correct int) {
	m.correct = correct
}

// Update moves the selection; enter or a number key submits.
func (m MultiChoice) Update(msg tea.Msg) (MultiChoice, tea.Cmd) {
	if m.Submitted() {
		return m, nil
	}
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	key := kmsg.String()
	switch key {
	case "up", "k":
		if m.Selected > 0 {
			m.Selected--
		}
	case "down", "j":
		if m.Selected < len(m.Options)-1 {
			m.Selected++
		}
	case "enter":
		m.Chosen = m.Selected
	default:
		if len(key) == 1 && key[0] >= '1' && int(key[0]-'1') < len(m.Options) {
			m.Selected = int(key[0] - '1')
			m.Chosen = m.Selected
		}
	}
	return m, nil
}

func (m MultiChoice) View() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(m.Question))
	b.WriteString("\n\n")

	for i, opt := range m.Options {
		prefix := "  "
		if i == m.Selected && !m.Submitted() {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%d)  %s", prefix, i+1, opt)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case m.correct >= 0 && i == m.correct:
			style = theme.Correct
		case m.correct >= 0 && i == m.Chosen:
			style = theme.Incorrect
		case m.correct >= 0:
			style = lipgloss.NewStyle().Foreground(theme.TextDim)
		case i == m.Selected:
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}
	return b.String()
}
