package components

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/ui/theme"
)

// MenuItem is one choice in a Menu.
type MenuItem struct {
	Label string
	// Detail is shown dimmed after the label.
	Detail   string
	Action   func() tea.Cmd
	Disabled bool
}

// Menu is a vertical list navigated with the arrow keys.
type Menu struct {
	Items    []MenuItem
	Selected int
}

// NewMenu selects the first enabled item.
func NewMenu(items []MenuItem) Menu {
	selected := 0
	for i, item := range items {
		if !item.Disabled {
			selected = i
			break
		}
	}
	return Menu{Items: items, Selected: selected}
}

// Update moves the selection or runs the selected item's action.
func (m Menu) Update(msg tea.Msg) (Menu, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch kmsg.String() {
	case "up", "k":
		for i := m.Selected - 1; i >= 0; i-- {
			if !m.Items[i].Disabled {
				m.Selected = i
				break
			}
		}
	case "down", "j":
		for i := m.Selected + 1; i < len(m.Items); i++ {
			if !m.Items[i].Disabled {
				m.Selected = i
				break
			}
		}
	case "enter":
		if m.Selected >= 0 && m.Selected < len(m.Items) {
			item := m.Items[m.Selected]
			if item.Action != nil && !item.Disabled {
				return m, item.Action()
			}
		}
	}
	return m, nil
}

func (m Menu) View() string {
	var b strings.Builder
	for i, item := range m.Items {
		label := "    " + item.Label
		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case item.Disabled:
			style = lipgloss.NewStyle().Foreground(theme.Border)
		case i == m.Selected:
			label = "  ▸ " + item.Label
			style = lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
		}
		b.WriteString(style.Render(label))
		if item.Detail != "" {
			b.WriteString("  " + theme.Hint.Render(item.Detail))
		}
		b.WriteString("\n")
	}
	return b.String()
}
