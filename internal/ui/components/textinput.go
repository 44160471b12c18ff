package components

import (
	"strconv"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/ui/theme"
)

// TextInput wraps bubbles/textinput with the app's styling.
type TextInput struct {
	Model       textinput.Model
	NumericOnly bool
	submitted   bool
	valid       bool
}

// NewTextInput creates a focused input. maxLen of zero means no limit.
func NewTextInput(placeholder string, numericOnly bool, maxLen int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	if maxLen > 0 {
		ti.CharLimit = maxLen
	}
	ti.Focus()
	return TextInput{Model: ti, NumericOnly: numericOnly}
}

func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update drops non-digit keys in numeric mode, except a leading minus.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	if t.NumericOnly {
		if kmsg, ok := msg.(tea.KeyMsg); ok {
			key := kmsg.String()
			if len(key) == 1 && (key[0] < '0' || key[0] > '9') && !(key == "-" && t.Model.Value() == "") {
				return t, nil
			}
		}
	}
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

func (t TextInput) View() string {
	view := t.Model.View()
	if t.submitted {
		if t.valid {
			view += " " + lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
		} else {
			view += " " + lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
		}
	}
	return view
}

func (t TextInput) Value() string {
	return t.Model.Value()
}

// NumericValue parses the input as an integer.
func (t TextInput) NumericValue() (int, error) {
	return strconv.Atoi(t.Model.Value())
}

// Submit marks the input with a result.
func (t *TextInput) Submit(valid bool) {
	t.submitted = true
	t.valid = valid
}

// Reset clears the value and the result mark.
func (t *TextInput) Reset() {
	t.Model.SetValue("")
	t.submitted = false
}
