// Package screen defines what the terminal app's router can display.
package screen

import (
	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/vibekids/internal/ui/layout"
)

// Screen is one full-window view: the reader, a quiz, math practice.
type Screen interface {
	// Init returns an initial command when the screen is first shown.
	Init() tea.Cmd

	// Update handles messages and returns the updated screen and command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the content area, excluding header and footer.
	View(width, height int) string

	// Title names the screen in the header.
	Title() string
}

// KeyHintProvider is implemented by screens with their own footer hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// VibeProvider is implemented by screens that observe how the child is
// doing. The header shows the latest state.
type VibeProvider interface {
	Vibe() string
}

// Finisher is implemented by screens that save work when the child
// leaves them.
type Finisher interface {
	Finish()
}

// Modal is implemented by screens that can hold a prompt open. While
// InModal is true the app forwards Esc to the screen instead of
// navigating back.
type Modal interface {
	InModal() bool
}

// Refresher is implemented by screens that reload their data when the
// screen above them is popped.
type Refresher interface {
	Refresh() tea.Cmd
}
