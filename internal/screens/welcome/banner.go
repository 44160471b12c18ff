package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/vibekids/internal/ui/theme"
)

const bannerArt = `
 ██╗   ██╗██╗██████╗ ███████╗██╗  ██╗██╗██████╗ ███████╗
 ██║   ██║██║██╔══██╗██╔════╝██║ ██╔╝██║██╔══██╗██╔════╝
 ██║   ██║██║██████╔╝█████╗  █████╔╝ ██║██║  ██║███████╗
 ╚██╗ ██╔╝██║██╔══██╗██╔══╝  ██╔═██╗ ██║██║  ██║╚════██║
  ╚████╔╝ ██║██████╔╝███████╗██║  ██╗██║██████╔╝███████║
   ╚═══╝  ╚═╝╚═════╝ ╚══════╝╚═╝  ╚═╝╚═╝╚═════╝ ╚══════╝`

const bannerCompact = "V I B E K I D S"

// bannerWidth is the widest line of bannerArt.
const bannerWidth = 56

// RenderBanner returns the banner in the primary color, or a one-line
// version when width cannot fit the block letters.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < bannerWidth+2 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
