package cmd

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	bannerTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	bannerLabel = lipgloss.NewStyle().Faint(true).Width(12)
	bannerBox   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")).
			Padding(0, 2)
)

// bannerLine is one label/value row of the startup banner.
type bannerLine struct {
	label string
	value string
}

// printBanner writes the startup banner to w. Colors follow NO_COLOR and
// CLICOLOR_FORCE.
func printBanner(w io.Writer, title string, lines []bannerLine) {
	lipgloss.SetColorProfile(termenv.EnvColorProfile())

	body := bannerTitle.Render(title) + "\n"
	for _, l := range lines {
		body += "\n" + bannerLabel.Render(l.label) + l.value
	}
	fmt.Fprintln(w, bannerBox.Render(body))
}
