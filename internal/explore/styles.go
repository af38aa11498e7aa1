// Package explore implements the interactive bubbletea browser behind the
// gridcoalesce explore subcommand: a master/detail list over a set of
// CoalesceContext results.
package explore

import "github.com/charmbracelet/lipgloss"

// Color palette, lime-green accent to match the rest of the toolchain.
const (
	ColorLime     = "154"
	ColorLimeDim  = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
)

// Styles holds the styled components used by the Model's View.
type Styles struct {
	Header   lipgloss.Style
	Selected lipgloss.Style
	Dim      lipgloss.Style
	Label    lipgloss.Style
	Value    lipgloss.Style
	Border   lipgloss.Style
	Panel    lipgloss.Style
	Error    lipgloss.Style
}

// DefaultStyles returns the default styled components.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorLime)),
		Selected: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorWhite)).Background(lipgloss.Color(ColorLimeDim)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Value:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)),
		Border:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
	}
}
