// Package output renders stack information for the terminal.
package output

import (
	"github.com/charmbracelet/lipgloss"
)

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

var (
	red    = fg("1")
	yellow = fg("3")
	dim    = fg("8")

	markerStyles = map[Marker]lipgloss.Style{
		MarkerTop:       fg("6").Bold(true),
		MarkerApplied:   fg("2"),
		MarkerUnapplied: fg("12"),
		MarkerConflict:  red.Bold(true),
	}
)

// ColorRed colors text red
func ColorRed(text string) string { return red.Render(text) }

// ColorYellow colors text yellow
func ColorYellow(text string) string { return yellow.Render(text) }

// ColorDim makes text dim/gray
func ColorDim(text string) string { return dim.Render(text) }

// ColorPatchName colors a patch name by its series; hidden patches are dim
func ColorPatchName(name string, marker Marker) string {
	if style, ok := markerStyles[marker]; ok {
		return style.Render(name)
	}
	return dim.Render(name)
}
