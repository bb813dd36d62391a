package output

import (
	"fmt"
	"strings"

	"stackit.dev/pstack/internal/engine"
	"stackit.dev/pstack/internal/utils"
)

// Marker is the one-character series prefix of a patch line
type Marker string

// Series markers
const (
	MarkerApplied   Marker = "+"
	MarkerTop       Marker = ">"
	MarkerUnapplied Marker = "-"
	MarkerHidden    Marker = "!"
	MarkerConflict  Marker = "X"
)

// SeriesOptions configures FormatSeries
type SeriesOptions struct {
	// Description appends each patch's subject
	Description bool
	// Hidden includes the hidden series
	Hidden bool
	// Short limits the output to the top patch and its neighbours
	Short bool
}

// SeriesLine is one patch in the rendered series
type SeriesLine struct {
	Marker Marker
	Patch  engine.Patch
}

// SeriesLines lists patches bottom to top: applied, then unapplied, then hidden
func SeriesLines(state *engine.StackState, opts SeriesOptions) []SeriesLine {
	var lines []SeriesLine
	applied := state.Applied()
	for i, p := range applied {
		marker := MarkerApplied
		if i == len(applied)-1 {
			marker = MarkerTop
			if p.Conflict {
				marker = MarkerConflict
			}
		}
		lines = append(lines, SeriesLine{Marker: marker, Patch: p})
	}
	for _, p := range state.Unapplied() {
		lines = append(lines, SeriesLine{Marker: MarkerUnapplied, Patch: p})
	}
	if opts.Hidden {
		for _, p := range state.Hidden() {
			lines = append(lines, SeriesLine{Marker: MarkerHidden, Patch: p})
		}
	}
	if opts.Short {
		lines = around(lines, len(applied)-1, 2)
	}
	return lines
}

// around keeps the lines within radius of center
func around(lines []SeriesLine, center, radius int) []SeriesLine {
	lo := max(center-radius, 0)
	hi := min(center+radius+1, len(lines))
	if lo >= hi {
		return lines[:min(radius+1, len(lines))]
	}
	return lines[lo:hi]
}

// FormatSeries renders the series one patch per line
func FormatSeries(state *engine.StackState, opts SeriesOptions) string {
	lines := SeriesLines(state, opts)
	width := 0
	for _, l := range lines {
		width = max(width, len(l.Patch.Name))
	}

	var b strings.Builder
	for _, l := range lines {
		name := ColorPatchName(l.Patch.Name, l.Marker)
		if opts.Description {
			padding := strings.Repeat(" ", width-len(l.Patch.Name))
			fmt.Fprintf(&b, "%s %s%s # %s\n", l.Marker, name, padding, l.Patch.Subject())
		} else {
			fmt.Fprintf(&b, "%s %s\n", l.Marker, name)
		}
	}
	return b.String()
}

// FormatLogEntry renders one stack log entry
func FormatLogEntry(e engine.UndoEntry) string {
	return fmt.Sprintf("%s %s %s",
		ColorYellow(e.ID.String()[:12]),
		e.DisplayName(),
		ColorDim(fmt.Sprintf("[%d applied, %d unapplied]", len(e.Applied), len(e.Unapplied))))
}

// FormatOutcome summarizes what a transaction did
func FormatOutcome(out *engine.Outcome) []string {
	var lines []string
	if len(out.Created) > 0 {
		lines = append(lines, fmt.Sprintf("Created %s", strings.Join(out.Created, ", ")))
	}
	if len(out.Popped) > 0 {
		lines = append(lines, fmt.Sprintf("Popped %s", strings.Join(out.Popped, ", ")))
	}
	if len(out.Pushed) > 0 {
		lines = append(lines, fmt.Sprintf("Pushed %s", strings.Join(out.Pushed, ", ")))
	}
	for _, name := range out.Empty {
		lines = append(lines, fmt.Sprintf("%s is now empty", name))
	}
	if out.Conflict != nil {
		lines = append(lines, ColorRed(fmt.Sprintf("Merge conflict in %s: %s",
			out.Conflict.Patch, strings.Join(out.Conflict.Files, ", "))))
		if out.Skipped > 0 {
			lines = append(lines, fmt.Sprintf("%s not run", utils.Pluralize(out.Skipped, "operation")))
		}
	}
	if !out.Published {
		lines = append(lines, "Nothing to do")
	}
	return lines
}
