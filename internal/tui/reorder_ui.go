package tui

import (
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type seriesKeys struct {
	Up, Down         key.Binding
	Raise, Lower     key.Binding
	ApplyAll, PopAll key.Binding
	Confirm, Cancel  key.Binding
}

func (k seriesKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Raise, k.Lower, k.Confirm, k.Cancel}
}

func (k seriesKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down},
		{k.Raise, k.Lower},
		{k.ApplyAll, k.PopAll},
		{k.Confirm, k.Cancel},
	}
}

var seriesKeyMap = seriesKeys{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Raise:    key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move up")),
	Lower:    key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move down")),
	ApplyAll: key.NewBinding(key.WithKeys("A"), key.WithHelp("A", "apply all")),
	PopAll:   key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "apply none")),
	Confirm:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Cancel:   key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q/esc", "cancel")),
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).MarginBottom(1)
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	appliedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// divider is the row separating unapplied patches (above) from applied ones (below).
// It moves like any patch, so J/K across it applies or unapplies a patch.
const divider = ""

// seriesModel shows the visible series top first with the divider as one of its rows
type seriesModel struct {
	rows      []string
	cursor    int
	confirmed bool
	canceled  bool
	help      help.Model
}

func newSeriesModel(applied, unapplied []string) seriesModel {
	rows := slices.Concat(applied, []string{divider}, unapplied)
	slices.Reverse(rows)
	return seriesModel{rows: rows, help: help.New()}
}

func (m seriesModel) Init() tea.Cmd {
	return nil
}

func (m seriesModel) swap(from, to int) seriesModel {
	if to < 0 || to >= len(m.rows) {
		return m
	}
	m.rows[from], m.rows[to] = m.rows[to], m.rows[from]
	m.cursor = to
	return m
}

// moveDivider puts the divider at row i, keeping the other rows in order
func (m seriesModel) moveDivider(i int) seriesModel {
	rows := slices.DeleteFunc(slices.Clone(m.rows), func(r string) bool { return r == divider })
	m.rows = slices.Insert(rows, i, divider)
	return m
}

func (m seriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, seriesKeyMap.Cancel):
		m.canceled = true
		return m, tea.Quit
	case key.Matches(keyMsg, seriesKeyMap.Confirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(keyMsg, seriesKeyMap.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(keyMsg, seriesKeyMap.Down):
		m.cursor = min(m.cursor+1, len(m.rows)-1)
	case key.Matches(keyMsg, seriesKeyMap.Raise):
		m = m.swap(m.cursor, m.cursor-1)
	case key.Matches(keyMsg, seriesKeyMap.Lower):
		m = m.swap(m.cursor, m.cursor+1)
	case key.Matches(keyMsg, seriesKeyMap.ApplyAll):
		m = m.moveDivider(0)
	case key.Matches(keyMsg, seriesKeyMap.PopAll):
		m = m.moveDivider(len(m.rows) - 1)
	}
	return m, nil
}

func (m seriesModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Reorder Patches"))
	b.WriteString("\n")

	style := pendingStyle
	for i, row := range m.rows {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("▸ ")
		}
		if row == divider {
			b.WriteString(marker + pendingStyle.Render("── applied below ──") + "\n")
			style = appliedStyle
			continue
		}
		if i == m.cursor {
			b.WriteString(marker + cursorStyle.Render(row) + "\n")
		} else {
			b.WriteString(marker + style.Render(row) + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(seriesKeyMap))
	b.WriteString("\n")
	return b.String()
}

// result returns the patches bottom first and how many of them are applied
func (m seriesModel) result() ([]string, int) {
	order := slices.Clone(m.rows)
	slices.Reverse(order)
	applied := slices.Index(order, divider)
	return slices.Delete(order, applied, applied+1), applied
}

// RunReorderTUI lets the user reorder the visible series and move the applied
// boundary. It returns the new order, bottom first; its first n entries are to be applied.
func RunReorderTUI(applied, unapplied []string) ([]string, int, error) {
	if !Interactive() {
		return nil, 0, ErrInteractiveDisabled
	}
	p := tea.NewProgram(newSeriesModel(applied, unapplied), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	final, err := p.Run()
	if err != nil {
		return nil, 0, err
	}

	m := final.(seriesModel)
	if m.canceled || !m.confirmed {
		return nil, 0, ErrCanceled
	}
	order, n := m.result()
	return order, n, nil
}
