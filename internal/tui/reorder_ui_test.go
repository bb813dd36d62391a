package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m seriesModel, keys ...string) seriesModel {
	t.Helper()
	for _, k := range keys {
		msg := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		if k == "enter" {
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		}
		next, _ := m.Update(msg)
		m = next.(seriesModel)
	}
	return m
}

func TestSeriesModel(t *testing.T) {
	t.Run("lists the series top first around the divider", func(t *testing.T) {
		m := newSeriesModel([]string{"a", "b"}, []string{"c"})
		require.Equal(t, []string{"c", divider, "b", "a"}, m.rows)

		order, applied := m.result()
		require.Equal(t, []string{"a", "b", "c"}, order)
		require.Equal(t, 2, applied)
	})

	t.Run("moving a patch down swaps it with the one below", func(t *testing.T) {
		m := newSeriesModel([]string{"a", "b", "c"}, nil)
		m = press(t, m, "j", "J")
		order, applied := m.result()
		require.Equal(t, []string{"a", "c", "b"}, order)
		require.Equal(t, 3, applied)
		require.Equal(t, 2, m.cursor)
	})

	t.Run("crossing the divider unapplies a patch", func(t *testing.T) {
		m := newSeriesModel([]string{"a", "b"}, []string{"c"})
		m = press(t, m, "j", "j", "K")
		order, applied := m.result()
		require.Equal(t, []string{"a", "b", "c"}, order)
		require.Equal(t, 1, applied)
	})

	t.Run("apply all and apply none move only the divider", func(t *testing.T) {
		m := newSeriesModel([]string{"a"}, []string{"b", "c"})
		order, applied := press(t, m, "A").result()
		require.Equal(t, []string{"a", "b", "c"}, order)
		require.Equal(t, 3, applied)

		order, applied = press(t, m, "P").result()
		require.Equal(t, []string{"a", "b", "c"}, order)
		require.Zero(t, applied)
	})

	t.Run("cursor stays in range", func(t *testing.T) {
		m := newSeriesModel([]string{"a"}, nil)
		m = press(t, m, "k", "K")
		require.Equal(t, 0, m.cursor)
		m = press(t, m, "j", "j", "j")
		require.Equal(t, 1, m.cursor)
	})

	t.Run("confirm and cancel", func(t *testing.T) {
		m := press(t, newSeriesModel([]string{"a"}, nil), "enter")
		require.True(t, m.confirmed)

		m = press(t, newSeriesModel([]string{"a"}, nil), "q")
		require.True(t, m.canceled)
	})

	t.Run("view shows the patches and the divider", func(t *testing.T) {
		view := newSeriesModel([]string{"a"}, []string{"b"}).View()
		require.Contains(t, view, "Reorder Patches")
		require.Contains(t, view, "applied below")
		require.Contains(t, view, "a")
		require.Contains(t, view, "b")
	})
}
