package tui

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplog(t *testing.T) {
	t.Run("console gets messages and the file gets everything", func(t *testing.T) {
		var out bytes.Buffer
		logFile := filepath.Join(t.TempDir(), "logs", "pstack.log")
		splog, err := NewSplog(&out, LogOptions{File: logFile, MaxSizeMB: 1})
		require.NoError(t, err)

		splog.Info("pushed %s", "a")
		splog.Debug("hidden from the console")
		splog.Logger().Info("published stack state", "branch", "main")
		require.NoError(t, splog.Close())

		require.Equal(t, "pushed a\n", out.String())
		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		require.Contains(t, string(data), "pushed a")
		require.Contains(t, string(data), "hidden from the console")
		require.Contains(t, string(data), "branch=main")
	})

	t.Run("debug mode shows engine records", func(t *testing.T) {
		var out bytes.Buffer
		splog, err := NewSplog(&out, LogOptions{Debug: true})
		require.NoError(t, err)
		splog.Logger().Debug("merged push")
		require.Equal(t, "merged push\n", out.String())
	})

	t.Run("engine records stay off the console by default", func(t *testing.T) {
		var out bytes.Buffer
		splog, err := NewSplog(&out, LogOptions{File: os.DevNull})
		require.NoError(t, err)
		splog.Logger().Info("published stack state")
		require.Empty(t, out.String())
		require.NoError(t, splog.Close())
	})

	t.Run("quiet suppresses the console", func(t *testing.T) {
		var out bytes.Buffer
		splog, err := NewSplog(&out, LogOptions{})
		require.NoError(t, err)
		splog.SetQuiet(true)
		splog.Warn("not shown")
		splog.SetQuiet(false)
		splog.Tip("shown")
		require.Equal(t, "💡 shown\n", out.String())
	})

	t.Run("page bypasses formatting", func(t *testing.T) {
		var out bytes.Buffer
		splog, err := NewSplog(&out, LogOptions{})
		require.NoError(t, err)
		splog.Page("diff --git a/x b/x")
		require.Equal(t, "diff --git a/x b/x", out.String())
	})
}
