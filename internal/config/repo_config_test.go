package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "cascade", cfg.PopPolicy())
	require.Equal(t, time.Duration(0), cfg.LockTimeout())
	require.False(t, cfg.IncludeUntracked())
	require.Equal(t, 30, cfg.NameLength())
	require.True(t, strings.HasSuffix(cfg.LogFile(), filepath.Join(".pstack", "logs", "pstack.log")), cfg.LogFile())
	size, backups, age := cfg.LogRotation()
	require.Equal(t, []int{1, 2, 30}, []int{size, backups, age})
}

func TestLogFileOverride(t *testing.T) {
	t.Setenv("PSTACK_LOG_FILE", "/tmp/custom.log")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "/tmp/custom.log", cfg.LogFile())

	require.NoError(t, cfg.Set(KeyLogMaxBackups, "0"))
	_, backups, _ := cfg.LogRotation()
	require.Zero(t, backups)
	require.Error(t, cfg.Set(KeyLogMaxSize, "0"))
}

func TestSet(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	require.NoError(t, cfg.Set(KeyPopPolicy, "Reorder"))
	require.NoError(t, cfg.Set(KeyLockTimeout, "5s"))
	require.NoError(t, cfg.Set(KeyIncludeUntracked, "true"))
	require.Equal(t, "reorder", cfg.PopPolicy(), "set values apply immediately")

	reloaded, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "reorder", reloaded.PopPolicy())
	require.Equal(t, 5*time.Second, reloaded.LockTimeout())
	require.True(t, reloaded.IncludeUntracked())
	require.Equal(t, 30, reloaded.NameLength())

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	require.NoError(t, err)
	require.NotContains(t, string(data), "namelength", "defaults are not written")
}

func TestSetValidation(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	tests := []struct {
		key, value string
	}{
		{KeyPopPolicy, "sometimes"},
		{KeyLockTimeout, "soon"},
		{KeyLockTimeout, "-1s"},
		{KeyIncludeUntracked, "maybe"},
		{KeyNameLength, "0"},
		{"no.such.key", "x"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			require.Error(t, cfg.Set(tt.key, tt.value))
		})
	}
	_, err = os.Stat(cfg.Path())
	require.ErrorIs(t, err, os.ErrNotExist, "rejected values are never written")
}

func TestEnvironmentOverride(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.Set(KeyPopPolicy, "reject"))

	t.Setenv("PSTACK_POP_POLICY", "reorder")
	cfg, err = Load(dir)
	require.NoError(t, err)
	require.Equal(t, "reorder", cfg.PopPolicy())

	value, err := cfg.Get(KeyPopPolicy)
	require.NoError(t, err)
	require.Equal(t, "reorder", value)

	_, err = cfg.Get("unknown")
	require.Error(t, err)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0o600))
	_, err := Load(dir)
	require.Error(t, err)
}
