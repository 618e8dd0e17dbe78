package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesAndReadsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	logger := zerolog.Nop()

	cfg, resolved, err := Load(&logger, path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)

	// First load materializes the default config file.
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	require.Equal(t, "yui_chat_room", cfg.Channel)
	require.Equal(t, "yui_chat_dat", cfg.StorageKey)
	require.Equal(t, 20, cfg.NameMaxLen)
	require.True(t, cfg.ClearOnExit)
	require.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	logger := zerolog.Nop()

	t.Setenv("YUICHAT_CHANNEL", "other_room")
	t.Setenv("YUICHAT_CLEAR_ON_EXIT", "false")

	cfg, _, err := Load(&logger, path)
	require.NoError(t, err)
	require.Equal(t, "other_room", cfg.Channel)
	require.False(t, cfg.ClearOnExit)
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{ unclosed: ["), 0o600))
	logger := zerolog.Nop()

	_, _, err := Load(&logger, path)
	require.Error(t, err)
}
