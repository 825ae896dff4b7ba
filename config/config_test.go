package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	defer Reset()
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Server.DisplayNumber)
	assert.Equal(t, "127.0.0.1", cfg.Server.ListenAddress)
	assert.True(t, cfg.Server.UnixSocket)
	assert.EqualValues(t, 1024, cfg.Server.Width)
	assert.EqualValues(t, 768, cfg.Server.Height)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "everforest", cfg.Log.Theme)
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	defer Reset()
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, "rxserver", cfg.Server.Vendor)
}

func TestLoadOverridesFromFile(t *testing.T) {
	defer Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "rxserver.toml")
	content := "[server]\ndisplay_number = 2\nwidth = 1920\nheight = 1080\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Server.DisplayNumber)
	assert.EqualValues(t, 1920, cfg.Server.Width)
	assert.EqualValues(t, 1080, cfg.Server.Height)
}

func TestTCPPortFollowsDisplayNumber(t *testing.T) {
	defer Reset()
	dir := t.TempDir()
	path := filepath.Join(dir, "rxserver.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\ndisplay_number = 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6003, cfg.TCPPort())
	assert.Equal(t, "/tmp/.X11-unix/X3", cfg.UnixSocketPath())
}
