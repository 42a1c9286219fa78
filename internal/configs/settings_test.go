package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDirOverride(t *testing.T) {
	t.Setenv("SHRINE_CONFIG_DIR", "/tmp/override")

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", dir)
}

func TestLoadDefaultsWhenNoConfig(t *testing.T) {
	t.Setenv("SHRINE_CONFIG_DIR", t.TempDir())

	settings, err := Load()
	require.NoError(t, err)

	assert.Empty(t, settings.Folder)
	assert.Equal(t, DefaultTTLMinutes, settings.Agent.TTLMinutes)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("SHRINE_CONFIG_DIR", t.TempDir())

	require.NoError(t, Save(&Settings{
		Folder: "/home/user/secrets",
		Agent:  AgentSettings{TTLMinutes: 30},
	}))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/home/user/secrets", settings.Folder)
	assert.Equal(t, 30, settings.Agent.TTLMinutes)
}

func TestLoadClampsNonPositiveTTL(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SHRINE_CONFIG_DIR", dir)

	config := "[agent]\nttl_minutes = 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(config), 0600))

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultTTLMinutes, settings.Agent.TTLMinutes)
}

func TestRuntimeDirUsesXDGRuntimeDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", base)

	dir, err := RuntimeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "shrine"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}
