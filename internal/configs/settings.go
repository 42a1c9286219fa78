package configs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Settings are user-level preferences, stored as TOML under the user config
// directory. They are not secret and live outside the shrine.
type Settings struct {
	// Folder is the default shrine folder used when --folder is not given.
	// Empty means the current working directory.
	Folder string `toml:"folder"`

	Agent AgentSettings `toml:"agent"`
}

// AgentSettings control the session agent.
type AgentSettings struct {
	// TTLMinutes is the fixed session lifetime set at unlock time. The
	// expiry is absolute: activity does not extend it.
	TTLMinutes int `toml:"ttl_minutes"`
}

// DefaultTTLMinutes is the session lifetime used when the user config does
// not override it.
const DefaultTTLMinutes = 15

// ConfigDir returns the shrine config directory. SHRINE_CONFIG_DIR overrides
// the platform default; tests rely on this.
func ConfigDir() (string, error) {
	if dir := os.Getenv("SHRINE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(base, "shrine"), nil
}

// Load reads the user settings, returning defaults when no config file exists.
func Load() (*Settings, error) {
	settings := &Settings{
		Agent: AgentSettings{TTLMinutes: DefaultTTLMinutes},
	}

	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return settings, nil
	}

	if err := LoadTOML(path, settings); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if settings.Agent.TTLMinutes <= 0 {
		settings.Agent.TTLMinutes = DefaultTTLMinutes
	}

	return settings, nil
}

// Save writes the user settings.
func Save(settings *Settings) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return SaveTOML(filepath.Join(dir, "config.toml"), settings)
}

// RuntimeDir returns the directory for the agent socket, pidfile and log.
// It prefers $XDG_RUNTIME_DIR and falls back to a per-user directory under
// the temp dir. The directory is created with owner-only permissions.
func RuntimeDir() (string, error) {
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = filepath.Join(os.TempDir(), fmt.Sprintf("shrine-%d", os.Getuid()))
	} else {
		base = filepath.Join(base, "shrine")
	}

	if err := os.MkdirAll(base, 0700); err != nil {
		return "", fmt.Errorf("failed to create runtime directory: %w", err)
	}
	return base, nil
}
