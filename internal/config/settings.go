package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// SettingsFileName is the settings file expected under ConfigDirectory.
const SettingsFileName = "settings.toml"

// Settings holds the user-editable configuration the bootstrap consults.
// Everything has a working default; a missing file is not an error.
type Settings struct {
	// RuntimeDir overrides the directory the instance socket is created in.
	// Empty means RuntimeDirectory() decides. Ignored on Windows.
	RuntimeDir string

	// LogToFile mirrors instance logs into LogDirectory.
	LogToFile bool

	// Verbose enables debug-level logging. The --verbose flag wins over
	// this when both are present.
	Verbose bool

	// Notifications gates desktop notifications for fatal bootstrap
	// failures and hand-off confirmations.
	Notifications bool

	// Helpers lists helper processes the instance starts after it owns
	// the endpoint. Each runs with the amended environment.
	Helpers []Helper
}

// Helper describes one helper process entry from the settings file.
type Helper struct {
	Command string   `toml:"command"`
	Args    []string `toml:"args"`
}

// Load locates and parses the settings file, falling back to defaults when
// missing. An empty path means the default location.
func Load(path string) (Settings, error) {
	if strings.TrimSpace(path) == "" {
		path = filepath.Join(ConfigDirectory(), SettingsFileName)
	}

	cfg := Settings{
		LogToFile:     true,
		Notifications: true,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	// Bool fields use pointers so an absent key keeps its default.
	var raw struct {
		RuntimeDir    string   `toml:"runtime_dir"`
		LogToFile     *bool    `toml:"log_to_file"`
		Verbose       *bool    `toml:"verbose"`
		Notifications *bool    `toml:"notifications"`
		Helpers       []Helper `toml:"helper"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return Settings{}, fmt.Errorf("parse settings: %w", err)
	}

	cfg.RuntimeDir = strings.TrimSpace(raw.RuntimeDir)
	if cfg.RuntimeDir != "" {
		expanded, err := expandPath(cfg.RuntimeDir)
		if err != nil {
			return Settings{}, fmt.Errorf("resolve runtime_dir: %w", err)
		}
		cfg.RuntimeDir = expanded
	}

	if raw.LogToFile != nil {
		cfg.LogToFile = *raw.LogToFile
	}
	if raw.Verbose != nil {
		cfg.Verbose = *raw.Verbose
	}
	if raw.Notifications != nil {
		cfg.Notifications = *raw.Notifications
	}

	for _, h := range raw.Helpers {
		if strings.TrimSpace(h.Command) == "" {
			continue
		}
		cfg.Helpers = append(cfg.Helpers, h)
	}

	return cfg, nil
}

// EffectiveRuntimeDir returns the configured socket directory, or the
// platform default when the settings file doesn't override it.
func (s Settings) EffectiveRuntimeDir() string {
	if s.RuntimeDir != "" {
		return s.RuntimeDir
	}
	return RuntimeDirectory()
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
