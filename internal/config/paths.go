// Package config provides configuration management for Tessera.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/tessera-apps/tessera/internal/constants"
)

// ConfigDirectory returns the directory holding settings.toml.
//
// Locations:
//   - Windows: %APPDATA%\tessera
//   - Unix: ~/.config/tessera
func ConfigDirectory() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "tessera")
		}
		return filepath.Join(homeDir, ".config", "tessera")
	}
	return filepath.Join(configDir, "tessera")
}

// LogDirectory returns the unified log directory for all Tessera logs.
// v2.1.0: Centralized log path used by the instance and helper processes.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\Tessera\logs
//   - Unix: ~/.config/tessera/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "tessera-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "Tessera", "logs")
	}

	return filepath.Join(ConfigDirectory(), "logs")
}

// EnsureLogDirectory creates the log directory if it doesn't exist.
// Uses 0700 permissions to restrict log access to owner only.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}

// RuntimeDirectory returns the directory the instance socket lives in.
// Meaningless on Windows, where the endpoint is a named pipe.
//
// Resolution order:
//  1. TESSERA_RUNTIME_DIR (development and test override)
//  2. XDG_RUNTIME_DIR (user-private tmpfs on most Linux systems)
//  3. the system temporary directory
func RuntimeDirectory() string {
	if dir := os.Getenv(constants.EnvRuntimeDir); dir != "" {
		return dir
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir
	}
	return os.TempDir()
}
