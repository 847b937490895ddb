// Package config provides XDG path helpers.
package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), "gymtrack", "gymtrack.db")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), "gymtrack", "config.toml")
}

// DefaultActivityDir returns the directory activity files are written to.
func DefaultActivityDir() string {
	return filepath.Join(XDGConfigHome(), "gymtrack", "activities")
}

// DefaultActivityPath returns the default file for an activity id.
func DefaultActivityPath(id string) string {
	return filepath.Join(DefaultActivityDir(), id+".toml")
}

// DefaultLogPath returns the log file used while the live screen runs.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), "gymtrack", "gymtrack.log")
}
