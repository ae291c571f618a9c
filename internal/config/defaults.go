// Package config handles configuration loading and validation for otpentry.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformDataDir returns the platform-specific data directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/otpentry/
//   - Linux:   $XDG_DATA_HOME/otpentry/ or ~/.local/share/otpentry/
//   - Windows: %LOCALAPPDATA%\otpentry\
func PlatformDataDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "otpentry")
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "otpentry")
		}
		return filepath.Join(home, "AppData", "Local", "otpentry")
	default:
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return filepath.Join(dir, "otpentry")
		}
		return filepath.Join(home, ".local", "share", "otpentry")
	}
}

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/otpentry/
//   - Linux:   $XDG_CONFIG_HOME/otpentry/ or ~/.config/otpentry/
//   - Windows: %APPDATA%\otpentry\
func PlatformConfigDir() string {
	if runtime.GOOS == "darwin" {
		return PlatformDataDir()
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return PlatformDataDir()
	}
	return filepath.Join(dir, "otpentry")
}

// DataDir returns the data directory, honoring OTPENTRY_DATA_DIR.
func DataDir() string {
	if dir := os.Getenv("OTPENTRY_DATA_DIR"); dir != "" {
		return dir
	}
	return PlatformDataDir()
}

// ConfigPath returns the default configuration file path, honoring
// OTPENTRY_CONFIG.
func ConfigPath() string {
	if path := os.Getenv("OTPENTRY_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// CrashDir returns the directory for crash reports.
func CrashDir() string {
	return filepath.Join(DataDir(), "crashes")
}
