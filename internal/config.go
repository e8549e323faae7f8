package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Configuration {
	pamPath := "/etc/pam.d/dimlock"
	pamService := "system-auth"
	if _, err := os.Stat(pamPath); err == nil {
		pamService = "dimlock"
	}

	return Configuration{
		BackgroundColor:   "1f1f28",
		TileImage:         false,
		Screen:            -1, // no preference
		ShowIndicator:     true,
		PamService:        pamService,
		IdleTimeout:       300,
		LockScreen:        false,
		DebugExit:         false, // Disabled by default for security
		PreLockCommand:    "",
		PostLockCommand:   "",
		LockPauseMedia:    false,
		UnlockResumeMedia: false,
	}
}

// LoadConfig loads configuration from the specified file path
func LoadConfig(path string, config *Configuration) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %v", err)
	}

	err = json.Unmarshal(data, config)
	if err != nil {
		return fmt.Errorf("failed to parse config file: %v", err)
	}

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	return nil
}

// SaveConfig saves the current configuration to the specified file path
func SaveConfig(path string, config Configuration) error {
	if err := validateConfig(&config); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config to JSON: %v", err)
	}

	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// validateConfig checks if the configuration is valid. Cosmetic problems are
// only warned about: a bad color or missing image must never prevent the lock
// screen from appearing.
func validateConfig(config *Configuration) error {
	if len(config.BackgroundColor) != 6 {
		Warn("background_color %q is not six hex digits, malformed groups fall back to black", config.BackgroundColor)
	}

	if config.BackgroundImage != "" {
		if _, err := os.Stat(config.BackgroundImage); err != nil {
			Warn("background image %s not accessible: %v", config.BackgroundImage, err)
		}
	}

	if config.DPIScale < 0 {
		return fmt.Errorf("dpi_scale must not be negative")
	}

	if config.IdleTimeout <= 0 {
		return fmt.Errorf("idle timeout must be positive")
	}

	return nil
}

// ParseBackgroundColor splits a six-hex-digit color string ("1f1f28", no
// leading '#') into its red, green and blue channel bytes. Each two-digit
// group is parsed independently; a malformed or missing group yields 0 for
// that channel, so misconfiguration degrades to black instead of failing.
func ParseBackgroundColor(s string) [3]uint8 {
	var channels [3]uint8
	for i := range channels {
		var group string
		if len(s) >= (i+1)*2 {
			group = s[i*2 : i*2+2]
		}
		v, err := strconv.ParseUint(group, 16, 8)
		if err != nil {
			v = 0
		}
		channels[i] = uint8(v)
	}
	return channels
}

// GenerateDefaultConfigFile creates a default configuration file if it doesn't
// exist and returns its path.
func GenerateDefaultConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	configDir := filepath.Join(homeDir, ".config", "dimlock")

	err = os.MkdirAll(configDir, 0755)
	if err != nil {
		return "", fmt.Errorf("failed to create config directory: %v", err)
	}

	configPath := filepath.Join(configDir, "config.json")

	if _, err = os.Stat(configPath); err == nil {
		// Config file already exists, no need to create it
		return configPath, nil
	}

	err = SaveConfig(configPath, DefaultConfig())
	if err != nil {
		return "", fmt.Errorf("failed to save default config: %v", err)
	}

	return configPath, nil
}
