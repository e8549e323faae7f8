package internal

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseBackgroundColor(t *testing.T) {
	tests := []struct {
		input string
		want  [3]uint8
	}{
		{"ff0000", [3]uint8{255, 0, 0}},
		{"00ff00", [3]uint8{0, 255, 0}},
		{"0000ff", [3]uint8{0, 0, 255}},
		{"1f1f28", [3]uint8{31, 31, 40}},
		{"ffffff", [3]uint8{255, 255, 255}},
		{"000000", [3]uint8{0, 0, 0}},
	}

	for _, tt := range tests {
		if got := ParseBackgroundColor(tt.input); got != tt.want {
			t.Errorf("ParseBackgroundColor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseBackgroundColorMalformedGroups(t *testing.T) {
	// Each two-digit group degrades to 0 independently.
	tests := []struct {
		input string
		want  [3]uint8
	}{
		{"", [3]uint8{0, 0, 0}},
		{"ff", [3]uint8{255, 0, 0}},       // missing green and blue groups
		{"zzff00", [3]uint8{0, 255, 0}},   // malformed red group only
		{"ffzz10", [3]uint8{255, 0, 16}},  // malformed green group only
		{"not a color", [3]uint8{0, 0, 0}},
	}

	for _, tt := range tests {
		if got := ParseBackgroundColor(tt.input); got != tt.want {
			t.Errorf("ParseBackgroundColor(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	saved := DefaultConfig()
	saved.BackgroundColor = "334455"
	saved.Screen = 1
	saved.TileImage = true

	if err := SaveConfig(path, saved); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded := DefaultConfig()
	if err := LoadConfig(path, &loaded); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.BackgroundColor != "334455" {
		t.Errorf("expected background color 334455, got %q", loaded.BackgroundColor)
	}
	if loaded.Screen != 1 {
		t.Errorf("expected screen 1, got %d", loaded.Screen)
	}
	if !loaded.TileImage {
		t.Error("expected tile_image to survive the round trip")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	config := DefaultConfig()
	err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"), &config)
	if err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	config := DefaultConfig()
	config.DPIScale = -1
	if err := validateConfig(&config); err == nil {
		t.Error("expected error for negative dpi_scale")
	}

	config = DefaultConfig()
	config.IdleTimeout = 0
	if err := validateConfig(&config); err == nil {
		t.Error("expected error for non-positive idle timeout")
	}
}

func TestValidateConfigTolerantOfCosmeticProblems(t *testing.T) {
	// A bad color or missing image must not prevent locking.
	config := DefaultConfig()
	config.BackgroundColor = "bogus"
	config.BackgroundImage = filepath.Join(os.TempDir(), "does-not-exist.png")
	if err := validateConfig(&config); err != nil {
		t.Errorf("expected cosmetic problems to pass validation, got %v", err)
	}
}
