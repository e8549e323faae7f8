package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dimlock/dimlock/internal"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("c", "", "Path to configuration file")
	flag.StringVar(configPath, "config", "", "Path to configuration file")

	lockScreen := flag.Bool("l", false, "Lock the screen immediately")
	flag.BoolVar(lockScreen, "lock", false, "Lock the screen immediately")

	screenIndex := flag.Int("screen", -1, "Monitor index to draw the indicator on")

	debugExit := flag.Bool("debug-exit", false, "Enable exit with ESC or Q key (for debugging)")

	writeConfig := flag.Bool("write-config", false, "Write the default config file and exit")

	// Add debug mode flag
	debugMode := flag.Bool("log", false, "Enable debug logging")

	flag.Parse()

	// Initialize the logger
	if *debugMode {
		internal.InitLogger(internal.LevelDebug, true)
		internal.Debug("Debug logging enabled")
	} else {
		internal.InitLogger(internal.LevelError, false)
	}

	if *writeConfig {
		path, err := internal.GenerateDefaultConfigFile()
		if err != nil {
			internal.Fatal("Failed to write default config: %v", err)
		}
		internal.Info("Wrote default config to %s", path)
		return
	}

	// Load default configuration
	config := internal.DefaultConfig()

	// Try to find and load config file
	if *configPath == "" {
		// Try default locations
		homeDir, err := os.UserHomeDir()
		if err == nil {
			defaultConfigPath := filepath.Join(homeDir, ".config", "dimlock", "config.json")
			if _, err := os.Stat(defaultConfigPath); err == nil {
				// Default config exists, use it
				internal.Info("Using default config file: %s", defaultConfigPath)
				*configPath = defaultConfigPath
			}
		}
	}

	// If config file is provided or found, load it
	if *configPath != "" {
		err := internal.LoadConfig(*configPath, &config)
		if err != nil {
			internal.Error("loading config: %v", err)
			// Continue with default config
		}
	}

	// Flags override the config file
	config.LockScreen = *lockScreen
	if *debugExit {
		config.DebugExit = true
	}
	if isFlagSet("screen") {
		config.Screen = *screenIndex
	}

	// Initialize display server detection
	displayServer := DetectDisplayServer()
	internal.Info("Detected display server: %s", displayServer)

	// Initialize the screen locker based on display server
	var locker internal.ScreenLocker

	switch displayServer {
	case "x11":
		locker = internal.NewX11Locker(config)
	default:
		internal.Fatal("Unsupported display server: %s", displayServer)
	}

	// If -l/--lock flag is set, lock immediately
	if config.LockScreen {
		if err := locker.Lock(); err != nil {
			internal.Fatal("Failed to lock screen: %v", err)
		}
		return
	}

	// Otherwise start in screensaver/idle monitor mode
	if err := locker.StartIdleMonitor(); err != nil {
		internal.Fatal("Failed to start idle monitor: %v", err)
	}

	// The idle watcher runs in the background; wait until told to stop
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	internal.Info("Shutting down")
}

func isFlagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// DetectDisplayServer detects whether X11 or Wayland is being used
func DetectDisplayServer() string {
	// Check for Wayland session
	waylandDisplay := os.Getenv("WAYLAND_DISPLAY")
	if waylandDisplay != "" {
		return "wayland"
	}

	// Check for X11 session
	xdgSession := os.Getenv("XDG_SESSION_TYPE")
	if xdgSession == "x11" {
		return "x11"
	}

	// Default to X11 if can't determine
	return "x11"
}
