package internal

import (
	"sync"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// LockState tracks whether a keypress or deletion happened since the
// indicator was last cleared, independent of authentication progress.
type LockState int

const (
	// StateStarted is the idle baseline: locked, nothing typed yet
	StateStarted LockState = iota
	// StateKeyPressed means at least one character entered the buffer
	StateKeyPressed
	// StateBackspaceDelete means the last keypress removed a character
	StateBackspaceDelete
	// StateNothingToDelete means backspace was pressed on an empty buffer
	StateNothingToDelete
)

// AuthState tracks the authentication backend's current phase.
type AuthState int

const (
	// AuthIdle means no authentication attempt is in progress
	AuthIdle AuthState = iota
	// AuthVerifying means the password was handed to PAM and we are waiting
	AuthVerifying
	// AuthLocking means the lock screen is still being established
	AuthLocking
	// AuthWrong means the last attempt was rejected
	AuthWrong
	// AuthLockFailed means the lock itself could not be established
	AuthLockFailed
)

// Monitor represents a physical display in root-window coordinates
type Monitor struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Resolution is the size of the X root window in pixels
type Resolution struct {
	Width  uint32
	Height uint32
}

// Selection is the point the indicator is centered on: the midpoint of the
// selected monitor plus that monitor's placement offset.
type Selection struct {
	CenterX int
	CenterY int
	OffsetX int
	OffsetY int
}

// TextExtents describes measured text the way the draw origin math needs it:
// the rendered box size plus the bearing of the first glyph relative to the
// text origin.
type TextExtents struct {
	Width    float64
	Height   float64
	XBearing float64
	YBearing float64
}

// RenderContext aggregates everything a single frame is computed from. It is
// owned by the locker and passed into the core operations explicitly; there
// is no package-level drawing state.
type RenderContext struct {
	Tracker    *StateTracker
	Renderer   *Renderer
	Cache      *PixmapCache
	Monitors   []Monitor
	Screen     int // requested monitor index; negative means no preference
	Resolution Resolution
}

// Configuration holds the application settings
type Configuration struct {
	// Background color as six hex digits with no leading '#' (e.g. "1f1f28")
	BackgroundColor string `json:"background_color"`

	// Optional background image painted over the fill color
	BackgroundImage string `json:"background_image"`

	// Whether the background image is tiled across the whole screen
	TileImage bool `json:"tile_image"`

	// Monitor index to center the indicator on; -1 means no preference
	Screen int `json:"screen"`

	// Whether the unlock indicator is drawn at all
	ShowIndicator bool `json:"show_indicator"`

	// DPI scale override; 0 derives the factor from the physical display
	DPIScale float64 `json:"dpi_scale"`

	// PAM service name to use for authentication
	PamService string `json:"pam_service"`

	// Idle timeout in seconds before auto-locking
	IdleTimeout int `json:"idle_timeout"`

	// Whether to lock the screen immediately on startup
	LockScreen bool `json:"lock_screen"`

	// Enable debug exit with ESC or Q key
	DebugExit bool `json:"debug_exit"`

	// Command to run before locking the screen
	PreLockCommand string `json:"pre_lock_command"`

	// Command to run after unlocking the screen
	PostLockCommand string `json:"post_lock_command"`

	// Whether to pause MPRIS media players when locking
	LockPauseMedia bool `json:"lock_pause_media"`

	// Whether to resume MPRIS media players when unlocking
	UnlockResumeMedia bool `json:"unlock_resume_media"`
}

// X11Locker implements the ScreenLocker interface for X11
type X11Locker struct {
	config      Configuration
	conn        *xgb.Conn
	screen      *xproto.ScreenInfo
	window      xproto.Window
	gc          xproto.Gcontext
	render      RenderContext
	helper      *LockHelper
	password    *SecurePassword
	lockout     *LockoutManager
	idleWatcher *IdleWatcher
	isLocked    bool
}

// IdleWatcher monitors user activity
type IdleWatcher struct {
	conn         *xgb.Conn
	timeout      time.Duration
	stopChan     chan struct{}
	parentLocker *X11Locker
}

// ScreenLocker interface defines methods that any screen locker should implement
type ScreenLocker interface {
	// Lock immediately locks the screen
	Lock() error

	// StartIdleMonitor starts monitoring for user inactivity and locks after the timeout
	StartIdleMonitor() error
}

// AuthResult represents the result of an authentication attempt
type AuthResult struct {
	Success bool
	Message string
}

// PamAuthenticator handles PAM-based user authentication
type PamAuthenticator struct {
	serviceName string
	username    string
}

// SecurePassword holds the password buffer and zeroes its memory on removal
type SecurePassword struct {
	mu   sync.Mutex
	data []byte
}
