package internal

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"
)

// LockHelper handles the operations around establishing and releasing the
// lock: single-instance enforcement, pre/post commands and media control.
type LockHelper struct {
	authenticator *PamAuthenticator
	config        Configuration
	mediaCtrl     *MediaController
	lockFile      *os.File
}

// NewLockHelper creates a new helper instance with the given configuration
func NewLockHelper(config Configuration) *LockHelper {
	var mediaCtrl *MediaController
	if config.LockPauseMedia || config.UnlockResumeMedia {
		var err error
		mediaCtrl, err = NewMediaController()
		if err != nil {
			// Continue without media control
			Error("failed to initialize media controller: %v", err)
		}
	}

	return &LockHelper{
		authenticator: NewPamAuthenticator(config),
		config:        config,
		mediaCtrl:     mediaCtrl,
	}
}

// EnsureSingleInstance makes sure only one instance of the locker is running
func (h *LockHelper) EnsureSingleInstance() error {
	lockFile := "/tmp/dimlock.lock"
	file, err := os.OpenFile(lockFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %v", err)
	}

	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return errors.New("another instance of dimlock is already running")
	}

	// Keep the file open to maintain the lock for the process lifetime
	h.lockFile = file
	return nil
}

// RunPreLockCommand runs the configured pre-lock command (if any)
func (h *LockHelper) RunPreLockCommand() error {
	if h.config.PreLockCommand == "" {
		return nil
	}
	Debug("running pre-lock command: %s", h.config.PreLockCommand)
	return runShellCommand(h.config.PreLockCommand)
}

// RunPostLockCommand runs the configured post-lock command (if any)
func (h *LockHelper) RunPostLockCommand() error {
	if h.config.PostLockCommand == "" {
		return nil
	}
	Debug("running post-lock command: %s", h.config.PostLockCommand)
	return runShellCommand(h.config.PostLockCommand)
}

// PauseMediaIfEnabled pauses running media players when configured to
func (h *LockHelper) PauseMediaIfEnabled() {
	if !h.config.LockPauseMedia || h.mediaCtrl == nil {
		return
	}
	if err := h.mediaCtrl.PauseAll(); err != nil {
		Warn("pausing media players: %v", err)
	}
}

// ResumeMediaIfEnabled resumes paused media players when configured to
func (h *LockHelper) ResumeMediaIfEnabled() {
	if !h.config.UnlockResumeMedia || h.mediaCtrl == nil {
		return
	}
	if err := h.mediaCtrl.ResumeAll(); err != nil {
		Warn("resuming media players: %v", err)
	}
}

// Close cleans up helper resources
func (h *LockHelper) Close() {
	if h.mediaCtrl != nil {
		h.mediaCtrl.Close()
	}
	if h.lockFile != nil {
		h.lockFile.Close()
		h.lockFile = nil
	}
}

// runShellCommand executes a shell command string
func runShellCommand(cmd string) error {
	return exec.Command("sh", "-c", strings.TrimSpace(cmd)).Run()
}

// NewSecurePassword creates a new secure password container
func NewSecurePassword() *SecurePassword {
	return &SecurePassword{
		data: make([]byte, 0, 64),
	}
}

// Append adds a character to the password
func (p *SecurePassword) Append(char byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = append(p.data, char)
}

// RemoveLast removes the last character from the password
func (p *SecurePassword) RemoveLast() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.data) > 0 {
		// Zero out the last byte before removing it
		p.data[len(p.data)-1] = 0
		p.data = p.data[:len(p.data)-1]
	}
}

// Clear securely wipes the password data
func (p *SecurePassword) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.data {
		p.data[i] = 0
	}
	p.data = p.data[:0]
}

// String returns the password as a string (use carefully)
func (p *SecurePassword) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.data)
}

// Length returns the password length
func (p *SecurePassword) Length() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.data)
}
