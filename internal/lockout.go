package internal

import "time"

// lockout policy: after maxFailures rejected attempts in a row a timed
// lockout begins, escalating with repeated rounds and capped at lockoutMax.
const (
	maxFailures     = 3
	lockoutBase     = 30 * time.Second
	lockoutMax      = 10 * time.Minute
	lockoutDebugDur = 5 * time.Second
)

// LockoutManager counts authentication failures and enforces lockout periods
type LockoutManager struct {
	config         Configuration
	failedAttempts int
	rounds         int
	until          time.Time
}

// NewLockoutManager creates a new lockout manager with the given configuration
func NewLockoutManager(config Configuration) *LockoutManager {
	return &LockoutManager{config: config}
}

// NoteFailure records a rejected attempt and starts a lockout when the
// failure threshold is reached. Returns whether a lockout just began.
func (lm *LockoutManager) NoteFailure() bool {
	lm.failedAttempts++
	Info("authentication failed (%d/%d attempts)", lm.failedAttempts, maxFailures)

	if lm.failedAttempts < maxFailures {
		return false
	}

	lm.rounds++
	lm.failedAttempts = 0

	duration := lockoutBase * time.Duration(lm.rounds)
	if duration > lockoutMax {
		duration = lockoutMax
	}
	if lm.config.DebugExit {
		// Short lockouts while debugging
		duration = lockoutDebugDur
	}

	lm.until = time.Now().Add(duration)
	Info("too many failed attempts, locking out input for %v", duration)
	return true
}

// Active reports whether input is currently locked out
func (lm *LockoutManager) Active() bool {
	return time.Now().Before(lm.until)
}

// Remaining returns how long the current lockout still lasts
func (lm *LockoutManager) Remaining() time.Duration {
	if !lm.Active() {
		return 0
	}
	return time.Until(lm.until).Round(time.Second)
}

// Reset clears all failure history, typically after a successful unlock
func (lm *LockoutManager) Reset() {
	lm.failedAttempts = 0
	lm.rounds = 0
	lm.until = time.Time{}
}
