package internal

// StateTracker holds the lock/input state, the authentication state and the
// last non-zero password length. The memo keeps the displayed glyph count
// stable while an error state is shown after the buffer was already cleared.
//
// All mutation happens synchronously from the event loop; the renderer only
// ever sees a Snapshot.
type StateTracker struct {
	lock              LockState
	auth              AuthState
	currentLength     int
	lastNonzeroLength int
}

// Snapshot is the read-only view of the tracker one frame is drawn from.
type Snapshot struct {
	Lock       LockState
	Auth       AuthState
	GlyphCount int
}

// NewStateTracker returns a tracker in the idle baseline state
func NewStateTracker() *StateTracker {
	return &StateTracker{lock: StateStarted, auth: AuthIdle}
}

// LockState returns the current lock/input state
func (t *StateTracker) LockState() LockState {
	return t.lock
}

// SetLockState records a lock/input state transition
func (t *StateTracker) SetLockState(s LockState) {
	t.lock = s
}

// AuthState returns the current authentication state
func (t *StateTracker) AuthState() AuthState {
	return t.auth
}

// SetAuthState records an authentication state transition
func (t *StateTracker) SetAuthState(s AuthState) {
	t.auth = s
}

// NoteInput records the current password length. Only non-zero lengths update
// the memo, so the count survives the buffer being cleared on a failure.
func (t *StateTracker) NoteInput(length int) {
	t.currentLength = length
	if length > 0 {
		t.lastNonzeroLength = length
	}
}

// EffectiveGlyphCount returns how many password glyphs the indicator should
// represent. While an error is displayed (wrong password, failed lock) the
// memoized last non-zero length is reported even though the buffer itself has
// been wiped; otherwise the live length is used.
func (t *StateTracker) EffectiveGlyphCount() int {
	if t.auth == AuthWrong || t.auth == AuthLockFailed {
		return t.lastNonzeroLength
	}
	return t.currentLength
}

// Snapshot captures the tracker state for one frame
func (t *StateTracker) Snapshot() Snapshot {
	return Snapshot{
		Lock:       t.lock,
		Auth:       t.auth,
		GlyphCount: t.EffectiveGlyphCount(),
	}
}
