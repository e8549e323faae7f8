package internal

import "testing"

func TestLockoutStartsAfterMaxFailures(t *testing.T) {
	lm := NewLockoutManager(DefaultConfig())

	for i := 0; i < maxFailures-1; i++ {
		if lm.NoteFailure() {
			t.Fatalf("lockout began after only %d failures", i+1)
		}
		if lm.Active() {
			t.Fatalf("lockout active after only %d failures", i+1)
		}
	}

	if !lm.NoteFailure() {
		t.Error("expected lockout to begin at the failure threshold")
	}
	if !lm.Active() {
		t.Error("expected lockout to be active")
	}
	if lm.Remaining() <= 0 {
		t.Error("expected a positive remaining lockout duration")
	}
}

func TestLockoutReset(t *testing.T) {
	lm := NewLockoutManager(DefaultConfig())

	for i := 0; i < maxFailures; i++ {
		lm.NoteFailure()
	}
	if !lm.Active() {
		t.Fatal("expected lockout to be active before reset")
	}

	lm.Reset()
	if lm.Active() {
		t.Error("expected no lockout after reset")
	}
	if lm.Remaining() != 0 {
		t.Errorf("expected zero remaining after reset, got %v", lm.Remaining())
	}
}
