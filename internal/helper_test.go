package internal

import "testing"

func TestSecurePasswordAppendRemove(t *testing.T) {
	p := NewSecurePassword()

	p.Append('a')
	p.Append('b')
	p.Append('c')
	if p.Length() != 3 {
		t.Errorf("expected length 3, got %d", p.Length())
	}
	if p.String() != "abc" {
		t.Errorf("expected \"abc\", got %q", p.String())
	}

	p.RemoveLast()
	if p.String() != "ab" {
		t.Errorf("expected \"ab\" after RemoveLast, got %q", p.String())
	}

	// RemoveLast on an empty buffer is a no-op
	p.Clear()
	p.RemoveLast()
	if p.Length() != 0 {
		t.Errorf("expected empty password, got length %d", p.Length())
	}
}

func TestSecurePasswordClear(t *testing.T) {
	p := NewSecurePassword()
	for i := 0; i < 10; i++ {
		p.Append('x')
	}

	p.Clear()
	if p.Length() != 0 {
		t.Errorf("expected length 0 after Clear, got %d", p.Length())
	}
	if p.String() != "" {
		t.Errorf("expected empty string after Clear, got %q", p.String())
	}
}
