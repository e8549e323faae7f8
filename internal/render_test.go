package internal

import (
	"bytes"
	"image"
	"testing"
	"unicode/utf8"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	config := DefaultConfig()
	config.BackgroundColor = "1f1f28"
	r, err := NewRenderer(config, 1.0)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}
	return r
}

func renderFrame(t *testing.T, r *Renderer, res Resolution, snap Snapshot) *image.RGBA {
	t.Helper()
	dst := image.NewRGBA(image.Rect(0, 0, int(res.Width), int(res.Height)))
	sel := Selection{CenterX: int(res.Width / 2), CenterY: int(res.Height / 2)}
	r.Render(dst, res, snap, sel)
	return dst
}

func TestGlyphText(t *testing.T) {
	if got := glyphText(0); got != "" {
		t.Errorf("expected empty run for count 0, got %q", got)
	}
	if got := glyphText(-3); got != "" {
		t.Errorf("expected empty run for negative count, got %q", got)
	}
	if got := utf8.RuneCountInString(glyphText(5)); got != 5 {
		t.Errorf("expected 5 glyphs, got %d", got)
	}
	if got := utf8.RuneCountInString(glyphText(maxIndicatorGlyphs)); got != maxIndicatorGlyphs {
		t.Errorf("expected %d glyphs at the cap, got %d", maxIndicatorGlyphs, got)
	}
}

func TestGlyphTextClampsAtCap(t *testing.T) {
	long := glyphText(200)
	if got := utf8.RuneCountInString(long); got != maxIndicatorGlyphs {
		t.Errorf("expected run clamped to %d glyphs, got %d", maxIndicatorGlyphs, got)
	}
	if long != glyphText(maxIndicatorGlyphs+1) {
		t.Error("expected every over-cap count to produce the same run")
	}
}

func TestIndicatorStyleMapping(t *testing.T) {
	tests := []struct {
		name     string
		snap     Snapshot
		want     [3]float64
		suppress bool
	}{
		{"verifying", Snapshot{Lock: StateKeyPressed, Auth: AuthVerifying}, [3]float64{colorProcessing.R, colorProcessing.G, colorProcessing.B}, false},
		{"locking", Snapshot{Lock: StateStarted, Auth: AuthLocking}, [3]float64{colorProcessing.R, colorProcessing.G, colorProcessing.B}, false},
		{"wrong", Snapshot{Lock: StateStarted, Auth: AuthWrong}, [3]float64{colorFailure.R, colorFailure.G, colorFailure.B}, false},
		{"wrong then typing", Snapshot{Lock: StateKeyPressed, Auth: AuthWrong}, [3]float64{colorNeutral.R, colorNeutral.G, colorNeutral.B}, false},
		{"lock failed", Snapshot{Lock: StateStarted, Auth: AuthLockFailed}, [3]float64{colorFailure.R, colorFailure.G, colorFailure.B}, false},
		{"idle typing", Snapshot{Lock: StateKeyPressed, Auth: AuthIdle}, [3]float64{colorNeutral.R, colorNeutral.G, colorNeutral.B}, false},
		{"nothing to delete", Snapshot{Lock: StateNothingToDelete, Auth: AuthIdle}, [3]float64{colorNeutral.R, colorNeutral.G, colorNeutral.B}, true},
	}

	for _, tt := range tests {
		col, suppress := indicatorStyle(tt.snap)
		if got := [3]float64{col.R, col.G, col.B}; got != tt.want {
			t.Errorf("%s: expected color %v, got %v", tt.name, tt.want, got)
		}
		if suppress != tt.suppress {
			t.Errorf("%s: expected suppress=%v, got %v", tt.name, tt.suppress, suppress)
		}
	}
}

func TestOriginForCenterCompensatesBearings(t *testing.T) {
	sel := Selection{CenterX: 400, CenterY: 300, OffsetX: 100, OffsetY: 50}
	ext := TextExtents{Width: 40, Height: 20, XBearing: 2, YBearing: 3}

	x, y := originForCenter(sel, ext)
	if x != 478 {
		t.Errorf("expected x origin 478, got %v", x)
	}
	if y != 337 {
		t.Errorf("expected y origin 337, got %v", y)
	}
}

func TestOriginForCenterZeroBearings(t *testing.T) {
	sel := Selection{CenterX: 100, CenterY: 100}
	ext := TextExtents{Width: 60, Height: 30}

	x, y := originForCenter(sel, ext)
	if x != 70 {
		t.Errorf("expected x origin 70, got %v", x)
	}
	if y != 85 {
		t.Errorf("expected y origin 85, got %v", y)
	}
}

func TestRenderIsIdempotent(t *testing.T) {
	r := newTestRenderer(t)
	res := Resolution{Width: 320, Height: 200}
	snap := Snapshot{Lock: StateKeyPressed, Auth: AuthIdle, GlyphCount: 3}

	first := renderFrame(t, r, res, snap)
	second := renderFrame(t, r, res, snap)

	if !bytes.Equal(first.Pix, second.Pix) {
		t.Error("expected identical frames for identical state")
	}
}

func TestRenderClearsPreviousFrame(t *testing.T) {
	// Rendering into a buffer that already holds glyphs must fully replace
	// its contents, since the pixmap persists between draws.
	r := newTestRenderer(t)
	res := Resolution{Width: 320, Height: 200}

	clean := renderFrame(t, r, res, Snapshot{Lock: StateStarted, Auth: AuthIdle})

	dirty := renderFrame(t, r, res, Snapshot{Lock: StateKeyPressed, Auth: AuthIdle, GlyphCount: 8})
	sel := Selection{CenterX: int(res.Width / 2), CenterY: int(res.Height / 2)}
	r.Render(dirty, res, Snapshot{Lock: StateStarted, Auth: AuthIdle}, sel)

	if !bytes.Equal(clean.Pix, dirty.Pix) {
		t.Error("expected previous glyphs to be cleared away")
	}
}

func TestSuppressedRunDrawsBackgroundOnly(t *testing.T) {
	r := newTestRenderer(t)
	res := Resolution{Width: 320, Height: 200}

	background := renderFrame(t, r, res, Snapshot{Lock: StateStarted, Auth: AuthIdle})

	// Backspace on an empty buffer while the error memo still reports a
	// non-zero count: the run is forced empty.
	suppressed := renderFrame(t, r, res, Snapshot{Lock: StateNothingToDelete, Auth: AuthIdle, GlyphCount: 5})

	if !bytes.Equal(background.Pix, suppressed.Pix) {
		t.Error("expected a suppressed run to render the bare background")
	}
}

func TestHiddenIndicatorDrawsBackgroundOnly(t *testing.T) {
	config := DefaultConfig()
	config.ShowIndicator = false
	r, err := NewRenderer(config, 1.0)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	res := Resolution{Width: 320, Height: 200}
	background := renderFrame(t, r, res, Snapshot{Lock: StateStarted, Auth: AuthIdle})
	typing := renderFrame(t, r, res, Snapshot{Lock: StateKeyPressed, Auth: AuthIdle, GlyphCount: 8})

	if !bytes.Equal(background.Pix, typing.Pix) {
		t.Error("expected no glyphs when the indicator is disabled")
	}
}

func TestRenderFillsBackgroundColor(t *testing.T) {
	config := DefaultConfig()
	config.BackgroundColor = "ff0000"
	r, err := NewRenderer(config, 1.0)
	if err != nil {
		t.Fatalf("NewRenderer failed: %v", err)
	}

	res := Resolution{Width: 64, Height: 64}
	frame := renderFrame(t, r, res, Snapshot{Lock: StateStarted, Auth: AuthIdle})

	c := frame.RGBAAt(0, 0)
	if c.R != 255 || c.G != 0 || c.B != 0 {
		t.Errorf("expected pure red corner pixel, got %v", c)
	}
}
