package internal

import (
	"fmt"
	"image"
	"image/draw"
	"strings"

	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// maxIndicatorGlyphs caps how many password dots one frame can show. Longer
// passwords keep accumulating in the buffer but add no further glyphs.
const maxIndicatorGlyphs = 64

// indicatorGlyph is the filled dot repeated once per password character
const indicatorGlyph = "•"

// indicatorFontSize is the unscaled glyph size in points
const indicatorFontSize = 80.0

// Indicator text colors, keyed by authentication phase
var (
	colorProcessing = gg.RGBA{R: 84.0 / 255, G: 110.0 / 255, B: 122.0 / 255, A: 1}
	colorFailure    = gg.RGBA{R: 255.0 / 255, G: 83.0 / 255, B: 112.0 / 255, A: 1}
	colorNeutral    = gg.RGBA{R: 1, G: 1, B: 1, A: 1}
)

// Renderer composes unlock-indicator frames. It is pure computation over a
// state snapshot, a screen selection and the parsed configuration; the only
// side effect of Render is mutating the destination buffer.
type Renderer struct {
	fill  [3]uint8     // background fill channels
	image *gg.ImageBuf // optional background image, nil when unset
	tile  bool
	show  bool
	scale float64
	face  text.Face
}

// NewRenderer builds a renderer from the configuration and DPI scale factor.
// A background image that fails to load is dropped with a diagnostic rather
// than blocking the lock screen.
func NewRenderer(config Configuration, scale float64) (*Renderer, error) {
	source, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to load indicator font: %v", err)
	}

	var img *gg.ImageBuf
	if config.BackgroundImage != "" {
		img, err = gg.LoadImage(config.BackgroundImage)
		if err != nil {
			Error("failed to load background image %s: %v", config.BackgroundImage, err)
			img = nil
		}
	}

	if scale <= 0 {
		scale = 1.0
	}

	return &Renderer{
		fill:  ParseBackgroundColor(config.BackgroundColor),
		image: img,
		tile:  config.TileImage,
		show:  config.ShowIndicator,
		scale: scale,
		face:  source.Face(indicatorFontSize * scale),
	}, nil
}

// indicatorStyle maps the lock/auth state pair to a glyph color and whether
// the glyph run is suppressed entirely. Every AuthState is handled
// explicitly so a new phase cannot silently inherit a fallthrough.
func indicatorStyle(snap Snapshot) (col gg.RGBA, suppress bool) {
	switch snap.Auth {
	case AuthVerifying, AuthLocking:
		return colorProcessing, false
	case AuthWrong:
		if snap.Lock == StateStarted {
			// Nothing typed since the rejection: keep the error color.
			return colorFailure, false
		}
		// A key has been pressed again; white signals typing may resume.
		return colorNeutral, false
	case AuthLockFailed:
		return colorFailure, false
	case AuthIdle:
		if snap.Lock == StateNothingToDelete {
			// The buffer reached empty via deletion: show nothing at all,
			// regardless of the computed glyph count.
			return colorNeutral, true
		}
		return colorNeutral, false
	}
	return colorNeutral, false
}

// glyphText builds the dot run for count password characters, clamped at
// maxIndicatorGlyphs.
func glyphText(count int) string {
	if count <= 0 {
		return ""
	}
	if count > maxIndicatorGlyphs {
		count = maxIndicatorGlyphs
	}
	return strings.Repeat(indicatorGlyph, count)
}

// measure reports the extents of s at the renderer's face. The horizontal
// bearing of the dot run is zero; vertically the text box begins one ascent
// above the baseline, so the bearing is the negated ascent.
func (r *Renderer) measure(s string) TextExtents {
	w, h := text.Measure(s, r.face)
	m := r.face.Metrics()
	return TextExtents{
		Width:    w,
		Height:   h,
		XBearing: 0,
		YBearing: -m.Ascent,
	}
}

// originForCenter computes the baseline origin that centers the measured
// text box on the selection's center point, compensating the bearings the
// metrics report.
func originForCenter(sel Selection, ext TextExtents) (x, y float64) {
	x = float64(sel.OffsetX) + float64(sel.CenterX) - (ext.Width/2 + ext.XBearing)
	y = float64(sel.OffsetY) + float64(sel.CenterY) - (ext.Height/2 + ext.YBearing)
	return x, y
}

// Compose paints one complete frame into a fresh in-memory context: the
// background fill, the optional image and the indicator glyphs. The caller
// owns the returned context and must Close it.
func (r *Renderer) Compose(res Resolution, snap Snapshot, sel Selection) *gg.Context {
	dc := gg.NewContext(int(res.Width), int(res.Height))

	// The destination pixmap persists between draws, so every frame starts
	// from a full clear with the background color.
	dc.ClearWithColor(gg.RGBA{
		R: float64(r.fill[0]) / 255,
		G: float64(r.fill[1]) / 255,
		B: float64(r.fill[2]) / 255,
		A: 1,
	})

	if r.image != nil {
		iw, ih := r.image.Bounds()
		if !r.tile {
			dc.DrawImage(r.image, 0, 0)
		} else if iw > 0 && ih > 0 {
			for y := 0; y < int(res.Height); y += ih {
				for x := 0; x < int(res.Width); x += iw {
					dc.DrawImage(r.image, float64(x), float64(y))
				}
			}
		}
	}

	if r.show && (snap.Lock >= StateKeyPressed || snap.Auth != AuthIdle) {
		col, suppress := indicatorStyle(snap)
		run := glyphText(snap.GlyphCount)
		if suppress {
			run = ""
		}
		if run != "" {
			dc.SetFont(r.face)
			dc.SetRGB(col.R, col.G, col.B)
			x, y := originForCenter(sel, r.measure(run))
			dc.DrawString(run, x, y)
		}
	}

	return dc
}

// Render composes the frame and presents it onto dst in a single pass, so
// the committed buffer never holds a partially drawn intermediate state. The
// compose context is released on every exit path.
func (r *Renderer) Render(dst *image.RGBA, res Resolution, snap Snapshot, sel Selection) {
	dc := r.Compose(res, snap, sel)
	defer dc.Close()

	draw.Draw(dst, dst.Bounds(), dc.Image(), image.Point{}, draw.Src)
}
