package internal

import "github.com/BurntSushi/xgb/xproto"

// baselineDPI is the dot pitch everything is designed against; the scale
// factor is the ratio of the actual display density to this value.
const baselineDPI = 96.0

// ScalingFactor derives the indicator scale from the physical dimensions the
// X server reports for the screen. A configured override wins; displays that
// report no or nonsense millimeter sizes get a factor of 1, and the factor
// never drops below 1 so low-density screens are not shrunk.
func ScalingFactor(screen *xproto.ScreenInfo, override float64) float64 {
	if override > 0 {
		return override
	}
	if screen == nil || screen.HeightInMillimeters == 0 {
		return 1.0
	}

	heightInches := float64(screen.HeightInMillimeters) / 25.4
	dpi := float64(screen.HeightInPixels) / heightInches
	scale := dpi / baselineDPI
	if scale < 1.0 {
		return 1.0
	}
	return scale
}
