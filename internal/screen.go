package internal

// SelectScreen picks the monitor geometry to center the unlock indicator on.
//
// With no monitor information at all the root window midpoint is used. A
// requested index that is out of range, or negative ("no preference"), falls
// back to monitor 0 with a diagnostic. Selection never fails.
func SelectScreen(monitors []Monitor, requested int, root Resolution) Selection {
	if len(monitors) == 0 {
		// We have no information about the monitor sizes/positions, so we
		// just place the indicator in the middle of the root window and hope
		// for the best.
		return Selection{
			CenterX: int(root.Width / 2),
			CenterY: int(root.Height / 2),
		}
	}

	selected := 0
	switch {
	case requested >= 0 && requested < len(monitors):
		selected = requested
	case requested >= 0:
		Debug("screen index was %d out of bounds, found %d monitors, drawing on 0", requested, len(monitors))
	default:
		Debug("no screen index given, drawing on 0")
	}

	m := monitors[selected]
	return Selection{
		CenterX: m.Width / 2,
		CenterY: m.Height / 2,
		OffsetX: m.X,
		OffsetY: m.Y,
	}
}
