package internal

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
)

// DetectMonitors retrieves the active monitor geometries using RandR. The
// RandR extension must already be initialized on the connection.
func DetectMonitors(conn *xgb.Conn, root xproto.Window) ([]Monitor, error) {
	resources, err := randr.GetScreenResources(conn, root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %v", err)
	}

	var monitors []Monitor
	for _, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		monitors = append(monitors, Monitor{
			X:      int(crtcInfo.X),
			Y:      int(crtcInfo.Y),
			Width:  int(crtcInfo.Width),
			Height: int(crtcInfo.Height),
		})
	}

	Debug("RandR reported %d active monitors", len(monitors))
	return monitors, nil
}
