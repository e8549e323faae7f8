package internal

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
)

// MediaController pauses and resumes MPRIS media players over D-Bus, so a
// podcast or video does not keep playing behind the lock screen.
type MediaController struct {
	conn *dbus.Conn
}

// NewMediaController connects to the session bus
func NewMediaController() (*MediaController, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return &MediaController{conn: conn}, nil
}

// Close closes the D-Bus connection
func (mc *MediaController) Close() {
	if mc.conn != nil {
		mc.conn.Close()
	}
}

// mprisPlayers lists the bus names of all MPRIS-capable players
func (mc *MediaController) mprisPlayers() ([]string, error) {
	var names []string
	err := mc.conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list D-Bus names: %v", err)
	}

	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, ":") {
			continue
		}
		if strings.Contains(name, "org.mpris.MediaPlayer2") {
			players = append(players, name)
		}
	}
	return players, nil
}

// PauseAll pauses every player that is currently playing
func (mc *MediaController) PauseAll() error {
	return mc.forEachPlayer("Playing", "org.mpris.MediaPlayer2.Player.Pause")
}

// ResumeAll resumes every player that is currently paused
func (mc *MediaController) ResumeAll() error {
	return mc.forEachPlayer("Paused", "org.mpris.MediaPlayer2.Player.Play")
}

// forEachPlayer invokes method on every MPRIS player whose playback status
// matches want. Per-player failures are logged and skipped.
func (mc *MediaController) forEachPlayer(want, method string) error {
	players, err := mc.mprisPlayers()
	if err != nil {
		return err
	}

	touched := 0
	for _, name := range players {
		obj := mc.conn.Object(name, dbus.ObjectPath("/org/mpris/MediaPlayer2"))

		var status string
		err := obj.Call("org.freedesktop.DBus.Properties.Get", 0,
			"org.mpris.MediaPlayer2.Player", "PlaybackStatus").Store(&status)
		if err != nil {
			Debug("failed to get playback status for %s: %v", name, err)
			continue
		}
		if status != want {
			continue
		}

		if call := obj.Call(method, 0); call.Err != nil {
			Debug("call %s on %s failed: %v", method, name, call.Err)
			continue
		}
		touched++
	}

	Debug("media control touched %d of %d players", touched, len(players))
	return nil
}
