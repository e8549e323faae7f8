package internal

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"time"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/screensaver"
	"github.com/BurntSushi/xgb/xfixes"
	"github.com/BurntSushi/xgb/xproto"
)

// Keysyms the input handler cares about
const (
	keysymReturn    = 0xff0d
	keysymKPEnter   = 0xff8d
	keysymBackspace = 0xff08
	keysymDelete    = 0xffff
	keysymEscape    = 0xff1b
)

// NewX11Locker creates a new X11-based screen locker
func NewX11Locker(config Configuration) *X11Locker {
	return &X11Locker{
		config:   config,
		helper:   NewLockHelper(config),
		password: NewSecurePassword(),
		lockout:  NewLockoutManager(config),
	}
}

// Init initializes the X11 connection and the render context
func (l *X11Locker) Init() error {
	var err error

	l.conn, err = xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %v", err)
	}

	if err := randr.Init(l.conn); err != nil {
		return fmt.Errorf("failed to initialize RandR extension: %v", err)
	}
	if err := xfixes.Init(l.conn); err != nil {
		return fmt.Errorf("failed to initialize XFixes extension: %v", err)
	}

	setup := xproto.Setup(l.conn)
	l.screen = setup.DefaultScreen(l.conn)
	Info("root window resolution: %dx%d", l.screen.WidthInPixels, l.screen.HeightInPixels)

	wid, err := xproto.NewWindowId(l.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate window ID: %v", err)
	}
	l.window = wid

	// Fullscreen override-redirect window; the rendered indicator frame is
	// installed as its background pixmap.
	err = xproto.CreateWindowChecked(
		l.conn,
		l.screen.RootDepth,
		l.window,
		l.screen.Root,
		0, 0, l.screen.WidthInPixels, l.screen.HeightInPixels,
		0,
		xproto.WindowClassInputOutput,
		l.screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{
			l.screen.BlackPixel,
			1, // Override redirect
			uint32(xproto.EventMaskKeyPress |
				xproto.EventMaskExposure |
				xproto.EventMaskStructureNotify |
				xproto.EventMaskButtonPress),
		},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create window: %v", err)
	}

	// Set WM_NAME property for identification
	wmName := "dimlock"
	xproto.ChangeProperty(l.conn, xproto.PropModeReplace, l.window,
		xproto.AtomWmName, xproto.AtomString, 8, uint32(len(wmName)), []byte(wmName))

	// GC used for uploading the rendered frame into the pixmap
	gcid, err := xproto.NewGcontextId(l.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate graphics context ID: %v", err)
	}
	l.gc = gcid

	err = xproto.CreateGCChecked(
		l.conn,
		l.gc,
		xproto.Drawable(l.screen.Root),
		xproto.GcForeground,
		[]uint32{l.screen.BlackPixel},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create graphics context: %v", err)
	}

	// Resolution changes arrive as RandR screen-change notifications
	err = randr.SelectInputChecked(l.conn, l.screen.Root, randr.NotifyMaskScreenChange).Check()
	if err != nil {
		Warn("failed to subscribe to RandR screen changes: %v", err)
	}

	scale := ScalingFactor(l.screen, l.config.DPIScale)
	Debug("DPI scale factor: %.2f", scale)

	renderer, err := NewRenderer(l.config, scale)
	if err != nil {
		return err
	}

	monitors, err := DetectMonitors(l.conn, l.screen.Root)
	if err != nil {
		Warn("failed to detect monitors: %v", err)
		monitors = nil
	}

	l.render = RenderContext{
		Tracker:  NewStateTracker(),
		Renderer: renderer,
		Cache:    NewPixmapCache(l.allocPixmap, l.freePixmap),
		Monitors: monitors,
		Screen:   l.config.Screen,
		Resolution: Resolution{
			Width:  uint32(l.screen.WidthInPixels),
			Height: uint32(l.screen.HeightInPixels),
		},
	}

	return nil
}

// allocPixmap creates a root-depth pixmap at the given resolution
func (l *X11Locker) allocPixmap(res Resolution) (xproto.Pixmap, error) {
	pid, err := xproto.NewPixmapId(l.conn)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate pixmap ID: %v", err)
	}

	err = xproto.CreatePixmapChecked(
		l.conn,
		l.screen.RootDepth,
		pid,
		xproto.Drawable(l.screen.Root),
		uint16(res.Width), uint16(res.Height),
	).Check()
	if err != nil {
		return 0, fmt.Errorf("failed to create background pixmap: %v", err)
	}

	return pid, nil
}

// freePixmap releases a pixmap on the server
func (l *X11Locker) freePixmap(p xproto.Pixmap) {
	xproto.FreePixmap(l.conn, p)
}

// Commit renders one frame at the current resolution and installs it as the
// lock window's background, then requests a full repaint and flushes.
func (l *X11Locker) Commit() error {
	rc := &l.render
	Debug("commit(lock_state = %d, auth_state = %d)", rc.Tracker.LockState(), rc.Tracker.AuthState())

	pixmap, frame, err := rc.Cache.Ensure(rc.Resolution)
	if err != nil {
		return err
	}

	sel := SelectScreen(rc.Monitors, rc.Screen, rc.Resolution)
	rc.Renderer.Render(frame, rc.Resolution, rc.Tracker.Snapshot(), sel)

	if err := l.putFrame(pixmap, frame); err != nil {
		return err
	}

	xproto.ChangeWindowAttributes(l.conn, l.window, xproto.CwBackPixmap, []uint32{uint32(pixmap)})
	xproto.ClearArea(l.conn, false, l.window, 0, 0,
		uint16(rc.Resolution.Width), uint16(rc.Resolution.Height))
	l.conn.Sync()
	return nil
}

// putFrame uploads the staging frame into the pixmap. The frame is converted
// to the BGRA byte order ZPixmap expects and sent in row chunks that stay
// under the server's request size limit.
func (l *X11Locker) putFrame(pixmap xproto.Pixmap, frame *image.RGBA) error {
	bounds := frame.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil
	}
	stride := width * 4

	data := make([]byte, stride*height)
	for i := 0; i < len(frame.Pix); i += 4 {
		data[i+0] = frame.Pix[i+2]
		data[i+1] = frame.Pix[i+1]
		data[i+2] = frame.Pix[i+0]
		data[i+3] = frame.Pix[i+3]
	}

	rowsPerReq := (1 << 18) / stride
	if rowsPerReq < 1 {
		rowsPerReq = 1
	}

	for y := 0; y < height; y += rowsPerReq {
		rows := rowsPerReq
		if y+rows > height {
			rows = height - y
		}
		err := xproto.PutImageChecked(
			l.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(pixmap),
			l.gc,
			uint16(width), uint16(rows),
			0, int16(y),
			0,
			l.screen.RootDepth,
			data[y*stride:(y+rows)*stride],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to upload frame rows %d-%d: %v", y, y+rows, err)
		}
	}

	return nil
}

// ClearIndicator hides the indicator when the password buffer is empty and
// shows it otherwise, then commits a frame.
func (l *X11Locker) ClearIndicator() {
	if l.password.Length() == 0 {
		l.render.Tracker.SetLockState(StateStarted)
	} else {
		l.render.Tracker.SetLockState(StateKeyPressed)
	}
	l.redraw()
}

// InvalidateBackgroundBuffer releases the cached background pixmap so the
// next commit allocates one at the current resolution.
func (l *X11Locker) InvalidateBackgroundBuffer() {
	l.render.Cache.Invalidate()
}

// redraw commits a frame; a failure here means the graphics backend refused
// an allocation or upload, which has no recovery path.
func (l *X11Locker) redraw() {
	if err := l.Commit(); err != nil {
		Fatal("failed to commit frame: %v", err)
	}
}

// Lock implements the screen locking functionality
func (l *X11Locker) Lock() error {
	if err := l.helper.EnsureSingleInstance(); err != nil {
		return err
	}

	if err := l.helper.RunPreLockCommand(); err != nil {
		// Continue with locking even if the pre-lock command fails
		Warn("pre-lock command error: %v", err)
	}

	if err := l.Init(); err != nil {
		return err
	}

	l.render.Tracker.SetAuthState(AuthLocking)

	if err := xproto.MapWindowChecked(l.conn, l.window).Check(); err != nil {
		return fmt.Errorf("failed to map window: %v", err)
	}

	if err := xproto.ConfigureWindowChecked(
		l.conn,
		l.window,
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check(); err != nil {
		return fmt.Errorf("failed to raise window: %v", err)
	}

	if err := l.hideCursor(); err != nil {
		Warn("failed to hide cursor: %v", err)
	}

	if err := l.grabInput(); err != nil {
		// Show the failure on screen before giving up, as the window may
		// already be covering the desktop.
		l.render.Tracker.SetAuthState(AuthLockFailed)
		l.redraw()
		return err
	}

	l.helper.PauseMediaIfEnabled()

	l.render.Tracker.SetAuthState(AuthIdle)
	l.isLocked = true
	l.redraw()
	Info("screen lock activated")

	l.eventLoop()

	l.cleanup()
	return nil
}

// grabInput takes exclusive keyboard and pointer grabs
func (l *X11Locker) grabInput() error {
	keyboard := xproto.GrabKeyboard(
		l.conn,
		true,
		l.window,
		xproto.TimeCurrentTime,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
	)
	keyboardReply, err := keyboard.Reply()
	if err != nil {
		return fmt.Errorf("failed to grab keyboard: %v", err)
	}
	if keyboardReply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("failed to grab keyboard: status %d", keyboardReply.Status)
	}

	pointer := xproto.GrabPointer(
		l.conn,
		true,
		l.window,
		xproto.EventMaskButtonPress,
		xproto.GrabModeAsync,
		xproto.GrabModeAsync,
		l.window,
		xproto.CursorNone,
		xproto.TimeCurrentTime,
	)
	pointerReply, err := pointer.Reply()
	if err != nil {
		return fmt.Errorf("failed to grab pointer: %v", err)
	}
	if pointerReply.Status != xproto.GrabStatusSuccess {
		return fmt.Errorf("failed to grab pointer: status %d", pointerReply.Status)
	}

	return nil
}

// eventLoop processes X events until the screen is unlocked
func (l *X11Locker) eventLoop() {
	for l.isLocked {
		ev, err := l.conn.WaitForEvent()
		if err != nil {
			Error("error waiting for event: %v", err)
			continue
		}
		if ev == nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		switch e := ev.(type) {
		case xproto.KeyPressEvent:
			l.handleKeyPress(e)

		case xproto.ExposeEvent:
			Debug("expose event: x=%d, y=%d, width=%d, height=%d", e.X, e.Y, e.Width, e.Height)
			l.redraw()

		case randr.ScreenChangeNotifyEvent:
			l.handleScreenChange(e)

		case xproto.MappingNotifyEvent:
			Info("keyboard mapping changed")
		}
	}
}

// handleScreenChange adopts a new root resolution: the cached pixmap is
// invalidated first, then monitors are re-queried and a frame committed at
// the new size. Invalidate-before-commit is the contract the cache relies
// on.
func (l *X11Locker) handleScreenChange(e randr.ScreenChangeNotifyEvent) {
	width, height := uint32(e.Width), uint32(e.Height)
	if e.Rotation&(randr.RotationRotate90|randr.RotationRotate270) != 0 {
		width, height = height, width
	}
	Info("screen changed to %dx%d", width, height)

	l.InvalidateBackgroundBuffer()
	l.render.Resolution = Resolution{Width: width, Height: height}

	monitors, err := DetectMonitors(l.conn, l.screen.Root)
	if err != nil {
		Warn("failed to re-detect monitors: %v", err)
		monitors = nil
	}
	l.render.Monitors = monitors

	xproto.ConfigureWindow(l.conn, l.window,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{width, height})

	l.redraw()
}

// handleKeyPress processes keyboard input
func (l *X11Locker) handleKeyPress(e xproto.KeyPressEvent) {
	keySyms := xproto.GetKeyboardMapping(l.conn, e.Detail, 1)
	reply, err := keySyms.Reply()
	if err != nil {
		Error("error getting keyboard mapping: %v", err)
		return
	}
	if len(reply.Keysyms) == 0 {
		return
	}
	keySym := reply.Keysyms[0]

	// Debug exit: ESC or Q/q
	if l.config.DebugExit && (keySym == keysymEscape || keySym == 0x71 || keySym == 0x51) {
		Info("debug exit triggered")
		l.isLocked = false
		return
	}

	tracker := l.render.Tracker

	if l.lockout.Active() {
		// During lockout only Escape does anything: it clears the buffer.
		if keySym == keysymEscape {
			l.password.Clear()
			tracker.NoteInput(0)
			tracker.SetAuthState(AuthIdle)
			l.ClearIndicator()
		}
		return
	}

	switch keySym {
	case keysymReturn, keysymKPEnter:
		l.authenticate()

	case keysymBackspace, keysymDelete:
		if l.password.Length() > 0 {
			l.password.RemoveLast()
			tracker.SetLockState(StateBackspaceDelete)
		} else {
			tracker.SetLockState(StateNothingToDelete)
		}
		tracker.NoteInput(l.password.Length())
		l.redraw()

	case keysymEscape:
		l.password.Clear()
		tracker.NoteInput(0)
		tracker.SetAuthState(AuthIdle)
		l.ClearIndicator()

	default:
		// Only printable ASCII enters the buffer
		if keySym >= 0x20 && keySym <= 0x7e {
			l.password.Append(byte(keySym))
			tracker.SetLockState(StateKeyPressed)
			tracker.NoteInput(l.password.Length())
			l.redraw()
		}
	}
}

// authenticate hands the buffered password to PAM and drives the auth state
// through verify and the success or failure transition.
func (l *X11Locker) authenticate() {
	if l.lockout.Active() {
		Info("authentication locked out for another %v", l.lockout.Remaining())
		l.password.Clear()
		l.render.Tracker.NoteInput(0)
		l.ClearIndicator()
		return
	}

	tracker := l.render.Tracker
	Info("attempting authentication with password of length %d", l.password.Length())

	tracker.SetAuthState(AuthVerifying)
	l.redraw()

	result := l.helper.authenticator.Authenticate(l.password.String())

	if result.Success {
		Info("authentication successful, unlocking screen")
		l.lockout.Reset()
		l.isLocked = false
		return
	}

	Info("authentication rejected: %s", result.Message)
	tracker.SetAuthState(AuthWrong)
	tracker.SetLockState(StateStarted)
	l.password.Clear()
	tracker.NoteInput(0)
	l.lockout.NoteFailure()
	l.redraw()
}

// hideCursor hides the mouse cursor while the screen is locked
func (l *X11Locker) hideCursor() error {
	cursor, err := xproto.NewCursorId(l.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate cursor ID: %v", err)
	}

	pixmap, err := xproto.NewPixmapId(l.conn)
	if err != nil {
		return fmt.Errorf("failed to allocate pixmap ID: %v", err)
	}

	// 1x1 bitmap to build an invisible cursor from
	err = xproto.CreatePixmapChecked(
		l.conn,
		1,
		pixmap,
		xproto.Drawable(l.screen.Root),
		1, 1,
	).Check()
	if err != nil {
		return fmt.Errorf("failed to create pixmap: %v", err)
	}

	err = xproto.CreateCursorChecked(
		l.conn,
		cursor,
		pixmap,
		pixmap,
		0, 0, 0,
		0, 0, 0,
		0, 0,
	).Check()
	if err != nil {
		xproto.FreePixmap(l.conn, pixmap)
		return fmt.Errorf("failed to create cursor: %v", err)
	}

	xproto.FreePixmap(l.conn, pixmap)

	err = xproto.ChangeWindowAttributesChecked(
		l.conn,
		l.window,
		xproto.CwCursor,
		[]uint32{uint32(cursor)},
	).Check()
	if err != nil {
		return fmt.Errorf("failed to set invisible cursor: %v", err)
	}

	xfixes.HideCursor(l.conn, l.screen.Root)
	return nil
}

// cleanup releases resources when unlocking
func (l *X11Locker) cleanup() {
	l.InvalidateBackgroundBuffer()

	xproto.UngrabKeyboard(l.conn, xproto.TimeCurrentTime)
	xproto.UngrabPointer(l.conn, xproto.TimeCurrentTime)
	xproto.DestroyWindow(l.conn, l.window)
	l.conn.Close()

	l.helper.ResumeMediaIfEnabled()
	if err := l.helper.RunPostLockCommand(); err != nil {
		Warn("post-lock command error: %v", err)
	}
	l.helper.Close()
}

// StartIdleMonitor implements idle monitoring functionality
func (l *X11Locker) StartIdleMonitor() error {
	conn, err := xgb.NewConn()
	if err != nil {
		return fmt.Errorf("failed to connect to X server: %v", err)
	}

	if err := screensaver.Init(conn); err != nil {
		conn.Close()
		return fmt.Errorf("failed to initialize screensaver extension: %v", err)
	}

	l.idleWatcher = &IdleWatcher{
		conn:         conn,
		timeout:      time.Duration(l.config.IdleTimeout) * time.Second,
		stopChan:     make(chan struct{}),
		parentLocker: l,
	}

	go l.idleWatcher.Watch()

	Info("idle monitor started (timeout: %d seconds)", l.config.IdleTimeout)
	return nil
}

// StopIdleMonitor stops the idle monitoring
func (l *X11Locker) StopIdleMonitor() {
	if l.idleWatcher != nil {
		close(l.idleWatcher.stopChan)
		l.idleWatcher.conn.Close()
		l.idleWatcher = nil
	}
}

// Watch monitors for user inactivity
func (w *IdleWatcher) Watch() {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			root := xproto.Setup(w.conn).DefaultScreen(w.conn).Root
			info, err := screensaver.QueryInfo(w.conn, xproto.Drawable(root)).Reply()
			if err != nil {
				Error("error querying idle time: %v", err)
				continue
			}

			idle := time.Duration(info.MsSinceUserInput) * time.Millisecond
			if idle < w.timeout {
				continue
			}

			Info("idle timeout reached (%v), locking screen", idle)

			// Lock from a fresh process to avoid X server conflicts with
			// this connection.
			go func() {
				cmd := exec.Command(os.Args[0], "--lock")
				if err := cmd.Start(); err != nil {
					Error("failed to start lock command: %v", err)
				}
			}()
			return
		}
	}
}
