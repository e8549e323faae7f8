package internal

import (
	"image"

	"github.com/BurntSushi/xgb/xproto"
)

// PixmapCache owns the single off-screen background pixmap and its host-side
// staging frame. The pixmap is created lazily on first use, reused across
// redraws and released only by an explicit Invalidate.
//
// The cache never inspects the resolution of a pixmap it already holds:
// resolution changes are reported out-of-band, and the collaborator handling
// them must call Invalidate before the next Ensure, or a stale-size pixmap
// is reused.
type PixmapCache struct {
	alloc  func(Resolution) (xproto.Pixmap, error)
	free   func(xproto.Pixmap)
	pixmap xproto.Pixmap
	frame  *image.RGBA
	held   bool
}

// NewPixmapCache builds a cache around the given allocation hooks. The hooks
// are injected so the lifecycle is testable without an X server.
func NewPixmapCache(alloc func(Resolution) (xproto.Pixmap, error), free func(xproto.Pixmap)) *PixmapCache {
	return &PixmapCache{alloc: alloc, free: free}
}

// Ensure returns the held pixmap and staging frame, allocating both at the
// given resolution if absent. Allocation failure is unrecoverable for the
// caller; nothing is retained on error.
func (c *PixmapCache) Ensure(res Resolution) (xproto.Pixmap, *image.RGBA, error) {
	if c.held {
		return c.pixmap, c.frame, nil
	}

	Debug("allocating pixmap for %d x %d px", res.Width, res.Height)
	p, err := c.alloc(res)
	if err != nil {
		return 0, nil, err
	}

	c.pixmap = p
	c.frame = image.NewRGBA(image.Rect(0, 0, int(res.Width), int(res.Height)))
	c.held = true
	return c.pixmap, c.frame, nil
}

// Held reports whether a pixmap is currently cached
func (c *PixmapCache) Held() bool {
	return c.held
}

// Invalidate releases the held pixmap so the next Ensure allocates a fresh
// one at the then-current resolution. Invalidating an absent cache is a
// no-op.
func (c *PixmapCache) Invalidate() {
	if !c.held {
		return
	}
	c.free(c.pixmap)
	c.pixmap = 0
	c.frame = nil
	c.held = false
}
