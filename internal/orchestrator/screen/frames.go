package screen

import (
	"bytes"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"log/slog"
	"sync"

	"github.com/corona10/goimagehash"

	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
)

// frameCache remembers the last extraction so a repeated lookup on an
// unchanged screen can skip OCR. A nil cache never hits.
type frameCache struct {
	maxDistance int

	mu    sync.Mutex
	hash  *goimagehash.ImageHash
	local geometry.Point
	boxes []ocr.TextBox
}

func newFrameCache(maxDistance int) *frameCache {
	if maxDistance < 0 {
		maxDistance = DefaultMaxHashDistance
	}
	return &frameCache{maxDistance: maxDistance}
}

func (c *frameCache) lookup(img []byte, local geometry.Point) ([]ocr.TextBox, bool) {
	if c == nil {
		return nil, false
	}
	hash := perceptionHash(img)
	if hash == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hash == nil || c.local != local {
		return nil, false
	}
	dist, err := c.hash.Distance(hash)
	if err != nil || dist > c.maxDistance {
		return nil, false
	}
	slog.Debug("reusing extraction for similar frame", "distance", dist)
	return c.boxes, true
}

func (c *frameCache) store(img []byte, local geometry.Point, boxes []ocr.TextBox) {
	if c == nil {
		return
	}
	hash := perceptionHash(img)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hash, c.local, c.boxes = hash, local, boxes
}

func perceptionHash(data []byte) *goimagehash.ImageHash {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil
	}
	return hash
}
