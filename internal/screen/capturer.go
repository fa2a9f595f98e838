// Package screen grabs the pixels around the cursor and reports where the
// cursor is. Platform backends shell out to the OS screenshot tools.
package screen

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"log/slog"
	"math"
	"os"

	"github.com/disintegration/imaging"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

// Capturer returns PNG bytes of a screen region.
type Capturer interface {
	// Capture returns an image of exactly round(Width*scale) by
	// round(Height*scale) pixels.
	Capture(ctx context.Context, r geometry.Region, scale float64) ([]byte, error)
	Close()
}

// Pointer reports the cursor position and the display containing it.
type Pointer interface {
	Locate(ctx context.Context) (geometry.Point, geometry.Display, error)
}

// backend implements platform-specific raw capture. grab returns an image
// covering at least rect (physical pixels of the virtual desktop) and the
// desktop position of the image's top-left pixel.
type backend interface {
	grab(ctx context.Context, rect image.Rectangle, scale float64) (image.Image, image.Point, error)
	cleanup()
}

// baseCapturer crops and encodes whatever the backend grabbed.
type baseCapturer struct {
	backend
	tempDir string
}

func newBase(b backend, tempDir string) *baseCapturer {
	return &baseCapturer{backend: b, tempDir: tempDir}
}

func (c *baseCapturer) Capture(ctx context.Context, r geometry.Region, scale float64) ([]byte, error) {
	if r.Width <= 0 || r.Height <= 0 {
		return nil, errors.Newf(errors.CaptureFailed, "empty capture region %dx%d", r.Width, r.Height)
	}
	if scale < 1 || math.IsNaN(scale) {
		scale = 1
	}
	rect := physicalRect(r, scale)

	src, origin, err := c.grab(ctx, rect, scale)
	if err != nil {
		return nil, err
	}
	out := cropExact(src, rect.Sub(origin))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, errors.CaptureFailed, "encode capture")
	}
	return buf.Bytes(), nil
}

func (c *baseCapturer) Close() {
	c.cleanup()
	// newTempDir falls back to the shared temp dir, which is not ours.
	if c.tempDir != "" && c.tempDir != os.TempDir() {
		os.RemoveAll(c.tempDir)
	}
}

// physicalRect converts a region in display units to physical pixels.
func physicalRect(r geometry.Region, scale float64) image.Rectangle {
	x := int(math.Round(float64(r.Left) * scale))
	y := int(math.Round(float64(r.Top) * scale))
	w := int(math.Round(float64(r.Width) * scale))
	h := int(math.Round(float64(r.Height) * scale))
	return image.Rect(x, y, x+w, y+h)
}

// cropExact cuts rect out of src. Parts of rect outside src are filled
// with white, so the result always has rect's size.
func cropExact(src image.Image, rect image.Rectangle) image.Image {
	b := src.Bounds()
	if rect.In(b) {
		return imaging.Crop(src, rect)
	}
	canvas := imaging.New(rect.Dx(), rect.Dy(), color.White)
	visible := rect.Intersect(b)
	if visible.Empty() {
		slog.Warn("capture region outside screenshot", "region", rect, "bounds", b)
		return canvas
	}
	return imaging.Paste(canvas, imaging.Crop(src, visible), visible.Min.Sub(rect.Min))
}

// decodeScreenshot reads a screenshot file written by an OS tool.
func decodeScreenshot(path string) (image.Image, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CaptureFailed, "read screenshot").WithMetadata("path", path)
	}
	return img, nil
}

func newTempDir() string {
	dir, err := os.MkdirTemp("", "wordlens-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		return os.TempDir()
	}
	return dir
}
