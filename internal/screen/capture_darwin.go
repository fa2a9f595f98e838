//go:build darwin

package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/GriffinCanCode/wordlens/internal/errors"
)

type darwinBackend struct{ tempDir string }

// grab captures only the requested rectangle; screencapture takes it in
// points, not pixels.
func (d *darwinBackend) grab(ctx context.Context, rect image.Rectangle, scale float64) (image.Image, image.Point, error) {
	tmpFile := filepath.Join(d.tempDir, "screenshot.png")
	pt := func(v int) int { return int(math.Round(float64(v) / scale)) }
	region := fmt.Sprintf("%d,%d,%d,%d", pt(rect.Min.X), pt(rect.Min.Y), pt(rect.Dx()), pt(rect.Dy()))

	// -x: no sound, -t png: lossless, -R: region in points
	cmd := exec.CommandContext(ctx, "screencapture", "-x", "-t", "png", "-R", region, tmpFile)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, image.Point{}, errors.Wrap(err, errors.CaptureFailed, "screencapture failed").
			WithMetadata("stderr", stderr.String())
	}
	defer os.Remove(tmpFile)

	img, err := decodeScreenshot(tmpFile)
	return img, rect.Min, err
}

func (d *darwinBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New() Capturer {
	tmpDir := newTempDir()
	return newBase(&darwinBackend{tempDir: tmpDir}, tmpDir)
}
