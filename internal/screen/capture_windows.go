//go:build windows

package screen

import (
	"context"
	"image"

	"github.com/GriffinCanCode/wordlens/internal/errors"
)

type windowsBackend struct{}

func (w *windowsBackend) grab(context.Context, image.Rectangle, float64) (image.Image, image.Point, error) {
	// No GDI/DXGI backend; cursor lookups on windows fail with CaptureFailed.
	return nil, image.Point{}, errors.New(errors.CaptureFailed, "screen capture is not supported on windows")
}

func (w *windowsBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New() Capturer {
	return newBase(&windowsBackend{}, "")
}
