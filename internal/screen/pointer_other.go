//go:build !linux

package screen

import (
	"context"
	"runtime"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

type unsupportedPointer struct{}

// NewPointer returns the platform pointer.
func NewPointer() Pointer { return unsupportedPointer{} }

func (unsupportedPointer) Locate(context.Context) (geometry.Point, geometry.Display, error) {
	return geometry.Point{}, geometry.Display{}, errors.Newf(errors.CaptureFailed, "cursor lookup is not supported on %s", runtime.GOOS)
}
