//go:build linux

package screen

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

// XPointer asks X11 tools where the cursor is. GDK_SCALE, when set, is
// used as the display scale factor.
type XPointer struct{}

// NewPointer returns the platform pointer.
func NewPointer() Pointer { return XPointer{} }

func (XPointer) Locate(ctx context.Context) (geometry.Point, geometry.Display, error) {
	loc, err := run(ctx, "xdotool", "getmouselocation", "--shell")
	if err != nil {
		return geometry.Point{}, geometry.Display{}, err
	}
	p, err := parseMouseLocation(loc)
	if err != nil {
		return geometry.Point{}, geometry.Display{}, err
	}

	info, err := run(ctx, "xdpyinfo")
	if err != nil {
		return geometry.Point{}, geometry.Display{}, err
	}
	w, h, err := parseDimensions(info)
	if err != nil {
		return geometry.Point{}, geometry.Display{}, err
	}

	scale := 1.0
	if s, err := strconv.ParseFloat(os.Getenv("GDK_SCALE"), 64); err == nil && s >= 1 {
		scale = s
	}
	return p, geometry.Display{Width: w, Height: h, ScaleFactor: scale}, nil
}

func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, errors.Wrapf(err, errors.CaptureFailed, "%s failed", name).WithMetadata("stderr", stderr.String())
	}
	return stdout.Bytes(), nil
}
