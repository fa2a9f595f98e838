package screen

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

var dimensionsRe = regexp.MustCompile(`dimensions:\s+(\d+)x(\d+) pixels`)

// parseMouseLocation reads `xdotool getmouselocation --shell` output.
func parseMouseLocation(out []byte) (geometry.Point, error) {
	var p geometry.Point
	var seen int
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(val)
		switch key {
		case "X":
			p.X, seen = n, seen|1
		case "Y":
			p.Y, seen = n, seen|2
		default:
			continue
		}
		if err != nil {
			return geometry.Point{}, errors.Wrapf(err, errors.CaptureFailed, "parse cursor %s", key)
		}
	}
	if seen != 3 {
		return geometry.Point{}, errors.New(errors.CaptureFailed, "cursor position missing from xdotool output")
	}
	return p, nil
}

// parseDimensions reads the screen size from `xdpyinfo` output.
func parseDimensions(out []byte) (width, height int, err error) {
	m := dimensionsRe.FindSubmatch(out)
	if m == nil {
		return 0, 0, errors.New(errors.CaptureFailed, "screen dimensions missing from xdpyinfo output")
	}
	width, _ = strconv.Atoi(string(m[1]))
	height, _ = strconv.Atoi(string(m[2]))
	return width, height, nil
}

// StaticPointer always reports the same position. It backs requests that
// carry their own coordinates and tests.
type StaticPointer struct {
	Point   geometry.Point
	Display geometry.Display
}

func (s StaticPointer) Locate(context.Context) (geometry.Point, geometry.Display, error) {
	return s.Point, s.Display, nil
}
