//go:build linux

package screen

import (
	"bytes"
	"context"
	"image"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/GriffinCanCode/wordlens/internal/errors"
)

type linuxBackend struct{ tempDir string }

func (l *linuxBackend) grab(ctx context.Context, _ image.Rectangle, _ float64) (image.Image, image.Point, error) {
	tmpFile := filepath.Join(l.tempDir, "screenshot.png")
	// Try gnome-screenshot first, fall back to scrot
	var cmd *exec.Cmd
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		cmd = exec.CommandContext(ctx, "gnome-screenshot", "-f", tmpFile)
	} else if _, err := exec.LookPath("scrot"); err == nil {
		cmd = exec.CommandContext(ctx, "scrot", "-o", tmpFile)
	} else {
		return nil, image.Point{}, errors.New(errors.CaptureFailed, "no screenshot tool found (install gnome-screenshot or scrot)")
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, image.Point{}, errors.Wrap(err, errors.CaptureFailed, "screenshot failed").
			WithMetadata("stderr", stderr.String())
	}
	defer os.Remove(tmpFile)

	img, err := decodeScreenshot(tmpFile)
	return img, image.Point{}, err
}

func (l *linuxBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New() Capturer {
	tmpDir := newTempDir()
	return newBase(&linuxBackend{tempDir: tmpDir}, tmpDir)
}
