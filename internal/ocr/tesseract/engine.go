// Package tesseract is the libtesseract layout backend, reached through
// gosseract. One client is created at startup and shared by all lookups.
package tesseract

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
	"github.com/GriffinCanCode/wordlens/internal/syncx"
)

// Config selects tesseract data files.
type Config struct {
	Language       string // default "eng"
	TessdataPrefix string // directory holding <lang>.traineddata; empty uses the system default
}

// Engine implements ocr.Extractor over a single gosseract client.
type Engine struct {
	client *syncx.Mutex[*gosseract.Client]
	lang   string
}

// New creates the client. It fails with OCR_INIT_FAILED when the
// traineddata for the configured language cannot be found.
func New(cfg Config) (*Engine, error) {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.TessdataPrefix != "" {
		for _, lang := range strings.Split(cfg.Language, "+") {
			path := filepath.Join(cfg.TessdataPrefix, lang+".traineddata")
			if _, err := os.Stat(path); err != nil {
				return nil, errors.Wrap(err, errors.OCRInitFailed, "traineddata missing").WithMetadata("path", path)
			}
		}
	}

	c := gosseract.NewClient()
	if cfg.TessdataPrefix != "" {
		c.TessdataPrefix = cfg.TessdataPrefix
	}
	if err := c.SetLanguage(strings.Split(cfg.Language, "+")...); err != nil {
		_ = c.Close()
		return nil, errors.Wrap(err, errors.OCRInitFailed, "set language")
	}
	return &Engine{client: syncx.NewMutex(c), lang: cfg.Language}, nil
}

func (e *Engine) Name() string { return "tesseract" }

// Extract returns word-level boxes for the whole image.
func (e *Engine) Extract(ctx context.Context, img []byte, _ geometry.Point) ([]ocr.TextBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Cancelled, "extract")
	}
	return syncx.Locked(e.client, func(c *gosseract.Client) ([]ocr.TextBox, error) {
		if err := c.SetImageFromBytes(img); err != nil {
			return nil, errors.Wrap(err, errors.OCRRunFailed, "set image")
		}
		words, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return nil, classify(err)
		}
		return toBoxes(words), nil
	})
}

// Close releases the native client.
func (e *Engine) Close() error {
	return e.client.With(func(c *gosseract.Client) error { return c.Close() })
}

func toBoxes(words []gosseract.BoundingBox) []ocr.TextBox {
	boxes := make([]ocr.TextBox, 0, len(words))
	for _, w := range words {
		boxes = append(boxes, ocr.TextBox{
			Left:       w.Box.Min.X,
			Top:        w.Box.Min.Y,
			Width:      w.Box.Dx(),
			Height:     w.Box.Dy(),
			Text:       w.Word,
			Confidence: w.Confidence / 100,
		})
	}
	return boxes
}

// classify maps gosseract's lazy initialisation failures to OCR_INIT_FAILED.
func classify(err error) error {
	if strings.Contains(err.Error(), "initialize") {
		return errors.Wrap(err, errors.OCRInitFailed, "tesseract init")
	}
	return errors.Wrap(err, errors.OCRRunFailed, "tesseract recognize")
}
