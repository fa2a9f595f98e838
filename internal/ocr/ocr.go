// Package ocr defines the text layout extraction capability and the
// tesseract-based layout backends that do not need cgo.
package ocr

import (
	"context"

	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

// TextBox is a recognized string and its bounding box in image pixels.
type TextBox struct {
	Left, Top     int
	Width, Height int
	Text          string
	Confidence    float64 // 0..1
}

// Contains reports whether p lies strictly inside the box.
func (b TextBox) Contains(p geometry.Point) bool {
	return b.Left < p.X && p.X < b.Left+b.Width && b.Top < p.Y && p.Y < b.Top+b.Height
}

// Extractor turns an encoded image into text boxes. Layout engines return
// every word they find and ignore at; detect-then-recognize engines use at
// to choose a single region and return one box.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, img []byte, at geometry.Point) ([]TextBox, error)
}
