// Package locate resolves a point inside a captured image to the single
// word under it.
package locate

import (
	"regexp"
	"strings"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
)

// nonWord matches one character outside the word class (letters, digits,
// combining marks and underscore).
var nonWord = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_]`)

// Locator picks the box under a point and narrows it to one word.
type Locator struct {
	// MinConfidence is exclusive: boxes at or below it are ignored.
	MinConfidence float64
}

// New returns a Locator with the given confidence floor.
func New(minConfidence float64) *Locator {
	return &Locator{MinConfidence: minConfidence}
}

// Locate returns the lowercased word under p. Boxes are scanned in order
// and the first one strictly containing p wins.
func (l *Locator) Locate(boxes []ocr.TextBox, p geometry.Point) (string, error) {
	for _, b := range boxes {
		if !b.Contains(p) || b.Confidence <= l.MinConfidence {
			continue
		}
		word := strings.TrimSpace(strings.ToLower(SplitToken(b.Text, p.X-b.Left, b.Width)))
		if word == "" {
			break
		}
		return word, nil
	}
	return "", errors.Newf(errors.WordNotFoundAtPoint, "no word at %d,%d", p.X, p.Y)
}

// SplitToken narrows a recognized token such as "arts[8].parse()?;" to the
// segment under horizontal offset x of a box width pixels wide. The
// position is estimated proportionally over the byte length, so it is
// only approximate for proportional fonts.
func SplitToken(text string, x, width int) string {
	if width <= 0 || !nonWord.MatchString(text) {
		return text
	}

	estimate := len(text) * x / width
	acc := 0
	for _, seg := range nonWord.Split(text, -1) {
		acc += len(seg)
		if acc > estimate {
			return seg
		}
		acc++
	}
	return text
}
