package locate

import (
	"testing"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
)

func TestSplitToken(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		x, width int
		want     string
	}{
		{"code expression", "arts[8].parse()?;", 100, 148, "parse"},
		{"first segment", "arts[8].parse()?;", 5, 148, "arts"},
		{"no delimiter", "Community", 40, 90, "Community"},
		{"hyphenated right", "well-known", 90, 100, "known"},
		{"hyphenated left", "well-known", 10, 100, "well"},
		{"underscore is word", "snake_case", 80, 100, "snake_case"},
		{"past the end", "a.b", 500, 100, "a.b"},
		{"zero width", "a.b", 1, 0, "a.b"},
		{"accented letters", "café.crème", 9, 10, "crème"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitToken(tt.text, tt.x, tt.width); got != tt.want {
				t.Errorf("SplitToken(%q, %d, %d) = %q, want %q", tt.text, tt.x, tt.width, got, tt.want)
			}
		})
	}
}

func TestLocate(t *testing.T) {
	boxes := []ocr.TextBox{
		{Left: 0, Top: 0, Width: 60, Height: 20, Text: "Hello", Confidence: 0.9},
		{Left: 70, Top: 0, Width: 90, Height: 20, Text: "Community", Confidence: 0.95},
		{Left: 10, Top: 40, Width: 148, Height: 20, Text: "arts[8].parse()?;", Confidence: 0.8},
		{Left: 10, Top: 40, Width: 148, Height: 20, Text: "shadowed", Confidence: 0.99},
		{Left: 0, Top: 70, Width: 100, Height: 20, Text: "noise", Confidence: 0},
	}
	l := New(0)

	tests := []struct {
		name    string
		p       geometry.Point
		want    string
		wantErr bool
	}{
		{"lowercases", geometry.Point{X: 100, Y: 10}, "community", false},
		{"splits token, first match wins", geometry.Point{X: 110, Y: 50}, "parse", false},
		{"box edge is outside", geometry.Point{X: 70, Y: 10}, "", true},
		{"gap between boxes", geometry.Point{X: 65, Y: 10}, "", true},
		{"zero confidence ignored", geometry.Point{X: 50, Y: 80}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := l.Locate(boxes, tt.p)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Locate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.IsCode(err, errors.WordNotFoundAtPoint) {
				t.Errorf("Locate() error code = %v, want WORD_NOT_FOUND_AT_POINT", errors.CodeOf(err))
			}
			if got != tt.want {
				t.Errorf("Locate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocateConfidenceFloor(t *testing.T) {
	boxes := []ocr.TextBox{
		{Left: 0, Top: 0, Width: 100, Height: 20, Text: "blurry", Confidence: 0.4},
		{Left: 0, Top: 0, Width: 100, Height: 20, Text: "sharp", Confidence: 0.6},
	}

	got, err := New(0.5).Locate(boxes, geometry.Point{X: 50, Y: 10})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if got != "sharp" {
		t.Errorf("Locate() = %q, want %q", got, "sharp")
	}

	if _, err := New(0.6).Locate(boxes, geometry.Point{X: 50, Y: 10}); err == nil {
		t.Error("Locate() should reject confidence equal to the floor")
	}
}

func TestLocateBlankText(t *testing.T) {
	boxes := []ocr.TextBox{{Left: 0, Top: 0, Width: 100, Height: 20, Text: "   ", Confidence: 0.9}}
	if _, err := New(0).Locate(boxes, geometry.Point{X: 50, Y: 10}); !errors.IsCode(err, errors.WordNotFoundAtPoint) {
		t.Errorf("Locate() error = %v, want WORD_NOT_FOUND_AT_POINT", err)
	}
}
