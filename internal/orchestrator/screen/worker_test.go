package screen

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/locate"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
)

type mockCapturer struct {
	img    []byte
	err    error
	mu     sync.Mutex
	region geometry.Region
	scale  float64
}

func (m *mockCapturer) Capture(_ context.Context, r geometry.Region, scale float64) ([]byte, error) {
	m.mu.Lock()
	m.region, m.scale = r, scale
	m.mu.Unlock()
	return m.img, m.err
}

func (m *mockCapturer) Close() {}

type mockExtractor struct {
	boxes []ocr.TextBox
	err   error
	panic bool
	calls atomic.Int32
	at    geometry.Point
}

func (m *mockExtractor) Name() string { return "mock" }

func (m *mockExtractor) Extract(_ context.Context, _ []byte, at geometry.Point) ([]ocr.TextBox, error) {
	m.calls.Add(1)
	m.at = at
	if m.panic {
		panic("native crash")
	}
	return m.boxes, m.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x * y) % 256)})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

// centred display point so the local point is the capture centre (100, 50)
var (
	testDisplay = geometry.Display{Width: 1920, Height: 1080, ScaleFactor: 1}
	testPoint   = geometry.Point{X: 800, Y: 500}
)

func wordBoxes() []ocr.TextBox {
	return []ocr.TextBox{{Left: 60, Top: 40, Width: 90, Height: 20, Text: "Community", Confidence: 0.9}}
}

func TestWorkerProcess(t *testing.T) {
	capt := &mockCapturer{img: testPNG(t)}
	ext := &mockExtractor{boxes: wordBoxes()}
	w := NewWorker(capt, ext, locate.New(0))
	defer w.Shutdown(context.Background())

	var stages []Stage
	word, err := w.Process(context.Background(), Request{
		Point:   testPoint,
		Display: testDisplay,
		OnStage: func(s Stage) { stages = append(stages, s) },
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if word != "community" {
		t.Errorf("Process() = %q, want %q", word, "community")
	}

	want := []Stage{StageCapturing, StageExtracting, StageLocating}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %v, want %v", i, stages[i], want[i])
		}
	}

	if capt.region.Left != 700 || capt.region.Top != 450 || capt.scale != 1 {
		t.Errorf("captured region = %+v scale %v, want left 700 top 450 scale 1", capt.region, capt.scale)
	}
	if ext.at != (geometry.Point{X: 100, Y: 50}) {
		t.Errorf("extract point = %+v, want {100 50}", ext.at)
	}
}

func TestWorkerCaptureSize(t *testing.T) {
	capt := &mockCapturer{img: testPNG(t)}
	w := NewWorker(capt, &mockExtractor{boxes: wordBoxes()}, locate.New(0),
		WithCaptureSize(geometry.Size{Width: 400, Height: 200}))
	defer w.Shutdown(context.Background())

	_, _ = w.Process(context.Background(), Request{Point: testPoint, Display: testDisplay})
	if capt.region.Width != 400 || capt.region.Height != 200 {
		t.Errorf("region size = %dx%d, want 400x200", capt.region.Width, capt.region.Height)
	}
}

func TestWorkerErrors(t *testing.T) {
	tests := []struct {
		name string
		capt *mockCapturer
		ext  *mockExtractor
		want errors.Code
	}{
		{"capture failed", &mockCapturer{err: errors.New(errors.CaptureFailed, "no tool")}, &mockExtractor{}, errors.CaptureFailed},
		{"ocr failed", &mockCapturer{}, &mockExtractor{err: errors.New(errors.OCRRunFailed, "bad tsv")}, errors.OCRRunFailed},
		{"no word", &mockCapturer{}, &mockExtractor{}, errors.WordNotFoundAtPoint},
		{"backend panic", &mockCapturer{}, &mockExtractor{panic: true}, errors.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorker(tt.capt, tt.ext, locate.New(0))
			defer w.Shutdown(context.Background())

			_, err := w.Process(context.Background(), Request{Point: testPoint, Display: testDisplay})
			if !errors.IsCode(err, tt.want) {
				t.Errorf("Process() error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestWorkerSurvivesPanic(t *testing.T) {
	ext := &mockExtractor{panic: true}
	w := NewWorker(&mockCapturer{}, ext, locate.New(0))
	defer w.Shutdown(context.Background())

	_, _ = w.Process(context.Background(), Request{Point: testPoint, Display: testDisplay})
	ext.panic = false
	ext.boxes = wordBoxes()
	if word, err := w.Process(context.Background(), Request{Point: testPoint, Display: testDisplay}); err != nil || word != "community" {
		t.Errorf("Process() after panic = (%q, %v), want community", word, err)
	}
}

func TestWorkerDedupe(t *testing.T) {
	img := testPNG(t)
	req := Request{Point: testPoint, Display: testDisplay}

	ext := &mockExtractor{boxes: wordBoxes()}
	w := NewWorker(&mockCapturer{img: img}, ext, locate.New(0), WithDedupe(DefaultMaxHashDistance))
	for i := 0; i < 3; i++ {
		if _, err := w.Process(context.Background(), req); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}
	w.Shutdown(context.Background())
	if got := ext.calls.Load(); got != 1 {
		t.Errorf("extract calls with dedupe = %d, want 1", got)
	}

	ext = &mockExtractor{boxes: wordBoxes()}
	w = NewWorker(&mockCapturer{img: img}, ext, locate.New(0))
	for i := 0; i < 3; i++ {
		_, _ = w.Process(context.Background(), req)
	}
	w.Shutdown(context.Background())
	if got := ext.calls.Load(); got != 3 {
		t.Errorf("extract calls without dedupe = %d, want 3", got)
	}
}

func TestWorkerShutdown(t *testing.T) {
	w := NewWorker(&mockCapturer{}, &mockExtractor{}, locate.New(0))
	w.Shutdown(context.Background())
	w.Shutdown(context.Background())

	if _, err := w.Process(context.Background(), Request{}); !errors.IsCode(err, errors.Unavailable) {
		t.Errorf("Process() after Shutdown error = %v, want UNAVAILABLE", err)
	}
}

func TestWorkerCancelledContext(t *testing.T) {
	w := NewWorker(&mockCapturer{}, &mockExtractor{}, locate.New(0))
	defer w.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Process(ctx, Request{Point: testPoint, Display: testDisplay}); !errors.IsCode(err, errors.Cancelled) {
		t.Errorf("Process() error = %v, want CANCELLED", err)
	}
}

func TestWorkerConcurrent(t *testing.T) {
	w := NewWorker(&mockCapturer{img: testPNG(t)}, &mockExtractor{boxes: wordBoxes()}, locate.New(0),
		WithWorkers(2), WithQueueSize(1))
	defer w.Shutdown(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if word, err := w.Process(ctx, Request{Point: testPoint, Display: testDisplay}); err == nil && word == "community" {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()
	if ok.Load() != 10 {
		t.Errorf("successful lookups = %d, want 10", ok.Load())
	}
}

func TestStageString(t *testing.T) {
	if StageCapturing.String() != "capturing" || StageExtracting.String() != "extracting" || StageLocating.String() != "locating" {
		t.Error("unexpected stage names")
	}
}
