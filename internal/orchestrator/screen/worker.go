package screen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
	screencap "github.com/GriffinCanCode/wordlens/internal/screen"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// Stage names the step a job is in.
type Stage int

const (
	StageCapturing Stage = iota
	StageExtracting
	StageLocating
)

func (s Stage) String() string {
	switch s {
	case StageCapturing:
		return "capturing"
	case StageExtracting:
		return "extracting"
	default:
		return "locating"
	}
}

// WordLocator narrows text boxes to the word under a point.
type WordLocator interface {
	Locate(boxes []ocr.TextBox, p geometry.Point) (string, error)
}

// Request is one point to resolve to a word.
type Request struct {
	Point   geometry.Point
	Display geometry.Display
	// OnStage, if set, is called from the worker goroutine as each stage starts.
	OnStage func(Stage)
}

type job struct {
	ctx  context.Context
	req  Request
	done chan result
}

type result struct {
	word string
	err  error
}

// Worker owns the capture and OCR handles and runs jobs off the caller's
// goroutine.
type Worker struct {
	capturer  screencap.Capturer
	extractor ocr.Extractor
	locator   WordLocator
	size      geometry.Size
	workers   int
	frames    *frameCache

	ch   chan job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*Worker)

func WithWorkers(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.ch = make(chan job, n)
		}
	}
}

// WithCaptureSize sets the physical capture size.
func WithCaptureSize(sz geometry.Size) Option {
	return func(w *Worker) {
		if sz.Width > 0 && sz.Height > 0 {
			w.size = sz
		}
	}
}

// WithDedupe reuses the previous extraction when a capture is perceptually
// identical to it (hash distance at most maxDistance) and the cursor sits
// at the same image position.
func WithDedupe(maxDistance int) Option {
	return func(w *Worker) {
		w.frames = newFrameCache(maxDistance)
	}
}

// NewWorker starts the worker goroutines.
func NewWorker(capturer screencap.Capturer, extractor ocr.Extractor, locator WordLocator, opts ...Option) *Worker {
	w := &Worker{
		capturer:  capturer,
		extractor: extractor,
		locator:   locator,
		size:      geometry.DefaultSize,
		workers:   DefaultWorkers,
		ch:        make(chan job, DefaultQueueSize),
	}
	for _, o := range opts {
		o(w)
	}
	w.start()
	return w
}

func (w *Worker) start() {
	w.once.Do(func() {
		for i := 0; i < w.workers; i++ {
			w.wg.Add(1)
			go func(workerID int) {
				defer w.wg.Done()
				log := trace.Logger(context.Background()).With("worker_id", workerID)
				log.Debug("screen worker started", "extractor", w.extractor.Name())

				for j := range w.ch {
					if err := j.ctx.Err(); err != nil {
						j.done <- result{err: errors.Wrap(err, errors.Cancelled, "job abandoned")}
						continue
					}
					word, err := w.run(j.ctx, j.req)
					j.done <- result{word: word, err: err}
				}

				log.Debug("screen worker stopped")
			}(i + 1)
		}
	})
}

// Process queues req and waits for its word. It blocks while the queue is
// full.
func (w *Worker) Process(ctx context.Context, req Request) (string, error) {
	j := job{ctx: ctx, req: req, done: make(chan result, 1)}

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return "", errors.New(errors.Unavailable, "screen worker is shutting down")
	}
	select {
	case w.ch <- j:
		w.mu.Unlock()
	default:
		w.mu.Unlock()
		trace.Logger(ctx).Warn("screen queue full, applying backpressure")
		if err := w.send(ctx, j); err != nil {
			return "", err
		}
	}

	select {
	case r := <-j.done:
		return r.word, r.err
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), errors.Cancelled, "waiting for screen worker")
	}
}

// send blocks until j is queued. The lock is held so Shutdown cannot close
// the channel mid-send.
func (w *Worker) send(ctx context.Context, j job) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New(errors.Unavailable, "screen worker is shutting down")
	}
	select {
	case w.ch <- j:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.Cancelled, "queueing screen job")
	}
}

// run executes the capture, extract and locate stages for one request.
// Panics raised by native backends are turned into errors.
func (w *Worker) run(ctx context.Context, req Request) (word string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.Internal, "screen stage panicked: %v", r)
		}
	}()
	enter := func(s Stage) {
		if req.OnStage != nil {
			req.OnStage(s)
		}
	}
	log := trace.Logger(ctx)

	enter(StageCapturing)
	region := geometry.Compute(req.Point, req.Display, w.size)
	start := time.Now()
	img, err := w.capturer.Capture(ctx, region, req.Display.Scale())
	if err != nil {
		return "", err
	}
	log.Debug("captured region",
		"left", region.Left, "top", region.Top, "width", region.Width, "height", region.Height,
		"local", fmt.Sprintf("%d,%d", region.Local.X, region.Local.Y),
		"capture_ms", time.Since(start).Milliseconds())

	enter(StageExtracting)
	start = time.Now()
	boxes, cached := w.frames.lookup(img, region.Local)
	if !cached {
		boxes, err = w.extractor.Extract(ctx, img, region.Local)
		if err != nil {
			return "", err
		}
		w.frames.store(img, region.Local, boxes)
	}
	log.Debug("extracted text", "extractor", w.extractor.Name(), "boxes", len(boxes), "cached", cached,
		"ocr_ms", time.Since(start).Milliseconds())

	enter(StageLocating)
	return w.locator.Locate(boxes, region.Local)
}

// Shutdown stops accepting jobs and waits for queued ones to finish.
func (w *Worker) Shutdown(ctx context.Context) {
	log := trace.Logger(ctx)
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.ch)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); w.wg.Wait() }()

	select {
	case <-ctx.Done():
		log.Warn("screen worker shutdown interrupted by context")
	case <-done:
		log.Info("screen worker drained")
	}
}
