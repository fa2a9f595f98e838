// Package trace carries lookup trace ids across HTTP, WebSocket and gRPC
// boundaries and times the pipeline stages of each lookup as a Span.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"sync"
	"time"
)

// Propagation keys, used as HTTP headers and gRPC metadata.
const (
	TraceIDKey      = "x-trace-id"
	SpanIDKey       = "x-span-id"
	ParentSpanIDKey = "x-parent-span-id"
)

type ctxKey struct{}

// Context identifies one span within a trace.
type Context struct {
	TraceID      string
	SpanID       string
	ParentSpanID string
}

// continueTrace starts a span under a caller's ids. An empty traceID
// starts a new trace.
func continueTrace(traceID, parentSpanID string) Context {
	if traceID == "" {
		traceID = randomHex(16)
		parentSpanID = ""
	}
	return Context{TraceID: traceID, SpanID: randomHex(8), ParentSpanID: parentSpanID}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext returns the trace ids stored in ctx.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(ctxKey{}).(Context)
	return tc, ok
}

// WithContext stores tc in ctx.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// StageTiming is how long a lookup spent in one pipeline stage.
type StageTiming struct {
	Stage   string
	Elapsed time.Duration
}

// Span times one lookup. Stages are entered in order; each lasts until the
// next one is entered or the span ends. Methods are safe to call from the
// worker goroutine that runs capture and OCR.
type Span struct {
	Name string
	Ctx  Context

	mu      sync.Mutex
	start   time.Time
	end     time.Time
	x, y    int
	hasXY   bool
	word    string
	code    string
	errMsg  string
	stage   string
	entered time.Time
	stages  []StageTiming
}

// StartSpan begins a span, continuing the trace in ctx if there is one.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent, _ := FromContext(ctx)
	tc := continueTrace(parent.TraceID, parent.SpanID)
	s := &Span{Name: name, Ctx: tc, start: time.Now()}
	return WithContext(ctx, tc), s
}

// SetPoint records the screen point being looked up.
func (s *Span) SetPoint(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.x, s.y, s.hasXY = x, y, true
}

// SetWord records the located or typed word.
func (s *Span) SetWord(word string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.word = word
}

// SetError records the failure code and message.
func (s *Span) SetError(code, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code, s.errMsg = code, msg
}

// Enter closes the current stage and starts the named one.
func (s *Span) Enter(stage string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.closeStage(now)
	s.stage, s.entered = stage, now
}

func (s *Span) closeStage(now time.Time) {
	if s.stage != "" && !s.entered.IsZero() {
		s.stages = append(s.stages, StageTiming{Stage: s.stage, Elapsed: now.Sub(s.entered)})
		s.entered = time.Time{}
	}
}

// End closes the last stage. The stage name stays as the final state.
func (s *Span) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = time.Now()
	s.closeStage(s.end)
}

// State is the last stage entered.
func (s *Span) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

// Stages returns the completed stage timings in order.
func (s *Span) Stages() []StageTiming {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StageTiming(nil), s.stages...)
}

// Duration is zero until End.
func (s *Span) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.end.IsZero() {
		return 0
	}
	return s.end.Sub(s.start)
}

// LogValue implements slog.LogValuer. Stage timings are reported as
// <stage>_ms.
func (s *Span) LogValue() slog.Value {
	d := s.Duration()
	s.mu.Lock()
	defer s.mu.Unlock()

	attrs := []slog.Attr{
		slog.String("name", s.Name),
		slog.String("trace_id", s.Ctx.TraceID),
		slog.String("span_id", s.Ctx.SpanID),
		slog.String("state", s.stage),
		slog.Int64("total_ms", d.Milliseconds()),
	}
	if s.hasXY {
		attrs = append(attrs, slog.Int("x", s.x), slog.Int("y", s.y))
	}
	if s.word != "" {
		attrs = append(attrs, slog.String("word", s.word))
	}
	if s.code != "" {
		attrs = append(attrs, slog.String("code", s.code), slog.String("error", s.errMsg))
	}
	for _, st := range s.stages {
		attrs = append(attrs, slog.Int64(st.Stage+"_ms", st.Elapsed.Milliseconds()))
	}
	return slog.GroupValue(attrs...)
}

// Logger returns the default logger annotated with the trace ids in ctx.
func Logger(ctx context.Context) *slog.Logger {
	tc, ok := FromContext(ctx)
	if !ok {
		return slog.Default()
	}
	if tc.ParentSpanID != "" {
		return slog.Default().With("trace_id", tc.TraceID, "span_id", tc.SpanID, "parent_span_id", tc.ParentSpanID)
	}
	return slog.Default().With("trace_id", tc.TraceID, "span_id", tc.SpanID)
}
