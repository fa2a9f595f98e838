// Package orchestrator drives the point-to-definition pipeline: capture,
// extract, locate, then dictionary lookup.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator/history"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator/screen"
	screencap "github.com/GriffinCanCode/wordlens/internal/screen"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// State is the pipeline position of one invocation.
type State int

const (
	StateIdle State = iota
	StateCapturing
	StateExtracting
	StateLocating
	StateLookingUp
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateExtracting:
		return "extracting"
	case StateLocating:
		return "locating"
	case StateLookingUp:
		return "looking_up"
	case StateDone:
		return "done"
	default:
		return "failed"
	}
}

func fromStage(s screen.Stage) State {
	switch s {
	case screen.StageCapturing:
		return StateCapturing
	case screen.StageExtracting:
		return StateExtracting
	default:
		return StateLocating
	}
}

// WordFinder resolves a screen point to the word under it.
type WordFinder interface {
	Process(ctx context.Context, req screen.Request) (string, error)
}

// Dictionary renders a word's entry as JSON.
type Dictionary interface {
	Lookup(ctx context.Context, word string) (string, error)
}

// Manager runs lookups. It holds no per-invocation state, so concurrent
// calls are independent; the last one to finish is the last one shown.
type Manager struct {
	finder  WordFinder
	dict    Dictionary
	pointer screencap.Pointer
	history *history.Store
	onState func(State)
}

// Option configures a Manager.
type Option func(*Manager)

// WithStateHook observes every state transition.
func WithStateHook(fn func(State)) Option {
	return func(m *Manager) { m.onState = fn }
}

// New creates a manager. pointer may be nil when cursor lookups are not
// available.
func New(finder WordFinder, dict Dictionary, pointer screencap.Pointer, hist *history.Store, opts ...Option) *Manager {
	m := &Manager{finder: finder, dict: dict, pointer: pointer, history: hist}
	for _, o := range opts {
		o(m)
	}
	return m
}

// invocation tracks one pass through the pipeline.
type invocation struct {
	m    *Manager
	ctx  context.Context
	span *trace.Span

	mu    sync.Mutex // stages are entered from the worker goroutine
	state State
}

func (m *Manager) begin(ctx context.Context, name string) *invocation {
	ctx, span := trace.StartSpan(ctx, name)
	return &invocation{m: m, ctx: ctx, span: span, state: StateIdle}
}

func (inv *invocation) enter(s State) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	trace.Logger(inv.ctx).Debug("pipeline state", "from", inv.state, "to", s)
	inv.state = s
	inv.span.Enter(s.String())
	if inv.m.onState != nil {
		inv.m.onState(s)
	}
}

func (inv *invocation) current() State {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.state
}

// fail records err against the current stage and ends in Failed.
func (inv *invocation) fail(err error) {
	stage := inv.current()
	inv.enter(StateFailed)
	inv.span.SetError(errors.CodeOf(err).String(), err.Error())

	log := trace.Logger(inv.ctx)
	switch errors.CodeOf(err) {
	case errors.WordNotFoundAtPoint, errors.NoRegionAtPoint, errors.NotFound:
		log.Info("lookup found nothing", "stage", stage, "error", err)
	default:
		log.Error("lookup failed", "stage", stage, "error", err)
	}
}

// finish ends the span and converts a panic into Failed.
func (inv *invocation) finish(out *string, ok *bool) {
	if r := recover(); r != nil {
		inv.fail(errors.Newf(errors.Internal, "pipeline panicked: %v", r))
		*out, *ok = "", false
	}
	inv.span.End()
	trace.Logger(inv.ctx).Info("lookup finished", "span", inv.span)
}

// Lookup finds the word under p on display d and returns its entry JSON.
// It never returns an error: every failure ends as ("", false).
func (m *Manager) Lookup(ctx context.Context, p geometry.Point, d geometry.Display) (out string, ok bool) {
	inv := m.begin(ctx, "lookup")
	defer inv.finish(&out, &ok)
	inv.span.SetPoint(p.X, p.Y)

	return inv.lookupAt(p, d, history.SourcePoint)
}

// LookupAtCursor runs Lookup at the current cursor position.
func (m *Manager) LookupAtCursor(ctx context.Context) (out string, ok bool) {
	inv := m.begin(ctx, "lookup_cursor")
	defer inv.finish(&out, &ok)

	if m.pointer == nil {
		inv.fail(errors.New(errors.CaptureFailed, "no cursor source configured"))
		return "", false
	}
	p, d, err := m.pointer.Locate(inv.ctx)
	if err != nil {
		inv.fail(err)
		return "", false
	}
	inv.span.SetPoint(p.X, p.Y)
	return inv.lookupAt(p, d, history.SourceCursor)
}

// Define runs only the dictionary step for a typed word.
func (m *Manager) Define(ctx context.Context, word string) (out string, ok bool) {
	inv := m.begin(ctx, "define")
	defer inv.finish(&out, &ok)

	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" {
		inv.fail(errors.New(errors.InvalidArgument, "empty word"))
		return "", false
	}
	inv.span.SetWord(word)
	return inv.define(word, history.Record{Word: word, Source: history.SourceDefine})
}

func (inv *invocation) lookupAt(p geometry.Point, d geometry.Display, source string) (string, bool) {
	start := time.Now()
	word, err := inv.m.finder.Process(inv.ctx, screen.Request{
		Point:   p,
		Display: d,
		OnStage: func(s screen.Stage) { inv.enter(fromStage(s)) },
	})
	if err != nil {
		inv.fail(err)
		return "", false
	}
	inv.span.SetWord(word)
	trace.Logger(inv.ctx).Debug("word located", "word", word, "screen_ms", time.Since(start).Milliseconds())

	return inv.define(word, history.Record{Word: word, Source: source, X: p.X, Y: p.Y})
}

func (inv *invocation) define(word string, rec history.Record) (string, bool) {
	inv.enter(StateLookingUp)
	start := time.Now()
	entry, err := inv.m.dict.Lookup(inv.ctx, word)
	trace.Logger(inv.ctx).Debug("dictionary lookup", "word", word, "lookup_ms", time.Since(start).Milliseconds())
	if err != nil {
		inv.fail(err)
		return "", false
	}

	inv.enter(StateDone)
	if inv.m.history != nil {
		rec.Entry = entry
		inv.m.history.Add(rec)
	}
	return entry, true
}

// History returns the lookup history, or nil.
func (m *Manager) History() *history.Store {
	return m.history
}
