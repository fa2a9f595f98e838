package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator/history"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator/screen"
	screencap "github.com/GriffinCanCode/wordlens/internal/screen"
)

type mockFinder struct {
	word  string
	err   error
	panic bool
	req   screen.Request
}

func (m *mockFinder) Process(_ context.Context, req screen.Request) (string, error) {
	m.req = req
	if m.panic {
		panic("segfault in native code")
	}
	for _, s := range []screen.Stage{screen.StageCapturing, screen.StageExtracting, screen.StageLocating} {
		if req.OnStage != nil {
			req.OnStage(s)
		}
	}
	return m.word, m.err
}

type mockDict struct {
	entries map[string]string
	calls   []string
}

func (m *mockDict) Lookup(_ context.Context, word string) (string, error) {
	m.calls = append(m.calls, word)
	if e, ok := m.entries[word]; ok {
		return e, nil
	}
	return "", errors.Newf(errors.NotFound, "no entry for %q", word)
}

type stateRecorder struct {
	mu     sync.Mutex
	states []State
}

func (r *stateRecorder) record(s State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *stateRecorder) equal(want ...State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) != len(want) {
		return false
	}
	for i := range want {
		if r.states[i] != want[i] {
			return false
		}
	}
	return true
}

var testDisplay = geometry.Display{Width: 1920, Height: 1080, ScaleFactor: 1}

func TestLookupSuccess(t *testing.T) {
	finder := &mockFinder{word: "community"}
	dict := &mockDict{entries: map[string]string{"community": `{"hw": "community"}`}}
	hist := history.NewStore(10, 10)
	rec := &stateRecorder{}
	m := New(finder, dict, nil, hist, WithStateHook(rec.record))

	out, ok := m.Lookup(context.Background(), geometry.Point{X: 10, Y: 20}, testDisplay)
	if !ok || out != `{"hw": "community"}` {
		t.Fatalf("Lookup() = (%q, %v), want entry", out, ok)
	}
	if !rec.equal(StateCapturing, StateExtracting, StateLocating, StateLookingUp, StateDone) {
		t.Errorf("states = %v", rec.states)
	}
	if finder.req.Point != (geometry.Point{X: 10, Y: 20}) || finder.req.Display != testDisplay {
		t.Errorf("finder request = %+v", finder.req)
	}

	recs := hist.Recent(0)
	if len(recs) != 1 || recs[0].Word != "community" || recs[0].Source != history.SourcePoint || recs[0].X != 10 {
		t.Errorf("history = %+v", recs)
	}
	select {
	case e := <-hist.Events():
		if e.Type != history.EventShowDef || e.Record.Entry != out {
			t.Errorf("event = %+v", e)
		}
	default:
		t.Error("expected showDef event")
	}
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name      string
		finder    *mockFinder
		dict      *mockDict
		wantState State
		wantCalls int
	}{
		{"no word", &mockFinder{err: errors.New(errors.WordNotFoundAtPoint, "none")}, &mockDict{}, StateLocating, 0},
		{"capture error", &mockFinder{err: errors.New(errors.CaptureFailed, "denied")}, &mockDict{}, StateLocating, 0},
		{"dictionary miss", &mockFinder{word: "zzz"}, &mockDict{}, StateLookingUp, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hist := history.NewStore(10, 10)
			rec := &stateRecorder{}
			m := New(tt.finder, tt.dict, nil, hist, WithStateHook(rec.record))

			out, ok := m.Lookup(context.Background(), geometry.Point{X: 1, Y: 1}, testDisplay)
			if ok || out != "" {
				t.Errorf("Lookup() = (%q, %v), want (\"\", false)", out, ok)
			}
			n := len(rec.states)
			if n < 2 || rec.states[n-1] != StateFailed || rec.states[n-2] != tt.wantState {
				t.Errorf("states = %v, want ... %v, failed", rec.states, tt.wantState)
			}
			if len(tt.dict.calls) != tt.wantCalls {
				t.Errorf("dictionary calls = %d, want %d", len(tt.dict.calls), tt.wantCalls)
			}
			if hist.Len() != 0 {
				t.Error("failed lookups must not be recorded")
			}
		})
	}
}

func TestLookupRecoversPanic(t *testing.T) {
	rec := &stateRecorder{}
	m := New(&mockFinder{panic: true}, &mockDict{}, nil, nil, WithStateHook(rec.record))

	out, ok := m.Lookup(context.Background(), geometry.Point{}, testDisplay)
	if ok || out != "" {
		t.Errorf("Lookup() = (%q, %v), want (\"\", false)", out, ok)
	}
	if !rec.equal(StateFailed) {
		t.Errorf("states = %v, want [failed]", rec.states)
	}
}

func TestLookupAtCursor(t *testing.T) {
	finder := &mockFinder{word: "set"}
	dict := &mockDict{entries: map[string]string{"set": "{}"}}
	ptr := screencap.StaticPointer{Point: geometry.Point{X: 300, Y: 200}, Display: testDisplay}
	hist := history.NewStore(10, 10)
	m := New(finder, dict, ptr, hist)

	if _, ok := m.LookupAtCursor(context.Background()); !ok {
		t.Fatal("LookupAtCursor() failed")
	}
	if finder.req.Point != ptr.Point {
		t.Errorf("point = %+v, want %+v", finder.req.Point, ptr.Point)
	}
	if got := hist.Recent(1)[0].Source; got != history.SourceCursor {
		t.Errorf("source = %q, want %q", got, history.SourceCursor)
	}
}

func TestLookupAtCursorWithoutPointer(t *testing.T) {
	m := New(&mockFinder{word: "set"}, &mockDict{}, nil, nil)
	if _, ok := m.LookupAtCursor(context.Background()); ok {
		t.Error("LookupAtCursor() without pointer should fail")
	}
}

func TestDefine(t *testing.T) {
	finder := &mockFinder{}
	dict := &mockDict{entries: map[string]string{"test": `{"hw": "test"}`}}
	hist := history.NewStore(10, 10)
	rec := &stateRecorder{}
	m := New(finder, dict, nil, hist, WithStateHook(rec.record))

	out, ok := m.Define(context.Background(), "  Test ")
	if !ok || out != `{"hw": "test"}` {
		t.Errorf("Define() = (%q, %v)", out, ok)
	}
	if !rec.equal(StateLookingUp, StateDone) {
		t.Errorf("states = %v", rec.states)
	}
	if hist.Recent(1)[0].Source != history.SourceDefine {
		t.Error("define should be recorded with define source")
	}

	if _, ok := m.Define(context.Background(), "   "); ok {
		t.Error("Define() of blank word should fail")
	}
	if len(dict.calls) != 1 {
		t.Errorf("dictionary calls = %d, want 1", len(dict.calls))
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateCapturing, "capturing"},
		{StateExtracting, "extracting"},
		{StateLocating, "locating"},
		{StateLookingUp, "looking_up"},
		{StateDone, "done"},
		{StateFailed, "failed"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
