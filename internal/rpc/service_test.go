package rpc

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

const testEntry = `{"hw":"cat"}`

type mockPipeline struct {
	entry   string
	ok      bool
	point   geometry.Point
	display geometry.Display
	word    string
}

func (m *mockPipeline) Lookup(_ context.Context, p geometry.Point, d geometry.Display) (string, bool) {
	m.point, m.display = p, d
	return m.entry, m.ok
}

func (m *mockPipeline) Define(_ context.Context, word string) (string, bool) {
	m.word = word
	return m.entry, m.ok
}

func startServer(t *testing.T, pipe Pipeline) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(trace.UnaryServerInterceptor()))
	Register(srv, NewService(pipe))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDefine(t *testing.T) {
	pipe := &mockPipeline{entry: testEntry, ok: true}
	client := startServer(t, pipe)

	got, err := client.Define(context.Background(), "Cat")
	if err != nil {
		t.Fatalf("Define() error = %v", err)
	}
	if got != testEntry {
		t.Errorf("Define() = %q, want %q", got, testEntry)
	}
	if pipe.word != "Cat" {
		t.Errorf("pipeline word = %q, want %q", pipe.word, "Cat")
	}
}

func TestDefineNotFound(t *testing.T) {
	client := startServer(t, &mockPipeline{})

	_, err := client.Define(context.Background(), "zzz")
	if !errors.IsCode(err, errors.NotFound) {
		t.Errorf("Define() error = %v, want NOT_FOUND", err)
	}
}

func TestLookupAt(t *testing.T) {
	pipe := &mockPipeline{entry: testEntry, ok: true}
	client := startServer(t, pipe)

	d := geometry.Display{X: -1440, Y: 120, Width: 1440, Height: 900, ScaleFactor: 2}
	got, err := client.LookupAt(context.Background(), geometry.Point{X: 300, Y: 120}, d)
	if err != nil {
		t.Fatalf("LookupAt() error = %v", err)
	}
	if got != testEntry {
		t.Errorf("LookupAt() = %q, want %q", got, testEntry)
	}
	if pipe.point != (geometry.Point{X: 300, Y: 120}) {
		t.Errorf("point = %+v, want {300 120}", pipe.point)
	}
	if pipe.display != d {
		t.Errorf("display = %+v, want %+v", pipe.display, d)
	}
}

func TestLookupAtInvalid(t *testing.T) {
	svc := NewService(&mockPipeline{ok: true})
	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"missing x", map[string]any{"y": 1, "width": 10, "height": 10}},
		{"string y", map[string]any{"x": 1, "y": "one", "width": 10, "height": 10}},
		{"zero width", map[string]any{"x": 1, "y": 1, "width": 0, "height": 10}},
		{"string origin", map[string]any{"x": 1, "y": 1, "width": 10, "height": 10, "display_x": "left"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tt.fields)
			if err != nil {
				t.Fatalf("NewStruct() error = %v", err)
			}
			_, err = svc.LookupAt(context.Background(), in)
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("LookupAt() code = %v, want InvalidArgument", status.Code(err))
			}
		})
	}
}

func TestParseLocationDefaultsScale(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]any{"x": 5, "y": 6, "width": 100, "height": 50})
	p, d, err := parseLocation(in)
	if err != nil {
		t.Fatalf("parseLocation() error = %v", err)
	}
	if p != (geometry.Point{X: 5, Y: 6}) {
		t.Errorf("point = %+v, want {5 6}", p)
	}
	if d.ScaleFactor != 1 {
		t.Errorf("ScaleFactor = %v, want 1", d.ScaleFactor)
	}
	if d.X != 0 || d.Y != 0 {
		t.Errorf("origin = %d,%d, want 0,0", d.X, d.Y)
	}
}

func TestParseLocationDisplayOrigin(t *testing.T) {
	in, _ := structpb.NewStruct(map[string]any{
		"x": 2000, "y": 300, "width": 1920, "height": 1080, "scale": 1.5,
		"display_x": 1920, "display_y": -200,
	})
	_, d, err := parseLocation(in)
	if err != nil {
		t.Fatalf("parseLocation() error = %v", err)
	}
	want := geometry.Display{X: 1920, Y: -200, Width: 1920, Height: 1080, ScaleFactor: 1.5}
	if d != want {
		t.Errorf("display = %+v, want %+v", d, want)
	}
}

func TestDefineEmptyWord(t *testing.T) {
	_, err := NewService(&mockPipeline{ok: true}).Define(context.Background(), wrapperspb.String(""))
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("Define(\"\") code = %v, want InvalidArgument", status.Code(err))
	}
}
