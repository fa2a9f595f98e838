// Package rpc exposes the lookup pipeline as the gRPC service
// wordlens.v1.Dictionary. Messages are protobuf well-known types, so the
// service descriptor is declared here instead of generated.
package rpc

import (
	"context"
	"math"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

const (
	ServiceName = "wordlens.v1.Dictionary"

	defineMethod   = "/" + ServiceName + "/Define"
	lookupAtMethod = "/" + ServiceName + "/LookupAt"
)

// Pipeline is the lookup surface served over gRPC.
type Pipeline interface {
	Lookup(ctx context.Context, p geometry.Point, d geometry.Display) (string, bool)
	Define(ctx context.Context, word string) (string, bool)
}

// DictionaryServer is the server API for wordlens.v1.Dictionary.
type DictionaryServer interface {
	Define(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	LookupAt(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
}

// Service implements DictionaryServer on a Pipeline.
type Service struct {
	pipe Pipeline
}

// NewService creates a service backed by pipe.
func NewService(pipe Pipeline) *Service {
	return &Service{pipe: pipe}
}

// Register adds the service to s.
func Register(s *grpc.Server, srv DictionaryServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Define looks up a typed word.
func (s *Service) Define(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	if in.GetValue() == "" {
		return nil, errors.New(errors.InvalidArgument, "word is required")
	}
	entry, ok := s.pipe.Define(ctx, in.GetValue())
	if !ok {
		return nil, errors.New(errors.NotFound, "no entry").WithMetadata("word", in.GetValue())
	}
	return wrapperspb.String(entry), nil
}

// LookupAt looks up the word at {x, y} on the display described by
// {width, height, scale} and the optional origin {display_x, display_y}.
func (s *Service) LookupAt(ctx context.Context, in *structpb.Struct) (*wrapperspb.StringValue, error) {
	p, d, err := parseLocation(in)
	if err != nil {
		return nil, err
	}
	entry, ok := s.pipe.Lookup(ctx, p, d)
	if !ok {
		return nil, errors.Newf(errors.NotFound, "no entry at %d,%d", p.X, p.Y)
	}
	return wrapperspb.String(entry), nil
}

func parseLocation(in *structpb.Struct) (geometry.Point, geometry.Display, error) {
	fields := in.GetFields()
	num := func(key string) (float64, bool) {
		v, ok := fields[key]
		if !ok {
			return 0, false
		}
		n, ok := v.GetKind().(*structpb.Value_NumberValue)
		if !ok || math.IsNaN(n.NumberValue) || math.IsInf(n.NumberValue, 0) {
			return 0, false
		}
		return n.NumberValue, true
	}

	var vals [4]float64
	for i, key := range []string{"x", "y", "width", "height"} {
		n, ok := num(key)
		if !ok {
			return geometry.Point{}, geometry.Display{}, errors.Newf(errors.InvalidArgument, "field %q must be a number", key)
		}
		vals[i] = n
	}
	if vals[2] <= 0 || vals[3] <= 0 {
		return geometry.Point{}, geometry.Display{}, errors.New(errors.InvalidArgument, "display size must be positive")
	}
	scale, ok := num("scale")
	if !ok {
		scale = 1
	}
	// Secondary monitors have a non-zero origin in the virtual desktop.
	var origin [2]float64
	for i, key := range []string{"display_x", "display_y"} {
		if _, present := fields[key]; !present {
			continue
		}
		n, ok := num(key)
		if !ok {
			return geometry.Point{}, geometry.Display{}, errors.Newf(errors.InvalidArgument, "field %q must be a number", key)
		}
		origin[i] = n
	}

	p := geometry.Point{X: int(vals[0]), Y: int(vals[1])}
	d := geometry.Display{
		X:           int(origin[0]),
		Y:           int(origin[1]),
		Width:       int(vals[2]),
		Height:      int(vals[3]),
		ScaleFactor: scale,
	}
	return p, d, nil
}

func defineHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DictionaryServer).Define(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: defineMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DictionaryServer).Define(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func lookupAtHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(DictionaryServer).LookupAt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: lookupAtMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(DictionaryServer).LookupAt(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*DictionaryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Define", Handler: defineHandler},
		{MethodName: "LookupAt", Handler: lookupAtHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wordlens/v1/dictionary.proto",
}
