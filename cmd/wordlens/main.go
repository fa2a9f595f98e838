// wordlens queries a running wordlens server over gRPC.
//
//	wordlens define <word>
//	wordlens at <x> <y> <width> <height> [scale]
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/GriffinCanCode/wordlens/internal/config"
	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/rpc"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if len(os.Args) < 2 {
		usage()
	}

	client, err := rpc.Dial(cfg.GRPCAddr)
	if err != nil {
		slog.Error("failed to connect", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var entry string
	switch args := os.Args[2:]; os.Args[1] {
	case "define":
		if len(args) != 1 {
			usage()
		}
		entry, err = client.Define(ctx, args[0])
	case "at":
		p, d, perr := parseAt(args)
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			usage()
		}
		entry, err = client.LookupAt(ctx, p, d)
	default:
		usage()
	}

	switch {
	case errors.IsCode(err, errors.NotFound):
		fmt.Fprintln(os.Stderr, "no entry")
		os.Exit(2)
	case err != nil:
		slog.Error("lookup failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(entry)
}

func parseAt(args []string) (geometry.Point, geometry.Display, error) {
	if len(args) < 4 || len(args) > 5 {
		return geometry.Point{}, geometry.Display{}, errors.New(errors.InvalidArgument, "at needs x y width height [scale]")
	}
	var n [4]int
	for i := range n {
		v, err := strconv.Atoi(args[i])
		if err != nil {
			return geometry.Point{}, geometry.Display{}, errors.Wrapf(err, errors.InvalidArgument, "bad number %q", args[i])
		}
		n[i] = v
	}
	scale := 1.0
	if len(args) == 5 {
		v, err := strconv.ParseFloat(args[4], 64)
		if err != nil {
			return geometry.Point{}, geometry.Display{}, errors.Wrapf(err, errors.InvalidArgument, "bad scale %q", args[4])
		}
		scale = v
	}
	return geometry.Point{X: n[0], Y: n[1]}, geometry.Display{Width: n[2], Height: n[3], ScaleFactor: scale}, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: wordlens define <word> | wordlens at <x> <y> <width> <height> [scale]")
	os.Exit(64)
}
