// Wordlens server - looks up the word under a screen point and serves the
// pipeline over HTTP/WebSocket and gRPC
package main

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/GriffinCanCode/wordlens/internal/config"
	"github.com/GriffinCanCode/wordlens/internal/dict"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
	"github.com/GriffinCanCode/wordlens/internal/locate"
	"github.com/GriffinCanCode/wordlens/internal/ocr"
	"github.com/GriffinCanCode/wordlens/internal/ocr/dnn"
	"github.com/GriffinCanCode/wordlens/internal/ocr/tesseract"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator"
	"github.com/GriffinCanCode/wordlens/internal/orchestrator/history"
	workers "github.com/GriffinCanCode/wordlens/internal/orchestrator/screen"
	"github.com/GriffinCanCode/wordlens/internal/resilience"
	"github.com/GriffinCanCode/wordlens/internal/rpc"
	"github.com/GriffinCanCode/wordlens/internal/screen"
	"github.com/GriffinCanCode/wordlens/internal/server"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	extractor, closeExtractor, err := newExtractor(cfg)
	if err != nil {
		slog.Error("failed to initialise text extractor", "backend", cfg.OCRBackend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = closeExtractor.Close() }()

	store, err := dict.OpenStore(ctx, cfg.DictStore)
	if err != nil {
		slog.Error("failed to open dictionary store", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	remote, err := dict.NewRemoteClient(dict.RemoteConfig{
		URL:          cfg.DictAPIURL,
		APIKey:       cfg.DictAPIKey,
		MaxRedirects: cfg.DictMaxRedirects,
		Timeout:      cfg.DictHTTPTimeout,
		Retry:        resilience.InteractiveRetryConfig(),
		Breaker:      resilience.InteractiveConfig(),
	})
	if err != nil {
		slog.Error("failed to create dictionary client", "error", err)
		os.Exit(1)
	}
	if cfg.DictAPIKey == "" {
		slog.Warn("DICT_API_KEY not set, remote lookups will be rejected")
	}
	resolver := dict.NewResolver(store, remote)

	capturer := screen.New()
	defer capturer.Close()

	opts := []workers.Option{
		workers.WithWorkers(cfg.OCRWorkers),
		workers.WithCaptureSize(geometry.Size{Width: cfg.CaptureWidth, Height: cfg.CaptureHeight}),
	}
	if cfg.CaptureDedupe {
		opts = append(opts, workers.WithDedupe(cfg.CaptureDedupeDistance))
	}
	worker := workers.NewWorker(capturer, extractor, locate.New(cfg.OCRMinConfidence), opts...)

	hist := history.NewStore(cfg.HistorySize, 100)
	manager := orchestrator.New(worker, resolver, screen.NewPointer(), hist)

	// Create HTTP/WebSocket server
	srv := server.New(ctx, manager, hist, server.WithHealth(func() map[string]any {
		return map[string]any{
			"ocr":            extractor.Name(),
			"local_store":    store != nil,
			"remote_breaker": remote.Breaker().State().String(),
			"history":        hist.Len(),
		}
	}))

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.HTTPAddr, "ocr", extractor.Name())
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(trace.UnaryServerInterceptor()),
		grpc.ChainStreamInterceptor(trace.StreamServerInterceptor()),
	)
	rpc.Register(grpcServer, rpc.NewService(manager))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		slog.Error("failed to listen", "addr", cfg.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go func() {
		slog.Info("grpc server starting", "addr", cfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			slog.Error("grpc server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	stopGRPC(shutdownCtx, grpcServer)
	worker.Shutdown(shutdownCtx)

	slog.Info("shutdown complete")
}

// newExtractor builds the configured text layout backend. The returned
// closer releases its native resources.
func newExtractor(cfg *config.Config) (ocr.Extractor, io.Closer, error) {
	switch cfg.OCRBackend {
	case config.BackendTesseractCLI:
		e := ocr.NewCLIEngine(ocr.CLIConfig{
			Binary:      cfg.TesseractBin,
			Language:    cfg.OCRLanguage,
			TessdataDir: cfg.TessdataPrefix,
		}, nil)
		return e, closeFunc(func() error { return nil }), nil
	case config.BackendDNN:
		models, err := dnn.Load(dnn.Config{
			ModelDir:      cfg.DNNModelDir,
			ConfThreshold: float32(cfg.DNNDetectConf),
			NMSThreshold:  float32(cfg.DNNNMSThreshold),
		})
		if err != nil {
			return nil, nil, err
		}
		return dnn.NewExtractor(models), models, nil
	default:
		e, err := tesseract.New(tesseract.Config{
			Language:       cfg.OCRLanguage,
			TessdataPrefix: cfg.TessdataPrefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return e, e, nil
	}
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

// stopGRPC drains in-flight calls until ctx expires.
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}
