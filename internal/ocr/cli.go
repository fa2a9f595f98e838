package ocr

import (
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/geometry"
)

// CLIConfig configures the tesseract command line backend.
type CLIConfig struct {
	Binary      string // default "tesseract"
	Language    string // default "eng"
	TessdataDir string
	PSM         int // 0 leaves tesseract's default
}

// CLIEngine is a layout extractor that shells out to the tesseract binary
// and parses its TSV output.
type CLIEngine struct {
	cfg    CLIConfig
	runner Runner
}

// NewCLIEngine creates the engine. A nil runner uses ExecRunner.
func NewCLIEngine(cfg CLIConfig, runner Runner) *CLIEngine {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &CLIEngine{cfg: cfg, runner: runner}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

// Extract writes img to a temp file and runs `tesseract <file> stdout tsv`.
func (e *CLIEngine) Extract(ctx context.Context, img []byte, _ geometry.Point) ([]TextBox, error) {
	dir, err := os.MkdirTemp("", "wordlens-ocr-*")
	if err != nil {
		return nil, errors.Wrap(err, errors.OCRRunFailed, "create temp dir")
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "capture.png")
	if err := os.WriteFile(path, img, 0o600); err != nil {
		return nil, errors.Wrap(err, errors.OCRRunFailed, "write capture")
	}

	out, stderr, err := e.runner.Run(ctx, e.cfg.Binary, e.args(path)...)
	if err != nil {
		return nil, classifyCLIError(err, string(stderr))
	}
	return ParseTSV(out)
}

func (e *CLIEngine) args(path string) []string {
	args := []string{path, "stdout", "-l", e.cfg.Language}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	return append(args, "tsv")
}

// classifyCLIError separates setup problems (binary or traineddata
// missing) from failures of a particular run.
func classifyCLIError(err error, stderr string) error {
	if stderrors.Is(err, exec.ErrNotFound) {
		return errors.Wrap(err, errors.OCRInitFailed, "tesseract binary not found")
	}
	if strings.Contains(stderr, "Failed loading language") || strings.Contains(stderr, "Error opening data file") {
		return errors.Wrap(err, errors.OCRInitFailed, "tesseract data files missing").
			WithMetadata("stderr", truncate(strings.TrimSpace(stderr), 256))
	}
	return errors.Wrap(err, errors.OCRRunFailed, "tesseract run failed")
}
