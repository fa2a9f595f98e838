// Package dnn is the detect-then-recognize backend: an EAST text detector
// finds word regions, the one under the cursor is rectified, and a CRNN
// recognizer transcribes it. Both networks run through OpenCV's dnn module.
package dnn

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/syncx"
)

// Model file names expected in Config.ModelDir.
const (
	DetectorFile   = "frozen_east_text_detection.pb"
	RecognizerFile = "CRNN_VGG_BiLSTM_CTC_float16.onnx"
	AlphabetFile   = "alphabet_36.txt"
)

// Config tunes detection.
type Config struct {
	ModelDir      string
	ConfThreshold float32 // default 0.5
	NMSThreshold  float32 // default 0.4
}

func (c Config) withDefaults() Config {
	if c.ConfThreshold <= 0 {
		c.ConfThreshold = 0.5
	}
	if c.NMSThreshold <= 0 {
		c.NMSThreshold = 0.4
	}
	return c
}

// Models owns the loaded networks. It is created once at startup and
// shared; each network serves one caller at a time.
type Models struct {
	cfg        Config
	detector   *syncx.Mutex[*gocv.Net]
	recognizer *syncx.Mutex[*gocv.Net]
	vocab      []string
}

// Load reads both networks and the recognizer alphabet from cfg.ModelDir.
func Load(cfg Config) (*Models, error) {
	cfg = cfg.withDefaults()
	start := time.Now()

	paths := map[string]string{}
	for _, name := range []string{DetectorFile, RecognizerFile, AlphabetFile} {
		p := filepath.Join(cfg.ModelDir, name)
		if _, err := os.Stat(p); err != nil {
			return nil, errors.Wrap(err, errors.OCRInitFailed, "model file missing").WithMetadata("path", p)
		}
		paths[name] = p
	}

	f, err := os.Open(paths[AlphabetFile])
	if err != nil {
		return nil, errors.Wrap(err, errors.OCRInitFailed, "open alphabet")
	}
	vocab, err := readVocabulary(f)
	_ = f.Close()
	if err != nil || len(vocab) == 0 {
		return nil, errors.Wrap(err, errors.OCRInitFailed, "read alphabet")
	}

	det := gocv.ReadNet(paths[DetectorFile], "")
	if det.Empty() {
		return nil, errors.New(errors.OCRInitFailed, "load text detector").WithMetadata("path", paths[DetectorFile])
	}
	rec := gocv.ReadNet(paths[RecognizerFile], "")
	if rec.Empty() {
		_ = det.Close()
		return nil, errors.New(errors.OCRInitFailed, "load text recognizer").WithMetadata("path", paths[RecognizerFile])
	}

	slog.Info("text models loaded", "dir", cfg.ModelDir, "alphabet", len(vocab), "elapsed_ms", time.Since(start).Milliseconds())
	return &Models{
		cfg:        cfg,
		detector:   syncx.NewMutex(&det),
		recognizer: syncx.NewMutex(&rec),
		vocab:      vocab,
	}, nil
}

// Close releases both networks.
func (m *Models) Close() error {
	_ = m.detector.With(func(n *gocv.Net) error { return n.Close() })
	return m.recognizer.With(func(n *gocv.Net) error { return n.Close() })
}
