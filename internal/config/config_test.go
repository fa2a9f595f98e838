package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"HTTP_ADDR", "GRPC_ADDR", "LOG_LEVEL", "CAPTURE_WIDTH", "CAPTURE_HEIGHT",
	"CAPTURE_DEDUPE", "CAPTURE_DEDUPE_DISTANCE", "OCR_BACKEND", "OCR_LANGUAGE",
	"TESSDATA_PREFIX", "TESSERACT_BIN", "OCR_MIN_CONFIDENCE", "OCR_WORKERS",
	"DNN_MODEL_DIR", "DNN_DETECT_CONF", "DNN_NMS_THRESHOLD", "DICT_STORE",
	"DICT_API_KEY", "DICT_API_URL", "DICT_MAX_REDIRECTS", "DICT_HTTP_TIMEOUT",
	"HISTORY_SIZE",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		if v, ok := os.LookupEnv(k); ok {
			os.Unsetenv(k)
			t.Cleanup(func() { os.Setenv(k, v) })
		}
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg := Load()

	if cfg.HTTPAddr != "127.0.0.1:8017" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, "127.0.0.1:8017")
	}
	if cfg.CaptureWidth != 200 || cfg.CaptureHeight != 100 {
		t.Errorf("capture size = %dx%d, want 200x100", cfg.CaptureWidth, cfg.CaptureHeight)
	}
	if cfg.OCRBackend != BackendTesseract {
		t.Errorf("OCRBackend = %q, want %q", cfg.OCRBackend, BackendTesseract)
	}
	if cfg.OCRMinConfidence != 0 {
		t.Errorf("OCRMinConfidence = %f, want 0", cfg.OCRMinConfidence)
	}
	if cfg.DictAPIURL != DefaultDictAPIURL {
		t.Errorf("DictAPIURL = %q, want %q", cfg.DictAPIURL, DefaultDictAPIURL)
	}
	if cfg.DictMaxRedirects != 5 {
		t.Errorf("DictMaxRedirects = %d, want 5", cfg.DictMaxRedirects)
	}
	if cfg.DictHTTPTimeout != 10*time.Second {
		t.Errorf("DictHTTPTimeout = %v, want 10s", cfg.DictHTTPTimeout)
	}
	if cfg.CaptureDedupe {
		t.Error("CaptureDedupe should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults = %v", err)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("OCR_BACKEND", "dnn")
	t.Setenv("CAPTURE_WIDTH", "400")
	t.Setenv("CAPTURE_DEDUPE", "1")
	t.Setenv("DICT_STORE", "sqlite:/tmp/stardict.db")
	t.Setenv("DICT_MAX_REDIRECTS", "3")
	t.Setenv("DICT_HTTP_TIMEOUT", "2500ms")
	t.Setenv("OCR_MIN_CONFIDENCE", "0.3")

	cfg := Load()

	if cfg.OCRBackend != BackendDNN {
		t.Errorf("OCRBackend = %q, want %q", cfg.OCRBackend, BackendDNN)
	}
	if cfg.CaptureWidth != 400 {
		t.Errorf("CaptureWidth = %d, want 400", cfg.CaptureWidth)
	}
	if !cfg.CaptureDedupe {
		t.Error("CaptureDedupe should be true")
	}
	if cfg.DictStore != "sqlite:/tmp/stardict.db" {
		t.Errorf("DictStore = %q", cfg.DictStore)
	}
	if cfg.DictMaxRedirects != 3 {
		t.Errorf("DictMaxRedirects = %d, want 3", cfg.DictMaxRedirects)
	}
	if cfg.DictHTTPTimeout != 2500*time.Millisecond {
		t.Errorf("DictHTTPTimeout = %v, want 2.5s", cfg.DictHTTPTimeout)
	}
	if cfg.OCRMinConfidence != 0.3 {
		t.Errorf("OCRMinConfidence = %f, want 0.3", cfg.OCRMinConfidence)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"zero width", func(c *Config) { c.CaptureWidth = 0 }, false},
		{"unknown backend", func(c *Config) { c.OCRBackend = "paddle" }, false},
		{"no redirects", func(c *Config) { c.DictMaxRedirects = 0 }, false},
		{"confidence too high", func(c *Config) { c.OCRMinConfidence = 1 }, false},
		{"postgres store", func(c *Config) { c.DictStore = "postgres://u@localhost/dict" }, true},
		{"mysql store", func(c *Config) { c.DictStore = "mysql://u@localhost/dict" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("OCR_LANGUAGE=deu\nHISTORY_SIZE=7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("OCR_LANGUAGE")
		os.Unsetenv("HISTORY_SIZE")
	})

	LoadDotEnv(path)
	cfg := Load()

	if cfg.OCRLanguage != "deu" {
		t.Errorf("OCRLanguage = %q, want %q", cfg.OCRLanguage, "deu")
	}
	if cfg.HistorySize != 7 {
		t.Errorf("HistorySize = %d, want 7", cfg.HistorySize)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		c := &Config{LogLevel: in}
		if got := c.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TEST_INT_INVALID", "not-a-number")
	if v := getEnvInt("TEST_INT_INVALID", 100); v != 100 {
		t.Errorf("getEnvInt with invalid = %d, want %d", v, 100)
	}

	t.Setenv("TEST_BOOL_ONE", "1")
	if !getEnvBool("TEST_BOOL_ONE", false) {
		t.Error("getEnvBool should return true for '1'")
	}

	t.Setenv("TEST_DURATION_BAD", "soon")
	if v := getEnvDuration("TEST_DURATION_BAD", time.Second); v != time.Second {
		t.Errorf("getEnvDuration with invalid = %v, want 1s", v)
	}
}
