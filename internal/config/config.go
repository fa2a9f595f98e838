// Package config loads service configuration from the environment
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/GriffinCanCode/wordlens/internal/errors"
)

// OCR backends
const (
	BackendTesseract    = "tesseract"
	BackendTesseractCLI = "tesseract-cli"
	BackendDNN          = "dnn"
)

// Merriam-Webster Learner's endpoint; {word} is replaced per request.
const DefaultDictAPIURL = "https://dictionaryapi.com/api/v3/references/learners/json/{word}"

type Config struct {
	HTTPAddr string
	GRPCAddr string
	LogLevel string

	CaptureWidth          int // physical pixels
	CaptureHeight         int
	CaptureDedupe         bool
	CaptureDedupeDistance int

	OCRBackend       string
	OCRLanguage      string
	TessdataPrefix   string
	TesseractBin     string
	OCRMinConfidence float64
	OCRWorkers       int

	DNNModelDir     string
	DNNDetectConf   float64
	DNNNMSThreshold float64

	DictStore        string // "sqlite:<path>", "postgres://...", or empty
	DictAPIKey       string
	DictAPIURL       string
	DictMaxRedirects int
	DictHTTPTimeout  time.Duration

	HistorySize int
}

// LoadDotEnv reads a .env file into the environment if one exists.
// Variables already set take precedence.
func LoadDotEnv(paths ...string) {
	if err := godotenv.Load(paths...); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

func Load() *Config {
	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", "127.0.0.1:8017"),
		GRPCAddr: getEnv("GRPC_ADDR", "127.0.0.1:50517"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CaptureWidth:          getEnvInt("CAPTURE_WIDTH", 200),
		CaptureHeight:         getEnvInt("CAPTURE_HEIGHT", 100),
		CaptureDedupe:         getEnvBool("CAPTURE_DEDUPE", false),
		CaptureDedupeDistance: getEnvInt("CAPTURE_DEDUPE_DISTANCE", 2),

		OCRBackend:       getEnv("OCR_BACKEND", BackendTesseract),
		OCRLanguage:      getEnv("OCR_LANGUAGE", "eng"),
		TessdataPrefix:   getEnv("TESSDATA_PREFIX", ""),
		TesseractBin:     getEnv("TESSERACT_BIN", "tesseract"),
		OCRMinConfidence: getEnvFloat("OCR_MIN_CONFIDENCE", 0),
		OCRWorkers:       getEnvInt("OCR_WORKERS", 1),

		DNNModelDir:     getEnv("DNN_MODEL_DIR", "models"),
		DNNDetectConf:   getEnvFloat("DNN_DETECT_CONF", 0.5),
		DNNNMSThreshold: getEnvFloat("DNN_NMS_THRESHOLD", 0.4),

		DictStore:        getEnv("DICT_STORE", ""),
		DictAPIKey:       getEnv("DICT_API_KEY", ""),
		DictAPIURL:       getEnv("DICT_API_URL", DefaultDictAPIURL),
		DictMaxRedirects: getEnvInt("DICT_MAX_REDIRECTS", 5),
		DictHTTPTimeout:  getEnvDuration("DICT_HTTP_TIMEOUT", 10*time.Second),

		HistorySize: getEnvInt("HISTORY_SIZE", 200),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.CaptureWidth <= 0 || c.CaptureHeight <= 0 {
		return errors.Newf(errors.ConfigInvalid, "capture size must be positive, got %dx%d", c.CaptureWidth, c.CaptureHeight)
	}
	switch c.OCRBackend {
	case BackendTesseract, BackendTesseractCLI, BackendDNN:
	default:
		return errors.Newf(errors.ConfigInvalid, "unknown OCR_BACKEND %q", c.OCRBackend)
	}
	if c.OCRMinConfidence < 0 || c.OCRMinConfidence >= 1 {
		return errors.Newf(errors.ConfigInvalid, "OCR_MIN_CONFIDENCE must be in [0,1), got %v", c.OCRMinConfidence)
	}
	if c.DictMaxRedirects < 1 {
		return errors.Newf(errors.ConfigInvalid, "DICT_MAX_REDIRECTS must be at least 1, got %d", c.DictMaxRedirects)
	}
	if c.DictStore != "" && !strings.HasPrefix(c.DictStore, "sqlite:") &&
		!strings.HasPrefix(c.DictStore, "postgres://") && !strings.HasPrefix(c.DictStore, "postgresql://") {
		return errors.Newf(errors.ConfigInvalid, "unsupported DICT_STORE %q", c.DictStore)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog levels, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
