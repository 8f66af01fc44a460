package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Capture  CaptureConfig  `yaml:"capture"`
	Detector DetectorConfig `yaml:"detector"`
	Review   ReviewConfig   `yaml:"review"`
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"`         // sqlite, postgres or mysql
	Path         string `yaml:"path"`           // SQLite file path
	URL          string `yaml:"url"`            // PostgreSQL URL or MySQL DSN
	Table        string `yaml:"table"`          // defaults to faces
	MaxOpenConns int    `yaml:"max_open_conns"` // ignored by sqlite
	MaxIdleConns int    `yaml:"max_idle_conns"` // ignored by sqlite
}

// DSN returns the data source for the configured driver.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return c.URL
}

type CaptureConfig struct {
	Device      string  `yaml:"device"`     // camera index or video file
	FrameSkip   int     `yaml:"frame_skip"` // persist every Nth frame
	Threshold   float64 `yaml:"threshold"`  // euclidean distance in embedding units
	WindowName  string  `yaml:"window_name"`
	QuitKey     string  `yaml:"quit_key"`
	JPEGQuality int     `yaml:"jpeg_quality"`
}

type DetectorConfig struct {
	Backend   string `yaml:"backend"`    // dlib or http
	ModelsDir string `yaml:"models_dir"` // dlib model files
	URL       string `yaml:"url"`        // embedding server for the http backend
	CNN       bool   `yaml:"cnn"`        // use the CNN face detector (dlib only)
}

type ReviewConfig struct {
	SaveDir string `yaml:"save_dir"`
	SaveKey string `yaml:"save_key"`
	QuitKey string `yaml:"quit_key"`
	Scale   int    `yaml:"scale"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"

	BackendDlib = "dlib"
	BackendHTTP = "http"
)

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a non-negative float, falling back to defaultVal.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// Defaults returns the embedded default configuration without environment overrides.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	cfg := Defaults()

	cfg.Database.Driver = strings.ToLower(envString("FACELOG_DB_DRIVER", cfg.Database.Driver))
	cfg.Database.Path = envString("FACELOG_DB_PATH", cfg.Database.Path)
	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Table = envString("FACELOG_DB_TABLE", cfg.Database.Table)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Capture.Device = envString("CAMERA_DEVICE", cfg.Capture.Device)
	cfg.Capture.FrameSkip = envInt("FRAME_SKIP", cfg.Capture.FrameSkip)
	cfg.Capture.Threshold = envFloat("MATCH_THRESHOLD", cfg.Capture.Threshold)

	cfg.Detector.Backend = strings.ToLower(envString("DETECTOR_BACKEND", cfg.Detector.Backend))
	cfg.Detector.ModelsDir = envString("DETECTOR_MODELS_DIR", cfg.Detector.ModelsDir)
	cfg.Detector.URL = envString("EMBEDDING_URL", cfg.Detector.URL)
	cfg.Detector.CNN = envBool("DETECTOR_CNN", cfg.Detector.CNN)

	return cfg
}

// Validate checks values that would otherwise fail deep inside the capture loop.
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database path is required for sqlite"))
		}
	case DriverPostgres, DriverMySQL:
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.Database.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}

	if c.Capture.FrameSkip < 1 {
		errs = append(errs, fmt.Errorf("frame skip must be at least 1, got %d", c.Capture.FrameSkip))
	}
	if c.Capture.Threshold < 0 {
		errs = append(errs, fmt.Errorf("match threshold must not be negative, got %v", c.Capture.Threshold))
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("jpeg quality must be within 1-100, got %d", c.Capture.JPEGQuality))
	}

	switch c.Detector.Backend {
	case BackendDlib, BackendHTTP:
	default:
		errs = append(errs, fmt.Errorf("unknown detector backend %q", c.Detector.Backend))
	}

	if c.Review.Scale < 1 {
		errs = append(errs, fmt.Errorf("review scale must be at least 1, got %d", c.Review.Scale))
	}

	return errors.Join(errs...)
}

// Key returns the first byte of a configured key binding, or 0 when unset.
func Key(s string) int {
	if s == "" {
		return 0
	}
	return int(s[0])
}
