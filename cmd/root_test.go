package cmd

import (
	"strings"
	"testing"

	"github.com/kozaktomas/facelog/internal/config"
)

func resetDatabaseFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		dbDriver, dbPath, dbTable = "", "", ""
	})
}

func TestLoadConfig_DatabaseFlags(t *testing.T) {
	resetDatabaseFlags(t)
	t.Setenv("FACELOG_DB_PATH", "env.db")

	dbPath = "flag.db"
	dbTable = "faces_2024"

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig() error: %v", err)
	}
	if cfg.Database.Path != "flag.db" {
		t.Errorf("flag must win over env, got %s", cfg.Database.Path)
	}
	if cfg.Database.Table != "faces_2024" {
		t.Errorf("expected table faces_2024, got %s", cfg.Database.Table)
	}
	if got := describeStore(cfg); got != "flag.db (table faces_2024)" {
		t.Errorf("unexpected description %q", got)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	resetDatabaseFlags(t)
	dbDriver = config.DriverPostgres
	t.Setenv("DATABASE_URL", "")

	_, err := loadConfig()
	if err == nil {
		t.Fatal("expected error for postgres without URL")
	}
	if !strings.Contains(err.Error(), "invalid configuration") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestLoadCaptureConfig_Flags(t *testing.T) {
	resetDatabaseFlags(t)
	t.Cleanup(func() {
		captureCmd.Flags().Set("device", "")
		captureCmd.Flags().Set("frame-skip", "0")
		captureCmd.Flags().Set("threshold", "-1")
		captureCmd.Flags().Set("detector", "")
	})

	captureCmd.Flags().Set("device", "clip.mp4")
	captureCmd.Flags().Set("frame-skip", "3")
	captureCmd.Flags().Set("threshold", "0")
	captureCmd.Flags().Set("detector", "http")

	cfg, err := loadCaptureConfig(captureCmd)
	if err != nil {
		t.Fatalf("loadCaptureConfig() error: %v", err)
	}
	if cfg.Capture.Device != "clip.mp4" || cfg.Capture.FrameSkip != 3 {
		t.Errorf("unexpected capture config %+v", cfg.Capture)
	}
	if cfg.Capture.Threshold != 0 {
		t.Errorf("a zero threshold is a valid override, got %v", cfg.Capture.Threshold)
	}
	if cfg.Detector.Backend != config.BackendHTTP {
		t.Errorf("expected http detector, got %s", cfg.Detector.Backend)
	}
}

func TestLoadCaptureConfig_Defaults(t *testing.T) {
	resetDatabaseFlags(t)

	cfg, err := loadCaptureConfig(captureCmd)
	if err != nil {
		t.Fatalf("loadCaptureConfig() error: %v", err)
	}
	if cfg.Capture.FrameSkip != 5 || cfg.Capture.Threshold != 0.6 {
		t.Errorf("unexpected defaults %+v", cfg.Capture)
	}
}
