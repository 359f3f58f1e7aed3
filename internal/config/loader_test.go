package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpattn/sheetpattern/internal/recorder"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":8080" || cfg.Redis.Addr != "" || cfg.Log.Level != "info" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.Recorder.Window != recorder.DefaultWindow || cfg.Recorder.HeaderRowIndex != 0 {
		t.Fatalf("unexpected recorder defaults %+v", cfg.Recorder)
	}
	if cfg.Database.DBName != "sheet_patterns" || cfg.Database.Port != 5432 {
		t.Fatalf("unexpected database defaults %+v", cfg.Database)
	}
	if cfg.Redis.TTL != 24*time.Hour {
		t.Fatalf("unexpected redis ttl %s", cfg.Redis.TTL)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  addr: ":9090"
  allowed_origins: ["https://sheets.example"]
database:
  host: db.internal
  port: 6543
redis:
  addr: "localhost:6379"
  ttl: 2h
recorder:
  header_row_index: 2
  window: 750ms
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHEETPATTERN_DATABASE_HOST", "db.override")
	t.Setenv("SHEETPATTERN_LOG_LEVEL", "debug")

	cfg, err := Load(dir, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected file addr, got %q", cfg.Server.Addr)
	}
	if diff := cmp.Diff([]string{"https://sheets.example"}, cfg.Server.AllowedOrigins); diff != "" {
		t.Fatalf("allowed origins differ (-want +got):\n%s", diff)
	}
	if cfg.Database.Host != "db.override" || cfg.Database.Port != 6543 {
		t.Fatalf("expected env to win over file: %+v", cfg.Database)
	}
	if cfg.Redis.TTL != 2*time.Hour || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis config %+v", cfg.Redis)
	}
	settings := cfg.RecorderSettings()
	if settings.HeaderRowIndex != 2 || settings.Window != 750*time.Millisecond {
		t.Fatalf("unexpected recorder settings %+v", settings)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected env log level, got %q", cfg.Log.Level)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SHEETPATTERN_RECORDER_WINDOW", "-1s")
	if _, err := Load(t.TempDir(), nil); !errors.Is(err, recorder.ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(dir, nil); err == nil {
		t.Fatalf("expected parse error")
	}
}
