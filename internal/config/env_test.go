package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "CUT_INTERVAL_MM", "EXPORT_SCALE", "PRINT_ENDPOINT", "HTTP_ADDR", "PORT", "REDIS_URL", "AWS_S3_BUCKET", "RENDER_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if cfg.Strip.IntervalMm != 0 || cfg.Strip.Scale != 2 || cfg.Strip.PreviewScale != 1 {
		t.Errorf("Strip = %+v", cfg.Strip)
	}
	if cfg.Printer.Endpoint != "http://localhost:8069/api/print" || cfg.Printer.AllowRemote {
		t.Errorf("Printer = %+v", cfg.Printer)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.MaxBodyBytes != 16<<20 {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.Browser.Timeout != 30*time.Second || cfg.Browser.ViewportWidth != 800 {
		t.Errorf("Browser = %+v", cfg.Browser)
	}
	if cfg.Storage.Enabled() {
		t.Error("storage enabled without a bucket")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CUT_INTERVAL_MM", "297")
	t.Setenv("EXPORT_SCALE", "3")
	t.Setenv("PORT", "9000")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("PRINT_ALLOW_REMOTE", "yes")
	t.Setenv("RENDER_TIMEOUT", "5s")
	t.Setenv("MAX_SEGMENTS", "not-a-number")
	t.Setenv("AWS_S3_BUCKET", "strips")
	t.Setenv("AXIOM_DATASET", "prod")

	cfg := FromEnv()
	if cfg.Strip.IntervalMm != 297 || cfg.Strip.Scale != 3 {
		t.Errorf("Strip = %+v", cfg.Strip)
	}
	if cfg.Strip.MaxSegments != 500 {
		t.Errorf("MaxSegments = %d, want fallback 500", cfg.Strip.MaxSegments)
	}
	if cfg.HTTP.Addr != ":9000" {
		t.Errorf("HTTP.Addr = %q", cfg.HTTP.Addr)
	}
	if !cfg.Printer.AllowRemote {
		t.Error("AllowRemote = false")
	}
	if cfg.Browser.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Browser.Timeout)
	}
	if !cfg.Storage.Enabled() || cfg.Storage.Bucket != "strips" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Axiom.Dataset != "prod_htmlstrip" {
		t.Errorf("Axiom.Dataset = %q", cfg.Axiom.Dataset)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("VIEWPORT_WIDTH=576\nTHERMAL_API_TOKEN=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Cleared but registered so the values godotenv sets are reverted.
	t.Setenv("VIEWPORT_WIDTH", "")
	os.Unsetenv("VIEWPORT_WIDTH")
	t.Setenv("THERMAL_API_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Browser.ViewportWidth != 576 {
		t.Errorf("ViewportWidth = %d, want 576", cfg.Browser.ViewportWidth)
	}
	if cfg.Printer.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want the environment to win", cfg.Printer.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("Load(missing) = %v, want nil", err)
	}
}

func TestParseBool(t *testing.T) {
	for in, want := range map[string]bool{"1": true, "true": true, "YES": true, " on ": true, "0": false, "": false, "nope": false} {
		if got := parseBool(in); got != want {
			t.Errorf("parseBool(%q) = %v, want %v", in, got, want)
		}
	}
}
