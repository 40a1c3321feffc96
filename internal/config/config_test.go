package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var knobs = []string{
	"HTTP_ADDR", "SHUTDOWN_TIMEOUT", "LOG_LEVEL", "LABELS_PATH", "CONSTRAINTS_PATH",
	"WATCH_CONSTRAINTS", "PRICE_SOURCE_URL", "PRICE_TIMEOUT_MS", "PRICE_CONCURRENCY",
	"PRICE_USER_AGENT", "PRICE_MAX_BODY_BYTES", "DETECTOR_URL", "DETECTOR_THRESHOLD",
	"DETECTOR_TIMEOUT_MS", "SNAPSHOT_TIMEOUT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range knobs {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	c := Load()
	if c.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr default")
	}
	if c.ShutdownTimeout != 15*time.Second {
		t.Fatalf("ShutdownTimeout default")
	}
	if c.ConstraintsPath != "constraints.csv" || c.LabelsPath != "labels.txt" {
		t.Fatalf("paths default")
	}
	if c.PriceTimeout != 10*time.Second || c.PriceConcurrency != 4 {
		t.Fatalf("price defaults")
	}
	if c.DetectorThreshold != 0.5 || c.DetectorTimeout != 5*time.Second {
		t.Fatalf("detector defaults")
	}
	if !c.WatchConstraints {
		t.Fatalf("watch default")
	}
	if c.SnapshotTimeout != 30*time.Second {
		t.Fatalf("snapshot timeout default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "2")
	t.Setenv("CONSTRAINTS_PATH", "/data/c.csv")
	t.Setenv("WATCH_CONSTRAINTS", "false")
	t.Setenv("PRICE_TIMEOUT_MS", "250")
	t.Setenv("PRICE_CONCURRENCY", "8")
	t.Setenv("PRICE_MAX_BODY_BYTES", "1024")
	t.Setenv("DETECTOR_THRESHOLD", "0.75")
	t.Setenv("SNAPSHOT_TIMEOUT", "3")
	c := Load()
	if c.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr env")
	}
	if c.ShutdownTimeout != 2*time.Second {
		t.Fatalf("ShutdownTimeout env")
	}
	if c.ConstraintsPath != "/data/c.csv" || c.WatchConstraints {
		t.Fatalf("store env")
	}
	if c.PriceTimeout != 250*time.Millisecond || c.PriceConcurrency != 8 || c.PriceMaxBodyBytes != 1024 {
		t.Fatalf("price env")
	}
	if c.DetectorThreshold != 0.75 {
		t.Fatalf("threshold env")
	}
	if c.SnapshotTimeout != 3*time.Second {
		t.Fatalf("snapshot timeout env")
	}
}

func TestLoadIgnoresBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("PRICE_CONCURRENCY", "lots")
	t.Setenv("DETECTOR_THRESHOLD", "high")
	t.Setenv("WATCH_CONSTRAINTS", "maybe")
	c := Load()
	if c.PriceConcurrency != 4 || c.DetectorThreshold != 0.5 || !c.WatchConstraints {
		t.Fatalf("bad values should fall back to defaults: %+v", c)
	}
}

func TestLoadFileLayering(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pantry.yaml")
	body := "http_addr: \":7070\"\nprice_timeout: 2s\nlabels_path: /models/labels.txt\nwatch_constraints: false\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("HTTP_ADDR", ":6060")

	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.HTTPAddr != ":6060" {
		t.Fatalf("env should win over file, got %q", c.HTTPAddr)
	}
	if c.PriceTimeout != 2*time.Second {
		t.Fatalf("file duration, got %v", c.PriceTimeout)
	}
	if c.LabelsPath != "/models/labels.txt" || c.WatchConstraints {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.PriceConcurrency != 4 {
		t.Fatalf("defaults should fill gaps")
	}
}

func TestLoadFileKeepsSubUnitDurations(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pantry.yaml")
	body := "snapshot_timeout: 500ms\nshutdown_timeout: 2500ms\nprice_timeout: 1500us\ndetector_timeout: 750ms\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.SnapshotTimeout != 500*time.Millisecond {
		t.Fatalf("snapshot_timeout: got %v", c.SnapshotTimeout)
	}
	if c.ShutdownTimeout != 2500*time.Millisecond {
		t.Fatalf("shutdown_timeout: got %v", c.ShutdownTimeout)
	}
	if c.PriceTimeout != 1500*time.Microsecond {
		t.Fatalf("price_timeout: got %v", c.PriceTimeout)
	}
	if c.DetectorTimeout != 750*time.Millisecond {
		t.Fatalf("detector_timeout: got %v", c.DetectorTimeout)
	}

	t.Setenv("SNAPSHOT_TIMEOUT", "4")
	t.Setenv("PRICE_TIMEOUT_MS", "bogus")
	c, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if c.SnapshotTimeout != 4*time.Second {
		t.Fatalf("env should override file duration, got %v", c.SnapshotTimeout)
	}
	if c.PriceTimeout != 1500*time.Microsecond {
		t.Fatalf("invalid env should keep file duration, got %v", c.PriceTimeout)
	}
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("http_addr: [unterminated\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
	c, err := LoadFile("")
	if err != nil || c.HTTPAddr != ":8080" {
		t.Fatalf("empty path should load defaults: %v", err)
	}
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("PRICE_USER_AGENT=dotenv-agent\nHTTP_ADDR=:1111\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("HTTP_ADDR", ":2222")
	t.Setenv("PRICE_USER_AGENT", "")
	os.Unsetenv("PRICE_USER_AGENT")

	if err := LoadDotenv(filepath.Join(dir, "absent.env"), path); err != nil {
		t.Fatalf("LoadDotenv: %v", err)
	}
	c := Load()
	if c.PriceUserAgent != "dotenv-agent" {
		t.Fatalf("dotenv value not loaded: %q", c.PriceUserAgent)
	}
	if c.HTTPAddr != ":2222" {
		t.Fatalf("dotenv must not override existing env")
	}
}
