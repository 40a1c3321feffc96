// Package config provides runtime configuration values for the service.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds configuration knobs for the HTTP server, the constraint store
// and the snapshot sources.
type Config struct {
	HTTPAddr        string        `yaml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	LogLevel        string        `yaml:"log_level"`

	LabelsPath       string `yaml:"labels_path"`
	ConstraintsPath  string `yaml:"constraints_path"`
	WatchConstraints bool   `yaml:"watch_constraints"`

	PriceSourceURL    string        `yaml:"price_source_url"`
	PriceTimeout      time.Duration `yaml:"price_timeout"`
	PriceConcurrency  int           `yaml:"price_concurrency"`
	PriceUserAgent    string        `yaml:"price_user_agent"`
	PriceMaxBodyBytes int64         `yaml:"price_max_body_bytes"`

	DetectorURL       string        `yaml:"detector_url"`
	DetectorThreshold float64       `yaml:"detector_threshold"`
	DetectorTimeout   time.Duration `yaml:"detector_timeout"`

	SnapshotTimeout time.Duration `yaml:"snapshot_timeout"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		HTTPAddr:          ":8080",
		ShutdownTimeout:   15 * time.Second,
		LogLevel:          "info",
		LabelsPath:        "labels.txt",
		ConstraintsPath:   "constraints.csv",
		WatchConstraints:  true,
		PriceSourceURL:    "https://www.trolley.co.uk",
		PriceTimeout:      10 * time.Second,
		PriceConcurrency:  4,
		PriceUserAgent:    "pantry-inventory/1.0",
		PriceMaxBodyBytes: 4 << 20,
		DetectorURL:       "http://127.0.0.1:8500",
		DetectorThreshold: 0.5,
		DetectorTimeout:   5 * time.Second,
		SnapshotTimeout:   30 * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func int64env(key string, def int64) int64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func floatenv(key string, def float64) float64 {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func boolenv(key string, def bool) bool {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// durenv reads key as a whole number of unit. def is returned untouched when
// the variable is unset or invalid so file durations keep sub-unit precision.
func durenv(key string, unit, def time.Duration) time.Duration {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return time.Duration(n) * unit
}

func durenvms(key string, def time.Duration) time.Duration {
	return durenv(key, time.Millisecond, def)
}

func durenvs(key string, def time.Duration) time.Duration {
	return durenv(key, time.Second, def)
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return fromEnv(Defaults())
}

// LoadFile reads a YAML file over the defaults, then applies environment
// overrides. An empty path behaves like Load.
func LoadFile(path string) (Config, error) {
	base := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &base); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	return fromEnv(base), nil
}

// LoadDotenv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotenv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

func fromEnv(base Config) Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", base.HTTPAddr),
		ShutdownTimeout:   durenvs("SHUTDOWN_TIMEOUT", base.ShutdownTimeout),
		LogLevel:          getenv("LOG_LEVEL", base.LogLevel),
		LabelsPath:        getenv("LABELS_PATH", base.LabelsPath),
		ConstraintsPath:   getenv("CONSTRAINTS_PATH", base.ConstraintsPath),
		WatchConstraints:  boolenv("WATCH_CONSTRAINTS", base.WatchConstraints),
		PriceSourceURL:    getenv("PRICE_SOURCE_URL", base.PriceSourceURL),
		PriceTimeout:      durenvms("PRICE_TIMEOUT_MS", base.PriceTimeout),
		PriceConcurrency:  atoienv("PRICE_CONCURRENCY", base.PriceConcurrency),
		PriceUserAgent:    getenv("PRICE_USER_AGENT", base.PriceUserAgent),
		PriceMaxBodyBytes: int64env("PRICE_MAX_BODY_BYTES", base.PriceMaxBodyBytes),
		DetectorURL:       getenv("DETECTOR_URL", base.DetectorURL),
		DetectorThreshold: floatenv("DETECTOR_THRESHOLD", base.DetectorThreshold),
		DetectorTimeout:   durenvms("DETECTOR_TIMEOUT_MS", base.DetectorTimeout),
		SnapshotTimeout:   durenvs("SNAPSHOT_TIMEOUT", base.SnapshotTimeout),
	}
}
