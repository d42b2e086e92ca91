package config

import (
	"errors"
	"testing"
	"time"

	"github.com/mio-tools/miofetch/internal/miolib"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("RequestTimeout = %v, want 10s", cfg.RequestTimeout)
	}
	if cfg.Concurrency != DefaultConcurrency {
		t.Errorf("Concurrency = %d, want %d", cfg.Concurrency, DefaultConcurrency)
	}
	if len(cfg.ExcludedFiles) != 2 {
		t.Errorf("ExcludedFiles = %v, want two defaults", cfg.ExcludedFiles)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MONITOR_IO_URL", "http://10.0.0.9")
	t.Setenv("REQUEST_TIMEOUT", "3")
	t.Setenv("CONCURRENT_DOWNLOADS", "2")
	t.Setenv("EXCLUDED_FILES", "a.csv, b.csv ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.BaseURL != "http://10.0.0.9/" {
		t.Errorf("BaseURL = %q, want trailing slash added", cfg.BaseURL)
	}
	if cfg.RequestTimeout != 3*time.Second {
		t.Errorf("RequestTimeout = %v, want 3s", cfg.RequestTimeout)
	}
	if len(cfg.ExcludedFiles) != 2 || cfg.ExcludedFiles[0] != "a.csv" || cfg.ExcludedFiles[1] != "b.csv" {
		t.Errorf("ExcludedFiles = %v, want [a.csv b.csv]", cfg.ExcludedFiles)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  Config
	}{
		{"empty URL", Config{BaseURL: "", RequestTimeout: time.Second, Concurrency: 1, RequestsPerSecond: 1}},
		{"no scheme", Config{BaseURL: "192.168.0.246/", RequestTimeout: time.Second, Concurrency: 1, RequestsPerSecond: 1}},
		{"zero timeout", Config{BaseURL: "http://h/", Concurrency: 1, RequestsPerSecond: 1}},
		{"zero concurrency", Config{BaseURL: "http://h/", RequestTimeout: time.Second, RequestsPerSecond: 1}},
		{"zero rate", Config{BaseURL: "http://h/", RequestTimeout: time.Second, Concurrency: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() accepted invalid config %+v", tc.cfg)
			}
			var ve *miolib.ValidationError
			if !errors.As(err, &ve) {
				t.Errorf("Validate() = %T, want *miolib.ValidationError", err)
			}
		})
	}
}

func TestIsExcluded(t *testing.T) {
	t.Parallel()
	cfg := Config{ExcludedFiles: []string{"skip.csv"}}
	if !cfg.IsExcluded("skip.csv") {
		t.Error("expected skip.csv to be excluded")
	}
	if cfg.IsExcluded("keep.csv") {
		t.Error("did not expect keep.csv to be excluded")
	}
}
