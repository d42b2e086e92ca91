/*
Package config loads the pipeline settings from the environment.

The monitor-io ingest pipeline is configured the same way the device
dashboards deploy it: plain environment variables, optionally seeded
from a .env file next to the binary. Viper provides the defaulting and
type coercion; godotenv only populates os.Environ before viper reads it.
*/
package config

/*
miofetch — ingestion pipeline for monitor-io network monitor CSV exports
Copyright (C) 2026  miofetch authors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mio-tools/miofetch/internal/miolib"
)

// Defaults applied when the environment leaves a setting unset.
const (
	DefaultBaseURL           = "http://192.168.0.246/"
	DefaultRequestTimeout    = 10
	DefaultConcurrency       = 5
	DefaultRequestsPerSecond = 10
	DefaultLogLevel          = "info"
	DefaultMetricsAddr       = ":9090"
	DefaultExcludedFiles     = "Latest_NetMonitor_Results.log,NetMonitor_Event_Summary.csv"
)

// Config holds every setting the pipeline consumes. All fields are
// plain values; the pipeline never mutates a Config after Load.
type Config struct {
	// BaseURL is the root URL of the monitor-io device, always
	// normalized to end with a slash.
	BaseURL string

	// RequestTimeout bounds each individual HTTP request.
	RequestTimeout time.Duration

	// Concurrency is the chunk size K for batched downloads: at most
	// K files are in flight at once.
	Concurrency int

	// RequestsPerSecond caps the aggregate request rate against the
	// device. Embedded web servers fall over easily.
	RequestsPerSecond float64

	// ExcludedFiles lists file names on the index page that are never
	// downloaded (event summaries, rolling logs).
	ExcludedFiles []string

	LogLevel    string
	MetricsAddr string
}

// Load reads settings from the environment, seeding it from an
// optional .env file first, and validates the result.
func Load() (*Config, error) {
	// Missing .env is the normal case; only explicit settings matter.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("MONITOR_IO_URL", DefaultBaseURL)
	v.SetDefault("REQUEST_TIMEOUT", DefaultRequestTimeout)
	v.SetDefault("CONCURRENT_DOWNLOADS", DefaultConcurrency)
	v.SetDefault("REQUESTS_PER_SECOND", DefaultRequestsPerSecond)
	v.SetDefault("EXCLUDED_FILES", DefaultExcludedFiles)
	v.SetDefault("LOG_LEVEL", DefaultLogLevel)
	v.SetDefault("METRICS_ADDR", DefaultMetricsAddr)

	cfg := &Config{
		BaseURL:           v.GetString("MONITOR_IO_URL"),
		RequestTimeout:    time.Duration(v.GetInt("REQUEST_TIMEOUT")) * time.Second,
		Concurrency:       v.GetInt("CONCURRENT_DOWNLOADS"),
		RequestsPerSecond: v.GetFloat64("REQUESTS_PER_SECOND"),
		ExcludedFiles:     splitFileList(v.GetString("EXCLUDED_FILES")),
		LogLevel:          v.GetString("LOG_LEVEL"),
		MetricsAddr:       v.GetString("METRICS_ADDR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and normalizes the base URL. It is
// called by Load but is also usable after flag overrides. All
// rejections are *miolib.ValidationError so callers can distinguish
// bad settings from network failures.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return &miolib.ValidationError{Msg: "base URL cannot be empty"}
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &miolib.ValidationError{Msg: fmt.Sprintf("invalid base URL format: %s", c.BaseURL)}
	}
	if !strings.HasSuffix(c.BaseURL, "/") {
		c.BaseURL += "/"
	}
	if c.RequestTimeout <= 0 {
		return &miolib.ValidationError{Msg: "REQUEST_TIMEOUT must be positive"}
	}
	if c.Concurrency <= 0 {
		return &miolib.ValidationError{Msg: "CONCURRENT_DOWNLOADS must be positive"}
	}
	if c.RequestsPerSecond <= 0 {
		return &miolib.ValidationError{Msg: "REQUESTS_PER_SECOND must be positive"}
	}
	return nil
}

// IsExcluded reports whether a file name is on the exclusion list.
func (c *Config) IsExcluded(fileName string) bool {
	for _, name := range c.ExcludedFiles {
		if name == fileName {
			return true
		}
	}
	return false
}

func splitFileList(raw string) []string {
	var files []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			files = append(files, trimmed)
		}
	}
	return files
}
