package metrics

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
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry           = prometheus.NewRegistry()
	defaultRegisterer  = promauto.With(registry)
	metricsInitialized sync.Once
	metricsEnabled     bool
	metricsServer      *http.Server
)

// Metrics contains all the Prometheus metrics for the pipeline.
type Metrics struct {
	// Device request metrics
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec
	RequestErrors   *prometheus.CounterVec

	// Batch download metrics
	FilesFetched  prometheus.Counter
	FilesFailed   *prometheus.CounterVec
	ChunksActive  prometheus.Gauge
	RowsCombined  prometheus.Counter

	// Record output metrics
	RecordsProduced *prometheus.CounterVec
	RecordsDropped  *prometheus.CounterVec
}

// Global instance of metrics
var globalMetrics *Metrics
var metricsOnce sync.Once

// GetMetrics returns the global metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = newMetrics()
	})
	return globalMetrics
}

// EnableMetrics enables metrics collection.
func EnableMetrics() {
	metricsEnabled = true
}

// IsMetricsEnabled returns whether metrics collection is enabled.
func IsMetricsEnabled() bool {
	return metricsEnabled
}

// newMetrics creates and registers all metrics.
func newMetrics() *Metrics {
	buckets := []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

	return &Metrics{
		RequestDuration: defaultRegisterer.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "miofetch_request_duration_seconds",
				Help:    "Time spent on HTTP requests to the monitor-io device",
				Buckets: buckets,
			},
			[]string{"operation"},
		),
		RequestsTotal: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miofetch_requests_total",
				Help: "Total HTTP requests issued to the device",
			},
			[]string{"operation"},
		),
		RequestErrors: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miofetch_request_errors_total",
				Help: "Failed HTTP requests by error kind",
			},
			[]string{"operation", "error_type"},
		),
		FilesFetched: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "miofetch_files_fetched_total",
				Help: "CSV export files downloaded and parsed successfully",
			},
		),
		FilesFailed: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miofetch_files_failed_total",
				Help: "CSV export files dropped from the batch by failure kind",
			},
			[]string{"error_type"},
		),
		ChunksActive: defaultRegisterer.NewGauge(
			prometheus.GaugeOpts{
				Name: "miofetch_download_chunks_active",
				Help: "Whether a download chunk is currently in flight",
			},
		),
		RowsCombined: defaultRegisterer.NewCounter(
			prometheus.CounterOpts{
				Name: "miofetch_rows_combined_total",
				Help: "Raw rows folded into combined datasets",
			},
		),
		RecordsProduced: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miofetch_records_produced_total",
				Help: "Long-format records emitted by kind (measurement, dns_failure)",
			},
			[]string{"kind"},
		),
		RecordsDropped: defaultRegisterer.NewCounterVec(
			prometheus.CounterOpts{
				Name: "miofetch_records_dropped_total",
				Help: "Candidate records dropped during reshaping by reason",
			},
			[]string{"reason"},
		),
	}
}

// StartMetricsServer starts an HTTP server to expose Prometheus metrics.
func StartMetricsServer(addr string) error {
	if !metricsEnabled {
		return nil
	}

	// Only start once
	metricsInitialized.Do(func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

		metricsServer = &http.Server{
			Addr:    addr,
			Handler: mux,
		}

		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("Metrics server error: %v", err)
			}
		}()
	})

	return nil
}

// ShutdownMetricsServer gracefully shuts down the metrics server.
func ShutdownMetricsServer(ctx context.Context) error {
	if metricsServer != nil {
		return metricsServer.Shutdown(ctx)
	}
	return nil
}
