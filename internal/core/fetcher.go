/*
Package core drives the ingestion pipeline: index discovery, chunked
concurrent downloads with partial-failure tolerance, dataset
combination, and reshaping into long-format records.

The concurrency model is a single coordinator walking the discovered
links in chunks of the configured size. All downloads inside a chunk
run concurrently; the chunk settles completely before its results are
folded in, so output composition never depends on goroutine timing.
A failed download drops that one file from the batch and nothing else.
*/
package core

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
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mio-tools/miofetch/internal/client"
	"github.com/mio-tools/miofetch/internal/config"
	"github.com/mio-tools/miofetch/internal/metrics"
	"github.com/mio-tools/miofetch/internal/miolib"
)

// ProgressFunc receives pipeline progress: a percent in [0,100] that
// never decreases within one run, and a human-readable message.
// Callbacks run synchronously on the coordinator goroutine.
type ProgressFunc func(percent int, message string)

// Stats is a point-in-time snapshot of a Fetcher's counters.
type Stats struct {
	RequestsTotal   int64
	RequestFailures int64
	DownloadTime    time.Duration
	LastFetch       time.Time
}

// Fetcher runs the pipeline against one monitor-io device. It is safe
// for concurrent use; each Fetch* call is an independent run.
type Fetcher struct {
	cfg     *config.Config
	lg      *zap.Logger
	httpc   *http.Client
	limiter *rate.Limiter

	requestsTotal   atomic.Int64
	requestFailures atomic.Int64
	downloadNanos   atomic.Int64
	lastFetchUnix   atomic.Int64
}

// New builds a Fetcher, configuring the shared HTTP client with the
// per-request timeout from cfg.
func New(cfg *config.Config, lg *zap.Logger) *Fetcher {
	client.Init(&client.Config{RequestTimeout: cfg.RequestTimeout})

	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Fetcher{
		cfg:     cfg,
		lg:      lg,
		httpc:   client.Get(),
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
	}
}

// FetchCombined downloads every discoverable export file and combines
// them into one wide dataset with standardized timestamps. A failed
// index fetch is fatal; per-file failures are logged and absorbed.
// Zero links, or zero successful downloads, yields an empty dataset
// and a nil error.
func (f *Fetcher) FetchCombined(ctx context.Context, progress ProgressFunc) (*miolib.Dataset, error) {
	start := time.Now()
	defer func() {
		f.downloadNanos.Add(int64(time.Since(start)))
		f.lastFetchUnix.Store(time.Now().Unix())
	}()

	links, err := f.Links(ctx)
	if err != nil {
		return nil, err
	}
	report(progress, ProgressLinksDiscovered,
		fmt.Sprintf("Found %d files to download", len(links)))
	f.lg.Info("discovered export files", zap.Int("count", len(links)))

	if len(links) == 0 {
		return &miolib.Dataset{}, nil
	}

	files, err := f.downloadAll(ctx, links, progress)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		f.lg.Warn("no files downloaded successfully", zap.Int("attempted", len(links)))
		return &miolib.Dataset{}, nil
	}

	report(progress, ProgressCombining, "Combining data files")
	ds, err := Combine(files)
	if err != nil {
		return nil, err
	}
	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().RowsCombined.Add(float64(len(ds.Rows)))
	}

	report(progress, ProgressStandardizing, "Standardizing timestamps")
	if col := StandardizeTimestamps(ds, f.lg); col != "" {
		f.lg.Debug("standardized timestamps", zap.String("column", col))
	}

	f.lg.Info("combined dataset ready",
		zap.Int("files", len(files)),
		zap.Int("rows", len(ds.Rows)),
		zap.Int("columns", len(ds.Columns)))
	return ds, nil
}

// downloadAll walks links in chunks of the configured concurrency.
// Results fold in link order after each chunk settles; failures leave
// gaps that are skipped.
func (f *Fetcher) downloadAll(ctx context.Context, links []string, progress ProgressFunc) ([]*miolib.FileData, error) {
	chunkSize := f.cfg.Concurrency
	files := make([]*miolib.FileData, 0, len(links))

	for offset := 0; offset < len(links); offset += chunkSize {
		end := offset + chunkSize
		if end > len(links) {
			end = len(links)
		}
		chunk := links[offset:end]

		percent := ProgressLinksDiscovered + offset*ProgressDownloadSpan/len(links)
		report(progress, percent,
			fmt.Sprintf("Downloading files %d-%d of %d", offset+1, end, len(links)))

		results := make([]*miolib.FileData, len(chunk))
		if metrics.IsMetricsEnabled() {
			metrics.GetMetrics().ChunksActive.Set(1)
		}

		var wg sync.WaitGroup
		for i, link := range chunk {
			wg.Add(1)
			go func(i int, link string) {
				defer wg.Done()
				results[i] = f.downloadOne(ctx, link)
			}(i, link)
		}
		wg.Wait()

		if metrics.IsMetricsEnabled() {
			metrics.GetMetrics().ChunksActive.Set(0)
		}
		for _, fd := range results {
			if fd != nil {
				files = append(files, fd)
			}
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if end < len(links) {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(InterChunkDelay):
			}
		}
	}
	return files, nil
}

// downloadOne fetches and parses a single file. All failures are
// absorbed here: log, count, return nil.
func (f *Fetcher) downloadOne(ctx context.Context, link string) *miolib.FileData {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil
	}
	f.requestsTotal.Add(1)
	f.observeRequest("download")

	start := time.Now()
	fd, err := miolib.DownloadFile(ctx, f.httpc, link, f.lg)
	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().RequestDuration.
			WithLabelValues("download").Observe(time.Since(start).Seconds())
	}
	if err != nil {
		f.requestFailures.Add(1)
		f.observeRequestError("download", err)
		if metrics.IsMetricsEnabled() {
			metrics.GetMetrics().FilesFailed.WithLabelValues(errorType(err)).Inc()
		}
		f.lg.Warn("skipping file after failed download",
			zap.String("url", link),
			zap.Error(err))
		return nil
	}
	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().FilesFetched.Inc()
	}
	return fd
}

// Links fetches the index page and returns the validated export file
// URLs in discovery order.
func (f *Fetcher) Links(ctx context.Context) ([]string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	f.requestsTotal.Add(1)
	f.observeRequest("index")

	body, err := miolib.FetchIndex(ctx, f.httpc, f.cfg.BaseURL)
	if err != nil {
		f.requestFailures.Add(1)
		f.observeRequestError("index", err)
		return nil, err
	}
	links, err := miolib.ExtractLinks(body, f.cfg.BaseURL, f.cfg.IsExcluded, f.lg)
	if err != nil {
		f.observeRequestError("index", err)
		return nil, err
	}
	return links, nil
}

// FetchMeasurements runs the full pipeline and returns long-format
// measurement records.
func (f *Fetcher) FetchMeasurements(ctx context.Context, progress ProgressFunc) ([]miolib.MeasurementRecord, error) {
	ds, err := f.FetchCombined(ctx, progress)
	if err != nil {
		return nil, err
	}
	if ds.Empty() {
		report(progress, ProgressComplete, "No data available")
		return []miolib.MeasurementRecord{}, nil
	}

	ComposeDatetimes(ds)
	targets := miolib.DiscoverTargets(ds.Columns)

	report(progress, ProgressRestructuring, "Restructuring data")
	records := Reshape(ds, targets)
	report(progress, ProgressFiltering, "Filtering invalid entries")
	report(progress, ProgressComplete, "Fetch complete")

	f.lg.Info("measurement records ready",
		zap.Int("targets", len(targets)),
		zap.Int("records", len(records)))
	return records, nil
}

// FetchDNSFailures runs the full pipeline and returns DNS resolution
// failure events.
func (f *Fetcher) FetchDNSFailures(ctx context.Context, progress ProgressFunc) ([]miolib.DNSFailureRecord, error) {
	ds, err := f.FetchCombined(ctx, progress)
	if err != nil {
		return nil, err
	}
	if ds.Empty() {
		report(progress, ProgressComplete, "No data available")
		return []miolib.DNSFailureRecord{}, nil
	}

	ComposeDatetimes(ds)
	targets := miolib.DiscoverTargets(ds.Columns)

	report(progress, ProgressRestructuring, "Extracting DNS failures")
	records := ExtractDNSFailures(ds, targets)
	report(progress, ProgressFiltering, "Filtering invalid entries")
	report(progress, ProgressComplete, "Fetch complete")

	f.lg.Info("dns failure records ready",
		zap.Int("targets", len(targets)),
		zap.Int("records", len(records)))
	return records, nil
}

// TargetSummary returns the unique (slot, identifier) pairs observed
// across the combined dataset, ordered by slot and then by first
// appearance.
func (f *Fetcher) TargetSummary(ctx context.Context) ([]miolib.TargetSummaryEntry, error) {
	ds, err := f.FetchCombined(ctx, nil)
	if err != nil {
		return nil, err
	}

	entries := []miolib.TargetSummaryEntry{}
	seen := make(map[miolib.TargetSummaryEntry]bool)
	for _, tgt := range miolib.DiscoverTargets(ds.Columns) {
		if !ds.HasColumn(tgt.TargetColumn) {
			continue
		}
		for _, row := range ds.Rows {
			value, present := row[tgt.TargetColumn]
			if !miolib.ValidTargetValue(value, present) {
				continue
			}
			entry := miolib.TargetSummaryEntry{TargetNumber: tgt.Number, Target: value}
			if seen[entry] {
				continue
			}
			seen[entry] = true
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

// Stats returns a snapshot of the fetcher's counters.
func (f *Fetcher) Stats() Stats {
	var last time.Time
	if unix := f.lastFetchUnix.Load(); unix != 0 {
		last = time.Unix(unix, 0)
	}
	return Stats{
		RequestsTotal:   f.requestsTotal.Load(),
		RequestFailures: f.requestFailures.Load(),
		DownloadTime:    time.Duration(f.downloadNanos.Load()),
		LastFetch:       last,
	}
}

func report(progress ProgressFunc, percent int, message string) {
	if progress != nil {
		progress(percent, message)
	}
}

func (f *Fetcher) observeRequest(operation string) {
	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().RequestsTotal.WithLabelValues(operation).Inc()
	}
}

func (f *Fetcher) observeRequestError(operation string, err error) {
	if metrics.IsMetricsEnabled() {
		metrics.GetMetrics().RequestErrors.
			WithLabelValues(operation, errorType(err)).Inc()
	}
}

func errorType(err error) string {
	var fe *miolib.FetchError
	var ce *miolib.ConnectionError
	switch {
	case errors.As(err, &fe) && fe.Timeout:
		return "timeout"
	case errors.As(err, &fe) && fe.Status != 0:
		return "http_status"
	case errors.As(err, &fe):
		return "fetch"
	case errors.As(err, &ce):
		return "connection"
	default:
		return "other"
	}
}
