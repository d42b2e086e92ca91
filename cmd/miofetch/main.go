/*
Package main is the entry point for the miofetch command-line application.

miofetch pulls measurement history off a monitor-io network monitor's
embedded web server and turns it into analysis-ready records:
  - Listing the CSV export files the device currently publishes.
  - Downloading every export, combining them, and emitting long-format
    ping measurement records as JSON or CSV.
  - Extracting DNS resolution failure events.
  - Summarizing the monitored targets seen across all exports.

Configuration comes from the environment (optionally a .env file) and
can be overridden per invocation with flags. Graceful shutdown is
handled via context cancellation on SIGINT/SIGTERM.
*/
package main

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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mio-tools/miofetch/internal/config"
	"github.com/mio-tools/miofetch/internal/core"
	"github.com/mio-tools/miofetch/internal/logging"
	"github.com/mio-tools/miofetch/internal/metrics"
	"github.com/mio-tools/miofetch/internal/miolib"
	"github.com/mio-tools/miofetch/internal/util"
)

// Persistent flags (available for all commands)
var (
	flagBaseURL     string
	flagTimeout     int
	flagConcurrency int
	flagMetrics     bool
	flagMetricsAddr string
	flagDebug       bool
)

// Flags shared by the record-producing commands
var (
	flagFormat string
	flagOutput string
)

var (
	cfg *config.Config
	lg  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "miofetch",
	Short: "miofetch - pull and reshape CSV exports from a monitor-io network monitor",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("base-url") {
			loaded.BaseURL = flagBaseURL
		}
		if cmd.Flags().Changed("timeout") {
			loaded.RequestTimeout = time.Duration(flagTimeout) * time.Second
		}
		if cmd.Flags().Changed("concurrency") {
			loaded.Concurrency = flagConcurrency
		}
		if cmd.Flags().Changed("metrics-addr") {
			loaded.MetricsAddr = flagMetricsAddr
		}
		if flagDebug {
			loaded.LogLevel = "debug"
		}
		if err := loaded.Validate(); err != nil {
			return err
		}
		cfg = loaded
		lg = logging.New(cfg.LogLevel)

		if err := core.RaiseFileLimit(); err != nil {
			lg.Warn("could not raise file descriptor limit", zap.Error(err))
		}

		if flagMetrics {
			metrics.EnableMetrics()
			if err := metrics.StartMetricsServer(cfg.MetricsAddr); err != nil {
				lg.Warn("failed to start metrics server", zap.Error(err))
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if flagMetrics {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metrics.ShutdownMetricsServer(ctx)
		}
		if lg != nil {
			_ = lg.Sync()
		}
	},
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "List the CSV export files currently published by the device",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listLinks(cmd.Context())
	},
}

var measurementsCmd = &cobra.Command{
	Use:   "measurements",
	Short: "Download all exports and emit long-format measurement records",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMeasurements(cmd.Context())
	},
}

var dnsFailuresCmd = &cobra.Command{
	Use:   "dnsfailures",
	Short: "Download all exports and emit DNS resolution failure events",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDNSFailures(cmd.Context())
	},
}

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "Summarize the monitored targets seen across all exports",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTargets(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Base URL of the monitor-io device (overrides MONITOR_IO_URL)")
	rootCmd.PersistentFlags().IntVar(&flagTimeout, "timeout", config.DefaultRequestTimeout, "Per-request timeout in seconds")
	rootCmd.PersistentFlags().IntVarP(&flagConcurrency, "concurrency", "c", config.DefaultConcurrency, "Concurrent downloads per chunk")
	rootCmd.PersistentFlags().BoolVar(&flagMetrics, "metrics", false, "Expose Prometheus metrics while running")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", config.DefaultMetricsAddr, "Listen address for the metrics endpoint")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	for _, cmd := range []*cobra.Command{measurementsCmd, dnsFailuresCmd} {
		cmd.Flags().StringVarP(&flagFormat, "format", "f", "json", "Output format: json or csv")
		cmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file (default stdout)")
	}

	rootCmd.AddCommand(linksCmd)
	rootCmd.AddCommand(measurementsCmd)
	rootCmd.AddCommand(dnsFailuresCmd)
	rootCmd.AddCommand(targetsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// reportProgress writes pipeline progress to stderr so record output
// on stdout stays machine-readable.
func reportProgress(percent int, message string) {
	fmt.Fprintf(os.Stderr, "[%3d%%] %s\n", percent, message)
}

func listLinks(ctx context.Context) error {
	fetcher := core.New(cfg, lg)
	links, err := fetcher.Links(ctx)
	if err != nil {
		return err
	}
	for _, link := range links {
		fmt.Println(link)
	}
	lg.Info("listed export files", zap.Int("count", len(links)))
	return nil
}

func runMeasurements(ctx context.Context) error {
	fetcher := core.New(cfg, lg)
	records, err := fetcher.FetchMeasurements(ctx, reportProgress)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	switch flagFormat {
	case "json":
		return writeJSON(out, records)
	case "csv":
		return writeMeasurementsCSV(out, records)
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", flagFormat)
	}
}

func runDNSFailures(ctx context.Context) error {
	fetcher := core.New(cfg, lg)
	records, err := fetcher.FetchDNSFailures(ctx, reportProgress)
	if err != nil {
		return err
	}

	out, closeOut, err := openOutput()
	if err != nil {
		return err
	}
	defer closeOut()

	switch flagFormat {
	case "json":
		return writeJSON(out, records)
	case "csv":
		return writeDNSFailuresCSV(out, records)
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", flagFormat)
	}
}

func runTargets(ctx context.Context) error {
	fetcher := core.New(cfg, lg)
	entries, err := fetcher.TargetSummary(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SLOT\tTARGET")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%s\n", e.TargetNumber, e.Target)
	}
	return w.Flush()
}

func openOutput() (io.Writer, func(), error) {
	if flagOutput == "" {
		return os.Stdout, func() {}, nil
	}
	// Output names are often templated from target hostnames; keep the
	// directory part intact and sanitize only the file name.
	dir, base := filepath.Split(flagOutput)
	path := filepath.Join(dir, util.SanitizeFilename(base))
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeMeasurementsCSV(w io.Writer, records []miolib.MeasurementRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"datetime", "date", "time", "timezone", "ip_address", "source_file",
		"target_number", "target",
		"transmit", "receive", "loss_pct", "delay_min", "delay_avg", "delay_max",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			formatTime(r.Datetime), r.Date, r.Time, r.Timezone, r.IPAddress, r.SourceFile,
			strconv.Itoa(r.TargetNumber), r.Target,
			formatFloat(r.Transmit), formatFloat(r.Receive), formatFloat(r.LossPct),
			formatFloat(r.DelayMin), formatFloat(r.DelayAvg), formatFloat(r.DelayMax),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeDNSFailuresCSV(w io.Writer, records []miolib.DNSFailureRecord) error {
	cw := csv.NewWriter(w)
	header := []string{
		"datetime", "date", "time", "timezone", "ip_address", "source_file",
		"target_number", "target", "failure_type",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			formatTime(r.Datetime), r.Date, r.Time, r.Timezone, r.IPAddress, r.SourceFile,
			strconv.Itoa(r.TargetNumber), r.Target, r.FailureType,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatFloat(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}
