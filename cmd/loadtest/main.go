package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"satellite-telemetry/internal/clients"
	"satellite-telemetry/internal/loadtest"
	"satellite-telemetry/internal/logger"

	"go.uber.org/zap"
)

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/telemetry", "Telemetry endpoint base URL")
		total       = flag.Int("total", 1000, "Total POST requests to send")
		concurrency = flag.Int("concurrency", 100, "Concurrent requests")
		errorRate   = flag.Float64("error-rate", 0.05, "Fraction of requests to make intentionally invalid")
		satCount    = flag.Int("sat-count", 20, "Number of distinct satelliteId values to use")
		pageSize    = flag.Int("page-size", 0, "Page size for the first-page file (1-100, default min(100, total))")
		createFile  = flag.Bool("create-file", false, "Write the first page of results to a file")
		output      = flag.String("output", "first_page_results", "File name for -create-file, without extension")
		format      = flag.String("format", "csv", "First-page file format: csv or xlsx")
		prefix      = flag.String("cleanup-prefix", "LOAD-", "satelliteId prefix for run records and pre-run cleanup")
		noCleanup   = flag.Bool("no-cleanup", false, "Skip pre-run cleanup")
		timeout     = flag.Duration("timeout", 15*time.Second, "Per-request timeout")
		logLevel    = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	log, err := logger.New(*logLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	opts := loadtest.Options{
		Total:         *total,
		Concurrency:   *concurrency,
		ErrorRate:     *errorRate,
		SatCount:      *satCount,
		PageSize:      *pageSize,
		CleanupPrefix: *prefix,
		Cleanup:       !*noCleanup,
		Format:        *format,
	}
	if *createFile {
		opts.OutputFile = *output + "." + *format
	}
	if *noCleanup {
		log.Info("Skipping pre-run cleanup")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runner := loadtest.NewRunner(clients.NewTelemetryClient(*url, *timeout), opts, log)
	report, err := runner.Run(ctx)
	if report != nil {
		log.Info("Load run finished",
			zap.String("run_id", report.RunID),
			zap.Duration("duration", report.Duration),
			zap.Int("cleaned_up", report.CleanedUp),
			zap.Int("successes", report.Successes),
			zap.Int("failures", report.Failures),
			zap.Int("invalid_sent", report.InvalidSent),
			zap.Int("invalid_accepted", report.InvalidAccepted),
			zap.Int64("api_total", report.APITotal),
			zap.Bool("count_matches", report.CountMatches),
			zap.Bool("filter_passed", report.FilterPassed),
			zap.Int("healthy_deleted", report.HealthyDeleted),
			zap.Bool("only_critical_remain", report.OnlyCriticalRemain),
			zap.Int("first_page_items", report.FirstPageItems),
		)
	}
	if err != nil {
		log.Error("Load run failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}
