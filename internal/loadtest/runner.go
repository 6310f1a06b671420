// Package loadtest drives a running telemetry API with concurrent traffic and checks
// that filters, counts and deletes agree with what was sent.
package loadtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"time"

	"satellite-telemetry/internal/clients"
	"satellite-telemetry/internal/export"
	"satellite-telemetry/internal/models"
	"satellite-telemetry/internal/pagination"
	"satellite-telemetry/internal/service"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	ErrInvalidAccepted    = errors.New("intentionally invalid requests were accepted")
	ErrVerificationFailed = errors.New("verification failed")
)

type Options struct {
	Total         int
	Concurrency   int
	ErrorRate     float64
	SatCount      int
	PageSize      int // first-page dump size; 0 means min(total, 100)
	CleanupPrefix string
	Cleanup       bool
	OutputFile    string
	Format        string
	RunID         string
	Seed          uint64
}

func (o *Options) normalize() {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.SatCount < 1 {
		o.SatCount = 1
	}
	if o.CleanupPrefix == "" {
		o.CleanupPrefix = "LOAD-"
	}
	if o.RunID == "" {
		o.RunID = time.Now().UTC().Format("20060102150405")
	}
	if o.PageSize < 1 {
		o.PageSize = o.Total
	}
	o.PageSize = max(1, min(pagination.MaxSize, o.PageSize))
	if o.Format == "" {
		o.Format = export.FormatCSV
	}
	if o.Seed == 0 {
		o.Seed = uint64(time.Now().UnixNano())
	}
}

type Report struct {
	RunID      string
	Satellites []string
	Duration   time.Duration

	CleanedUp       int
	Successes       int
	Failures        int
	InvalidSent     int
	InvalidAccepted int
	InvalidRejected int

	APITotal     int64
	CountMatches bool

	FilterSatellite string
	FilterPassed    bool

	HealthyFound       int
	HealthyDeleted     int
	OnlyCriticalRemain bool

	FirstPageItems int
}

type created struct {
	id          uint
	satelliteID string
	status      models.Status
	invalid     bool
}

type Runner struct {
	client clients.TelemetryClient
	opts   Options
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRunner(client clients.TelemetryClient, opts Options, logger *zap.Logger) *Runner {
	opts.normalize()
	return &Runner{
		client: client,
		opts:   opts,
		logger: logger,
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

func (r *Runner) Satellites() []string {
	sats := make([]string, r.opts.SatCount)
	for i := range sats {
		sats[i] = fmt.Sprintf("%s%s-SAT-%03d", r.opts.CleanupPrefix, r.opts.RunID, i)
	}
	return sats
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// payload builds one create request; invalid ones break exactly one rule.
func (r *Runner) payload(satellites []string) (service.CreateTelemetryRequest, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sat := satellites[r.rng.IntN(len(satellites))]
	invalid := r.rng.Float64() < r.opts.ErrorRate
	altitude := round3(160 + r.rng.Float64()*(35786-160))
	velocity := round3(0.5 + r.rng.Float64()*7.5)
	status := string(models.StatusHealthy)
	if r.rng.Float64() < 0.2 {
		status = string(models.StatusCritical)
	}
	ts := time.Now().UTC().Format(time.RFC3339Nano)

	req := service.CreateTelemetryRequest{
		SatelliteID: &sat,
		Timestamp:   &ts,
		Altitude:    &altitude,
		Velocity:    &velocity,
		Status:      &status,
	}
	if !invalid {
		return req, false
	}

	switch r.rng.IntN(5) {
	case 0:
		negative := -velocity
		req.Velocity = &negative
	case 1:
		bad := "unknown_status"
		req.Status = &bad
	case 2:
		long := sat + "-" + strings.Repeat("X", 100)
		req.SatelliteID = &long
	case 3:
		req.Timestamp = nil
	case 4:
		zero := 0.0
		req.Altitude = &zero
	}
	return req, true
}

func (r *Runner) Run(ctx context.Context) (*Report, error) {
	satellites := r.Satellites()
	report := &Report{RunID: r.opts.RunID, Satellites: satellites}

	if r.opts.Cleanup {
		n, err := r.Cleanup(ctx, r.opts.CleanupPrefix)
		if err != nil {
			return report, fmt.Errorf("pre-run cleanup: %w", err)
		}
		report.CleanedUp = n
	}

	r.logger.Info("Load run starting",
		zap.String("run_id", r.opts.RunID),
		zap.Int("total", r.opts.Total),
		zap.Int("satellites", len(satellites)),
		zap.Float64("error_rate", r.opts.ErrorRate),
	)

	start := time.Now()
	successes, err := r.createAll(ctx, satellites, report)
	if err != nil {
		return report, err
	}
	report.Duration = time.Since(start)

	r.logger.Info("Posts finished",
		zap.Duration("duration", report.Duration),
		zap.Int("successes", report.Successes),
		zap.Int("failures", report.Failures),
		zap.Int("invalid_sent", report.InvalidSent),
		zap.Int("invalid_rejected", report.InvalidRejected),
	)
	if report.InvalidAccepted > 0 {
		return report, fmt.Errorf("%w: %d of %d", ErrInvalidAccepted, report.InvalidAccepted, report.InvalidSent)
	}

	var failed []string

	if err := r.verifyCounts(ctx, satellites, successes, report); err != nil {
		return report, err
	}
	if !report.CountMatches {
		failed = append(failed, "count")
	}

	if err := r.verifyFilter(ctx, satellites[0], successes, report); err != nil {
		return report, err
	}
	if !report.FilterPassed {
		failed = append(failed, "filter")
	}

	if err := r.deleteHealthy(ctx, satellites, report); err != nil {
		return report, err
	}
	if !report.OnlyCriticalRemain {
		failed = append(failed, "cleanup")
	}

	if r.opts.OutputFile != "" {
		n, err := r.DumpFirstPage(ctx, r.opts.OutputFile)
		if err != nil {
			return report, err
		}
		report.FirstPageItems = n
	}

	if len(failed) > 0 {
		return report, fmt.Errorf("%w: %s", ErrVerificationFailed, strings.Join(failed, ", "))
	}
	return report, nil
}

func (r *Runner) createAll(ctx context.Context, satellites []string, report *Report) ([]created, error) {
	var (
		mu        sync.Mutex
		successes []created
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i := 0; i < r.opts.Total; i++ {
		g.Go(func() error {
			req, invalid := r.payload(satellites)
			record, err := r.client.Create(gctx, req)
			if gctx.Err() != nil {
				return gctx.Err()
			}

			mu.Lock()
			defer mu.Unlock()
			if invalid {
				report.InvalidSent++
			}
			if err != nil {
				report.Failures++
				if invalid {
					report.InvalidRejected++
				} else {
					r.logger.Debug("Valid create rejected", zap.Error(err))
				}
				return nil
			}
			report.Successes++
			if invalid {
				report.InvalidAccepted++
			}
			successes = append(successes, created{
				id:          record.ID,
				satelliteID: *req.SatelliteID,
				status:      record.Status,
				invalid:     invalid,
			})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("create phase: %w", err)
	}
	return successes, nil
}

func (r *Runner) total(ctx context.Context, satelliteID string, status models.Status) (int64, error) {
	page, err := r.client.List(ctx, clients.ListParams{
		Page:        1,
		Size:        1,
		SatelliteID: satelliteID,
		Status:      string(status),
	})
	if err != nil {
		return 0, err
	}
	return page.Total, nil
}

// collect walks every page for the given filter.
func (r *Runner) collect(ctx context.Context, params clients.ListParams) ([]models.Telemetry, error) {
	if params.Size < 1 {
		params.Size = pagination.MaxSize
	}
	var items []models.Telemetry
	for page := 1; ; page++ {
		params.Page = page
		result, err := r.client.List(ctx, params)
		if err != nil {
			return nil, err
		}
		items = append(items, result.Items...)
		if len(result.Items) < params.Size {
			return items, nil
		}
	}
}

func (r *Runner) deleteIDs(ctx context.Context, ids []uint) int {
	var (
		mu      sync.Mutex
		deleted int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := r.client.Delete(gctx, id); err != nil {
				r.logger.Debug("Delete failed", zap.Uint("id", id), zap.Error(err))
				return nil
			}
			mu.Lock()
			deleted++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return deleted
}

// Cleanup removes every record whose satelliteId starts with prefix and returns how many were deleted.
func (r *Runner) Cleanup(ctx context.Context, prefix string) (int, error) {
	items, err := r.collect(ctx, clients.ListParams{})
	if err != nil {
		return 0, fmt.Errorf("failed to list records: %w", err)
	}

	var ids []uint
	for _, item := range items {
		if strings.HasPrefix(item.SatelliteID, prefix) {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) == 0 {
		r.logger.Info("No previous load records to clean up", zap.String("prefix", prefix))
		return 0, nil
	}

	deleted := r.deleteIDs(ctx, ids)
	r.logger.Info("Removed previous load records",
		zap.String("prefix", prefix),
		zap.Int("deleted", deleted),
		zap.Int("found", len(ids)),
	)
	return deleted, nil
}

func (r *Runner) verifyCounts(ctx context.Context, satellites []string, successes []created, report *Report) error {
	for _, sat := range satellites {
		n, err := r.total(ctx, sat, "")
		if err != nil {
			return fmt.Errorf("count %s: %w", sat, err)
		}
		report.APITotal += n
	}
	report.CountMatches = report.APITotal == int64(len(successes))

	if report.CountMatches {
		r.logger.Info("Count verification passed", zap.Int64("total", report.APITotal))
	} else {
		r.logger.Error("Count verification failed",
			zap.Int("post_successes", len(successes)),
			zap.Int64("api_total", report.APITotal),
		)
	}
	return nil
}

func (r *Runner) verifyFilter(ctx context.Context, sat string, successes []created, report *Report) error {
	expected := map[models.Status]int64{}
	for _, s := range successes {
		if s.satelliteID == sat {
			expected[s.status]++
		}
	}

	report.FilterSatellite = sat
	report.FilterPassed = true
	for _, status := range models.Statuses() {
		got, err := r.total(ctx, sat, status)
		if err != nil {
			return fmt.Errorf("filter %s/%s: %w", sat, status, err)
		}
		if got != expected[status] {
			report.FilterPassed = false
			r.logger.Error("Filter verification failed",
				zap.String("satellite_id", sat),
				zap.String("status", string(status)),
				zap.Int64("expected", expected[status]),
				zap.Int64("got", got),
			)
		}
	}
	return nil
}

func (r *Runner) deleteHealthy(ctx context.Context, satellites []string, report *Report) error {
	var ids []uint
	for _, sat := range satellites {
		items, err := r.collect(ctx, clients.ListParams{SatelliteID: sat, Status: string(models.StatusHealthy)})
		if err != nil {
			return fmt.Errorf("collect healthy %s: %w", sat, err)
		}
		for _, item := range items {
			ids = append(ids, item.ID)
		}
	}
	report.HealthyFound = len(ids)
	report.HealthyDeleted = r.deleteIDs(ctx, ids)
	r.logger.Info("Deleted healthy records",
		zap.Int("deleted", report.HealthyDeleted),
		zap.Int("found", report.HealthyFound),
	)

	report.OnlyCriticalRemain = true
	for _, sat := range satellites {
		items, err := r.collect(ctx, clients.ListParams{SatelliteID: sat})
		if err != nil {
			return fmt.Errorf("collect remaining %s: %w", sat, err)
		}
		for _, item := range items {
			if item.Status != models.StatusCritical {
				report.OnlyCriticalRemain = false
			}
		}
	}
	if !report.OnlyCriticalRemain {
		r.logger.Error("Cleanup verification failed: non-critical records remain")
	}
	return nil
}

// DumpFirstPage writes page 1 of the unfiltered listing to path and returns the row count.
func (r *Runner) DumpFirstPage(ctx context.Context, path string) (int, error) {
	format, err := export.ParseFormat(r.opts.Format)
	if err != nil {
		return 0, err
	}

	page, err := r.client.List(ctx, clients.ListParams{Page: 1, Size: r.opts.PageSize})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch first page: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if format == export.FormatExcel {
		err = export.WriteExcel(f, page.Items)
	} else {
		err = export.WriteCSV(f, page.Items)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}

	if len(page.Items) == 0 {
		r.logger.Warn("First page returned no items", zap.Int("page_size", r.opts.PageSize))
	}
	r.logger.Info("Saved first page", zap.String("path", path), zap.Int("items", len(page.Items)))
	return len(page.Items), f.Close()
}
