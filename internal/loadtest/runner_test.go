package loadtest

import (
	"context"
	"encoding/csv"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"satellite-telemetry/internal/clients"
	"satellite-telemetry/internal/config"
	"satellite-telemetry/internal/handlers"
	"satellite-telemetry/internal/models"
	"satellite-telemetry/internal/repository"
	"satellite-telemetry/internal/service"
	"satellite-telemetry/pkg/database"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func newAPI(t *testing.T) clients.TelemetryClient {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(database.Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "loadtest.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))

	svc := service.NewTelemetryService(repository.NewTelemetryRepository(db), service.Options{}, zap.NewNop())
	router := handlers.NewRouter(handlers.RouterDeps{Config: &config.Config{}, Service: svc, Logger: zap.NewNop()})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return clients.NewTelemetryClient(srv.URL+"/telemetry", 10*time.Second)
}

func TestPayloadValidity(t *testing.T) {
	sats := []string{"LOAD-x-SAT-000"}

	valid := NewRunner(nil, Options{ErrorRate: 0, Seed: 7}, zap.NewNop())
	for i := 0; i < 200; i++ {
		req, invalid := valid.payload(sats)
		require.False(t, invalid)
		_, err := service.ValidateCreate(req)
		require.NoError(t, err)
	}

	broken := NewRunner(nil, Options{ErrorRate: 1, Seed: 7}, zap.NewNop())
	for i := 0; i < 200; i++ {
		req, invalid := broken.payload(sats)
		require.True(t, invalid)
		_, err := service.ValidateCreate(req)
		require.Error(t, err)
	}
}

func TestSatellitesUsePrefixAndRunID(t *testing.T) {
	r := NewRunner(nil, Options{SatCount: 2, RunID: "20260214", CleanupPrefix: "LT-"}, zap.NewNop())
	assert.Equal(t, []string{"LT-20260214-SAT-000", "LT-20260214-SAT-001"}, r.Satellites())
}

func TestRunEndToEnd(t *testing.T) {
	client := newAPI(t)
	ctx := context.Background()
	out := filepath.Join(t.TempDir(), "first_page.csv")

	r := NewRunner(client, Options{
		Total:       60,
		Concurrency: 8,
		ErrorRate:   0.3,
		SatCount:    3,
		OutputFile:  out,
		Seed:        42,
	}, zap.NewNop())

	report, err := r.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 60, report.Successes+report.Failures)
	assert.Zero(t, report.InvalidAccepted)
	assert.Equal(t, report.InvalidSent, report.InvalidRejected)
	assert.Equal(t, report.InvalidSent, report.Failures)
	assert.True(t, report.CountMatches)
	assert.EqualValues(t, report.Successes, report.APITotal)
	assert.True(t, report.FilterPassed)
	assert.Equal(t, report.HealthyFound, report.HealthyDeleted)
	assert.True(t, report.OnlyCriticalRemain)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, report.FirstPageItems+1)
	assert.Equal(t, report.Successes-report.HealthyDeleted, report.FirstPageItems)
}

func TestCleanupRemovesOnlyPrefixed(t *testing.T) {
	client := newAPI(t)
	ctx := context.Background()

	create := func(sat string) {
		ts := "2026-02-14T10:00:00Z"
		alt, vel, status := 550.0, 7.6, "healthy"
		_, err := client.Create(ctx, service.CreateTelemetryRequest{
			SatelliteID: &sat, Timestamp: &ts, Altitude: &alt, Velocity: &vel, Status: &status,
		})
		require.NoError(t, err)
	}
	for i := 0; i < 120; i++ {
		create("LOAD-old-SAT-001")
	}
	create("keep-me")

	r := NewRunner(client, Options{Concurrency: 4}, zap.NewNop())
	n, err := r.Cleanup(ctx, "LOAD-")
	require.NoError(t, err)
	assert.Equal(t, 120, n)

	page, err := client.List(ctx, clients.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "keep-me", page.Items[0].SatelliteID)
}

func TestDumpFirstPageExcel(t *testing.T) {
	client := newAPI(t)
	ctx := context.Background()

	r := NewRunner(client, Options{Total: 5, SatCount: 1, ErrorRate: 0, Format: "xlsx", Seed: 3}, zap.NewNop())
	_, err := r.createAll(ctx, r.Satellites(), &Report{})
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "first_page.xlsx")
	n, err := r.DumpFirstPage(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	wb, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows("Telemetry")
	require.NoError(t, err)
	assert.Len(t, rows, 6)
	assert.Contains(t, []string{string(models.StatusHealthy), string(models.StatusCritical)}, rows[1][5])
}
