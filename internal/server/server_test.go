package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/core-analytics/retention-etl/internal/config"
	"github.com/core-analytics/retention-etl/internal/models"
	"github.com/core-analytics/retention-etl/internal/service"
)

type stubSource struct{}

func (stubSource) FetchPayments(ctx context.Context, since time.Time) ([]models.PaymentEvent, error) {
	return nil, nil
}

func (stubSource) FetchLogins(ctx context.Context, since time.Time) ([]models.LoginEvent, error) {
	return nil, nil
}

func (stubSource) Close() error { return nil }

type stubSink struct {
	watermarks map[string]time.Time
}

func (s *stubSink) LastProcessedDate(ctx context.Context, table string) (time.Time, bool, error) {
	wm, ok := s.watermarks[table]
	return wm, ok, nil
}

func (s *stubSink) Upsert(ctx context.Context, table string, columns []string, rows [][]any) error {
	return nil
}

func testServer(t *testing.T, sink *stubSink) *http.Server {
	t.Helper()
	job := config.JobConfig{
		PaymentLookbackDays:  365,
		LoginLookbackDays:    30,
		DefaultWatermarkDays: 9,
	}
	runner := service.NewRunner(stubSource{}, sink, job, zap.NewNop())
	cfg := &config.ServerConfig{
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return New(cfg, runner, sink, zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, &stubSink{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid health body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("health status = %q", body["status"])
	}
}

func TestStatusReportsWatermarks(t *testing.T) {
	wm := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	srv := testServer(t, &stubSink{watermarks: map[string]time.Time{
		models.TableMigrationMatrix: wm,
	}})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var body struct {
		Running    bool           `json:"running"`
		Watermarks map[string]any `json:"watermarks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid status body: %v", err)
	}
	if body.Running {
		t.Error("idle runner reported as running")
	}
	if got := body.Watermarks[models.TableMigrationMatrix]; got != "2024-03-15" {
		t.Errorf("matrix watermark = %v, want 2024-03-15", got)
	}
	if got := body.Watermarks[models.TableStateSeries]; got != nil {
		t.Errorf("empty table watermark = %v, want null", got)
	}
}

func TestTriggerRunAccepted(t *testing.T) {
	srv := testServer(t, &stubSink{})

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/run", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
}
