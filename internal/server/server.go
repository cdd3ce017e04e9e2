// Package server exposes the daemon's admin HTTP surface: liveness,
// last-run status, and a manual trigger.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/core-analytics/retention-etl/internal/config"
	"github.com/core-analytics/retention-etl/internal/models"
	"github.com/core-analytics/retention-etl/internal/service"
)

// WatermarkReader serves the last processed date of an output table for
// the status endpoint.
type WatermarkReader interface {
	LastProcessedDate(ctx context.Context, table string) (time.Time, bool, error)
}

// New builds the admin HTTP server around the runner.
func New(cfg *config.ServerConfig, runner *service.Runner, watermarks WatermarkReader, logger *zap.Logger) *http.Server {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.ReadTimeout))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"retention-etl"}`))
	})

	r.Get("/status", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		wm := make(map[string]any, 2)
		for _, table := range []string{models.TableMigrationMatrix, models.TableStateSeries} {
			date, ok, err := watermarks.LastProcessedDate(req.Context(), table)
			if err != nil {
				logger.Error("Failed to read watermark for status",
					zap.String("table", table), zap.Error(err))
				wm[table] = nil
				continue
			}
			if !ok {
				wm[table] = nil
				continue
			}
			wm[table] = date.Format("2006-01-02")
		}

		if err := json.NewEncoder(w).Encode(map[string]any{
			"running":    runner.Running(),
			"last_run":   runner.LastRun(),
			"watermarks": wm,
		}); err != nil {
			logger.Error("Failed to encode status response", zap.Error(err))
		}
	})

	r.Post("/run", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if runner.Running() {
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"status":"run already in progress"}`))
			return
		}

		go func() {
			if _, err := runner.Run(context.Background()); err != nil && err != service.ErrRunInProgress {
				logger.Error("Triggered run failed", zap.Error(err))
			}
		}()

		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"status":"accepted"}`))
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
