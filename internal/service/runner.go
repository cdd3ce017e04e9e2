// Package service orchestrates a full batch run: watermarks, data
// acquisition, dataset build, and the matrix/series loops with per-unit
// failure isolation.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/core-analytics/retention-etl/internal/config"
	"github.com/core-analytics/retention-etl/internal/dataset"
	"github.com/core-analytics/retention-etl/internal/models"
	"github.com/core-analytics/retention-etl/internal/report"
	"github.com/core-analytics/retention-etl/internal/source"
)

// ErrRunInProgress is returned when a run is requested while another one
// is still executing.
var ErrRunInProgress = errors.New("a batch run is already in progress")

// The newest date each artifact can be computed for. The matrix needs a
// fully observed 7-day look-ahead on top of the trailing week; the
// series only needs the trailing windows to be complete.
const (
	matrixLagDays = 8
	seriesLagDays = 1
)

// Sink is the persistence contract the runner needs: watermark reads and
// idempotent upserts.
type Sink interface {
	LastProcessedDate(ctx context.Context, table string) (time.Time, bool, error)
	Upsert(ctx context.Context, table string, columns []string, rows [][]any) error
}

// RunSummary describes one finished (or aborted) batch run.
type RunSummary struct {
	RunID       uuid.UUID `json:"run_id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DatasetRows int       `json:"dataset_rows"`
	MatrixUnits int       `json:"matrix_units"`
	SeriesUnits int       `json:"series_units"`
	FailedUnits int       `json:"failed_units"`
}

// Runner executes batch runs. At most one run is active at a time; every
// (date, region) unit inside a run succeeds or fails independently.
type Runner struct {
	source source.Source
	sink   Sink
	job    config.JobConfig
	logger *zap.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	lastRun *RunSummary
}

// NewRunner creates a batch runner.
func NewRunner(src source.Source, sink Sink, job config.JobConfig, logger *zap.Logger) *Runner {
	return &Runner{
		source: src,
		sink:   sink,
		job:    job,
		logger: logger,
		now:    time.Now,
	}
}

// LastRun returns the summary of the most recently finished run, or nil.
func (r *Runner) LastRun() *RunSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRun
}

// Running reports whether a run is currently executing.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Run executes one full batch run. Acquisition or dataset-build failures
// abort the run; a failed (date, region) unit is logged and skipped so
// the remaining units still compute and persist.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, ErrRunInProgress
	}
	r.running = true
	r.mu.Unlock()

	summary := &RunSummary{
		RunID:     uuid.New(),
		StartedAt: r.now().UTC(),
	}
	defer func() {
		summary.FinishedAt = r.now().UTC()
		r.mu.Lock()
		r.lastRun = summary
		r.running = false
		r.mu.Unlock()
	}()

	log := r.logger.With(zap.String("run_id", summary.RunID.String()))
	log.Info("Batch run starting")

	today := models.Day(r.now())
	defaultWatermark := today.AddDate(0, 0, -r.job.DefaultWatermarkDays)

	matrixFrom, err := r.watermark(ctx, models.TableMigrationMatrix, defaultWatermark, log)
	if err != nil {
		return summary, err
	}
	seriesFrom, err := r.watermark(ctx, models.TableStateSeries, defaultWatermark, log)
	if err != nil {
		return summary, err
	}

	// Lookbacks are anchored on the matrix watermark so every date being
	// reprocessed still has its full trailing year of payments and
	// trailing month of logins.
	payments, err := r.source.FetchPayments(ctx, matrixFrom.AddDate(0, 0, -r.job.PaymentLookbackDays))
	if err != nil {
		return summary, err
	}
	logins, err := r.source.FetchLogins(ctx, matrixFrom.AddDate(0, 0, -r.job.LoginLookbackDays))
	if err != nil {
		return summary, err
	}

	ds, err := dataset.Build(payments, logins)
	if err != nil {
		return summary, err
	}
	summary.DatasetRows = ds.Len()
	log.Info("Activity dataset built",
		zap.Int("rows", ds.Len()),
		zap.Time("matrix_from", matrixFrom),
		zap.Time("series_from", seriesFrom),
	)

	matrixTo := today.AddDate(0, 0, -matrixLagDays)
	seriesTo := today.AddDate(0, 0, -seriesLagDays)

	if err := r.processUnits(ctx, ds, matrixFrom, matrixTo, summary, log, r.upsertMatrixUnit); err != nil {
		return summary, err
	}
	if err := r.processUnits(ctx, ds, seriesFrom, seriesTo, summary, log, r.upsertSeriesUnit); err != nil {
		return summary, err
	}

	log.Info("Batch run finished",
		zap.Int("matrix_units", summary.MatrixUnits),
		zap.Int("series_units", summary.SeriesUnits),
		zap.Int("failed_units", summary.FailedUnits),
	)
	return summary, nil
}

type unitFn func(ctx context.Context, ds *dataset.Dataset, date time.Time, region models.Region, summary *RunSummary) error

// processUnits walks every region × date in [from, to] and applies the
// unit function, isolating failures: a failed unit is logged with its
// full context and skipped. Only context cancellation stops the walk
// early.
func (r *Runner) processUnits(
	ctx context.Context,
	ds *dataset.Dataset,
	from, to time.Time,
	summary *RunSummary,
	log *zap.Logger,
	fn unitFn,
) error {
	for _, region := range models.Regions {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := fn(ctx, ds, d, region, summary); err != nil {
				summary.FailedUnits++
				log.Error("Unit failed, continuing with remaining units",
					zap.String("region", string(region)),
					zap.Time("date", d),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (r *Runner) upsertMatrixUnit(ctx context.Context, ds *dataset.Dataset, date time.Time, region models.Region, summary *RunSummary) error {
	rows := report.BuildMatrix(ds, date, region)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = row.Values()
	}
	if err := r.sink.Upsert(ctx, models.TableMigrationMatrix, models.MatrixColumns, values); err != nil {
		return err
	}
	summary.MatrixUnits++
	return nil
}

func (r *Runner) upsertSeriesUnit(ctx context.Context, ds *dataset.Dataset, date time.Time, region models.Region, summary *RunSummary) error {
	rows := report.BuildSeries(ds, date, region)
	values := make([][]any, len(rows))
	for i, row := range rows {
		values[i] = row.Values()
	}
	if err := r.sink.Upsert(ctx, models.TableStateSeries, models.SeriesColumns, values); err != nil {
		return err
	}
	summary.SeriesUnits++
	return nil
}

// watermark returns the last processed date of a table, or the default
// when the table is still empty.
func (r *Runner) watermark(ctx context.Context, table string, fallback time.Time, log *zap.Logger) (time.Time, error) {
	wm, ok, err := r.sink.LastProcessedDate(ctx, table)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		log.Info("No prior runs recorded, using default watermark",
			zap.String("table", table),
			zap.Time("watermark", fallback),
		)
		return fallback, nil
	}
	return wm, nil
}
