// Package scheduler runs price-list ingestion, once on demand or on a daily
// gocron schedule, and hands each completed run to the store and the data
// container. It also watches for data that has not been refreshed in time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/medprices/medprices-api/company"
	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/metrics"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// ErrUpdateInProgress is returned when a run is requested while another one is active
var ErrUpdateInProgress = errors.New("ingestion already in progress")

// Options configures when ingestion runs
type Options struct {
	DataDir       string
	Schedule      string // gocron At() times, "06:00;18:00"; empty disables scheduled runs
	IngestOnStart bool
	StaleAfter    time.Duration // warn when data is older, defaults to 25h
}

// Scheduler handles ingestion runs and health monitoring using dependency injection
type Scheduler struct {
	dataStore  interfaces.DataStore
	priceStore interfaces.PriceStore
	ingester   interfaces.Ingester
	validator  interfaces.QueryValidator
	opts       Options
	scheduler  *gocron.Scheduler
	done       chan struct{}
}

// NewScheduler creates a new scheduler instance with injected dependencies
func NewScheduler(
	dataStore interfaces.DataStore,
	priceStore interfaces.PriceStore,
	ingester interfaces.Ingester,
	validator interfaces.QueryValidator,
	opts Options,
) *Scheduler {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 25 * time.Hour
	}

	return &Scheduler{
		dataStore:  dataStore,
		priceStore: priceStore,
		ingester:   ingester,
		validator:  validator,
		opts:       opts,
		scheduler:  gocron.NewScheduler(time.Local),
		done:       make(chan struct{}),
	}
}

// Start restores the last run from the store, runs the optional initial
// ingestion and schedules the daily runs
func (s *Scheduler) Start() error {
	s.restoreLastRun()

	if s.opts.IngestOnStart {
		if err := s.UpdateData(context.Background()); err != nil {
			logging.Error("Failed to perform initial ingestion", "error", err)
			return fmt.Errorf("initial ingestion failed: %w", err)
		}
	}

	if s.opts.Schedule == "" {
		logging.Info("Scheduled ingestion disabled")
		return nil
	}

	_, err := s.scheduler.Every(1).Days().At(s.opts.Schedule).Do(func() {
		if err := s.UpdateData(context.Background()); err != nil && !errors.Is(err, ErrUpdateInProgress) {
			logging.Error("Failed to update data", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule ingestion", "schedule", s.opts.Schedule, "error", err)
		return fmt.Errorf("failed to schedule ingestion: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Scheduled ingestion", "schedule", s.opts.Schedule)

	s.startHealthMonitoring(time.Hour)

	return nil
}

// Stop stops the scheduler and the health monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()

	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// UpdateData performs a complete ingestion run and replaces the stored table.
// A failed run leaves the previous table and run record untouched.
func (s *Scheduler) UpdateData(ctx context.Context) error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Ingestion already in progress, skipping")
		metrics.RecordRunSkipped()
		return ErrUpdateInProgress
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting ingestion", "data_dir", s.opts.DataDir)
	start := time.Now()

	result, err := s.ingester.Run(s.opts.DataDir)
	if err != nil {
		metrics.RecordRunFailure()
		return fmt.Errorf("failed to ingest price lists: %w", err)
	}

	report := s.validator.ReportDataQuality(result.Rows, company.FallbackCompany)
	logDataQuality(report)

	if err := s.priceStore.ReplaceAll(ctx, result); err != nil {
		metrics.RecordRunFailure()
		return fmt.Errorf("failed to store ingestion run %s: %w", result.RunID, err)
	}

	metrics.RecordRun(&result.RunSummary)
	s.dataStore.UpdateRun(&result.RunSummary, report)

	logging.Info("Ingestion stored",
		"run_id", result.RunID,
		"duration", time.Since(start).String(),
		"rows", len(result.Rows),
		"coverage_percent", result.Coverage.Percent(),
	)

	return nil
}

// restoreLastRun seeds the data container so /health reports the real data age after a restart
func (s *Scheduler) restoreLastRun() {
	summary, err := s.priceStore.LastRun(context.Background())
	if err != nil {
		logging.Warn("Could not read the last ingestion run", "error", err)
		return
	}

	if summary == nil {
		logging.Info("No ingestion run recorded yet")
		return
	}

	s.dataStore.UpdateRun(summary, nil)
	logging.Info("Restored last ingestion run", "run_id", summary.RunID, "finished_at", summary.FinishedAt.Format(time.RFC3339))
}

func logDataQuality(report *interfaces.DataQualityReport) {
	if report == nil {
		return
	}

	if report.RowsWithoutProductCode > 0 {
		logging.Warn("Rows without product code", "count", report.RowsWithoutProductCode)
	}

	if len(report.DuplicateProductDates) > 0 {
		logging.Warn("Duplicate product code and date pairs detected",
			"total", len(report.DuplicateProductDates),
			"pairs", report.DuplicateProductDates,
		)
	}

	if report.UnknownCompanyRows > 0 {
		logging.Warn("Rows without a known company",
			"count", report.UnknownCompanyRows,
			"sample_codes", report.UnknownCompanyCodes,
		)
	}

	if report.NonPositivePrices > 0 {
		logging.Warn("Rows with non-positive price", "count", report.NonPositivePrices)
	}
}

// startHealthMonitoring monitors the age of the ingested data
func (s *Scheduler) startHealthMonitoring(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				s.checkDataAge()
			}
		}
	}()
}

// checkDataAge reports whether the data is older than the configured threshold
func (s *Scheduler) checkDataAge() bool {
	lastUpdate := s.dataStore.GetLastUpdated()
	if lastUpdate.IsZero() || time.Since(lastUpdate) <= s.opts.StaleAfter {
		return false
	}

	logging.Warn("Data hasn't been refreshed in time",
		"last_update", lastUpdate.Format(time.RFC3339),
		"threshold", s.opts.StaleAfter.String(),
	)
	return true
}
