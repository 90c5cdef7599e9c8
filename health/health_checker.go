// Package health provides health checking functionality for the medprices API.
package health

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
)

// clock is one daily ingestion time
type clock struct {
	hour, minute int
}

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore  interfaces.DataStore
	priceStore interfaces.PriceStore
	schedule   []clock
	now        func() time.Time
}

var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// NewHealthChecker creates a new health checker with injected dependencies.
// schedule uses the INGEST_SCHEDULE format ("06:00;18:00"); empty means
// ingestion only runs on demand and data age is not judged.
func NewHealthChecker(dataStore interfaces.DataStore, priceStore interfaces.PriceStore, schedule string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore:  dataStore,
		priceStore: priceStore,
		schedule:   parseSchedule(schedule),
		now:        time.Now,
	}
}

// HealthCheck returns HTTP-specific health data.
// Used by /health HTTP endpoint
func (h *HealthCheckerImpl) HealthCheck(ctx context.Context) (status string, data map[string]any, httpStatus int) {
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()
	now := h.now()

	rows, err := h.priceStore.CountRows(ctx)
	if err != nil {
		logging.Error("Health check could not count rows", "error", err)
		return "unhealthy", map[string]any{
			"database":    "unavailable",
			"is_updating": isUpdating,
		}, http.StatusServiceUnavailable
	}

	var dataAge time.Duration
	if !lastUpdate.IsZero() {
		dataAge = now.Sub(lastUpdate)
	}
	scheduled := len(h.schedule) > 0

	switch {
	case rows == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case scheduled && dataAge > 48*time.Hour:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case scheduled && dataAge > 24*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > 6*time.Hour:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"rows":        rows,
		"is_updating": isUpdating,
	}

	if !lastUpdate.IsZero() {
		data["last_update"] = lastUpdate.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(dataAge.Hours()*10) / 10
	}

	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}

	if run := h.dataStore.GetLastRun(); run != nil {
		data["last_run"] = map[string]any{
			"run_id":           run.RunID,
			"coverage_percent": run.Coverage.Percent(),
			"input_rows":       run.Coverage.Input,
			"output_rows":      run.Coverage.Output,
			"dropped_rows":     run.Coverage.Dropped,
		}
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled ingestion time,
// zero when ingestion is not scheduled
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	if len(h.schedule) == 0 {
		return time.Time{}
	}

	now := h.now()
	for _, c := range h.schedule {
		candidate := time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, now.Location())
		if now.Before(candidate) {
			return candidate
		}
	}

	first := h.schedule[0]
	return time.Date(now.Year(), now.Month(), now.Day(), first.hour, first.minute, 0, 0, now.Location()).AddDate(0, 0, 1)
}

// parseSchedule reads "HH:MM;HH:MM" into sorted clock times, skipping invalid entries
func parseSchedule(schedule string) []clock {
	var times []clock
	for _, part := range strings.Split(schedule, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t, err := time.Parse("15:04", part)
		if err != nil {
			logging.Warn("Ignoring invalid schedule entry", "entry", part, "error", err)
			continue
		}
		times = append(times, clock{hour: t.Hour(), minute: t.Minute()})
	}

	sort.Slice(times, func(i, j int) bool {
		if times[i].hour != times[j].hour {
			return times[i].hour < times[j].hour
		}
		return times[i].minute < times[j].minute
	})
	return times
}
