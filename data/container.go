// Package data keeps the in-process state of ingestion runs: the last
// successful run, its quality report and the update-in-progress flag.
// Reads are lock-free through atomic values.
package data

import (
	"sync/atomic"
	"time"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds run state with atomic values for zero-downtime updates
type DataContainer struct {
	lastRun         atomic.Value // *entities.RunSummary
	report          atomic.Value // *interfaces.DataQualityReport
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a new DataContainer with no recorded run
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.lastRun.Store((*entities.RunSummary)(nil))
	dc.report.Store((*interfaces.DataQualityReport)(nil))
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetLastRun returns the summary of the last successful run, nil before the first one
func (dc *DataContainer) GetLastRun() *entities.RunSummary {
	if v := dc.lastRun.Load(); v != nil {
		if run, ok := v.(*entities.RunSummary); ok {
			return run
		}
	}

	logging.Warn("Last run summary is invalid")
	return nil
}

// GetDataQualityReport returns the report of the last successful run
func (dc *DataContainer) GetDataQualityReport() *interfaces.DataQualityReport {
	if v := dc.report.Load(); v != nil {
		if report, ok := v.(*interfaces.DataQualityReport); ok {
			return report
		}
	}

	logging.Warn("Data quality report is invalid")
	return nil
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if an ingestion run is in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateRun records a finished run. The data timestamp is the run's finish
// time, so a run restored from the database keeps its real age.
func (dc *DataContainer) UpdateRun(summary *entities.RunSummary, report *interfaces.DataQualityReport) {
	if summary == nil {
		return
	}

	dc.lastRun.Store(summary)
	dc.report.Store(report)
	dc.lastUpdated.Store(summary.FinishedAt)
}

// BeginUpdate marks the start of an ingestion run
// Returns true if the run can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of an ingestion run
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
