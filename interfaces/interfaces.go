// Package interfaces defines core abstractions for the medprices API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/medprices/medprices-api/pricelist/entities"
)

// DataQualityReport provides a summary of data quality issues found in an ingestion run
type DataQualityReport struct {
	RowsWithoutProductCode int
	DuplicateProductDates  []string // "product_code@YYYY-MM-DD" seen more than once
	UnknownCompanyRows     int      // rows resolved to the fallback company
	UnknownCompanyCodes    []string // first 10 product codes without a company
	NonPositivePrices      int
}

// RowSource reads the raw rows of one price-list file through a column mapping.
type RowSource interface {
	ReadRows(path string, columns entities.ColumnMapping) ([]entities.RawRow, error)
}

// CompanyResolver maps a product code to a manufacturer name.
// Unknown codes resolve to a fallback name, never to an error.
type CompanyResolver interface {
	Resolve(productCode string) string
}

// Ingester runs a full ingestion over a data directory.
type Ingester interface {
	Run(dataDir string) (*entities.RunResult, error)
}

// PriceStore is the relational collaborator: it replaces the normalized table
// in one transaction and answers the read-only queries of the API.
type PriceStore interface {
	ReplaceAll(ctx context.Context, result *entities.RunResult) error
	Companies(ctx context.Context) ([]string, error)
	MedicinesForCompany(ctx context.Context, company string) ([]entities.Medicine, error)
	Group(ctx context.Context, key entities.GroupKey) ([]entities.ProductBucket, error)
	LastRun(ctx context.Context) (*entities.RunSummary, error)
	CountRows(ctx context.Context) (int, error)
	Close() error
}

// DataStore tracks the state of ingestion runs inside the process.
// It provides thread-safe access with atomic operations.
type DataStore interface {
	GetLastRun() *entities.RunSummary
	GetDataQualityReport() *DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	UpdateRun(summary *entities.RunSummary, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// Scheduler defines the contract for job scheduling and health monitoring.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	Companies(w http.ResponseWriter, r *http.Request)
	Medicines(w http.ResponseWriter, r *http.Request)
	Group(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the current status, response details and HTTP status code
	HealthCheck(ctx context.Context) (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled ingestion, zero when none is scheduled
	CalculateNextUpdate() time.Time
}

// QueryValidator validates API input and reports on ingested data.
type QueryValidator interface {
	ValidateCompany(company string) error
	ValidateGroupQuery(substance, form string, dose *string) error
	ReportDataQuality(rows []entities.NormalizedRow, fallbackCompany string) *DataQualityReport
}
