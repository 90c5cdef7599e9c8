package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/pricelist/entities"
)

// ============================================================================
// TEST DATA FACTORY
// ============================================================================

func strPtr(s string) *string { return &s }

// TestDataFactory builds price rows for handler tests
type TestDataFactory struct{}

func NewTestDataFactory() *TestDataFactory {
	return &TestDataFactory{}
}

func (f *TestDataFactory) CreateMedicine(name string, dose *string) entities.Medicine {
	return entities.Medicine{
		Name:      name,
		Substance: "Paracetamolum",
		Form:      "tabl.",
		Dose:      dose,
	}
}

func (f *TestDataFactory) CreateBucket(productCode string, pricesPerUnit ...float64) entities.ProductBucket {
	bucket := entities.ProductBucket{ProductCode: productCode}
	for i, ppu := range pricesPerUnit {
		bucket.Rows = append(bucket.Rows, entities.PricePoint{
			Company:      "Polpharma",
			Name:         "Apap",
			Substance:    "Paracetamolum",
			Form:         "tabl.",
			Dose:         strPtr("500 mg"),
			Contents:     "30 tabl.",
			ProductCode:  productCode,
			Price:        ppu * 30,
			Date:         time.Date(2023, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Amount:       30,
			Unit:         "tabl.",
			PricePerUnit: ppu,
		})
	}
	return bucket
}

// ============================================================================
// MOCKS
// ============================================================================

// MockPriceStore records the queries it receives
type MockPriceStore struct {
	companies []string
	medicines []entities.Medicine
	buckets   []entities.ProductBucket
	rows      int
	err       error

	lastCompany  string
	lastGroupKey entities.GroupKey
}

var _ interfaces.PriceStore = (*MockPriceStore)(nil)

func (m *MockPriceStore) ReplaceAll(ctx context.Context, result *entities.RunResult) error {
	return m.err
}

func (m *MockPriceStore) Companies(ctx context.Context) ([]string, error) {
	return m.companies, m.err
}

func (m *MockPriceStore) MedicinesForCompany(ctx context.Context, company string) ([]entities.Medicine, error) {
	m.lastCompany = company
	return m.medicines, m.err
}

func (m *MockPriceStore) Group(ctx context.Context, key entities.GroupKey) ([]entities.ProductBucket, error) {
	m.lastGroupKey = key
	return m.buckets, m.err
}

func (m *MockPriceStore) LastRun(ctx context.Context) (*entities.RunSummary, error) {
	return nil, m.err
}

func (m *MockPriceStore) CountRows(ctx context.Context) (int, error) {
	return m.rows, m.err
}

func (m *MockPriceStore) Close() error { return nil }

// MockDataStore for handler tests
type MockDataStore struct {
	lastUpdated time.Time
	startTime   time.Time
	isUpdating  bool
}

var _ interfaces.DataStore = (*MockDataStore)(nil)

func (m *MockDataStore) GetLastRun() *entities.RunSummary { return nil }

func (m *MockDataStore) GetDataQualityReport() *interfaces.DataQualityReport { return nil }

func (m *MockDataStore) GetLastUpdated() time.Time { return m.lastUpdated }

func (m *MockDataStore) IsUpdating() bool { return m.isUpdating }

func (m *MockDataStore) GetServerStartTime() time.Time { return m.startTime }

func (m *MockDataStore) UpdateRun(summary *entities.RunSummary, report *interfaces.DataQualityReport) {
}

func (m *MockDataStore) BeginUpdate() bool { return true }

func (m *MockDataStore) EndUpdate() {}

// MockQueryValidator returns preset errors
type MockQueryValidator struct {
	companyErr error
	groupErr   error
}

var _ interfaces.QueryValidator = (*MockQueryValidator)(nil)

func (m *MockQueryValidator) ValidateCompany(company string) error { return m.companyErr }

func (m *MockQueryValidator) ValidateGroupQuery(substance, form string, dose *string) error {
	return m.groupErr
}

func (m *MockQueryValidator) ReportDataQuality(rows []entities.NormalizedRow, fallbackCompany string) *interfaces.DataQualityReport {
	return &interfaces.DataQualityReport{}
}

// MockHealthChecker returns a fixed health result
type MockHealthChecker struct {
	status     string
	details    map[string]any
	httpStatus int
}

var _ interfaces.HealthChecker = (*MockHealthChecker)(nil)

func (m *MockHealthChecker) HealthCheck(ctx context.Context) (string, map[string]any, int) {
	return m.status, m.details, m.httpStatus
}

func (m *MockHealthChecker) CalculateNextUpdate() time.Time { return time.Time{} }

// ============================================================================
// BUILDERS
// ============================================================================

// HandlerBuilder provides fluent interface for building handlers under test
type HandlerBuilder struct {
	priceStore    *MockPriceStore
	dataStore     *MockDataStore
	validator     *MockQueryValidator
	healthChecker *MockHealthChecker
}

func NewHandlerBuilder() *HandlerBuilder {
	return &HandlerBuilder{
		priceStore: &MockPriceStore{},
		dataStore: &MockDataStore{
			lastUpdated: time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC),
			startTime:   time.Now().Add(-90 * time.Minute),
		},
		validator: &MockQueryValidator{},
		healthChecker: &MockHealthChecker{
			status:     "healthy",
			details:    map[string]any{"rows": 3},
			httpStatus: http.StatusOK,
		},
	}
}

func (b *HandlerBuilder) WithCompanies(companies []string) *HandlerBuilder {
	b.priceStore.companies = companies
	return b
}

func (b *HandlerBuilder) WithMedicines(medicines []entities.Medicine) *HandlerBuilder {
	b.priceStore.medicines = medicines
	return b
}

func (b *HandlerBuilder) WithBuckets(buckets []entities.ProductBucket) *HandlerBuilder {
	b.priceStore.buckets = buckets
	return b
}

func (b *HandlerBuilder) WithStoreError(err error) *HandlerBuilder {
	b.priceStore.err = err
	return b
}

func (b *HandlerBuilder) WithCompanyError(err error) *HandlerBuilder {
	b.validator.companyErr = err
	return b
}

func (b *HandlerBuilder) WithGroupError(err error) *HandlerBuilder {
	b.validator.groupErr = err
	return b
}

func (b *HandlerBuilder) WithHealth(status string, httpStatus int) *HandlerBuilder {
	b.healthChecker.status = status
	b.healthChecker.httpStatus = httpStatus
	return b
}

func (b *HandlerBuilder) Build() *HTTPHandlerImpl {
	return NewHTTPHandler(b.priceStore, b.dataStore, b.validator, b.healthChecker).(*HTTPHandlerImpl)
}

// ============================================================================
// HTTP TEST HELPER
// ============================================================================

// HTTPTestHelper wraps request execution and common assertions
type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	handler(rr, req)
	return rr
}

func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Fatalf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}

	if ct := resp.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		h.t.Errorf("Expected JSON content type, got %s", ct)
	}

	if target != nil {
		if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
			h.t.Fatalf("Failed to decode response: %v", err)
		}
	}
}

func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	h.t.Helper()

	var body map[string]any
	h.AssertJSONResponse(resp, expectedStatus, &body)

	if body["error"] != http.StatusText(expectedStatus) {
		h.t.Errorf("Expected error %q, got %v", http.StatusText(expectedStatus), body["error"])
	}

	if body["code"] != float64(expectedStatus) {
		h.t.Errorf("Expected code %d, got %v", expectedStatus, body["code"])
	}

	if expectedMessage != "" && body["message"] != expectedMessage {
		h.t.Errorf("Expected message %q, got %v", expectedMessage, body["message"])
	}
}
