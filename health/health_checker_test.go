package health

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
)

func TestMain(m *testing.M) {
	logging.InitLogger("")
	os.Exit(m.Run())
}

// MockHealthDataStore for testing
type MockHealthDataStore struct {
	lastRun     *entities.RunSummary
	lastUpdated time.Time
	isUpdating  bool
}

func (m *MockHealthDataStore) GetLastRun() *entities.RunSummary { return m.lastRun }

func (m *MockHealthDataStore) GetDataQualityReport() *interfaces.DataQualityReport {
	return &interfaces.DataQualityReport{}
}

func (m *MockHealthDataStore) GetLastUpdated() time.Time { return m.lastUpdated }

func (m *MockHealthDataStore) IsUpdating() bool { return m.isUpdating }

func (m *MockHealthDataStore) GetServerStartTime() time.Time { return time.Time{} }

func (m *MockHealthDataStore) UpdateRun(summary *entities.RunSummary, report *interfaces.DataQualityReport) {
}

func (m *MockHealthDataStore) BeginUpdate() bool { return true }

func (m *MockHealthDataStore) EndUpdate() {}

// MockPriceStore only answers CountRows
type MockPriceStore struct {
	interfaces.PriceStore
	rows int
	err  error
}

func (m *MockPriceStore) CountRows(ctx context.Context) (int, error) {
	return m.rows, m.err
}

var fixedNow = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newChecker(ds interfaces.DataStore, ps interfaces.PriceStore, schedule string) *HealthCheckerImpl {
	h := NewHealthChecker(ds, ps, schedule).(*HealthCheckerImpl)
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestNewHealthChecker(t *testing.T) {
	healthChecker := NewHealthChecker(&MockHealthDataStore{}, &MockPriceStore{}, "")

	if healthChecker == nil {
		t.Fatal("NewHealthChecker returned nil")
	}

	if _, ok := healthChecker.(*HealthCheckerImpl); !ok {
		t.Error("NewHealthChecker should return *HealthCheckerImpl")
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	ds := &MockHealthDataStore{
		lastRun: &entities.RunSummary{
			RunID:    "run-1",
			Coverage: entities.Coverage{Input: 4, Output: 3, Dropped: 1},
		},
		lastUpdated: fixedNow.Add(-1 * time.Hour),
	}

	status, details, httpStatus := newChecker(ds, &MockPriceStore{rows: 3}, "06:00;18:00").HealthCheck(context.Background())

	if status != "healthy" || httpStatus != http.StatusOK {
		t.Errorf("Expected healthy/200, got %s/%d", status, httpStatus)
	}

	for _, key := range []string{"last_update", "data_age_hours", "rows", "is_updating", "next_update", "last_run"} {
		if _, ok := details[key]; !ok {
			t.Errorf("Details should contain %q", key)
		}
	}

	if details["rows"] != 3 {
		t.Errorf("Expected 3 rows, got %v", details["rows"])
	}
	if details["data_age_hours"] != 1.0 {
		t.Errorf("Expected data age 1.0, got %v", details["data_age_hours"])
	}

	lastRun := details["last_run"].(map[string]any)
	if lastRun["coverage_percent"] != 75.0 {
		t.Errorf("Expected coverage 75, got %v", lastRun["coverage_percent"])
	}
}

func TestHealthCheck_Unhealthy_NoRows(t *testing.T) {
	ds := &MockHealthDataStore{lastUpdated: fixedNow.Add(-1 * time.Hour)}

	status, details, httpStatus := newChecker(ds, &MockPriceStore{rows: 0}, "").HealthCheck(context.Background())

	if status != "unhealthy" || httpStatus != http.StatusServiceUnavailable {
		t.Errorf("Expected unhealthy/503, got %s/%d", status, httpStatus)
	}
	if details == nil {
		t.Error("Details should not be nil")
	}
}

func TestHealthCheck_Unhealthy_StoreError(t *testing.T) {
	ds := &MockHealthDataStore{}

	status, details, httpStatus := newChecker(ds, &MockPriceStore{err: errors.New("disk I/O error")}, "").HealthCheck(context.Background())

	if status != "unhealthy" || httpStatus != http.StatusServiceUnavailable {
		t.Errorf("Expected unhealthy/503, got %s/%d", status, httpStatus)
	}
	if details["database"] != "unavailable" {
		t.Errorf("Expected database unavailable, got %v", details["database"])
	}
}

func TestHealthCheck_DataAge(t *testing.T) {
	tests := []struct {
		name       string
		age        time.Duration
		schedule   string
		updating   bool
		wantStatus string
		wantHTTP   int
	}{
		{"fresh", time.Hour, "06:00", false, "healthy", http.StatusOK},
		{"stale day", 25 * time.Hour, "06:00", false, "degraded", http.StatusServiceUnavailable},
		{"stale two days", 49 * time.Hour, "06:00", false, "unhealthy", http.StatusServiceUnavailable},
		{"on demand ignores age", 100 * time.Hour, "", false, "healthy", http.StatusOK},
		{"long update", 7 * time.Hour, "", true, "degraded", http.StatusServiceUnavailable},
		{"short update", time.Hour, "06:00", true, "healthy", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := &MockHealthDataStore{lastUpdated: fixedNow.Add(-tt.age), isUpdating: tt.updating}

			status, _, httpStatus := newChecker(ds, &MockPriceStore{rows: 1}, tt.schedule).HealthCheck(context.Background())

			if status != tt.wantStatus || httpStatus != tt.wantHTTP {
				t.Errorf("Expected %s/%d, got %s/%d", tt.wantStatus, tt.wantHTTP, status, httpStatus)
			}
		})
	}
}

func TestHealthCheck_NeverIngested(t *testing.T) {
	ds := &MockHealthDataStore{}

	status, details, _ := newChecker(ds, &MockPriceStore{rows: 10}, "").HealthCheck(context.Background())

	if status != "healthy" {
		t.Errorf("Expected healthy, got %s", status)
	}
	if _, ok := details["last_update"]; ok {
		t.Error("last_update should be absent without a recorded run")
	}
	if _, ok := details["next_update"]; ok {
		t.Error("next_update should be absent without a schedule")
	}
}

func TestCalculateNextUpdate(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
		now      time.Time
		expected time.Time
	}{
		{
			name:     "before first run",
			schedule: "06:00;18:00",
			now:      time.Date(2024, time.March, 1, 5, 0, 0, 0, time.UTC),
			expected: time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC),
		},
		{
			name:     "between runs",
			schedule: "18:00;06:00",
			now:      time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
			expected: time.Date(2024, time.March, 1, 18, 0, 0, 0, time.UTC),
		},
		{
			name:     "after last run",
			schedule: "06:00;18:00",
			now:      time.Date(2024, time.March, 1, 19, 0, 0, 0, time.UTC),
			expected: time.Date(2024, time.March, 2, 6, 0, 0, 0, time.UTC),
		},
		{
			name:     "exactly at run time",
			schedule: "06:30",
			now:      time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC),
			expected: time.Date(2024, time.March, 2, 6, 30, 0, 0, time.UTC),
		},
		{
			name:     "no schedule",
			schedule: "",
			now:      time.Date(2024, time.March, 1, 6, 30, 0, 0, time.UTC),
			expected: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(&MockHealthDataStore{}, &MockPriceStore{}, tt.schedule).(*HealthCheckerImpl)
			h.now = func() time.Time { return tt.now }

			if got := h.CalculateNextUpdate(); !got.Equal(tt.expected) {
				t.Errorf("Expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestParseSchedule_SkipsInvalidEntries(t *testing.T) {
	times := parseSchedule("18:00;bogus;06:15;")
	if len(times) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(times))
	}
	if times[0] != (clock{6, 15}) || times[1] != (clock{18, 0}) {
		t.Errorf("Unexpected order: %v", times)
	}
}
