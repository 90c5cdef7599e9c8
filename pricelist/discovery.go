package pricelist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
)

// ErrNoPeriodFiles is returned when a period directory holds none of the expected lists.
var ErrNoPeriodFiles = errors.New("no price list files in period")

var periodDateRegex = regexp.MustCompile(`(\d{8})$`)

// Period is one reporting-period directory, named with a ddmmyyyy suffix.
type Period struct {
	Dir  string
	Date time.Time
}

// SourceFile is one of the lists published for each period.
type SourceFile struct {
	Name    string
	Columns entities.ColumnMapping
}

// PeriodFiles lists the published price lists in processing order.
var PeriodFiles = []SourceFile{
	{Name: "A1", Columns: Columns(HeaderNameA)},
	{Name: "A2", Columns: Columns(HeaderNameA)},
	{Name: "A3", Columns: Columns(HeaderNameA)},
	{Name: "B", Columns: Columns(HeaderNameBC)},
	{Name: "C", Columns: Columns(HeaderNameBC)},
}

// sourceExtensions are tried in order; the CSV export wins over the workbook
var sourceExtensions = []string{".csv", ".CSV", ".xlsx", ".XLSX"}

// ParsePeriodDate reads the ddmmyyyy date at the end of a directory name.
func ParsePeriodDate(name string) (time.Time, error) {
	m := periodDateRegex.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, fmt.Errorf("no ddmmyyyy date at the end of %q", name)
	}

	date, err := time.Parse("02012006", m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period date in %q: %w", name, err)
	}

	return date, nil
}

// DiscoverPeriods returns the period directories of dataDir, oldest first.
// Directories without a date suffix are ignored.
func DiscoverPeriods(dataDir string) ([]Period, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list data directory: %w", err)
	}

	var periods []Period
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		date, err := ParsePeriodDate(entry.Name())
		if err != nil {
			logging.Debug("Skipping directory without period date", "dir", entry.Name())
			continue
		}

		periods = append(periods, Period{
			Dir:  filepath.Join(dataDir, entry.Name()),
			Date: date,
		})
	}

	sort.SliceStable(periods, func(i, j int) bool {
		return periods[i].Date.Before(periods[j].Date)
	})

	return periods, nil
}

// resolveSourcePath finds the export of a list inside a period directory
func resolveSourcePath(dir, name string) (string, bool) {
	for _, ext := range sourceExtensions {
		path := filepath.Join(dir, name+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
