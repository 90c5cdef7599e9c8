// Package store persists normalized price rows in SQLite and answers the
// read-only queries of the API.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
	_ "modernc.org/sqlite"
)

const (
	// dateLayout is the wire and storage format of reporting dates
	dateLayout = "2006-01-02"
	// timestampLayout keeps a fixed width so stored timestamps sort as text
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// Compile-time check to ensure SQLiteStore implements PriceStore
var _ interfaces.PriceStore = (*SQLiteStore)(nil)

// SQLiteStore is a PriceStore backed by a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the database at path and makes sure the tables exist.
func Open(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000`,
		`PRAGMA journal_mode = WAL`,
		`PRAGMA foreign_keys = ON`,
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	for _, stmt := range append([]string{createMedicineTable, createRunsTable, createFilesTable}, medicineIndexes...) {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	logging.Info("Database opened", "path", path)
	return &SQLiteStore{db: db, path: path}, nil
}

// Close releases the database handle
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ReplaceAll swaps the medicine table for the rows of result and records
// the run, all in one transaction. On error the previous table is kept.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, result *entities.RunResult) (err error) {
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error("Failed to roll back table replace", "error", rbErr)
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+medicineTable); err != nil {
		return fmt.Errorf("failed to drop %s: %w", medicineTable, err)
	}
	if _, err = tx.ExecContext(ctx, createMedicineTable); err != nil {
		return fmt.Errorf("failed to create %s: %w", medicineTable, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertMedicine)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range result.Rows {
		row := &result.Rows[i]
		var dose any
		if row.Dose != nil {
			dose = *row.Dose
		}

		if _, err = stmt.ExecContext(ctx,
			row.Substance, row.Name, row.Form, dose, row.Contents, row.ProductCode,
			row.Price, row.Date.Format(dateLayout), row.Amount, row.Unit, row.PricePerUnit, row.Company,
		); err != nil {
			return fmt.Errorf("failed to insert row %d: %w", i+1, err)
		}
	}

	for _, idx := range medicineIndexes {
		if _, err = tx.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO `+runsTable+` (run_id, started_at, finished_at, input_rows, output_rows, dropped_rows, coverage)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.StartedAt.UTC().Format(timestampLayout),
		result.FinishedAt.UTC().Format(timestampLayout),
		result.Coverage.Input, result.Coverage.Output, result.Coverage.Dropped,
		result.Coverage.Percent(),
	); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	for _, f := range result.Files {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO `+filesTable+` (run_id, path, date, input_rows, output_rows, dropped_rows)
			VALUES (?, ?, ?, ?, ?, ?)`,
			result.RunID, f.Path, f.Date.Format(dateLayout),
			f.Coverage.Input, f.Coverage.Output, f.Coverage.Dropped,
		); err != nil {
			return fmt.Errorf("failed to record file %s: %w", f.Path, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit table replace: %w", err)
	}

	logging.Info("Price table replaced",
		"run_id", result.RunID,
		"rows", len(result.Rows),
		"duration", time.Since(start).String())

	return nil
}

// Companies returns the distinct company names in alphabetical order.
func (s *SQLiteStore) Companies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT company FROM medicine ORDER BY company`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := make([]string, 0)
	for rows.Next() {
		var company string
		if err := rows.Scan(&company); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, company)
	}

	return companies, rows.Err()
}

// MedicinesForCompany returns the distinct product lines of a company, ordered by name.
func (s *SQLiteStore) MedicinesForCompany(ctx context.Context, company string) ([]entities.Medicine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT name, substance, form, dose FROM medicine
		WHERE company = ?
		ORDER BY name, substance, form, dose`, company)
	if err != nil {
		return nil, fmt.Errorf("failed to query medicines: %w", err)
	}
	defer rows.Close()

	medicines := make([]entities.Medicine, 0)
	for rows.Next() {
		var m entities.Medicine
		var dose sql.NullString
		if err := rows.Scan(&m.Name, &m.Substance, &m.Form, &dose); err != nil {
			return nil, fmt.Errorf("failed to scan medicine: %w", err)
		}
		m.Dose = nullableString(dose)
		medicines = append(medicines, m)
	}

	return medicines, rows.Err()
}

// Group returns the price history of a (substance, form, dose) group bucketed
// by product code. Each bucket is ordered by date; buckets are ordered by the
// price per unit of their most recent row, cheapest first. A key without a
// dose matches rows whose dose is NULL.
func (s *SQLiteStore) Group(ctx context.Context, key entities.GroupKey) ([]entities.ProductBucket, error) {
	query := `SELECT company, name, substance, form, dose, contents, product_code, price, date, amount, unit, price_per_unit
		FROM medicine WHERE substance = ? AND form = ? AND `
	args := []any{key.Substance, key.Form}
	if key.HasDose {
		query += `dose = ?`
		args = append(args, key.Dose)
	} else {
		query += `dose IS NULL`
	}
	query += ` ORDER BY product_code, date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query group: %w", err)
	}
	defer rows.Close()

	buckets := make([]entities.ProductBucket, 0)
	for rows.Next() {
		var p entities.PricePoint
		var dose sql.NullString
		if err := rows.Scan(&p.Company, &p.Name, &p.Substance, &p.Form, &dose, &p.Contents,
			&p.ProductCode, &p.Price, &p.Date, &p.Amount, &p.Unit, &p.PricePerUnit); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		p.Dose = nullableString(dose)

		if n := len(buckets); n > 0 && buckets[n-1].ProductCode == p.ProductCode {
			buckets[n-1].Rows = append(buckets[n-1].Rows, p)
			continue
		}
		buckets = append(buckets, entities.ProductBucket{ProductCode: p.ProductCode, Rows: []entities.PricePoint{p}})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortBuckets(buckets)
	return buckets, nil
}

// sortBuckets orders buckets by their latest price per unit, product code breaking ties
func sortBuckets(buckets []entities.ProductBucket) {
	sort.SliceStable(buckets, func(i, j int) bool {
		pi, pj := buckets[i].Latest().PricePerUnit, buckets[j].Latest().PricePerUnit
		if pi != pj {
			return pi < pj
		}
		return buckets[i].ProductCode < buckets[j].ProductCode
	})
}

// LastRun returns the most recent ingestion run, nil when none was recorded.
func (s *SQLiteStore) LastRun(ctx context.Context) (*entities.RunSummary, error) {
	var run entities.RunSummary
	var started, finished string

	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, input_rows, output_rows, dropped_rows
		FROM ingestion_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&run.RunID, &started, &finished, &run.Coverage.Input, &run.Coverage.Output, &run.Coverage.Dropped)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last run: %w", err)
	}

	if run.StartedAt, err = time.Parse(timestampLayout, started); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", started, err)
	}
	if run.FinishedAt, err = time.Parse(timestampLayout, finished); err != nil {
		return nil, fmt.Errorf("invalid finished_at %q: %w", finished, err)
	}

	return &run, nil
}

// CountRows returns the number of stored price rows.
func (s *SQLiteStore) CountRows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM medicine`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
