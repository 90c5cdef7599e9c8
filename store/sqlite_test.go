package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logging.InitLogger("")
	os.Exit(m.Run())
}

func strPtr(s string) *string { return &s }

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "prices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func row(company, name, substance, form string, dose *string, code string, date time.Time, price, amount float64) entities.NormalizedRow {
	return entities.NormalizedRow{
		ParsedRow: entities.ParsedRow{
			Substance:   substance,
			Name:        name,
			Form:        form,
			Dose:        dose,
			Contents:    "30 tabl.",
			ProductCode: code,
			Price:       price,
			Date:        date,
		},
		Amount:       amount,
		Unit:         "tabl.",
		PricePerUnit: price / amount,
		Company:      company,
	}
}

var (
	jan = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)
	mar = time.Date(2023, time.March, 1, 0, 0, 0, 0, time.UTC)
)

func sampleRun() *entities.RunResult {
	started := time.Date(2024, time.May, 5, 6, 0, 0, 0, time.UTC)
	return &entities.RunResult{
		RunSummary: entities.RunSummary{
			RunID:      "run-1",
			StartedAt:  started,
			FinishedAt: started.Add(3 * time.Second),
			Coverage:   entities.Coverage{Input: 8, Output: 6, Dropped: 2},
		},
		Rows: []entities.NormalizedRow{
			row("Polpharma", "Apap", "Paracetamolum", "tabl.", strPtr("500 mg"), "A", jan, 12, 30),
			row("Polpharma", "Apap", "Paracetamolum", "tabl.", strPtr("500 mg"), "A", mar, 6, 30),
			row("Bayer", "Aspirin", "Paracetamolum", "tabl.", strPtr("500 mg"), "B", mar, 9, 30),
			row("Bayer", "Aspirin", "Paracetamolum", "tabl.", strPtr("500 mg"), "B", jan, 3, 30),
			row("Adamed", "Zoltex", "Paracetamolum", "tabl.", nil, "C", jan, 5, 10),
			row("Polpharma", "Apap Extra", "Paracetamolum", "tabl.", strPtr(""), "D", jan, 5, 10),
		},
		Files: []entities.FileSummary{
			{Path: "data/wykaz_01012023/A1.csv", Date: jan, Coverage: entities.Coverage{Input: 5, Output: 4, Dropped: 1}},
			{Path: "data/wykaz_01032023/A1.csv", Date: mar, Coverage: entities.Coverage{Input: 3, Output: 2, Dropped: 1}},
		},
	}
}

func TestEmptyStore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	companies, err := s.Companies(ctx)
	require.NoError(t, err)
	assert.Empty(t, companies)
	assert.NotNil(t, companies)

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	run, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Nil(t, run)
}

func TestReplaceAllAndQueries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, sampleRun()))

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	companies, err := s.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adamed", "Bayer", "Polpharma"}, companies)

	medicines, err := s.MedicinesForCompany(ctx, "Polpharma")
	require.NoError(t, err)
	require.Len(t, medicines, 2)
	assert.Equal(t, "Apap", medicines[0].Name)
	assert.Equal(t, "500 mg", *medicines[0].Dose)
	assert.Equal(t, "Apap Extra", medicines[1].Name)

	none, err := s.MedicinesForCompany(ctx, "Unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGroup_BucketsAndOrdering(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, sampleRun()))

	buckets, err := s.Group(ctx, entities.NewGroupKey("Paracetamolum", "tabl.", strPtr("500 mg")))
	require.NoError(t, err)
	require.Len(t, buckets, 2)

	// A latest = 0.2 per unit, B latest = 0.3
	assert.Equal(t, "A", buckets[0].ProductCode)
	assert.Equal(t, "B", buckets[1].ProductCode)

	require.Len(t, buckets[1].Rows, 2)
	assert.Equal(t, "2023-01-01", buckets[1].Rows[0].Date)
	assert.Equal(t, "2023-03-01", buckets[1].Rows[1].Date)
	assert.Equal(t, "Bayer", buckets[1].Rows[0].Company)
	assert.InDelta(t, 0.3, buckets[1].Latest().PricePerUnit, 1e-9)
}

func TestGroup_NullAndEmptyDose(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, sampleRun()))

	buckets, err := s.Group(ctx, entities.NewGroupKey("Paracetamolum", "tabl.", nil))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "C", buckets[0].ProductCode)
	assert.Nil(t, buckets[0].Rows[0].Dose)

	buckets, err = s.Group(ctx, entities.NewGroupKey("Paracetamolum", "tabl.", strPtr("")))
	require.NoError(t, err)
	require.Len(t, buckets, 1)
	assert.Equal(t, "D", buckets[0].ProductCode)

	buckets, err = s.Group(ctx, entities.NewGroupKey("Ibuprofenum", "tabl.", nil))
	require.NoError(t, err)
	assert.Empty(t, buckets)
}

func TestReplaceAll_ReplacesPreviousTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, sampleRun()))

	second := &entities.RunResult{
		RunSummary: entities.RunSummary{
			RunID:      "run-2",
			StartedAt:  time.Date(2024, time.May, 6, 6, 0, 0, 0, time.UTC),
			FinishedAt: time.Date(2024, time.May, 6, 6, 0, 1, 0, time.UTC),
			Coverage:   entities.Coverage{Input: 1, Output: 1},
		},
		Rows: []entities.NormalizedRow{
			row("Teva", "Paracetamol Teva", "Paracetamolum", "tabl.", nil, "E", mar, 4, 20),
		},
	}
	require.NoError(t, s.ReplaceAll(ctx, second))

	companies, err := s.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Teva"}, companies)

	run, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, "run-2", run.RunID)
	assert.Equal(t, entities.Coverage{Input: 1, Output: 1}, run.Coverage)
	assert.True(t, second.FinishedAt.Equal(run.FinishedAt))
}

func TestReplaceAll_FailureKeepsPreviousTable(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.ReplaceAll(ctx, sampleRun()))

	// a duplicate run id violates the primary key after the table was rebuilt
	err := s.ReplaceAll(ctx, &entities.RunResult{
		RunSummary: entities.RunSummary{RunID: "run-1"},
		Rows: []entities.NormalizedRow{
			row("Teva", "Paracetamol Teva", "Paracetamolum", "tabl.", nil, "E", mar, 4, 20),
		},
	})
	require.Error(t, err)

	n, err := s.CountRows(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	companies, err := s.Companies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adamed", "Bayer", "Polpharma"}, companies)
}

func TestLastRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := sampleRun()
	require.NoError(t, s.ReplaceAll(ctx, run))

	got, err := s.LastRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-1", got.RunID)
	assert.True(t, run.StartedAt.Equal(got.StartedAt))
	assert.Equal(t, run.Coverage, got.Coverage)
}

func TestSortBuckets_TieBreaksOnProductCode(t *testing.T) {
	buckets := []entities.ProductBucket{
		{ProductCode: "Z", Rows: []entities.PricePoint{{PricePerUnit: 1}}},
		{ProductCode: "A", Rows: []entities.PricePoint{{PricePerUnit: 1}}},
		{ProductCode: "M", Rows: []entities.PricePoint{{PricePerUnit: 5}, {PricePerUnit: 0.5}}},
	}
	sortBuckets(buckets)

	assert.Equal(t, "M", buckets[0].ProductCode)
	assert.Equal(t, "A", buckets[1].ProductCode)
	assert.Equal(t, "Z", buckets[2].ProductCode)
}
