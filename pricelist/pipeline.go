// Package pricelist reads the published reimbursement price lists and turns
// them into normalized rows ready to be stored.
package pricelist

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medprices/medprices-api/contents"
	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
)

// Compile-time check to ensure Pipeline implements Ingester
var _ interfaces.Ingester = (*Pipeline)(nil)

// FileResult is the output of one processed file.
type FileResult struct {
	Rows     []entities.NormalizedRow
	Coverage entities.Coverage
}

// Pipeline runs the ingestion: read, split, coerce, group, normalize and
// annotate with the company name.
type Pipeline struct {
	source    interfaces.RowSource
	companies interfaces.CompanyResolver
	now       func() time.Time
}

// NewPipeline creates a pipeline reading through source and resolving
// manufacturers through companies.
func NewPipeline(source interfaces.RowSource, companies interfaces.CompanyResolver) *Pipeline {
	return &Pipeline{
		source:    source,
		companies: companies,
		now:       time.Now,
	}
}

// ParseRow splits the name field and coerces the price of one raw row.
func ParseRow(raw entities.RawRow, date time.Time) (entities.ParsedRow, error) {
	name, err := SplitNameField(raw.NameField)
	if err != nil {
		return entities.ParsedRow{}, err
	}

	price, err := ParsePrice(raw.Price)
	if err != nil {
		return entities.ParsedRow{}, err
	}

	return entities.ParsedRow{
		Substance:   raw.Substance,
		Name:        name.Name,
		Form:        name.Form,
		Dose:        name.Dose,
		Contents:    raw.Contents,
		ProductCode: raw.ProductCode,
		Price:       price,
		Date:        date,
	}, nil
}

// ProcessRows normalizes the rows of one file. Groups are processed in the
// order of their first appearance; unclassifiable groups are dropped and
// counted, any other error aborts.
func ProcessRows(raw []entities.RawRow, date time.Time) (*FileResult, error) {
	var order []entities.GroupKey
	groups := make(map[entities.GroupKey][]entities.ParsedRow)

	for i, r := range raw {
		row, err := ParseRow(r, date)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		key := row.Key()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], row)
	}

	result := &FileResult{
		Rows:     make([]entities.NormalizedRow, 0, len(raw)),
		Coverage: entities.Coverage{Input: len(raw)},
	}

	for _, key := range order {
		group, err := contents.NormalizeGroup(groups[key])
		if err != nil {
			var unclassifiable *contents.UnclassifiableGroupError
			if !errors.As(err, &unclassifiable) {
				return nil, err
			}
			logging.Debug("Dropping unclassifiable group",
				"substance", key.Substance,
				"form", key.Form,
				"dose", key.Dose,
				"has_dose", key.HasDose,
				"contents", unclassifiable.Contents)
		}

		result.Rows = append(result.Rows, group.Rows...)
		result.Coverage.Dropped += group.Dropped
	}

	result.Coverage.Output = len(result.Rows)
	return result, nil
}

// ProcessFile reads one file through a column mapping and normalizes it.
func (p *Pipeline) ProcessFile(path string, columns entities.ColumnMapping, date time.Time) (*FileResult, error) {
	raw, err := p.source.ReadRows(path, columns)
	if err != nil {
		return nil, err
	}

	result, err := ProcessRows(raw, date)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Info("Processed price list",
		"path", path,
		"input_rows", result.Coverage.Input,
		"output_rows", result.Coverage.Output,
		"dropped_rows", result.Coverage.Dropped,
		"coverage_percent", result.Coverage.Percent())

	return result, nil
}

// ProcessPeriod processes every published list of a period. Missing lists
// are skipped; a period with none of them is an error.
func (p *Pipeline) ProcessPeriod(period Period) ([]entities.NormalizedRow, []entities.FileSummary, error) {
	var rows []entities.NormalizedRow
	var files []entities.FileSummary

	for _, source := range PeriodFiles {
		path, ok := resolveSourcePath(period.Dir, source.Name)
		if !ok {
			logging.Warn("Price list missing from period", "dir", period.Dir, "list", source.Name)
			continue
		}

		result, err := p.ProcessFile(path, source.Columns, period.Date)
		if err != nil {
			return nil, nil, err
		}

		rows = append(rows, result.Rows...)
		files = append(files, entities.FileSummary{
			Path:     path,
			Date:     period.Date,
			Coverage: result.Coverage,
		})
	}

	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNoPeriodFiles, period.Dir)
	}

	return rows, files, nil
}

// Run ingests every period of dataDir and annotates rows with the company
// name. Nothing is persisted here: a failed run returns no partial table.
func (p *Pipeline) Run(dataDir string) (*entities.RunResult, error) {
	started := p.now()

	periods, err := DiscoverPeriods(dataDir)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, fmt.Errorf("no period directories found in %s", dataDir)
	}

	result := &entities.RunResult{
		RunSummary: entities.RunSummary{
			RunID:     uuid.New().String(),
			StartedAt: started,
		},
	}

	for _, period := range periods {
		rows, files, err := p.ProcessPeriod(period)
		if err != nil {
			return nil, err
		}

		result.Rows = append(result.Rows, rows...)
		result.Files = append(result.Files, files...)
		for _, f := range files {
			result.Coverage.Add(f.Coverage)
		}
	}

	for i := range result.Rows {
		result.Rows[i].Company = p.companies.Resolve(result.Rows[i].ProductCode)
	}

	result.FinishedAt = p.now()

	logging.Info("Ingestion complete",
		"run_id", result.RunID,
		"periods", len(periods),
		"files", len(result.Files),
		"input_rows", result.Coverage.Input,
		"output_rows", result.Coverage.Output,
		"dropped_rows", result.Coverage.Dropped,
		"coverage_percent", result.Coverage.Percent(),
		"duration", result.FinishedAt.Sub(started))

	return result, nil
}
