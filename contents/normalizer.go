package contents

import (
	"math"

	"github.com/medprices/medprices-api/pricelist/entities"
)

// GroupResult is the outcome of normalizing one (substance, form, dose) group.
type GroupResult struct {
	Shape   Shape
	Rows    []entities.NormalizedRow
	Dropped int
}

// NormalizeGroup reduces every row of a group to the same unit vocabulary.
//
// A group whose contents do not share one shape is dropped as a whole: the
// result has no rows, Dropped equals the group size and the returned error is
// an *UnclassifiableGroupError. Any other error is fatal for the run.
func NormalizeGroup(rows []entities.ParsedRow) (GroupResult, error) {
	values := make([]string, len(rows))
	for i := range rows {
		values[i] = rows[i].Contents
	}

	shape := Classify(values)

	var parse func(string) (Quantity, error)
	switch shape {
	case Standard:
		parse = ParseStandard
	case Chunked:
		parse = ParseChunked
	case UniformLiteral:
		parse = func(s string) (Quantity, error) {
			return Quantity{Amount: 1, Unit: s}, nil
		}
	default:
		var key entities.GroupKey
		if len(rows) > 0 {
			key = rows[0].Key()
		}
		return GroupResult{Shape: Unclassifiable, Dropped: len(rows)},
			&UnclassifiableGroupError{Key: key, Contents: values}
	}

	normalized := make([]entities.NormalizedRow, 0, len(rows))
	for _, row := range rows {
		q, err := parse(row.Contents)
		if err != nil {
			return GroupResult{}, err
		}

		normalized = append(normalized, entities.NormalizedRow{
			ParsedRow:    row,
			Amount:       q.Amount,
			Unit:         q.Unit,
			PricePerUnit: Round4(row.Price / q.Amount),
		})
	}

	return GroupResult{Shape: shape, Rows: normalized}, nil
}

// Round4 rounds to 4 decimal places, the precision stored for prices per unit.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
