package entities

import "time"

// RawRow is one line of a price-list export after the column mapping step.
// All values are kept exactly as they appear in the source file.
type RawRow struct {
	Substance   string
	NameField   string // "name, form, dose" or "name, form"
	Contents    string
	ProductCode string
	Price       string // comma decimal separator, e.g. "10,50"
}

// ParsedRow is a RawRow with the name field split and the price coerced.
type ParsedRow struct {
	Substance   string    `json:"substance"`
	Name        string    `json:"name"`
	Form        string    `json:"form"`
	Dose        *string   `json:"dose"`
	Contents    string    `json:"contents"`
	ProductCode string    `json:"product_code"`
	Price       float64   `json:"price"`
	Date        time.Time `json:"date"`
}

// Key returns the (substance, form, dose) group key of the row.
func (r ParsedRow) Key() GroupKey {
	return NewGroupKey(r.Substance, r.Form, r.Dose)
}

// NormalizedRow is a ParsedRow with its contents reduced to a comparable unit.
type NormalizedRow struct {
	ParsedRow
	Amount       float64 `json:"amount"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit"`
	Company      string  `json:"company"`
}
