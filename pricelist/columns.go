package pricelist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/medprices/medprices-api/pricelist/entities"
	"golang.org/x/text/unicode/norm"
)

// Source headers of the published price lists. The name column differs
// between the A lists and the B/C lists.
const (
	HeaderSubstance   = "Substancja czynna"
	HeaderNameA       = "Nazwa  postać i dawka"
	HeaderNameBC      = "Nazwa  postać i dawka leku"
	HeaderContents    = "Zawartość opakowania"
	HeaderProductCode = "Numer GTIN lub inny kod jednoznacznie identyfikujący produkt"
	HeaderPrice       = "Cena hurtowa brutto"
)

// ErrMissingColumn is returned when a mapped header is absent from a file.
var ErrMissingColumn = errors.New("missing column")

// Columns returns the mapping used by the price lists for a given name header.
func Columns(nameHeader string) entities.ColumnMapping {
	return entities.ColumnMapping{
		Substance:   HeaderSubstance,
		NameField:   nameHeader,
		Contents:    HeaderContents,
		ProductCode: HeaderProductCode,
		Price:       HeaderPrice,
	}
}

// normalizeHeader makes header matching insensitive to case, whitespace runs
// and Unicode composition (exports mix NFC and NFD for Polish letters)
func normalizeHeader(h string) string {
	h = norm.NFC.String(h)
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

// columnIndex resolves the mapped headers to positions in a header row
func columnIndex(headers []string, columns entities.ColumnMapping) ([5]int, error) {
	positions := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if _, seen := positions[key]; !seen {
			positions[key] = i
		}
	}

	var idx [5]int
	for i, want := range columns.Headers() {
		pos, ok := positions[normalizeHeader(want)]
		if !ok {
			return idx, fmt.Errorf("%w: %q", ErrMissingColumn, want)
		}
		idx[i] = pos
	}

	return idx, nil
}
