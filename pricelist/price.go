package pricelist

import (
	"errors"
	"strconv"
	"strings"

	"github.com/medprices/medprices-api/contents"
)

var errEmptyPrice = errors.New("empty value")

// ParsePrice converts a price written with a comma decimal separator.
//
// Spaces (including non-breaking ones) are treated as thousands separators.
// When a value carries several commas only the last one is the decimal mark.
func ParsePrice(s string) (float64, error) {
	value := strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(strings.TrimSpace(s))
	if value == "" {
		return 0, &contents.MalformedNumberError{Field: "price", Value: s, Err: errEmptyPrice}
	}

	if numCommas := strings.Count(value, ","); numCommas > 1 {
		value = strings.Replace(value, ",", "", numCommas-1)
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		return 0, &contents.MalformedNumberError{Field: "price", Value: s, Err: err}
	}

	return price, nil
}
