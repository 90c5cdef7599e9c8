// Package contents turns the free-text "package contents" column of the
// price lists ("30 tabl.", "5 fiol. po 10 ml") into an amount of one unit,
// so that prices of different package sizes can be compared.
package contents

import (
	"regexp"
	"strconv"
	"strings"
)

// Shape is the structural pattern shared by the contents strings of a group.
type Shape int

const (
	Unclassifiable Shape = iota
	// Standard is "<count> <unit>" with an optional parenthesised note, e.g. "30 tabl. (3 x 10)".
	Standard
	// Chunked is "<count> <container> [po|a] <quantity> <unit>", e.g. "5 fiol. po 10 ml".
	Chunked
	// UniformLiteral applies when every string of the group is identical; the
	// whole string becomes the unit and the amount is 1.
	UniformLiteral
)

func (s Shape) String() string {
	switch s {
	case Standard:
		return "standard"
	case Chunked:
		return "chunked"
	case UniformLiteral:
		return "uniform_literal"
	default:
		return "unclassifiable"
	}
}

// Pre-compiled patterns for the closed vocabulary of the price lists
var (
	standardRegex = regexp.MustCompile(`^(\d+) (pasków|amp\.-strz\.?|szt\.?\.?|kaps\.?|ml\.?|fiol\.?(?: proszku)?|daw\.?|g\.?|sasz\.?|tabl\.?)(?: ?\(.*\))?$`)

	chunkedRegex = regexp.MustCompile(`^(\d+) (?:fiol\.|wkł\.|butelka|butelki|but\.|amp\.|poj\.|amp\.-strz\.|szt\.) ?(?:po|a)? (\d+,?\d*) ?(ml|mg|g|daw\.)$`)
)

// Quantity is the amount of Unit held by one package.
type Quantity struct {
	Amount float64
	Unit   string
}

// IsStandard reports whether s has the Standard shape with a non-zero count.
func IsStandard(s string) bool {
	m := standardRegex.FindStringSubmatch(s)
	return m != nil && isPositive(m[1])
}

// IsChunked reports whether s has the Chunked shape with non-zero numbers.
func IsChunked(s string) bool {
	m := chunkedRegex.FindStringSubmatch(s)
	return m != nil && isPositive(m[1]) && isPositive(m[2])
}

// ClassifyString returns the shape of a single string, Standard taking
// precedence over Chunked. UniformLiteral only exists at group level.
func ClassifyString(s string) Shape {
	switch {
	case IsStandard(s):
		return Standard
	case IsChunked(s):
		return Chunked
	default:
		return Unclassifiable
	}
}

// Classify picks the single shape that fits every string of a group.
// The checks run in order: all Standard, all identical, all Chunked.
func Classify(values []string) Shape {
	if len(values) == 0 {
		return Unclassifiable
	}

	if all(values, IsStandard) {
		return Standard
	}

	first := values[0]
	if all(values, func(s string) bool { return s == first }) {
		return UniformLiteral
	}

	if all(values, IsChunked) {
		return Chunked
	}

	return Unclassifiable
}

// ParseStandard extracts the leading count and the unit keyword as written.
// A zero count is a shape mismatch, so the returned amount is never zero.
func ParseStandard(s string) (Quantity, error) {
	m := standardRegex.FindStringSubmatch(s)
	if m == nil || !isPositive(m[1]) {
		return Quantity{}, ErrShapeMismatch
	}

	amount, err := parseNumber(m[1], s)
	if err != nil {
		return Quantity{}, err
	}

	return Quantity{Amount: amount, Unit: m[2]}, nil
}

// ParseChunked multiplies the container count by the per-container quantity.
func ParseChunked(s string) (Quantity, error) {
	m := chunkedRegex.FindStringSubmatch(s)
	if m == nil || !isPositive(m[1]) || !isPositive(m[2]) {
		return Quantity{}, ErrShapeMismatch
	}

	count, err := parseNumber(m[1], s)
	if err != nil {
		return Quantity{}, err
	}

	perContainer, err := parseNumber(m[2], s)
	if err != nil {
		return Quantity{}, err
	}

	return Quantity{Amount: count * perContainer, Unit: m[3]}, nil
}

// parseNumber converts a captured number using a comma as decimal separator
func parseNumber(value, contents string) (float64, error) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", "."), 64)
	if err != nil {
		return 0, &MalformedNumberError{Field: "contents " + strconv.Quote(contents), Value: value, Err: err}
	}
	return f, nil
}

// isPositive works on the raw digits so classification never needs a conversion
func isPositive(digits string) bool {
	return strings.Trim(digits, "0,") != ""
}

func all(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}
