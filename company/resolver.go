// Package company maps product codes to manufacturer names using the
// companies lookup file published next to the price lists.
package company

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
)

// FallbackCompany is the label of products whose code is not in the lookup table.
const FallbackCompany = "Other company"

// Compile-time check to ensure Resolver implements CompanyResolver
var _ interfaces.CompanyResolver = (*Resolver)(nil)

// Resolver is a read-only code -> company name table.
type Resolver struct {
	names map[string]string
}

// NewResolver builds a resolver over an in-memory table.
func NewResolver(names map[string]string) *Resolver {
	if names == nil {
		names = make(map[string]string)
	}
	return &Resolver{names: names}
}

// LoadCompanies reads a lookup file with one "code#name" pair per line.
// A missing file yields an empty table so every product falls back.
func LoadCompanies(path string) (*Resolver, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("Companies file not found, every product will use the fallback company",
				"path", path, "fallback", FallbackCompany)
			return NewResolver(nil), nil
		}
		return nil, fmt.Errorf("failed to open companies file: %w", err)
	}
	defer f.Close()

	r, err := ParseCompanies(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	logging.Info("Companies loaded", "path", path, "count", r.Len())
	return r, nil
}

// ParseCompanies reads "code#name" lines. Blank lines are ignored and the
// first occurrence of a code wins.
func ParseCompanies(r io.Reader) (*Resolver, error) {
	names := make(map[string]string)
	scanner := bufio.NewScanner(r)
	lineNumber := 0

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}

		code, name, ok := strings.Cut(line, "#")
		if !ok {
			return nil, fmt.Errorf("line %d: expected \"code#name\", got %q", lineNumber, line)
		}

		code = strings.TrimSpace(code)
		if _, exists := names[code]; !exists {
			names[code] = strings.TrimSpace(name)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read companies: %w", err)
	}

	return NewResolver(names), nil
}

// Resolve returns the company for a product code, trying the code as
// written and then its integer form (leading zeros dropped).
func (r *Resolver) Resolve(productCode string) string {
	code := strings.TrimSpace(productCode)
	if name, ok := r.names[code]; ok {
		return name
	}

	if n, err := strconv.ParseInt(code, 10, 64); err == nil {
		if name, ok := r.names[strconv.FormatInt(n, 10)]; ok {
			return name
		}
	}

	return FallbackCompany
}

// Len returns the number of known codes.
func (r *Resolver) Len() int {
	return len(r.names)
}
