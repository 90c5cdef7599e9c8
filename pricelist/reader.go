package pricelist

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/medprices/medprices-api/interfaces"
	"github.com/medprices/medprices-api/logging"
	"github.com/medprices/medprices-api/pricelist/entities"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// Compile-time check to ensure FileReader implements RowSource
var _ interfaces.RowSource = (*FileReader)(nil)

// headerSearchDepth is how many leading rows may hold titles before the header row
const headerSearchDepth = 10

// FileReader reads price-list exports in CSV or XLSX format.
type FileReader struct{}

// NewFileReader creates a new FileReader instance
func NewFileReader() *FileReader {
	return &FileReader{}
}

// ReadRows implements the RowSource interface
func (r *FileReader) ReadRows(path string, columns entities.ColumnMapping) ([]entities.RawRow, error) {
	var records [][]string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSVRecords(path)
	case ".xlsx":
		records, err = readXLSXRecords(path)
	default:
		return nil, fmt.Errorf("unsupported price list format: %s", path)
	}
	if err != nil {
		return nil, err
	}

	return recordsToRows(path, records, columns)
}

func readCSVRecords(path string) ([][]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	b = bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})

	// Older exports are Windows-1250, newer ones UTF-8
	if !utf8.Valid(b) {
		b, err = charmap.Windows1250.NewDecoder().Bytes(b)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(b))
	reader.Comma = sniffDelimiter(b)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv %s: %w", path, err)
	}

	return records, nil
}

// sniffDelimiter picks ';' when the first line has more semicolons than commas
func sniffDelimiter(b []byte) rune {
	firstLine := b
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		firstLine = b[:i]
	}
	if bytes.Count(firstLine, []byte{';'}) > bytes.Count(firstLine, []byte{','}) {
		return ';'
	}
	return ','
}

func readXLSXRecords(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("Failed to close workbook", "path", path, "error", err)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}

	// Raw values keep product codes from being rendered in scientific notation
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q of %s: %w", sheets[0], path, err)
	}

	return rows, nil
}

// recordsToRows locates the header row and maps every data record to a RawRow
func recordsToRows(path string, records [][]string, columns entities.ColumnMapping) ([]entities.RawRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%s is empty", path)
	}

	headerRow := -1
	var idx [5]int
	var firstErr error
	for i := 0; i < len(records) && i < headerSearchDepth; i++ {
		found, err := columnIndex(records[i], columns)
		if err == nil {
			headerRow, idx = i, found
			break
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if headerRow < 0 {
		return nil, fmt.Errorf("no header row in %s: %w", path, firstErr)
	}

	rows := make([]entities.RawRow, 0, len(records)-headerRow-1)
	skippedEmptyLines := 0

	for _, record := range records[headerRow+1:] {
		field := func(i int) string {
			if idx[i] < len(record) {
				return record[idx[i]]
			}
			return ""
		}

		row := entities.RawRow{
			Substance:   field(0),
			NameField:   field(1),
			Contents:    field(2),
			ProductCode: field(3),
			Price:       field(4),
		}

		if isBlank(row) {
			skippedEmptyLines++
			continue
		}

		rows = append(rows, row)
	}

	if skippedEmptyLines > 0 {
		logging.Info("Price list skip statistics",
			"path", path,
			"empty_lines", skippedEmptyLines,
			"records_parsed", len(rows))
	}

	return rows, nil
}

func isBlank(row entities.RawRow) bool {
	return strings.TrimSpace(row.Substance) == "" &&
		strings.TrimSpace(row.NameField) == "" &&
		strings.TrimSpace(row.Contents) == "" &&
		strings.TrimSpace(row.ProductCode) == "" &&
		strings.TrimSpace(row.Price) == ""
}
