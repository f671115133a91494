// Package tabular turns uploaded delimited files into an in-memory table
// of string cells. It knows nothing about domain fields; classification
// and validation happen downstream.
package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxFileSize is the upload ceiling enforced before parsing begins.
const MaxFileSize = 5 << 20

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge is returned when the payload exceeds MaxFileSize.
	ErrFileTooLarge = errors.New("file exceeds size limit")

	// ErrTooFewLines is returned when the file has no header or no data rows.
	ErrTooFewLines = errors.New("file must contain a header row and at least one data row")

	// ErrMalformed wraps decode failures from the underlying reader.
	ErrMalformed = errors.New("malformed file")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// Table is the parsed form of an uploaded file. Headers keep their
// original order and text (duplicates allowed); every row holds exactly
// len(Headers) cells, short rows padded with empty strings. Immutable
// after parsing.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Parse decodes the payload according to the file extension and returns a
// normalized table. The payload is rejected up front when oversized or of
// an unsupported extension; content with fewer than two non-empty lines
// is a terminal error, not recoverable by retry.
func Parse(fileName string, payload []byte) (Table, error) {
	if len(payload) > MaxFileSize {
		return Table{}, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv", ".txt":
		return parseCSV(payload)
	case ".xlsx", ".xls":
		return parseExcel(payload)
	default:
		return Table{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (Table, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return normalize(records)
}

func parseExcel(payload []byte) (Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	return normalize(rows)
}

func normalize(records [][]string) (Table, error) {
	var headers []string
	var rows [][]string

	for _, record := range records {
		if isEmptyRow(record) {
			continue
		}
		if headers == nil {
			headers = trimCells(record)
			continue
		}
		rows = append(rows, padRow(record, len(headers)))
	}

	if headers == nil || len(rows) == 0 {
		return Table{}, ErrTooFewLines
	}

	return Table{Headers: headers, Rows: rows}, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimCells(row []string) []string {
	trimmed := make([]string, len(row))
	for i, cell := range row {
		trimmed[i] = strings.TrimSpace(cell)
	}
	return trimmed
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
