package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// Format identifies a supported tabular file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// DetectFormat resolves the format from the file name's extension. The
// extension is authoritative; file content is not sniffed.
func DetectFormat(fileName string) (Format, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	switch ext {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	case "xls":
		return FormatXLS, nil
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}

// ParseTable converts an uploaded spreadsheet file into a TableData with no
// identifier column selected. The first row is always the header; columns
// come out in header order. An empty data set produces zero columns.
func ParseTable(fileName string, data []byte) (*TableData, error) {
	format, err := DetectFormat(fileName)
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatCSV:
		return parseDelimited(data)
	default:
		return parseWorkbook(data)
	}
}

// parseDelimited parses comma-delimited text. All cell values stay verbatim
// strings; delimited text carries no type information.
func parseDelimited(data []byte) (*TableData, error) {
	r := csv.NewReader(bytes.NewReader(sanitizeUTF8(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	return tableFromRows(rows, false), nil
}

// parseWorkbook parses the first sheet of an xlsx/xls workbook, first row
// as header. Numeric cells are preserved as native float64 values.
func parseWorkbook(data []byte) (*TableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return &TableData{}, nil
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return tableFromRows(rows, true), nil
}

// tableFromRows builds a TableData from raw rows with the first row as
// header. With typed=true, numeric-looking cells become float64.
func tableFromRows(rows [][]string, typed bool) *TableData {
	if len(rows) < 2 {
		// No data rows means no columns either: the column set is defined
		// by what the first record actually carries.
		return &TableData{}
	}

	// Blank headers are dropped, so each column remembers its position in
	// the raw row.
	header := rows[0]
	columns := make([]Column, 0, len(header))
	cells := make([]int, 0, len(header))
	for i, h := range header {
		key := strings.TrimSpace(h)
		if key == "" {
			continue
		}
		columns = append(columns, Column{Key: key, Label: key})
		cells = append(cells, i)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		values := make(map[string]any, len(columns))
		for i, col := range columns {
			if cells[i] >= len(row) {
				values[col.Key] = ""
				continue
			}
			values[col.Key] = cellValue(row[cells[i]], typed)
		}
		records = append(records, Record{Values: values})
	}

	if len(records) == 0 {
		return &TableData{}
	}

	return &TableData{Columns: columns, Records: records}
}

// cellValue converts one raw cell. Delimited text stays a string; workbook
// cells that parse as numbers become float64.
func cellValue(raw string, typed bool) any {
	if !typed {
		return raw
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return raw
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return n
	}
	return raw
}

// isEmptyRow reports whether every cell in the row is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement rune
// so the CSV reader never chokes on mixed encodings.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}
