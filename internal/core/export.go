package core

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ExportSheetName is the sheet written into workbook exports.
const ExportSheetName = "Monopiles"

// ExportCSV serializes the table's full record set to delimited text in
// the same dialect as input: comma-separated, standard RFC4180 quoting.
// Column order is first-seen header order. Any active search filter is
// ignored; export always emits everything.
func ExportCSV(table *TableData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(table.Columns))
	for i, col := range table.Columns {
		header[i] = col.Key
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(table.Columns))
	for _, rec := range table.Records {
		for i, col := range table.Columns {
			row[i] = coerceString(rec.Values[col.Key])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportWorkbook serializes the table's full record set to xlsx bytes.
// Native numeric values stay numbers in the workbook cells.
func ExportWorkbook(table *TableData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, col := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(ExportSheetName, cell, col.Key); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	for r, rec := range table.Records {
		for c, col := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			v := rec.Values[col.Key]
			if v == nil {
				v = ""
			}
			if err := f.SetCellValue(ExportSheetName, cell, v); err != nil {
				return nil, fmt.Errorf("write row %d: %w", r+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
