// Package export serializes ledger snapshots to CSV and XLSX downloads.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/vbonduro/freezerinv/internal/domain"
)

type Column string

const (
	ColumnCoordinate  Column = "Coordinate"
	ColumnDescription Column = "Description"
	ColumnTimestamp   Column = "Timestamp"
)

// TimestampLayout is ISO-8601 with second precision.
const TimestampLayout = time.RFC3339

var DefaultColumns = []Column{ColumnCoordinate, ColumnDescription}

var ErrUnknownColumn = errors.New("unknown export column")

// ParseColumns reads a comma-separated column list, case-insensitively.
// Duplicates are dropped; an empty list yields DefaultColumns.
func ParseColumns(s string) ([]Column, error) {
	var cols []Column
	seen := make(map[Column]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var col Column
		switch strings.ToLower(part) {
		case "coordinate":
			col = ColumnCoordinate
		case "description", "sample_name":
			col = ColumnDescription
		case "timestamp":
			col = ColumnTimestamp
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, part)
		}
		if !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return append([]Column(nil), DefaultColumns...), nil
	}
	return cols, nil
}

func field(e domain.Entry, c Column) string {
	switch c {
	case ColumnCoordinate:
		return e.Coordinate
	case ColumnDescription:
		return e.Description
	case ColumnTimestamp:
		return e.Timestamp.UTC().Format(TimestampLayout)
	default:
		return ""
	}
}

func header(columns []Column) []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = string(c)
	}
	return h
}

// ToCSV writes a UTF-8 CSV with a header row followed by one row per entry,
// in the order given.
func ToCSV(entries []domain.Entry, columns []Column) ([]byte, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header(columns)); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	row := make([]string, len(columns))
	for _, e := range entries {
		for i, c := range columns {
			row[i] = field(e, c)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write csv row %s: %w", e.Coordinate, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// ToSpreadsheet renders the same rows as ToCSV into a single-sheet XLSX
// workbook named sheetName.
func ToSpreadsheet(entries []domain.Entry, sheetName string, columns []Column) ([]byte, error) {
	if len(columns) == 0 {
		columns = DefaultColumns
	}
	sheet := SheetName(sheetName)

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerRow := make([]interface{}, len(columns))
	for i, h := range header(columns) {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheet, 1, 1, bold)
	}

	for r, e := range entries {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", r+2, err)
		}
		row := make([]interface{}, len(columns))
		for i, c := range columns {
			row[i] = field(e, c)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %s: %w", e.Coordinate, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// SheetName makes name acceptable as an XLSX sheet name.
func SheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '[', ']', ':', '*', '?', '/', '\\':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		return "Inventory"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// FileName builds the download name for an inventory export, e.g.
// "freezer_inventory.csv".
func FileName(inventoryName, ext string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.' || r == '/':
			return '_'
		}
		return -1
	}, strings.TrimSpace(inventoryName))
	if base == "" {
		base = "inventory"
	}
	return base + "." + strings.TrimPrefix(ext, ".")
}
