package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is the raw tabular input handed to the pipeline: named columns over
// string cells. Cells keep whatever the source file contained; typing is the
// sanitizer's job.
type Table struct {
	Columns []string
	Rows    []Row
}

// Row maps a normalized column name to the raw cell value.
type Row map[string]string

// headerScanLimit bounds how deep we look for the real header row. Fleet
// reports often carry a few banner/title lines above the column names.
const headerScanLimit = 20

// Loader reads fleet report files into a Table.
type Loader struct {
	// IdentifierColumn is the normalized name of the plate column used to
	// locate the header row.
	IdentifierColumn string
}

// NewLoader returns a Loader that locates headers by the plate-number column.
func NewLoader() *Loader {
	return &Loader{IdentifierColumn: "plate_number"}
}

// LoadFile reads a CSV fleet report from disk.
func (l *Loader) LoadFile(filename string) (*Table, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	return l.Load(file)
}

// Load reads a CSV fleet report. The header row is not assumed to be first:
// the first row (within headerScanLimit) containing a cell that normalizes to
// the identifier column is taken as the header, and everything above it is
// discarded. Returns an error when no header can be found — without the
// plate column the report cannot be attributed to vehicles at all.
func (l *Loader) Load(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // allow ragged rows

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}

	headerIdx := -1
	limit := headerScanLimit
	if len(records) < limit {
		limit = len(records)
	}
	for i := 0; i < limit; i++ {
		for _, cell := range records[i] {
			if NormalizeColumn(cell) == l.IdentifierColumn {
				headerIdx = i
				break
			}
		}
		if headerIdx >= 0 {
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no %q column found in first %d rows", l.IdentifierColumn, limit)
	}

	columns := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		columns[i] = NormalizeColumn(h)
	}

	table := &Table{Columns: columns}
	for _, rec := range records[headerIdx+1:] {
		row := make(Row, len(columns))
		for i, col := range columns {
			if i < len(rec) {
				row[col] = strings.TrimSpace(rec[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// NormalizeColumn standardizes a header cell: trimmed, lowercased, spaces
// collapsed to underscores. "Plate Number" and "plate_number" map to the
// same column.
func NormalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.Join(strings.Fields(name), "_")
	return strings.ReplaceAll(name, "-", "_")
}
