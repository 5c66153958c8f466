// Package sanitize coerces raw fleet report rows into typed trip records.
// Non-numeric odometer cells become absent values, summary/footer rows are
// dropped, and rows without a plate identifier are discarded. Row-level
// garbage never fails a run; only a structurally unusable table does.
package sanitize

import (
	"fmt"
	"strconv"
	"strings"

	"fleet-trip-audit/internal/loader"
	"fleet-trip-audit/internal/models"
)

// Column names the sanitizer interprets; everything else passes through.
const (
	colIdentifier = "plate_number"
	colStartKM    = "start_km"
	colEndKM      = "end_km"
	colTotalKM    = "total_km"
)

// Sanitizer turns a raw Table into TripRecords.
type Sanitizer struct {
	// FooterThresholdKM is the absolute per-field cutoff above which a row
	// is treated as a report total, not a trip, and removed outright.
	FooterThresholdKM float64
}

// New returns a Sanitizer with the given footer cutoff.
func New(footerThresholdKM float64) *Sanitizer {
	return &Sanitizer{FooterThresholdKM: footerThresholdKM}
}

// Run converts the table into trip records. The input table is not mutated.
// It returns an error only for structural problems: an empty table or a
// table with no identifier column.
func (s *Sanitizer) Run(table *loader.Table) ([]models.TripRecord, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("empty input table")
	}
	if !hasColumn(table.Columns, colIdentifier) {
		return nil, fmt.Errorf("missing required column %q", colIdentifier)
	}

	records := make([]models.TripRecord, 0, len(table.Rows))
	for i, row := range table.Rows {
		id := CleanIdentifier(row[colIdentifier])
		if id == "" {
			// Cannot attribute the row to a vehicle.
			continue
		}

		rec := models.TripRecord{
			Row:             i + 1,
			Identifier:      id,
			StartKM:         CoerceKM(row[colStartKM]),
			EndKM:           CoerceKM(row[colEndKM]),
			DeclaredTotalKM: CoerceKM(row[colTotalKM]),
		}

		if s.isFooter(rec, row) {
			continue
		}

		for _, col := range table.Columns {
			switch col {
			case colIdentifier, colStartKM, colEndKM, colTotalKM:
			default:
				if v := row[col]; v != "" {
					if rec.Extra == nil {
						rec.Extra = make(map[string]string)
					}
					rec.Extra[col] = v
				}
			}
		}

		records = append(records, rec)
	}

	return records, nil
}

// isFooter detects summary/total rows: any odometer field above the cutoff,
// or a pass-through cell announcing a report total.
func (s *Sanitizer) isFooter(rec models.TripRecord, row loader.Row) bool {
	for _, v := range []*float64{rec.StartKM, rec.EndKM, rec.DeclaredTotalKM} {
		if v != nil && *v > s.FooterThresholdKM {
			return true
		}
	}
	for col, cell := range row {
		switch col {
		case colIdentifier, colStartKM, colEndKM, colTotalKM:
			continue
		}
		if strings.Contains(strings.ToLower(cell), "total mileage") {
			return true
		}
	}
	return false
}

// CleanIdentifier normalizes a plate cell. Spreadsheet exports turn numeric
// plates into "12345.0"; the trailing .0 is stripped. Known null markers
// become empty.
func CleanIdentifier(raw string) string {
	id := strings.TrimSpace(raw)
	id = strings.TrimSuffix(id, ".0")
	switch strings.ToLower(id) {
	case "", "nan", "null", "n/a", "-":
		return ""
	}
	return strings.ToUpper(id)
}

// CoerceKM attempts numeric coercion of an odometer cell. Thousands
// separators and a trailing km unit are tolerated; anything else unparseable
// yields nil (absent), never an error.
func CoerceKM(raw string) *float64 {
	s := strings.TrimSpace(raw)
	s = strings.TrimSuffix(strings.ToLower(s), "km")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
