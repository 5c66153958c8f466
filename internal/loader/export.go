package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"fleet-trip-audit/internal/models"
)

// WriteTrips writes audited trip records as CSV: the core columns first,
// then any pass-through columns in stable order.
func WriteTrips(w io.Writer, records []models.TripRecord) error {
	extras := extraColumns(records)

	writer := csv.NewWriter(w)
	header := []string{"row", "identifier", "category", "status", "start_km", "end_km", "declared_total_km", "derived_total_km"}
	header = append(header, extras...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		rec := []string{
			strconv.Itoa(r.Row),
			r.Identifier,
			string(r.Category),
			string(r.Status),
			formatKM(r.StartKM),
			formatKM(r.EndKM),
			formatKM(r.DeclaredTotalKM),
			formatKM(r.DerivedTotalKM),
		}
		for _, col := range extras {
			rec = append(rec, r.Extra[col])
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteAuditLog writes audit entries as CSV.
func WriteAuditLog(w io.Writer, entries []models.AuditEntry) error {
	writer := csv.NewWriter(w)
	header := []string{"record_reference", "reason", "severity", "original_value", "corrected_value", "audited_at"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, e := range entries {
		rec := []string{
			e.RecordRef,
			string(e.Reason),
			string(e.Severity),
			formatKM(e.OriginalValue),
			formatKM(e.CorrectedValue),
			e.AuditedAt.Format(time.RFC3339),
		}
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func extraColumns(records []models.TripRecord) []string {
	seen := make(map[string]bool)
	for _, r := range records {
		for col := range r.Extra {
			seen[col] = true
		}
	}
	cols := make([]string, 0, len(seen))
	for col := range seen {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	return cols
}

func formatKM(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
