package audit

import "fleet-trip-audit/internal/models"

// Corrector applies trusted-source correction: where the auditor flagged a
// manual-entry mismatch, the odometer-derived distance replaces the declared
// total. The odometer is always trusted over the manual entry. This is the
// only place a record's value fields change after sanitization.
type Corrector struct{}

// NewCorrector returns a Corrector.
func NewCorrector() *Corrector {
	return &Corrector{}
}

// Apply rewrites declared totals on Corrected records and fills the
// original/corrected value pair on the matching audit entries.
func (c *Corrector) Apply(records []models.TripRecord, entries []models.AuditEntry) ([]models.TripRecord, []models.AuditEntry) {
	byRef := make(map[string]int, len(entries))
	for i, e := range entries {
		if e.Reason == models.ReasonManualEntryMismatch {
			byRef[e.RecordRef] = i
		}
	}

	for i := range records {
		rec := &records[i]
		if rec.Status != models.StatusCorrected || rec.DerivedTotalKM == nil {
			continue
		}

		idx, ok := byRef[rec.Ref()]
		if !ok {
			continue
		}

		original := rec.DeclaredTotalKM
		corrected := *rec.DerivedTotalKM
		rec.DeclaredTotalKM = &corrected

		// Entries are immutable once the pass finishes; give them their
		// own copy of the corrected value.
		entryValue := corrected
		entries[idx].OriginalValue = original
		entries[idx].CorrectedValue = &entryValue
	}

	return records, entries
}
