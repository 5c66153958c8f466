// Package audit implements the rule engine at the heart of the hygiene
// layer: per-record consistency checks between declared and odometer-derived
// distance, sensor validity, and magnitude outlier detection, plus the
// trusted-source corrector and the pipeline that ties the stages together.
package audit

import (
	"math"
	"time"

	"github.com/google/uuid"

	"fleet-trip-audit/internal/models"
)

// finding is the outcome a matched rule assigns to a record.
type finding struct {
	Status   models.Status
	Reason   models.Reason
	Severity models.Severity
	Note     string
}

// rule pairs a predicate with its finding. Rules form an explicit ordered
// chain so precedence stays auditable in one place. Non-override rules are
// first-match-wins; override rules are evaluated even after an earlier match
// and replace it (outlier quarantine trumps a pending correction).
type rule struct {
	name     string
	override bool
	match    func(r *models.TripRecord, a *Auditor) bool
	finding  finding
}

// chain is the fixed evaluation order. Sensor validity comes before the
// mismatch check: a record with a broken odometer pair cannot also be a
// manual-entry mismatch.
var chain = []rule{
	{
		name: "incomplete_odometer",
		match: func(r *models.TripRecord, _ *Auditor) bool {
			return !r.HasOdometer()
		},
		finding: finding{
			Status:   models.StatusQuarantined,
			Reason:   models.ReasonSensorError,
			Severity: models.SeverityCritical,
			Note:     "incomplete odometer data",
		},
	},
	{
		name: "sensor_error",
		match: func(r *models.TripRecord, _ *Auditor) bool {
			return r.HasOdometer() && *r.EndKM < *r.StartKM
		},
		finding: finding{
			Status:   models.StatusQuarantined,
			Reason:   models.ReasonSensorError,
			Severity: models.SeverityCritical,
			Note:     "end km below start km",
		},
	},
	{
		name: "manual_entry_mismatch",
		match: func(r *models.TripRecord, a *Auditor) bool {
			if !r.HasOdometer() || r.DeclaredTotalKM == nil {
				return false
			}
			derived := *r.EndKM - *r.StartKM
			return math.Abs(*r.DeclaredTotalKM-derived) > a.tolerance
		},
		finding: finding{
			Status:   models.StatusCorrected,
			Reason:   models.ReasonManualEntryMismatch,
			Severity: models.SeverityWarning,
			Note:     "declared total disagrees with odometer",
		},
	},
	{
		name:     "outlier_magnitude",
		override: true,
		match: func(r *models.TripRecord, a *Auditor) bool {
			return r.DerivedTotalKM != nil && *r.DerivedTotalKM > a.ceiling
		},
		finding: finding{
			Status:   models.StatusQuarantined,
			Reason:   models.ReasonOutlierMagnitude,
			Severity: models.SeverityCritical,
			Note:     "derived distance above per-trip ceiling",
		},
	},
}

// Auditor classifies trip records as clean, correctable, or quarantined.
type Auditor struct {
	tolerance float64
	ceiling   float64
	now       func() time.Time
}

// NewAuditor builds an auditor with the given mismatch tolerance and
// per-trip outlier ceiling.
func NewAuditor(tolerance, ceilingKM float64) *Auditor {
	return &Auditor{
		tolerance: tolerance,
		ceiling:   ceilingKM,
		now:       time.Now,
	}
}

// Audit annotates every record with a terminal status and derived distance,
// returning one AuditEntry per non-clean record. Records are modified in
// place; entries are appended in record order.
func (a *Auditor) Audit(records []models.TripRecord) ([]models.TripRecord, []models.AuditEntry) {
	entries := make([]models.AuditEntry, 0)

	for i := range records {
		rec := &records[i]

		if rec.HasOdometer() {
			derived := *rec.EndKM - *rec.StartKM
			rec.DerivedTotalKM = &derived
		}

		f, matched := a.evaluate(rec)
		if !matched {
			rec.Status = models.StatusClean
			continue
		}

		rec.Status = f.Status
		entries = append(entries, models.AuditEntry{
			ID:        uuid.New(),
			RecordRef: rec.Ref(),
			RecordRow: rec.Row,
			Reason:    f.Reason,
			Severity:  f.Severity,
			Note:      f.Note,
			AuditedAt: a.now(),
		})
	}

	return records, entries
}

// evaluate walks the chain for one record.
func (a *Auditor) evaluate(rec *models.TripRecord) (finding, bool) {
	var out finding
	matched := false
	for _, r := range chain {
		if matched && !r.override {
			continue
		}
		if r.match(rec, a) {
			out = r.finding
			matched = true
		}
	}
	return out, matched
}
