package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category is the operational role derived from a vehicle's plate identifier.
type Category string

const (
	CategoryActiveStandard Category = "active_standard"
	CategoryDepotBackup    Category = "depot_backup"
	CategoryTransfer       Category = "transfer"
	CategoryUnknown        Category = "unknown"
)

// Status is the audit outcome for a trip record. The zero value means the
// record has not been through the auditor yet.
type Status string

const (
	StatusUnvalidated Status = ""
	StatusClean       Status = "clean"
	StatusCorrected   Status = "corrected"
	StatusQuarantined Status = "quarantined"
)

// Reason identifies which audit rule flagged a record.
type Reason string

const (
	ReasonSensorError         Reason = "sensor_error"
	ReasonManualEntryMismatch Reason = "manual_entry_mismatch"
	ReasonOutlierMagnitude    Reason = "outlier_magnitude"
)

// Severity grades an audit finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
)

// TripRecord represents a single trip reported for a vehicle. The three
// odometer fields are pointers: nil means the source cell was empty or
// unparseable and the sanitizer recorded it as absent.
type TripRecord struct {
	Row             int      `json:"row"`
	Identifier      string   `json:"identifier"`
	StartKM         *float64 `json:"start_km"`
	EndKM           *float64 `json:"end_km"`
	DeclaredTotalKM *float64 `json:"declared_total_km"`
	Category        Category `json:"category"`
	Status          Status   `json:"status"`
	DerivedTotalKM  *float64 `json:"derived_total_km"`

	// Extra holds input columns the pipeline does not interpret (make,
	// location, driver...). They pass through untouched.
	Extra map[string]string `json:"extra,omitempty"`
}

// HasOdometer reports whether both odometer endpoints are present.
func (t *TripRecord) HasOdometer() bool {
	return t.StartKM != nil && t.EndKM != nil
}

// Ref identifies the record in the audit log: plate plus source row.
func (t *TripRecord) Ref() string {
	return fmt.Sprintf("%s#%d", t.Identifier, t.Row)
}

// AuditEntry records one non-clean audit finding. Entries are immutable once
// created and are rebuilt from scratch on every pipeline run.
type AuditEntry struct {
	ID             uuid.UUID `json:"id"`
	RecordRef      string    `json:"record_reference"`
	RecordRow      int       `json:"record_row"`
	Reason         Reason    `json:"reason"`
	Severity       Severity  `json:"severity"`
	Note           string    `json:"note,omitempty"`
	OriginalValue  *float64  `json:"original_value,omitempty"`
	CorrectedValue *float64  `json:"corrected_value,omitempty"`
	AuditedAt      time.Time `json:"audited_at"`
}

// VehicleUtilization aggregates clean-set distance per vehicle.
type VehicleUtilization struct {
	Identifier string   `json:"identifier"`
	Category   Category `json:"category"`
	Trips      int      `json:"trips"`
	TotalKM    float64  `json:"total_km"`
}

// FleetSummary provides aggregated statistics over one audited batch.
type FleetSummary struct {
	TotalRecords     int                  `json:"total_records"`
	CleanRecords     int                  `json:"clean_records"`
	CorrectedRecords int                  `json:"corrected_records"`
	Quarantined      int                  `json:"quarantined_records"`
	Vehicles         int                  `json:"vehicles"`
	TotalDistanceKM  float64              `json:"total_distance_km"`
	ReasonCounts     map[Reason]int       `json:"reason_counts"`
	CategoryKM       map[Category]float64 `json:"category_km"`
}

// TripQuery represents filter parameters for stored-trip lookups.
type TripQuery struct {
	RunID      string
	Identifier string
	Status     Status
	Category   Category
	Limit      int
	Offset     int
}
