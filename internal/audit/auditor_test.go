package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-trip-audit/internal/models"
)

func km(v float64) *float64 { return &v }

func trip(id string, start, end, declared *float64) models.TripRecord {
	return models.TripRecord{Row: 1, Identifier: id, StartKM: start, EndKM: end, DeclaredTotalKM: declared}
}

func TestAuditSensorError(t *testing.T) {
	a := NewAuditor(0, 2000)
	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(1500), km(1400), nil),
	})

	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusQuarantined, records[0].Status)
	assert.Equal(t, models.ReasonSensorError, entries[0].Reason)
	assert.Equal(t, models.SeverityCritical, entries[0].Severity)
}

func TestAuditIncompleteOdometer(t *testing.T) {
	a := NewAuditor(0, 2000)

	tests := []struct {
		name string
		rec  models.TripRecord
	}{
		{name: "missing start", rec: trip("TRK-1", nil, km(500), km(100))},
		{name: "missing end", rec: trip("TRK-2", km(100), nil, km(100))},
		{name: "missing both", rec: trip("TRK-3", nil, nil, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, entries := a.Audit([]models.TripRecord{tt.rec})
			require.Len(t, entries, 1)
			assert.Equal(t, models.StatusQuarantined, records[0].Status)
			assert.Equal(t, models.ReasonSensorError, entries[0].Reason)
			assert.Equal(t, "incomplete odometer data", entries[0].Note)
			assert.Nil(t, records[0].DerivedTotalKM)
		})
	}
}

func TestAuditManualEntryMismatch(t *testing.T) {
	a := NewAuditor(0, 2000)
	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(1000), km(1200), km(250)),
	})

	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusCorrected, records[0].Status)
	assert.Equal(t, models.ReasonManualEntryMismatch, entries[0].Reason)
	assert.Equal(t, models.SeverityWarning, entries[0].Severity)
	require.NotNil(t, records[0].DerivedTotalKM)
	assert.Equal(t, 200.0, *records[0].DerivedTotalKM)
}

func TestAuditSensorErrorPrecedesMismatch(t *testing.T) {
	// end < start and the declared total disagrees: a record is never both a
	// sensor error and a mismatch, sensor error wins.
	a := NewAuditor(0, 2000)
	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(500), km(300), km(999)),
	})

	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusQuarantined, records[0].Status)
	assert.Equal(t, models.ReasonSensorError, entries[0].Reason)
}

func TestAuditOutlierOverridesCorrection(t *testing.T) {
	// 5000 km derived, declared disagrees: mismatch would mark it Corrected,
	// but the outlier ceiling quarantines it instead.
	a := NewAuditor(0, 2000)
	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(0), km(5000), km(100)),
	})

	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusQuarantined, records[0].Status)
	assert.Equal(t, models.ReasonOutlierMagnitude, entries[0].Reason)
	assert.Equal(t, models.SeverityCritical, entries[0].Severity)
}

func TestAuditOutlierOnCleanLookingTrip(t *testing.T) {
	a := NewAuditor(0, 2000)
	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(0), km(3000), km(3000)),
	})

	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusQuarantined, records[0].Status)
	assert.Equal(t, models.ReasonOutlierMagnitude, entries[0].Reason)
}

func TestAuditClean(t *testing.T) {
	a := NewAuditor(0, 2000)
	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(100), km(350), km(250)),
		trip("TRK-2", km(0), km(80), nil), // no declared total, nothing to mismatch
	})

	assert.Empty(t, entries, "clean records produce no audit entries")
	for _, rec := range records {
		assert.Equal(t, models.StatusClean, rec.Status)
	}
}

func TestAuditTolerance(t *testing.T) {
	tests := []struct {
		name      string
		tolerance float64
		declared  float64
		want      models.Status
	}{
		{name: "exact match required, off by one", tolerance: 0, declared: 201, want: models.StatusCorrected},
		{name: "within tolerance", tolerance: 1.5, declared: 201, want: models.StatusClean},
		{name: "beyond tolerance", tolerance: 1.5, declared: 205, want: models.StatusCorrected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuditor(tt.tolerance, 2000)
			records, _ := a.Audit([]models.TripRecord{
				trip("TRK-1", km(1000), km(1200), km(tt.declared)),
			})
			assert.Equal(t, tt.want, records[0].Status)
		})
	}
}

func TestAuditNoRecordLeftUnvalidated(t *testing.T) {
	a := NewAuditor(0, 2000)
	records, _ := a.Audit([]models.TripRecord{
		trip("TRK-1", km(100), km(350), km(250)),
		trip("TRK-2", km(500), km(400), nil),
		trip("TRK-3", nil, km(400), nil),
		trip("TRK-4", km(0), km(9000), nil),
		trip("TRK-5", km(10), km(60), km(99)),
	})

	valid := map[models.Status]bool{
		models.StatusClean:       true,
		models.StatusCorrected:   true,
		models.StatusQuarantined: true,
	}
	for _, rec := range records {
		assert.True(t, valid[rec.Status], "record %s has status %q", rec.Identifier, rec.Status)
	}
}

func TestCorrectorAppliesTrustedSource(t *testing.T) {
	a := NewAuditor(0, 2000)
	c := NewCorrector()

	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(1000), km(1200), km(250)),
	})
	records, entries = c.Apply(records, entries)

	require.NotNil(t, records[0].DeclaredTotalKM)
	assert.Equal(t, 200.0, *records[0].DeclaredTotalKM, "declared total replaced by odometer-derived value")

	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].OriginalValue)
	require.NotNil(t, entries[0].CorrectedValue)
	assert.Equal(t, 250.0, *entries[0].OriginalValue)
	assert.Equal(t, 200.0, *entries[0].CorrectedValue)
}

func TestCorrectorLeavesQuarantinedAlone(t *testing.T) {
	a := NewAuditor(0, 2000)
	c := NewCorrector()

	records, entries := a.Audit([]models.TripRecord{
		trip("TRK-1", km(0), km(5000), km(100)), // outlier, quarantined
	})
	records, entries = c.Apply(records, entries)

	require.NotNil(t, records[0].DeclaredTotalKM)
	assert.Equal(t, 100.0, *records[0].DeclaredTotalKM, "quarantined values are never rewritten")
	assert.Nil(t, entries[0].CorrectedValue)
}
