package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-trip-audit/internal/loader"
)

func table(columns []string, rows ...loader.Row) *loader.Table {
	return &loader.Table{Columns: columns, Rows: rows}
}

func TestCoerceKM(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *float64
	}{
		{name: "plain number", in: "1200", want: ptr(1200)},
		{name: "decimal", in: "154.5", want: ptr(154.5)},
		{name: "thousands separator", in: "1,200", want: ptr(1200)},
		{name: "unit suffix", in: "320 km", want: ptr(320)},
		{name: "empty", in: "", want: nil},
		{name: "garbage text", in: "pending", want: nil},
		{name: "header remnant", in: "Start Km", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoerceKM(tt.in)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.Equal(t, *tt.want, *got)
			}
		})
	}
}

func TestCleanIdentifier(t *testing.T) {
	assert.Equal(t, "TRK-101", CleanIdentifier("  trk-101 "))
	assert.Equal(t, "12345", CleanIdentifier("12345.0"), "spreadsheet float artifact")
	assert.Equal(t, "", CleanIdentifier("nan"))
	assert.Equal(t, "", CleanIdentifier("N/A"))
	assert.Equal(t, "", CleanIdentifier(""))
}

func TestRunCoercesGarbageToAbsent(t *testing.T) {
	s := New(100000)
	records, err := s.Run(table(
		[]string{"plate_number", "start_km", "end_km", "total_km"},
		loader.Row{"plate_number": "TRK-1", "start_km": "100", "end_km": "oops", "total_km": ""},
	))
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	require.NotNil(t, rec.StartKM)
	assert.Equal(t, 100.0, *rec.StartKM)
	assert.Nil(t, rec.EndKM, "non-numeric cell must become absent, not fail the row")
	assert.Nil(t, rec.DeclaredTotalKM)
}

func TestRunDropsFooterRows(t *testing.T) {
	s := New(100000)
	records, err := s.Run(table(
		[]string{"plate_number", "start_km", "end_km", "total_km", "location"},
		loader.Row{"plate_number": "TRK-1", "start_km": "100", "end_km": "350", "total_km": "250"},
		loader.Row{"plate_number": "TRK-2", "end_km": "500000"},
		loader.Row{"plate_number": "X", "location": "Total Mileage Covered", "total_km": "48000"},
	))
	require.NoError(t, err)
	require.Len(t, records, 1, "magnitude footer and summary label rows must be removed outright")
	assert.Equal(t, "TRK-1", records[0].Identifier)
}

func TestRunDropsRowsWithoutIdentifier(t *testing.T) {
	s := New(100000)
	records, err := s.Run(table(
		[]string{"plate_number", "start_km", "end_km"},
		loader.Row{"plate_number": "", "start_km": "10", "end_km": "20"},
		loader.Row{"plate_number": "TRK-9", "start_km": "10", "end_km": "20"},
	))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "TRK-9", records[0].Identifier)
}

func TestRunPassesThroughExtraColumns(t *testing.T) {
	s := New(100000)
	records, err := s.Run(table(
		[]string{"plate_number", "start_km", "end_km", "make", "location"},
		loader.Row{"plate_number": "TRK-1", "start_km": "0", "end_km": "50", "make": "Isuzu", "location": "Depot A"},
	))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Isuzu", records[0].Extra["make"])
	assert.Equal(t, "Depot A", records[0].Extra["location"])
}

func TestRunStructuralErrors(t *testing.T) {
	s := New(100000)

	_, err := s.Run(table([]string{"plate_number"}))
	assert.Error(t, err, "empty table is a structural error")

	_, err = s.Run(table(
		[]string{"start_km", "end_km"},
		loader.Row{"start_km": "1", "end_km": "2"},
	))
	assert.Error(t, err, "missing identifier column is a structural error")
}

func TestRunDoesNotMutateInput(t *testing.T) {
	row := loader.Row{"plate_number": "trk-1.0", "start_km": "1,000 km"}
	in := table([]string{"plate_number", "start_km"}, row)

	s := New(100000)
	_, err := s.Run(in)
	require.NoError(t, err)

	assert.Equal(t, "trk-1.0", in.Rows[0]["plate_number"])
	assert.Equal(t, "1,000 km", in.Rows[0]["start_km"])
}

func ptr(v float64) *float64 { return &v }
