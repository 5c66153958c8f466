// Package report computes utilization analytics over an audited batch. It
// consumes the pipeline's output and only ever sees the clean+corrected
// subset for distance figures; quarantined records contribute to counts only.
package report

import (
	"sort"

	"fleet-trip-audit/internal/audit"
	"fleet-trip-audit/internal/models"
)

// Summarize builds the fleet scorecard for one audited batch.
func Summarize(res *audit.Result) models.FleetSummary {
	s := models.FleetSummary{
		TotalRecords: len(res.Records),
		ReasonCounts: make(map[models.Reason]int),
		CategoryKM:   make(map[models.Category]float64),
	}

	vehicles := make(map[string]bool)
	for _, rec := range res.Records {
		switch rec.Status {
		case models.StatusClean:
			s.CleanRecords++
		case models.StatusCorrected:
			s.CorrectedRecords++
		case models.StatusQuarantined:
			s.Quarantined++
			continue
		}

		vehicles[rec.Identifier] = true
		if rec.DerivedTotalKM != nil {
			s.TotalDistanceKM += *rec.DerivedTotalKM
			s.CategoryKM[rec.Category] += *rec.DerivedTotalKM
		}
	}
	s.Vehicles = len(vehicles)

	for _, e := range res.AuditLog {
		s.ReasonCounts[e.Reason]++
	}

	return s
}

// Utilization aggregates clean-set distance per vehicle, sorted by total
// distance descending, ties broken by identifier for stable output.
func Utilization(clean []models.TripRecord) []models.VehicleUtilization {
	byVehicle := make(map[string]*models.VehicleUtilization)
	for _, rec := range clean {
		u, ok := byVehicle[rec.Identifier]
		if !ok {
			u = &models.VehicleUtilization{Identifier: rec.Identifier, Category: rec.Category}
			byVehicle[rec.Identifier] = u
		}
		u.Trips++
		if rec.DerivedTotalKM != nil {
			u.TotalKM += *rec.DerivedTotalKM
		}
	}

	out := make([]models.VehicleUtilization, 0, len(byVehicle))
	for _, u := range byVehicle {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalKM != out[j].TotalKM {
			return out[i].TotalKM > out[j].TotalKM
		}
		return out[i].Identifier < out[j].Identifier
	})
	return out
}

// TopUtilization returns the n hardest-worked vehicles.
func TopUtilization(clean []models.TripRecord, n int) []models.VehicleUtilization {
	all := Utilization(clean)
	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}

// BottomUtilization returns the n least-used vehicles, least used first.
func BottomUtilization(clean []models.TripRecord, n int) []models.VehicleUtilization {
	all := Utilization(clean)
	if n > len(all) {
		n = len(all)
	}
	bottom := make([]models.VehicleUtilization, n)
	for i := 0; i < n; i++ {
		bottom[i] = all[len(all)-1-i]
	}
	return bottom
}
