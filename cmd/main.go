package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"fleet-trip-audit/internal/api"
	"fleet-trip-audit/internal/audit"
	"fleet-trip-audit/internal/classify"
	"fleet-trip-audit/internal/db"
	"fleet-trip-audit/internal/loader"
	"fleet-trip-audit/internal/models"
	"fleet-trip-audit/internal/report"

	"github.com/spf13/cobra"
)

var (
	dbPath   string
	database *db.Database

	footerThreshold float64
	tripCeiling     float64
	tolerance       float64
	rulesFile       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fleet-audit",
		Short: "Fleet Trip Audit - trip record hygiene and utilization analytics",
		Long: `A CLI tool for auditing messy fleet trip reports. Cleans odometer
readings, classifies plates into operational categories, quarantines
sensor errors and outliers, auto-corrects manual-entry mistakes, and
produces a full audit trail with SQLite storage and REST API access.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "fleet_audit.db", "Path to SQLite database")
	rootCmd.PersistentFlags().Float64Var(&footerThreshold, "footer-threshold", 100000, "Footer/summary row detection cutoff (km)")
	rootCmd.PersistentFlags().Float64Var(&tripCeiling, "trip-ceiling", 2000, "Per-trip outlier ceiling (km)")
	rootCmd.PersistentFlags().Float64Var(&tolerance, "tolerance", 0, "Declared-vs-derived mismatch tolerance (km)")
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "JSON file with plate-pattern classification rules")

	// Add commands
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(serverCmd())
	rootCmd.AddCommand(tripsCmd())
	rootCmd.AddCommand(auditLogCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(generateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initDB initializes database connection
func initDB() error {
	var err error
	database, err = db.New(dbPath)
	return err
}

// buildConfig assembles the pipeline config from global flags.
func buildConfig() (audit.Config, error) {
	cfg := audit.Config{
		FooterThresholdKM: footerThreshold,
		TripCeilingKM:     tripCeiling,
		MismatchTolerance: tolerance,
	}
	if rulesFile != "" {
		rules, err := classify.LoadRules(rulesFile)
		if err != nil {
			return cfg, fmt.Errorf("rules error: %w", err)
		}
		cfg.Rules = rules
	}
	return cfg, nil
}

// auditCmd runs the hygiene pipeline over report files
func auditCmd() *cobra.Command {
	var exportClean string
	var exportAudit string
	var store bool

	cmd := &cobra.Command{
		Use:   "audit [file...]",
		Short: "Audit fleet trip reports",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}

			if store {
				if err := initDB(); err != nil {
					return fmt.Errorf("database error: %w", err)
				}
				defer database.Close()
			}

			l := loader.NewLoader()
			pipeline := audit.NewPipeline(cfg)

			for _, file := range args {
				fmt.Printf("Processing %s...\n", file)
				start := time.Now()

				table, err := l.LoadFile(file)
				if err != nil {
					return fmt.Errorf("load error: %w", err)
				}

				result, err := pipeline.Run(table)
				if err != nil {
					return fmt.Errorf("audit error: %w", err)
				}

				elapsed := time.Since(start)
				summary := report.Summarize(result)

				fmt.Printf("  ✓ Audited %d records in %v\n", summary.TotalRecords, elapsed)
				printSummary(summary)

				clean := result.CleanSet()
				if top := report.TopUtilization(clean, 5); len(top) > 0 {
					fmt.Println("\n  🔥 Top utilization:")
					for _, u := range top {
						fmt.Printf("     %-15s %8.1f km over %d trips (%s)\n", u.Identifier, u.TotalKM, u.Trips, u.Category)
					}
				}
				if bottom := report.BottomUtilization(clean, 5); len(bottom) > 0 {
					fmt.Println("  🧊 Lowest utilization:")
					for _, u := range bottom {
						fmt.Printf("     %-15s %8.1f km over %d trips (%s)\n", u.Identifier, u.TotalKM, u.Trips, u.Category)
					}
				}

				if exportClean != "" {
					if err := exportTrips(exportClean, clean); err != nil {
						return err
					}
					fmt.Printf("  Clean set exported to %s\n", exportClean)
				}
				if exportAudit != "" {
					if err := exportAuditLog(exportAudit, result.AuditLog); err != nil {
						return err
					}
					fmt.Printf("  Audit log exported to %s\n", exportAudit)
				}
				if store {
					runID, err := database.SaveRun(file, result)
					if err != nil {
						return fmt.Errorf("database error: %w", err)
					}
					fmt.Printf("  Stored as run %s\n", runID)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&exportClean, "export-clean", "", "Write clean+corrected records to CSV file")
	cmd.Flags().StringVar(&exportAudit, "export-audit", "", "Write audit log to CSV file")
	cmd.Flags().BoolVar(&store, "store", false, "Store the audited run in the database")
	return cmd
}

func printSummary(s models.FleetSummary) {
	fmt.Printf("  📊 Clean: %d | Corrected: %d | Quarantined: %d | Vehicles: %d\n",
		s.CleanRecords, s.CorrectedRecords, s.Quarantined, s.Vehicles)
	fmt.Printf("  🌍 Total clean distance: %.1f km\n", s.TotalDistanceKM)
	for reason, count := range s.ReasonCounts {
		fmt.Printf("     %-25s %d\n", reason, count)
	}
}

func exportTrips(filename string, records []models.TripRecord) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer file.Close()
	return loader.WriteTrips(file, records)
}

func exportAuditLog(filename string, entries []models.AuditEntry) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	defer file.Close()
	return loader.WriteAuditLog(file, entries)
}

// serverCmd starts the REST API server
func serverCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig()
			if err != nil {
				return err
			}
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			server := api.NewServer(database, cfg)
			addr := fmt.Sprintf(":%d", port)

			fmt.Printf("🚀 Fleet Trip Audit API Server\n")
			fmt.Printf("   Listening on http://localhost%s\n", addr)
			fmt.Printf("   Database: %s\n\n", dbPath)
			fmt.Println("Available endpoints:")
			fmt.Println("  GET  /health")
			fmt.Println("  POST /api/v1/audit")
			fmt.Println("  GET  /api/v1/trips")
			fmt.Println("  GET  /api/v1/auditlog")
			fmt.Println("  GET  /api/v1/stats")
			fmt.Println()

			return http.ListenAndServe(addr, server.Router())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "Server port")
	return cmd
}

// tripsCmd queries stored trips
func tripsCmd() *cobra.Command {
	var runID string
	var identifier string
	var status string
	var category string
	var limit int

	cmd := &cobra.Command{
		Use:   "trips",
		Short: "Query stored trip records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			if runID == "" {
				latest, err := database.LatestRunID()
				if err != nil {
					return fmt.Errorf("query error: %w", err)
				}
				runID = latest
			}

			q := models.TripQuery{
				RunID:      runID,
				Identifier: identifier,
				Status:     models.Status(status),
				Category:   models.Category(category),
				Limit:      limit,
			}

			results, err := database.QueryTrips(q)
			if err != nil {
				return fmt.Errorf("query error: %w", err)
			}

			fmt.Printf("Found %d trips\n\n", len(results))
			for _, t := range results {
				fmt.Printf("[row %4d] %-15s %-15s %-12s start=%s end=%s declared=%s derived=%s\n",
					t.Row, t.Identifier, t.Category, t.Status,
					fmtKM(t.StartKM), fmtKM(t.EndKM), fmtKM(t.DeclaredTotalKM), fmtKM(t.DerivedTotalKM))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (defaults to latest)")
	cmd.Flags().StringVarP(&identifier, "vehicle", "V", "", "Filter by plate identifier")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (clean, corrected, quarantined)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "Filter by category")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum records to return")
	return cmd
}

func fmtKM(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

// auditLogCmd queries the stored audit log
func auditLogCmd() *cobra.Command {
	var runID string
	var reason string
	var limit int

	cmd := &cobra.Command{
		Use:   "auditlog",
		Short: "Query the stored audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			if runID == "" {
				latest, err := database.LatestRunID()
				if err != nil {
					return fmt.Errorf("query error: %w", err)
				}
				runID = latest
			}

			entries, err := database.QueryAuditLog(runID, models.Reason(reason), limit)
			if err != nil {
				return fmt.Errorf("query error: %w", err)
			}

			fmt.Printf("Found %d audit entries\n\n", len(entries))
			for _, e := range entries {
				fmt.Printf("[%s] %-20s %-22s %-8s %s", e.AuditedAt.Format("2006-01-02 15:04:05"),
					e.RecordRef, e.Reason, e.Severity, e.Note)
				if e.CorrectedValue != nil {
					fmt.Printf(" (%s → %s)", fmtKM(e.OriginalValue), fmtKM(e.CorrectedValue))
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (defaults to latest)")
	cmd.Flags().StringVarP(&reason, "reason", "r", "", "Filter by reason")
	cmd.Flags().IntVarP(&limit, "limit", "l", 100, "Maximum entries to return")
	return cmd
}

// statsCmd shows database statistics
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initDB(); err != nil {
				return fmt.Errorf("database error: %w", err)
			}
			defer database.Close()

			stats, err := database.GetStats()
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}

			fmt.Println("📊 Fleet Trip Audit Statistics")
			fmt.Println("==============================")
			fmt.Printf("  Stored Runs:       %v\n", stats["total_runs"])
			fmt.Printf("  Trip Records:      %v\n", stats["total_trips"])
			fmt.Printf("  Quarantined:       %v\n", stats["quarantined_trips"])
			fmt.Printf("  Audit Entries:     %v\n", stats["audit_entries"])
			fmt.Printf("  Database:          %s\n", dbPath)

			return nil
		},
	}
}

// generateCmd generates a sample fleet report CSV
func generateCmd() *cobra.Command {
	var count int
	var vehicleCount int
	var output string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a sample fleet report",
		RunE: func(cmd *cobra.Command, args []string) error {
			rng := rand.New(rand.NewSource(time.Now().UnixNano()))

			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("error creating output file: %w", err)
			}
			defer file.Close()

			writer := csv.NewWriter(file)
			writer.Write([]string{"Plate Number", "Make", "Location", "Start Km", "End Km", "Total Km"})

			makes := []string{"Isuzu", "Hino", "Toyota", "Mitsubishi"}
			locations := []string{"Depot A", "Depot B", "North Branch", "South Branch"}
			suffixes := []string{"", "", "", "", "", "-BACKUP", "-TRANSFER", "-RT-1"}

			plates := make([]string, vehicleCount)
			for i := range plates {
				plates[i] = fmt.Sprintf("TRK-%d%s", 100+i, suffixes[rng.Intn(len(suffixes))])
			}

			totalKM := 0.0
			for i := 0; i < count; i++ {
				plate := plates[rng.Intn(len(plates))]
				start := float64(rng.Intn(90000))
				dist := float64(rng.Intn(400) + 5)
				end := start + dist

				declared := dist
				switch rng.Intn(20) {
				case 0: // manual entry typo
					declared = dist + float64(rng.Intn(100)+10)
				case 1: // odometer glitch
					start, end = end, start
				}

				writer.Write([]string{
					plate,
					makes[rng.Intn(len(makes))],
					locations[rng.Intn(len(locations))],
					fmt.Sprintf("%.0f", start),
					fmt.Sprintf("%.0f", end),
					fmt.Sprintf("%.0f", declared),
				})
				totalKM += dist
			}

			// Footer row like the ones real exports carry
			writer.Write([]string{"", "", "Total Mileage Covered", "", "", fmt.Sprintf("%.0f", totalKM)})
			writer.Flush()
			if err := writer.Error(); err != nil {
				return err
			}

			fmt.Printf("✓ Generated %d trips for %d vehicles in %s\n", count, vehicleCount, output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "c", 500, "Number of trip rows to generate")
	cmd.Flags().IntVarP(&vehicleCount, "vehicles", "n", 20, "Number of vehicles")
	cmd.Flags().StringVarP(&output, "output", "o", "fleet_report.csv", "Output CSV file")
	return cmd
}
