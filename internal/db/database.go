package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"fleet-trip-audit/internal/audit"
	"fleet-trip-audit/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection holding audited runs.
type Database struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*Database, error) {
	// Enable WAL mode and other optimizations via connection string
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1) // SQLite works best with single writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn}

	if err := db.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		source TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS trips (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		row_num INTEGER NOT NULL,
		identifier TEXT NOT NULL,
		category TEXT NOT NULL,
		status TEXT NOT NULL,
		start_km REAL,
		end_km REAL,
		declared_total_km REAL,
		derived_total_km REAL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		record_reference TEXT NOT NULL,
		record_row INTEGER NOT NULL,
		reason TEXT NOT NULL,
		severity TEXT NOT NULL,
		note TEXT,
		original_value REAL,
		corrected_value REAL,
		audited_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_trips_run_id ON trips(run_id);
	CREATE INDEX IF NOT EXISTS idx_trips_identifier ON trips(identifier);
	CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status);
	CREATE INDEX IF NOT EXISTS idx_audit_run_id ON audit_log(run_id);
	CREATE INDEX IF NOT EXISTS idx_audit_reason ON audit_log(reason);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// SaveRun stores a full pipeline result under a fresh run id and returns it.
// Both tables are written in one transaction so a failed save leaves nothing
// behind.
func (db *Database) SaveRun(source string, res *audit.Result) (string, error) {
	runID := uuid.NewString()

	tx, err := db.conn.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs (id, source) VALUES (?, ?)`, runID, source); err != nil {
		return "", err
	}

	tripStmt, err := tx.Prepare(`
		INSERT INTO trips
		(run_id, row_num, identifier, category, status, start_km, end_km, declared_total_km, derived_total_km)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer tripStmt.Close()

	for _, t := range res.Records {
		_, err := tripStmt.Exec(
			runID, t.Row, t.Identifier, string(t.Category), string(t.Status),
			nullKM(t.StartKM), nullKM(t.EndKM), nullKM(t.DeclaredTotalKM), nullKM(t.DerivedTotalKM),
		)
		if err != nil {
			return "", err
		}
	}

	auditStmt, err := tx.Prepare(`
		INSERT INTO audit_log
		(id, run_id, record_reference, record_row, reason, severity, note, original_value, corrected_value, audited_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", err
	}
	defer auditStmt.Close()

	for _, e := range res.AuditLog {
		_, err := auditStmt.Exec(
			e.ID.String(), runID, e.RecordRef, e.RecordRow, string(e.Reason), string(e.Severity),
			e.Note, nullKM(e.OriginalValue), nullKM(e.CorrectedValue), e.AuditedAt,
		)
		if err != nil {
			return "", err
		}
	}

	return runID, tx.Commit()
}

// QueryTrips retrieves stored trips matching the query parameters.
func (db *Database) QueryTrips(q models.TripQuery) ([]models.TripRecord, error) {
	var conditions []string
	var args []interface{}

	baseQuery := `
		SELECT row_num, identifier, category, status, start_km, end_km, declared_total_km, derived_total_km
		FROM trips
	`

	if q.RunID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, q.RunID)
	}
	if q.Identifier != "" {
		conditions = append(conditions, "identifier = ?")
		args = append(args, q.Identifier)
	}
	if q.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(q.Status))
	}
	if q.Category != "" {
		conditions = append(conditions, "category = ?")
		args = append(args, string(q.Category))
	}

	if len(conditions) > 0 {
		baseQuery += " WHERE " + strings.Join(conditions, " AND ")
	}

	baseQuery += " ORDER BY row_num"

	if q.Limit > 0 {
		baseQuery += fmt.Sprintf(" LIMIT %d", q.Limit)
		if q.Offset > 0 {
			baseQuery += fmt.Sprintf(" OFFSET %d", q.Offset)
		}
	}

	rows, err := db.conn.Query(baseQuery, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.TripRecord
	for rows.Next() {
		var t models.TripRecord
		var category, status string
		var start, end, declared, derived sql.NullFloat64

		err := rows.Scan(&t.Row, &t.Identifier, &category, &status, &start, &end, &declared, &derived)
		if err != nil {
			return nil, err
		}
		t.Category = models.Category(category)
		t.Status = models.Status(status)
		t.StartKM = fromNull(start)
		t.EndKM = fromNull(end)
		t.DeclaredTotalKM = fromNull(declared)
		t.DerivedTotalKM = fromNull(derived)
		results = append(results, t)
	}

	return results, rows.Err()
}

// QueryAuditLog retrieves stored audit entries, optionally filtered by run
// and reason.
func (db *Database) QueryAuditLog(runID string, reason models.Reason, limit int) ([]models.AuditEntry, error) {
	query := `
		SELECT id, record_reference, record_row, reason, severity, note, original_value, corrected_value, audited_at
		FROM audit_log
	`

	var conditions []string
	var args []interface{}
	if runID != "" {
		conditions = append(conditions, "run_id = ?")
		args = append(args, runID)
	}
	if reason != "" {
		conditions = append(conditions, "reason = ?")
		args = append(args, string(reason))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY record_row"

	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var id, reasonStr, severity string
		var note sql.NullString
		var original, corrected sql.NullFloat64

		err := rows.Scan(&id, &e.RecordRef, &e.RecordRow, &reasonStr, &severity, &note, &original, &corrected, &e.AuditedAt)
		if err != nil {
			return nil, err
		}
		e.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt audit entry id %q: %w", id, err)
		}
		e.Reason = models.Reason(reasonStr)
		e.Severity = models.Severity(severity)
		if note.Valid {
			e.Note = note.String
		}
		e.OriginalValue = fromNull(original)
		e.CorrectedValue = fromNull(corrected)
		results = append(results, e)
	}

	return results, rows.Err()
}

// LatestRunID returns the most recently stored run id, or empty when the
// database holds no runs.
func (db *Database) LatestRunID() (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM runs ORDER BY created_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// GetStats returns database statistics
func (db *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var totalRuns int64
	db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&totalRuns)
	stats["total_runs"] = totalRuns

	var totalTrips int64
	db.conn.QueryRow("SELECT COUNT(*) FROM trips").Scan(&totalTrips)
	stats["total_trips"] = totalTrips

	var quarantined int64
	db.conn.QueryRow("SELECT COUNT(*) FROM trips WHERE status = 'quarantined'").Scan(&quarantined)
	stats["quarantined_trips"] = quarantined

	var auditEntries int64
	db.conn.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&auditEntries)
	stats["audit_entries"] = auditEntries

	return stats, nil
}

func nullKM(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
