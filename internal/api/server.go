package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"fleet-trip-audit/internal/audit"
	"fleet-trip-audit/internal/db"
	"fleet-trip-audit/internal/loader"
	"fleet-trip-audit/internal/models"
	"fleet-trip-audit/internal/report"

	"github.com/gorilla/mux"
)

// Server represents the API server
type Server struct {
	db     *db.Database
	cfg    audit.Config
	router *mux.Router
}

// NewServer creates a new API server
func NewServer(database *db.Database, cfg audit.Config) *Server {
	s := &Server{
		db:     database,
		cfg:    cfg,
		router: mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Audit endpoint: run the full pipeline over an uploaded table
	s.router.HandleFunc("/api/v1/audit", s.handleRunAudit).Methods("POST")

	// Stored-run endpoints
	s.router.HandleFunc("/api/v1/trips", s.handleQueryTrips).Methods("GET")
	s.router.HandleFunc("/api/v1/auditlog", s.handleAuditLog).Methods("GET")
	s.router.HandleFunc("/api/v1/stats", s.handleStats).Methods("GET")

	// Add middleware
	s.router.Use(loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Middleware
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Meta    *meta       `json:"meta,omitempty"`
}

type meta struct {
	Total   int   `json:"total,omitempty"`
	Limit   int   `json:"limit,omitempty"`
	Offset  int   `json:"offset,omitempty"`
	QueryMs int64 `json:"query_ms,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

func respondWithMeta(w http.ResponseWriter, data interface{}, m *meta) {
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data, Meta: m})
}

// Handlers
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// auditRequest is the POST /api/v1/audit body: raw rows as column→cell maps,
// plus optional threshold overrides.
type auditRequest struct {
	Rows              []map[string]string `json:"rows"`
	FooterThresholdKM float64             `json:"footer_threshold_km,omitempty"`
	TripCeilingKM     float64             `json:"trip_ceiling_km,omitempty"`
	MismatchTolerance float64             `json:"mismatch_tolerance,omitempty"`
	Store             bool                `json:"store,omitempty"`
}

type auditResponse struct {
	RunID    string              `json:"run_id,omitempty"`
	Clean    []models.TripRecord `json:"clean"`
	AuditLog []models.AuditEntry `json:"audit_log"`
	Summary  models.FleetSummary `json:"summary"`
}

func (s *Server) handleRunAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Rows) == 0 {
		respondError(w, http.StatusBadRequest, "empty rows")
		return
	}

	cfg := s.cfg
	if req.FooterThresholdKM > 0 {
		cfg.FooterThresholdKM = req.FooterThresholdKM
	}
	if req.TripCeilingKM > 0 {
		cfg.TripCeilingKM = req.TripCeilingKM
	}
	if req.MismatchTolerance > 0 {
		cfg.MismatchTolerance = req.MismatchTolerance
	}

	table := tableFromRows(req.Rows)
	result, err := audit.NewPipeline(cfg).Run(table)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp := auditResponse{
		Clean:    result.CleanSet(),
		AuditLog: result.AuditLog,
		Summary:  report.Summarize(result),
	}

	if req.Store {
		runID, err := s.db.SaveRun("api", result)
		if err != nil {
			respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.RunID = runID
	}

	respondJSON(w, http.StatusOK, resp)
}

// tableFromRows rebuilds a loader.Table from JSON rows, normalizing column
// names the same way the CSV loader does.
func tableFromRows(rows []map[string]string) *loader.Table {
	seen := make(map[string]bool)
	table := &loader.Table{}

	for _, raw := range rows {
		row := make(loader.Row, len(raw))
		for col, val := range raw {
			norm := loader.NormalizeColumn(col)
			if !seen[norm] {
				seen[norm] = true
				table.Columns = append(table.Columns, norm)
			}
			row[norm] = val
		}
		table.Rows = append(table.Rows, row)
	}

	return table
}

func (s *Server) handleQueryTrips(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := models.TripQuery{
		RunID:      r.URL.Query().Get("run_id"),
		Identifier: r.URL.Query().Get("identifier"),
		Status:     models.Status(r.URL.Query().Get("status")),
		Category:   models.Category(r.URL.Query().Get("category")),
		Limit:      100, // default
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		q.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		q.Offset, _ = strconv.Atoi(v)
	}

	results, err := s.db.QueryTrips(q)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	queryMs := time.Since(start).Milliseconds()
	respondWithMeta(w, results, &meta{
		Total:   len(results),
		Limit:   q.Limit,
		Offset:  q.Offset,
		QueryMs: queryMs,
	})
}

func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	runID := r.URL.Query().Get("run_id")
	reason := models.Reason(r.URL.Query().Get("reason"))
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	entries, err := s.db.QueryAuditLog(runID, reason, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	queryMs := time.Since(start).Milliseconds()
	respondWithMeta(w, entries, &meta{Total: len(entries), Limit: limit, QueryMs: queryMs})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, stats)
}
