package audit

import (
	"fmt"
	"time"

	"fleet-trip-audit/internal/classify"
	"fleet-trip-audit/internal/loader"
	"fleet-trip-audit/internal/models"
	"fleet-trip-audit/internal/sanitize"
)

// Pipeline runs the full hygiene pass over one raw table: sanitize,
// classify, audit, correct. Single-threaded and batch-oriented; a run either
// completes with both outputs or fails with no partial output.
type Pipeline struct {
	sanitizer  *sanitize.Sanitizer
	classifier *classify.Classifier
	auditor    *Auditor
	corrector  *Corrector
}

// Result holds the outputs of one pipeline run. Records carries every
// surviving record annotated with status, category, and derived distance;
// AuditLog holds one entry per non-clean record.
type Result struct {
	Records  []models.TripRecord `json:"records"`
	AuditLog []models.AuditEntry `json:"audit_log"`
}

// NewPipeline wires the pipeline stages from a Config.
func NewPipeline(cfg Config) *Pipeline {
	cfg = cfg.withDefaults()
	return &Pipeline{
		sanitizer:  sanitize.New(cfg.FooterThresholdKM),
		classifier: classify.New(cfg.Rules),
		auditor:    NewAuditor(cfg.MismatchTolerance, cfg.TripCeilingKM),
		corrector:  NewCorrector(),
	}
}

// Run executes one batch pass. Re-running on identical input yields an
// identical clean set and audit log, audit timestamps aside.
func (p *Pipeline) Run(table *loader.Table) (*Result, error) {
	records, err := p.sanitizer.Run(table)
	if err != nil {
		return nil, fmt.Errorf("sanitize: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no usable rows after sanitization")
	}

	for i := range records {
		records[i].Category = p.classifier.Classify(records[i].Identifier)
	}

	records, entries := p.auditor.Audit(records)
	records, entries = p.corrector.Apply(records, entries)

	return &Result{Records: records, AuditLog: entries}, nil
}

// CleanSet returns the records eligible for analytics: Clean and Corrected.
// Quarantined records stay out of every downstream aggregate.
func (r *Result) CleanSet() []models.TripRecord {
	out := make([]models.TripRecord, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.Status == models.StatusClean || rec.Status == models.StatusCorrected {
			out = append(out, rec)
		}
	}
	return out
}

// Quarantined returns the records excluded from analytics.
func (r *Result) Quarantined() []models.TripRecord {
	out := make([]models.TripRecord, 0)
	for _, rec := range r.Records {
		if rec.Status == models.StatusQuarantined {
			out = append(out, rec)
		}
	}
	return out
}

// clockOverride lets tests pin audit timestamps.
func (p *Pipeline) clockOverride(now func() time.Time) {
	p.auditor.now = now
}
