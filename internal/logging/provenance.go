package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
)

// #region entry-from-result
// EntryFor builds the provenance row for one prediction.
func EntryFor(runID string, r engine.Result) (ProvenanceEntry, error) {
	trace, err := json.Marshal(r.Trace)
	if err != nil {
		return ProvenanceEntry{}, fmt.Errorf("marshal trace: %w", err)
	}
	entry := ProvenanceEntry{
		RunID:      runID,
		CaseID:     r.CaseID,
		CrimeType:  r.CrimeType,
		Region:     r.Region,
		Interval:   r.Interval.String(),
		Confidence: r.Confidence,
		TraceJSON:  string(trace),
	}
	if len(r.Issues) > 0 {
		issues, err := json.Marshal(r.Issues)
		if err != nil {
			return ProvenanceEntry{}, fmt.Errorf("marshal issues: %w", err)
		}
		entry.IssuesJSON = string(issues)
	}
	return entry, nil
}

// #endregion entry-from-result

// #region log-prediction
// LogPrediction writes a provenance entry to the provenance_log table.
func LogPrediction(db *sql.DB, entry ProvenanceEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO provenance_log (run_id, case_id, crime_type, region, interval, confidence, issues_json, trace_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID,
		entry.CaseID,
		nullIfEmpty(entry.CrimeType),
		nullIfEmpty(entry.Region),
		entry.Interval,
		entry.Confidence,
		nullIfEmpty(entry.IssuesJSON),
		nullIfEmpty(entry.TraceJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log prediction: %w", err)
	}
	return nil
}

// #endregion log-prediction

// #region helpers
func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
