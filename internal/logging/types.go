package logging

import "time"

// #region provenance-entry
// ProvenanceEntry is a single row in the provenance_log table: one case of a
// batch run with everything needed to audit its interval.
type ProvenanceEntry struct {
	RunID      string
	CaseID     string
	CrimeType  string
	Region     string
	Interval   string // "[6, 12]"
	Confidence float64
	IssuesJSON string
	TraceJSON  string
	CreatedAt  time.Time
}

// #endregion provenance-entry
