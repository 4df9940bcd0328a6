package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run id is not in the ledger.
var ErrRunNotFound = errors.New("run not found")

// timeLayout has fixed-width fractions so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	input         TEXT NOT NULL,
	rules_version TEXT NOT NULL,
	status        TEXT NOT NULL,
	total         INTEGER NOT NULL DEFAULT 0,
	failed        INTEGER NOT NULL DEFAULT 0,
	started_at    TEXT NOT NULL,
	finished_at   TEXT
);

CREATE TABLE IF NOT EXISTS predictions (
	run_id      TEXT NOT NULL,
	case_id     TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	low         INTEGER NOT NULL,
	high        INTEGER NOT NULL,
	confidence  REAL NOT NULL,
	fallback    INTEGER NOT NULL DEFAULT 0,
	error       TEXT,
	trace_json  TEXT,
	created_at  TEXT NOT NULL,
	PRIMARY KEY (run_id, case_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE TABLE IF NOT EXISTS provenance_log (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id      TEXT NOT NULL,
	case_id     TEXT NOT NULL,
	crime_type  TEXT,
	region      TEXT,
	interval    TEXT NOT NULL,
	confidence  REAL NOT NULL,
	issues_json TEXT,
	trace_json  TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// #endregion schema

// #region store-struct
// Store keeps batch runs and their per-case checkpoints in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Batch workers share the store; one connection serialises their writes.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for the provenance logger.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion close

// #region runs
// StartRun records a new run and returns it with a fresh id.
func (s *Store) StartRun(input, rulesVersion string) (Run, error) {
	run := Run{
		ID:           uuid.New().String(),
		Input:        input,
		RulesVersion: rulesVersion,
		Status:       RunRunning,
		StartedAt:    time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, input, rules_version, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Input, run.RulesVersion, string(run.Status), run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", err)
	}
	return run, nil
}

// ReopenRun marks a finished or interrupted run as running again.
func (s *Store) ReopenRun(runID string) (Run, error) {
	res, err := s.db.Exec(`UPDATE runs SET status = ?, finished_at = NULL WHERE run_id = ?`, string(RunRunning), runID)
	if err != nil {
		return Run{}, fmt.Errorf("reopen run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Run{}, fmt.Errorf("reopen run %s: %w", runID, ErrRunNotFound)
	}
	return s.GetRun(runID)
}

// FinishRun stores the final counts and marks the run done.
func (s *Store) FinishRun(runID string, total, failed int) error {
	res, err := s.db.Exec(
		`UPDATE runs SET status = ?, total = ?, failed = ?, finished_at = ? WHERE run_id = ?`,
		string(RunDone), total, failed, time.Now().UTC().Format(timeLayout), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun reads one run.
func (s *Store) GetRun(runID string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, input, rules_version, status, total, failed, started_at, finished_at FROM runs WHERE run_id = ?`,
		runID,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// ListRuns returns runs, newest first.
func (s *Store) ListRuns() ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT run_id, input, rules_version, status, total, failed, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// #endregion runs

// #region predictions
// SavePrediction checkpoints one case. Saving the same case twice keeps the
// latest output.
func (s *Store) SavePrediction(p Prediction) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Exec(
		`INSERT INTO predictions (run_id, case_id, seq, low, high, confidence, fallback, error, trace_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, case_id) DO UPDATE SET
			seq = excluded.seq, low = excluded.low, high = excluded.high,
			confidence = excluded.confidence, fallback = excluded.fallback,
			error = excluded.error, trace_json = excluded.trace_json,
			created_at = excluded.created_at`,
		p.RunID, p.CaseID, p.Seq, p.Low, p.High, p.Confidence, p.Fallback,
		nullIfEmpty(p.Error), nullIfEmpty(p.TraceJSON), p.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save prediction %s/%s: %w", p.RunID, p.CaseID, err)
	}
	return nil
}

// Completed returns the checkpointed predictions of a run keyed by case id.
// Fallback outputs are not considered complete so a resumed run retries them.
func (s *Store) Completed(runID string) (map[string]Prediction, error) {
	ps, err := s.Predictions(runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Prediction, len(ps))
	for _, p := range ps {
		if !p.Fallback {
			out[p.CaseID] = p
		}
	}
	return out, nil
}

// Predictions returns every checkpoint of a run in input order.
func (s *Store) Predictions(runID string) ([]Prediction, error) {
	rows, err := s.db.Query(
		`SELECT run_id, case_id, seq, low, high, confidence, fallback, error, trace_json, created_at
		 FROM predictions WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("predictions %s: %w", runID, err)
	}
	defer rows.Close()

	var out []Prediction
	for rows.Next() {
		var p Prediction
		var errText, trace sql.NullString
		var created string
		if err := rows.Scan(&p.RunID, &p.CaseID, &p.Seq, &p.Low, &p.High, &p.Confidence,
			&p.Fallback, &errText, &trace, &created); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.Error = errText.String
		p.TraceJSON = trace.String
		if p.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("prediction %s created_at: %w", p.CaseID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// #endregion predictions

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var run Run
	var status, started string
	var finished sql.NullString
	if err := sc.Scan(&run.ID, &run.Input, &run.RulesVersion, &status, &run.Total, &run.Failed,
		&started, &finished); err != nil {
		return Run{}, err
	}
	run.Status = RunStatus(status)
	var err error
	if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("run %s started_at: %w", run.ID, err)
	}
	if finished.Valid {
		if run.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
			return Run{}, fmt.Errorf("run %s finished_at: %w", run.ID, err)
		}
	}
	return run, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
