package ledger

import (
	"errors"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStartAndFinishRun(t *testing.T) {
	s := tempStore(t)

	run, err := s.StartRun("cases.jsonl", "2025.11")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if run.ID == "" || run.Status != RunRunning {
		t.Fatalf("unexpected run: %+v", run)
	}

	if err := s.FinishRun(run.ID, 10, 2); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}
	got, err := s.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != RunDone || got.Total != 10 || got.Failed != 2 {
		t.Fatalf("unexpected finished run: %+v", got)
	}
	if got.FinishedAt.IsZero() {
		t.Fatal("expected finished_at to be set")
	}
	if got.Input != "cases.jsonl" || got.RulesVersion != "2025.11" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestUnknownRun(t *testing.T) {
	s := tempStore(t)

	if _, err := s.GetRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("GetRun: expected ErrRunNotFound, got %v", err)
	}
	if err := s.FinishRun("missing", 1, 0); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("FinishRun: expected ErrRunNotFound, got %v", err)
	}
	if _, err := s.ReopenRun("missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("ReopenRun: expected ErrRunNotFound, got %v", err)
	}
}

func TestReopenRun(t *testing.T) {
	s := tempStore(t)
	run, _ := s.StartRun("in.jsonl", "v")
	if err := s.FinishRun(run.ID, 1, 0); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReopenRun(run.ID)
	if err != nil {
		t.Fatalf("ReopenRun: %v", err)
	}
	if got.Status != RunRunning || !got.FinishedAt.IsZero() {
		t.Fatalf("expected running run, got %+v", got)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	s := tempStore(t)
	first, _ := s.StartRun("a.jsonl", "v")
	second, _ := s.StartRun("b.jsonl", "v")

	runs, err := s.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second.ID || runs[1].ID != first.ID {
		t.Fatalf("expected newest first, got %s then %s", runs[0].ID, runs[1].ID)
	}
}

func TestSavePredictionAndCompleted(t *testing.T) {
	s := tempStore(t)
	run, _ := s.StartRun("in.jsonl", "v")

	preds := []Prediction{
		{RunID: run.ID, CaseID: "b", Seq: 1, Low: 6, High: 12, Confidence: 0.85, TraceJSON: `[{"rule_id":"lookup.theft"}]`},
		{RunID: run.ID, CaseID: "a", Seq: 0, Low: 24, High: 36, Confidence: 1},
		{RunID: run.ID, CaseID: "c", Seq: 2, Low: 6, High: 12, Fallback: true, Error: "unknown crime type"},
	}
	for _, p := range preds {
		if err := s.SavePrediction(p); err != nil {
			t.Fatalf("SavePrediction %s: %v", p.CaseID, err)
		}
	}

	all, err := s.Predictions(run.ID)
	if err != nil {
		t.Fatalf("Predictions: %v", err)
	}
	if len(all) != 3 || all[0].CaseID != "a" || all[1].CaseID != "b" || all[2].CaseID != "c" {
		t.Fatalf("expected input order a, b, c; got %+v", all)
	}
	if all[1].TraceJSON == "" || all[2].Error != "unknown crime type" || !all[2].Fallback {
		t.Fatalf("columns lost: %+v", all)
	}

	done, err := s.Completed(run.ID)
	if err != nil {
		t.Fatalf("Completed: %v", err)
	}
	if len(done) != 2 {
		t.Fatalf("fallback output should not count as complete, got %d", len(done))
	}
	if done["b"].Low != 6 || done["b"].High != 12 || done["b"].Confidence != 0.85 {
		t.Fatalf("unexpected checkpoint: %+v", done["b"])
	}
}

func TestSavePredictionOverwrites(t *testing.T) {
	s := tempStore(t)
	run, _ := s.StartRun("in.jsonl", "v")

	_ = s.SavePrediction(Prediction{RunID: run.ID, CaseID: "a", Low: 6, High: 12, Fallback: true, Error: "timeout"})
	if err := s.SavePrediction(Prediction{RunID: run.ID, CaseID: "a", Low: 8, High: 16, Confidence: 0.9}); err != nil {
		t.Fatalf("SavePrediction: %v", err)
	}

	all, _ := s.Predictions(run.ID)
	if len(all) != 1 {
		t.Fatalf("expected 1 row, got %d", len(all))
	}
	if all[0].Fallback || all[0].Error != "" || all[0].Low != 8 {
		t.Fatalf("expected the retry to replace the fallback, got %+v", all[0])
	}
}

func TestSavePredictionRequiresRun(t *testing.T) {
	s := tempStore(t)
	err := s.SavePrediction(Prediction{RunID: "nope", CaseID: "a", Low: 1, High: 2})
	if err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestCorruptTimestampsAreReported(t *testing.T) {
	s := tempStore(t)
	run, err := s.StartRun("cases.jsonl", "2025.11")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SavePrediction(Prediction{RunID: run.ID, CaseID: "a", Low: 6, High: 12}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.DB().Exec(`UPDATE predictions SET created_at = 'yesterday' WHERE run_id = ?`, run.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Predictions(run.ID); err == nil {
		t.Fatal("expected an error for an unparseable created_at")
	}

	if _, err := s.DB().Exec(`UPDATE runs SET started_at = 'yesterday' WHERE run_id = ?`, run.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetRun(run.ID); err == nil {
		t.Fatal("expected an error for an unparseable started_at")
	}
}
