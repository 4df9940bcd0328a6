package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentencing-engine/internal/ledger"
)

var (
	inspectDB   string
	inspectRun  string
	inspectLast int
	inspectJSON bool
)

// inspectCmd lists ledger runs or one run's predictions
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect batch runs in the ledger",
	Long: `Without --run, lists the most recent runs. With --run, lists that run's
checkpointed predictions in input order.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectDB, "db", "", "ledger database (default ledger.path)")
	inspectCmd.Flags().StringVar(&inspectRun, "run", "", "show one run's predictions")
	inspectCmd.Flags().IntVar(&inspectLast, "last", 20, "show N most recent runs")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "output as JSON instead of a table")
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := inspectDB
	if path == "" {
		path = cfg.Ledger.Path
	}
	store, err := ledger.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	w := cmd.OutOrStdout()
	if inspectRun != "" {
		return runDetailMode(w, store, inspectRun)
	}
	return runListMode(w, store, inspectLast)
}

// #region list-mode
type runRow struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	RulesVersion string `json:"rules_version"`
	Total        int    `json:"total"`
	Failed       int    `json:"failed"`
	Input        string `json:"input"`
	StartedAt    string `json:"started_at"`
}

func runListMode(w io.Writer, store *ledger.Store, last int) error {
	runs, err := store.ListRuns()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs found")
		return nil
	}
	if last > 0 && len(runs) > last {
		runs = runs[:last]
	}

	rows := make([]runRow, len(runs))
	for i, r := range runs {
		rows[i] = runRow{
			RunID:        r.ID,
			Status:       string(r.Status),
			RulesVersion: r.RulesVersion,
			Total:        r.Total,
			Failed:       r.Failed,
			Input:        r.Input,
			StartedAt:    r.StartedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	if inspectJSON {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "%-36s  %-8s  %-8s  %6s  %6s  %-20s  %s\n",
		"Run", "Status", "Rules", "Total", "Failed", "Started", "Input")
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %-8s  %-8s  %6d  %6d  %-20s  %s\n",
			r.RunID, r.Status, r.RulesVersion, r.Total, r.Failed, r.StartedAt, r.Input)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode
type predictionRow struct {
	CaseID     string  `json:"case_id"`
	Low        int     `json:"answer1"`
	High       int     `json:"answer2"`
	Confidence float64 `json:"confidence"`
	Fallback   bool    `json:"fallback"`
	Error      string  `json:"error,omitempty"`
}

func runDetailMode(w io.Writer, store *ledger.Store, runID string) error {
	run, err := store.GetRun(runID)
	if err != nil {
		return err
	}
	preds, err := store.Predictions(run.ID)
	if err != nil {
		return err
	}

	rows := make([]predictionRow, len(preds))
	for i, p := range preds {
		rows[i] = predictionRow{
			CaseID:     p.CaseID,
			Low:        p.Low,
			High:       p.High,
			Confidence: p.Confidence,
			Fallback:   p.Fallback,
			Error:      p.Error,
		}
	}
	if inspectJSON {
		return printJSON(w, rows)
	}

	fmt.Fprintf(w, "Run %s (%s, rules %s): %d checkpointed\n\n", run.ID, run.Status, run.RulesVersion, len(rows))
	fmt.Fprintf(w, "%-24s  %9s  %10s  %s\n", "Case", "Interval", "Confidence", "Note")
	for _, r := range rows {
		note := ""
		if r.Fallback {
			note = "fallback: " + r.Error
		}
		fmt.Fprintf(w, "%-24s  [%3d, %3d]  %10.3f  %s\n", r.CaseID, r.Low, r.High, r.Confidence, note)
	}
	return nil
}

// #endregion detail-mode
