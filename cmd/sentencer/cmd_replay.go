package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentencing-engine/internal/replay"
)

var (
	replayFixture string
	replayJSON    bool
)

// replayCmd replays a regression fixture
var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fixture and compare intervals",
	Long: `Runs every fixture case through the current rule table and compares the
interval with the recorded one. Cases with a known actual sentence also
contribute to coverage and the mean Winkler interval score.

Exits non-zero when any case no longer matches.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFixture, "fixture", "f", "", "fixture JSON (required)")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print the summary as JSON")
	_ = replayCmd.MarkFlagRequired("fixture")
}

func runReplay(cmd *cobra.Command, args []string) error {
	f, err := replay.LoadFixture(afero.NewOsFs(), replayFixture)
	if err != nil {
		return err
	}
	e, err := newEngine()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if f.RulesVersion != "" && f.RulesVersion != e.Table().Version {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: fixture recorded against rules %s, table is %s\n", f.RulesVersion, e.Table().Version)
	}

	results := replay.Replay(e, f.Cases, f.Alpha)
	s := replay.Summarize(results)
	if replayJSON {
		if err := printJSON(w, s); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			switch {
			case r.Err != nil:
				fmt.Fprintf(w, "ERROR    %-32s %v\n", r.ID, r.Err)
			case !r.Match:
				fmt.Fprintf(w, "MISMATCH %-32s expected %s, got %s\n", r.ID, r.Expected, r.Got)
			}
		}
		fmt.Fprintf(w, "%d/%d match, %d errors\n", s.Matches, s.Total, s.Errors)
		if s.WithTruth > 0 {
			fmt.Fprintf(w, "coverage %.3f over %d cases, mean Winkler %.2f (alpha %.2f)\n", s.Coverage, s.WithTruth, s.MeanWinkler, f.Alpha)
		}
		fmt.Fprintf(w, "mean width %.2f months\n", s.MeanWidth)
	}

	if s.Mismatches > 0 {
		return fmt.Errorf("%d of %d cases changed", s.Mismatches, s.Total)
	}
	return nil
}
