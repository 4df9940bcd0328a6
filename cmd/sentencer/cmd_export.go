package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentencing-engine/internal/batch"
	"github.com/danielpatrickdp/sentencing-engine/internal/ledger"
	"github.com/danielpatrickdp/sentencing-engine/internal/replay"
)

var (
	exportDB    string
	exportRun   string
	exportInput string
	exportOut   string
)

// exportFixtureCmd turns a checkpointed run into a regression fixture
var exportFixtureCmd = &cobra.Command{
	Use:   "export-fixture",
	Short: "Export a ledger run as a replay fixture",
	Long: `Pairs the run's checkpointed intervals with its input records and writes
a fixture for "sentencer replay". Fallback outputs are left out.`,
	RunE: runExportFixture,
}

func init() {
	exportFixtureCmd.Flags().StringVar(&exportDB, "db", "", "ledger database (default ledger.path)")
	exportFixtureCmd.Flags().StringVar(&exportRun, "run", "", "run id (required)")
	exportFixtureCmd.Flags().StringVar(&exportInput, "input", "", "input JSONL (default: the run's recorded input)")
	exportFixtureCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output fixture JSON (required)")
	_ = exportFixtureCmd.MarkFlagRequired("run")
	_ = exportFixtureCmd.MarkFlagRequired("out")
}

func runExportFixture(cmd *cobra.Command, args []string) error {
	path := exportDB
	if path == "" {
		path = cfg.Ledger.Path
	}
	store, err := ledger.NewStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(exportRun)
	if err != nil {
		return err
	}
	input := exportInput
	if input == "" {
		input = run.Input
	}

	fs := afero.NewOsFs()
	cases, err := batch.ReadCases(fs, input)
	if err != nil {
		return err
	}
	preds, err := store.Predictions(run.ID)
	if err != nil {
		return err
	}

	f := replay.FromRun(run, cases, preds)
	if err := replay.SaveFixture(fs, exportOut, f); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d cases to %s\n", len(f.Cases), exportOut)
	return nil
}
