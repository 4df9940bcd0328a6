package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/sentencing-engine/internal/batch"
	"github.com/danielpatrickdp/sentencing-engine/internal/ledger"
)

var (
	batchInput    string
	batchOutput   string
	batchResume   string
	batchNoLedger bool
	batchWorkers  int
)

// batchCmd predicts a JSONL file of cases
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Predict every case of a JSONL file",
	Long: `Reads one case per line ({id, fact?, crime_type?, region?, amount?,
count?, severity?, labels?}) and writes one result per line
({id, answer1, answer2, confidence, trace}) in input order.

Cases that fail emit the fallback interval and the batch continues.
Progress is checkpointed in the ledger; an interrupted run continues with
--resume <run-id>.`,
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "input JSONL file (required)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "output JSONL file (required)")
	batchCmd.Flags().StringVar(&batchResume, "resume", "", "resume the run with this id")
	batchCmd.Flags().BoolVar(&batchNoLedger, "no-ledger", false, "do not checkpoint to the ledger")
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "worker count (default batch.workers)")
	_ = batchCmd.MarkFlagRequired("input")
	_ = batchCmd.MarkFlagRequired("output")
}

func runBatch(cmd *cobra.Command, args []string) error {
	e, err := newEngine()
	if err != nil {
		return err
	}

	rc := cfg.RunnerConfig()
	if batchWorkers > 0 {
		rc.Workers = batchWorkers
	}
	opts := []batch.Option{batch.WithLogger(logger)}

	x, err := newExtractor()
	if err != nil {
		return err
	}
	if x != nil {
		defer x.Close()
		opts = append(opts, batch.WithExtractor(x))
	}

	if !batchNoLedger {
		store, err := ledger.NewStore(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, batch.WithLedger(store))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := batch.NewRunner(e, newParser(), afero.NewOsFs(), rc, opts...)
	sum, err := runner.Run(ctx, batchInput, batchOutput, batchResume)
	if err != nil {
		if sum.RunID != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "resume with: sentencer batch -i %s -o %s --resume %s\n", batchInput, batchOutput, sum.RunID)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d cases, %d fallback, %d resumed -> %s\n",
		sum.RunID, sum.Total, sum.Failed, sum.Resumed, batchOutput)
	return nil
}
