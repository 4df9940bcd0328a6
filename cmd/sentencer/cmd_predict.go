package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/danielpatrickdp/sentencing-engine/internal/codec"
	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
)

var (
	predictID       string
	predictCrime    string
	predictRegion   string
	predictAmount   float64
	predictCount    int
	predictSeverity string
	predictLabels   []string
	predictFact     string
	predictRemote   string
	predictJSON     bool
)

// predictCmd predicts one case
var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the sentence interval for one case",
	Long: `Predicts one case from structured flags, extraction labels, or fact text.

Examples:
  sentencer predict --crime theft --amount 3320 --label 坦白 --label 退赔2800元
  sentencer predict --label 盗窃金额既遂3320元 --label 认罪认罚 --json
  sentencer predict --fact "公诉机关指控犯盗窃罪..." --remote localhost:50071`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictID, "id", "cli", "case id")
	predictCmd.Flags().StringVar(&predictCrime, "crime", "", "crime type id, name or alias")
	predictCmd.Flags().StringVar(&predictRegion, "region", "", "province or city for regional thresholds")
	predictCmd.Flags().Float64Var(&predictAmount, "amount", 0, "amount involved in yuan")
	predictCmd.Flags().IntVar(&predictCount, "count", 0, "number of offences or victims")
	predictCmd.Flags().StringVar(&predictSeverity, "severity", "", "injury severity, e.g. 轻伤二级")
	predictCmd.Flags().StringArrayVar(&predictLabels, "label", nil, "extraction label (repeatable)")
	predictCmd.Flags().StringVar(&predictFact, "fact", "", "case fact text")
	predictCmd.Flags().StringVar(&predictRemote, "remote", "", "predict through a sentencer server at this address")
	predictCmd.Flags().BoolVar(&predictJSON, "json", false, "print the full result as JSON")
}

func runPredict(cmd *cobra.Command, args []string) error {
	c := labels.Case{
		ID:        predictID,
		Fact:      predictFact,
		CrimeType: predictCrime,
		Region:    predictRegion,
		Severity:  predictSeverity,
		Labels:    predictLabels,
	}
	if cmd.Flags().Changed("amount") {
		v := predictAmount
		c.Amount = &v
	}
	if cmd.Flags().Changed("count") {
		n := predictCount
		c.Count = &n
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Extractor.Timeout)
	defer cancel()

	if predictRemote != "" {
		return predictRemotely(ctx, cmd.OutOrStdout(), c)
	}

	if c.NeedsExtraction() {
		x, err := newExtractor()
		if err != nil {
			return err
		}
		if x == nil {
			return fmt.Errorf("case has only fact text and extractor.addr is not set")
		}
		defer x.Close()
		found, err := x.Extract(ctx, c.ID, c.Fact)
		if err != nil {
			return err
		}
		c.Labels = found
	}

	e, err := newEngine()
	if err != nil {
		return err
	}
	r, err := e.Predict(newParser().Input(c))
	if err != nil {
		return err
	}

	if predictJSON {
		return printJSON(cmd.OutOrStdout(), r)
	}
	printResult(cmd.OutOrStdout(), r)
	return nil
}

func predictRemotely(ctx context.Context, w io.Writer, c labels.Case) error {
	conn, err := grpc.NewClient(predictRemote, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", predictRemote, err)
	}
	defer conn.Close()

	resp, err := codec.NewSentencerClient(conn).Predict(ctx, c)
	if err != nil {
		return err
	}
	return printJSON(w, resp)
}

func printResult(w io.Writer, r engine.Result) {
	region := r.Region
	if region == "" {
		region = "national"
	}
	fmt.Fprintf(w, "%s (%s): %s months, confidence %.3f\n", r.CrimeType, region, r.Interval, r.Confidence)
	for _, is := range r.Issues {
		fmt.Fprintf(w, "  ! %-26s %s\n", is.Code, is.Detail)
	}
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, t := range r.Trace {
		fmt.Fprintf(w, "  %-28s %s\n", t.RuleID, t.Effect)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
