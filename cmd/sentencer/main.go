package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/sentencing-engine/internal/codec"
	"github.com/danielpatrickdp/sentencing-engine/internal/config"
	"github.com/danielpatrickdp/sentencing-engine/internal/engine"
	"github.com/danielpatrickdp/sentencing-engine/internal/labels"
	"github.com/danielpatrickdp/sentencing-engine/internal/logging"
	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

var (
	// Global flags
	cfgFile   string
	verbose   bool
	rulesPath string

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sentencer",
	Short: "Rule-based sentencing interval calculator",
	Long: `sentencer predicts a custodial sentence interval in months from the
crime type, the amount or injury severity, and the circumstances of a case.

Every prediction carries a confidence score and a trace of the rules that
fired. Batches are checkpointed in a SQLite ledger and can be resumed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.New(), cfgFile)
		if err != nil {
			return err
		}
		if rulesPath != "" {
			cfg.Rules.Path = rulesPath
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, cfg.Log.JSON)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default ./sentencer.yaml or $HOME/sentencer.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "rule table YAML (default: embedded table)")

	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(exportFixtureCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// #region shared
func loadTable() (*rules.Table, error) {
	if cfg.Rules.Path == "" {
		return rules.Default()
	}
	return rules.LoadFs(afero.NewOsFs(), cfg.Rules.Path)
}

func newEngine() (*engine.Engine, error) {
	tbl, err := loadTable()
	if err != nil {
		return nil, err
	}
	return engine.New(tbl, engine.WithLogger(logger)), nil
}

func newParser() *labels.Parser {
	return labels.NewParser(cfg.ParserConfig())
}

// newExtractor connects to the extraction service, or returns nil when no
// address is configured.
func newExtractor() (*codec.ExtractorClient, error) {
	if cfg.Extractor.Addr == "" {
		return nil, nil
	}
	return codec.NewExtractorClient(cfg.Extractor.Addr)
}

// #endregion shared
