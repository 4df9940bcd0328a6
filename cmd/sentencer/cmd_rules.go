package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/sentencing-engine/internal/rules"
)

var rulesRegion string

// rulesCmd groups rule table commands
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Validate or show the rule table",
}

// rulesValidateCmd validates a rule table file
var rulesValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a rule table (default: the configured table)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRulesValidate,
}

// rulesShowCmd prints one crime's effective profile
var rulesShowCmd = &cobra.Command{
	Use:   "show [crime]",
	Short: "Print crime profiles as YAML",
	Long: `Without an argument lists the crimes and regions of the table. With a
crime id, name or alias prints its effective profile, using the regional
thresholds of --region when given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRulesShow,
}

func init() {
	rulesShowCmd.Flags().StringVar(&rulesRegion, "region", "", "region whose thresholds apply")
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}

func runRulesValidate(cmd *cobra.Command, args []string) error {
	var tbl *rules.Table
	var err error
	if len(args) == 1 {
		tbl, err = rules.LoadFs(afero.NewOsFs(), args[0])
	} else {
		tbl, err = loadTable()
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "ok: rules %s, %d crimes, %d regions\n",
		tbl.Version, len(tbl.CrimeIDs()), len(tbl.Regions()))
	return nil
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	tbl, err := loadTable()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()

	if len(args) == 0 {
		fmt.Fprintf(w, "rules %s\n", tbl.Version)
		for _, id := range tbl.CrimeIDs() {
			p, _ := tbl.Lookup(id)
			fmt.Fprintf(w, "  %-20s %s\n", id, p.Name)
		}
		fmt.Fprintf(w, "regions: %v\n", tbl.Regions())
		return nil
	}

	p, issues, err := tbl.ForRegion(args[0], rulesRegion)
	if err != nil {
		return err
	}
	for _, is := range issues {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s: %s\n", is.Code, is.Detail)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return enc.Close()
}
