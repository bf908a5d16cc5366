package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/display"
)

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List the detection rules and their confidence tiers",
	Example: `  bhtscan patterns
  bhtscan patterns --extended --json`,
	Args: cobra.NoArgs,
	RunE: runPatterns,
}

func init() {
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, _ []string) error {
	extended := boolSetting(cmd, "extended", flagExtended, appConfig.Detect.Extended)
	rules := activeDetector(cmd).Rules()

	if flagJSON {
		return display.PrintRulesJSON(cmd.OutOrStdout(), rules)
	}
	display.PrintRules(cmd.OutOrStdout(), rules, extended)
	return nil
}
