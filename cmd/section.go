package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/label"
)

var sectionCmd = &cobra.Command{
	Use:   "section [TEXT...]",
	Short: "Print the ingredients section of a label",
	Long: "Finds the first line mentioning an ingredients heading (ingredientes, ingredients,\n" +
		"composição, composition, ...) and prints the text from that line on.\n" +
		"Text without a heading is printed unchanged.",
	Example: `  bhtscan section --file label.txt
  pbpaste | bhtscan section --json`,
	Args: cobra.ArbitraryArgs,
	RunE: runSection,
}

func init() {
	rootCmd.AddCommand(sectionCmd)
	registerFileFlag(sectionCmd.Flags())
}

func runSection(cmd *cobra.Command, args []string) error {
	in, err := readInput(cmd, args)
	if err != nil {
		return err
	}

	found := label.HeadingLine(strings.Split(in.Text, "\n")) >= 0
	section := label.IngredientsSection(in.Text)
	appLogger.Debug("located section", "found", found, "bytes", len(section))

	if flagJSON {
		return display.PrintSectionJSON(cmd.OutOrStdout(), section, found)
	}
	display.PrintSection(cmd.OutOrStdout(), section, found)
	return nil
}
