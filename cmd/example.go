package cmd

import (
	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/source"
)

const (
	exampleWithBHT    = "INGREDIENTES: Farinha de trigo, açúcar, gordura vegetal, BHT (antioxidante), sal, fermento químico."
	exampleWithoutBHT = "INGREDIENTES: Farinha de arroz, água, azeite de oliva extra virgem, sal marinho, fermento biológico."
)

var flagExampleWithBHT bool

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Run the check on a built-in sample label",
	Long:  "Useful when no camera or OCR key is at hand: checks a sample Portuguese label.",
	Example: `  bhtscan example
  bhtscan example --with-bht --json`,
	Args: cobra.NoArgs,
	RunE: runExample,
}

func init() {
	rootCmd.AddCommand(exampleCmd)
	exampleCmd.Flags().BoolVar(&flagExampleWithBHT, "with-bht", false, "Use the sample label that contains BHT")
}

func runExample(cmd *cobra.Command, _ []string) error {
	in := source.Input{Kind: source.KindExample, Name: "without-bht", Text: exampleWithoutBHT}
	if flagExampleWithBHT {
		in = source.Input{Kind: source.KindExample, Name: "with-bht", Text: exampleWithBHT}
	}
	return reportInput(cmd, in)
}
