package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/display"
	"github.com/tayloree/bhtscan/internal/ocr"
	"github.com/tayloree/bhtscan/internal/source"
)

var batchCmd = &cobra.Command{
	Use:   "batch FILE...",
	Short: "Check many label files and rank them by BHT confidence",
	Long: "Checks every file (.txt, .pdf, or an image when an OCR key is configured) and\n" +
		"ranks them by confidence, then number of matches, then name. Unreadable files are skipped.",
	Example: `  bhtscan batch labels/*.txt
  bhtscan batch a.txt b.pdf c.jpg --section --json
  bhtscan batch labels/* --fail-on-bht`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	detector := activeDetector(cmd)
	save := boolSetting(cmd, "save", flagSave, appConfig.History.AutoSave)

	items := make([]display.BatchItem, 0, len(args))
	var skipped []string
	for _, path := range args {
		in, err := readBatchInput(cmd, path)
		if err != nil {
			appLogger.Warn("skipping file", "file", path, "error", err)
			skipped = append(skipped, path)
			continue
		}

		res := detector.Detect(prepareText(cmd, in.Text))
		if save {
			if _, err := saveResult(cmd, in, res); err != nil {
				return err
			}
		}
		items = append(items, display.BatchItem{Name: path, Result: res})
	}

	if len(items) == 0 {
		return invalidArgsError(
			fmt.Sprintf("none of the %d file(s) could be read", len(args)),
			"Run with --verbose to see why each file was skipped.",
		)
	}

	rankBatch(items)

	if flagJSON {
		if err := display.PrintBatchJSON(cmd.OutOrStdout(), items, skipped); err != nil {
			return err
		}
	} else {
		display.PrintBatch(cmd.OutOrStdout(), items, skipped)
	}

	if flagFailOnBHT {
		var flagged []string
		for _, it := range items {
			if it.Result.ContainsBHT {
				flagged = append(flagged, it.Name)
			}
		}
		if len(flagged) > 0 {
			return newCLIError(codeDetected, fmt.Sprintf("BHT detected in %d file(s): %s", len(flagged), strings.Join(flagged, ", ")))
		}
	}
	return nil
}

func readBatchInput(cmd *cobra.Command, path string) (source.Input, error) {
	if !ocr.IsImage(path) {
		return source.FromFile(path)
	}
	if strings.TrimSpace(appConfig.OCR.APIKey) == "" {
		return source.Input{}, fmt.Errorf("%s: image needs an OCR API key", path)
	}
	text, err := newOCRClient().ExtractFile(cmd.Context(), path)
	if err != nil {
		return source.Input{}, err
	}
	return source.Input{Kind: source.KindImage, Name: path, Text: text}, nil
}

// rankBatch orders items by confidence, then match count, then name, and
// numbers them from 1.
func rankBatch(items []display.BatchItem) {
	sort.SliceStable(items, func(i, j int) bool {
		ri, rj := items[i].Result, items[j].Result
		if ri.Confidence.Rank() != rj.Confidence.Rank() {
			return ri.Confidence.Rank() > rj.Confidence.Rank()
		}
		if len(ri.Matches) != len(rj.Matches) {
			return len(ri.Matches) > len(rj.Matches)
		}
		return items[i].Name < items[j].Name
	})
	for i := range items {
		items[i].Rank = i + 1
	}
}

