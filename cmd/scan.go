package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/ocr"
	"github.com/tayloree/bhtscan/internal/source"
)

const ocrRetryDelay = 500 * time.Millisecond

var scanCmd = &cobra.Command{
	Use:   "scan IMAGE",
	Short: "Read a label photo with OCR and check it for BHT",
	Long: "Sends the image to the Google Vision TEXT_DETECTION API and checks the recognized text.\n" +
		"Needs an API key in GOOGLE_VISION_API_KEY, BHTSCAN_OCR_API_KEY, or ocr.api_key.",
	Example: `  bhtscan scan label.jpg
  bhtscan scan label.png --section --save
  bhtscan scan label.jpg --json --fail-on-bht`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func newOCRClient() *ocr.Client {
	return ocr.NewClientWithEndpoint(appConfig.OCR.Endpoint, appConfig.OCR.APIKey).
		WithTimeout(appConfig.OCR.Timeout).
		WithRetries(appConfig.OCR.Retries, ocrRetryDelay).
		WithLogger(appLogger)
}

func runScan(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !ocr.IsImage(path) {
		return invalidArgsError(
			fmt.Sprintf("unsupported image type %q (use %s)", filepath.Ext(path), ocr.ImageTypes),
			"bhtscan --file label.txt",
		)
	}
	info, err := os.Stat(path)
	if err != nil {
		return invalidArgsError(fmt.Sprintf("image not found: %s", path), "Check the image path.")
	}
	if info.Size() == 0 {
		return invalidArgsError(fmt.Sprintf("image is empty: %s", path), manualTextSuggestion)
	}
	if strings.TrimSpace(appConfig.OCR.APIKey) == "" {
		return ocr.ErrMissingAPIKey
	}

	appLogger.Debug("extracting text", "image", path, "endpoint", appConfig.OCR.Endpoint)
	text, err := newOCRClient().ExtractFile(cmd.Context(), path)
	if err != nil {
		var apiErr *ocr.APIError
		switch {
		case errors.Is(err, ocr.ErrNoText), errors.Is(err, ocr.ErrMissingAPIKey):
			return err
		case errors.As(err, &apiErr):
			return upstreamError("vision API rejected the image", apiErr)
		default:
			return upstreamError("ocr failed", err)
		}
	}

	return reportInput(cmd, source.Input{Kind: source.KindImage, Name: path, Text: text})
}
