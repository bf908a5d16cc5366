package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tayloree/bhtscan/internal/server"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve BHT detection over HTTP",
	Long: `Start an HTTP server with:
  POST /detect   {"text": "...", "section": true} or a multipart "image" upload
  GET  /healthz  liveness check

Image uploads are enabled when an OCR API key is configured.`,
	Example: `  bhtscan serve
  bhtscan serve --addr 0.0.0.0:8080 --extended`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Address to listen on (default serve.addr, 127.0.0.1:8080)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr := appConfig.Serve.Addr
	if flagAddr != "" {
		addr = flagAddr
	}

	cfg := server.Config{
		Addr:     addr,
		Detector: activeDetector(cmd),
		Section:  boolSetting(cmd, "section", flagSection, appConfig.Detect.Section),
		Logger:   serveLogger(cmd),
	}
	if appConfig.OCR.APIKey != "" {
		cfg.Extractor = newOCRClient()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(cfg).Start(ctx); err != nil {
		return invalidArgsError(err.Error(), "bhtscan serve --addr 127.0.0.1:8081")
	}
	return nil
}

// serveLogger logs at info or lower so request lines are visible by default.
func serveLogger(cmd *cobra.Command) *slog.Logger {
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: min(appLevel, slog.LevelInfo)}))
}
