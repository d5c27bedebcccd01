package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/internal/app"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "petscan",
	Short: "Scan pet food labels and check them against your pets' sensitivities",
	Long: `petscan reads pet food labels from text or images, extracts the guaranteed
analysis, calories and ingredients, and assesses the ingredients against the
sensitivities of your pets.

Configuration comes from the environment (or a .env file): DB_DRIVER, DB_URL,
LOOKUP_*, OCR_*, SCAN_* and LOG_*. Flags override the matching variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var globalFlags struct {
	dbDriver string
	dbURL    string
	logLevel string
	noLookup bool
	ocr      string
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&globalFlags.dbDriver, "db-driver", "", "database driver: sqlite or postgres (env DB_DRIVER)")
	pf.StringVar(&globalFlags.dbURL, "db", "", "database DSN or sqlite file (env DB_URL)")
	pf.StringVar(&globalFlags.logLevel, "log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	pf.BoolVar(&globalFlags.noLookup, "offline", false, "skip the remote product API")
	pf.StringVar(&globalFlags.ocr, "ocr", "", "OCR engine: tesseract or vision (env OCR_ENGINE)")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() *common.Config {
	cfg := common.LoadConfig()
	if globalFlags.dbDriver != "" {
		cfg.Database.Driver = globalFlags.dbDriver
	}
	if globalFlags.dbURL != "" {
		cfg.Database.DSN = globalFlags.dbURL
	}
	if globalFlags.logLevel != "" {
		cfg.Log.Level = globalFlags.logLevel
	}
	if globalFlags.noLookup {
		cfg.Lookup.Disabled = true
	}
	if globalFlags.ocr != "" {
		cfg.OCR.Engine = globalFlags.ocr
	}
	return cfg
}

func openApp(ctx context.Context) (*app.App, error) {
	return app.New(ctx, loadConfig())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
