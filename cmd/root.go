package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/corrmatrix/internal/config"
	"github.com/KaramelBytes/corrmatrix/internal/logging"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagLogFormat string

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "corrmatrix",
	Short: "corrmatrix: pairwise Pearson correlation matrices for tabular records",
	Long: `corrmatrix turns a batch of records into a symmetric Pearson correlation matrix.
Columns that never produce a coefficient are pruned from both axes.
Run it as an HTTP service (serve) or one-shot over a JSON/CSV/XLSX file (analyze).`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.corrmatrix/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultGlobal()
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if debug {
		cfg.LogLevel = "debug"
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	logger = logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

// currentConfig returns the loaded config, loading it when a command runs
// without cobra initialisation (tests call subcommands directly).
func currentConfig() *cfgpkg.Global {
	if cfg == nil {
		loadConfig()
	}
	return cfg
}

func defaultGlobal() *cfgpkg.Global {
	return &cfgpkg.Global{
		ListenAddr:      ":8081",
		CORSOrigins:     []string{"*"},
		MaxBodyBytes:    10 << 20,
		ReadTimeoutSec:  30,
		WriteTimeoutSec: 60,
		IdleTimeoutSec:  120,
		LogLevel:        "info",
		LogFormat:       "console",
		MinPeriods:      2,
	}
}
