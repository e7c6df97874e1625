// Package cli wires configuration, the operator console, the browser and the
// supervisor behind the raspador commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xyla-io/raspador/internal/config"
	"github.com/xyla-io/raspador/internal/logger"
)

// Version is set at build time.
var Version = "dev"

type flags struct {
	config        string
	interactive   int
	pdb           bool
	monitor       bool
	retry         int
	timeout       time.Duration
	detailLength  int
	outputDir     string
	logDB         string
	trace         string
	yes           bool
	verbose       bool
	headful       bool
	browserURL    string
	promptTimeout time.Duration
}

var opts flags

var rootCmd = &cobra.Command{
	Use:           "raspador",
	Short:         "Fly browser automation plans with an operator in the loop",
	Long:          `raspador flies JSON flight plans as missions. Every attempt is logged, and an operator can step, skip, repair or take over any maneuver.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.config, "config", "", "config file (.yaml, .yml or .toml)")
	pf.CountVarP(&opts.interactive, "interactive", "i", "1 prompts on errors, 2 also steps from the start, 3 also waits on prompts forever")
	pf.BoolVar(&opts.pdb, "pdb", false, "start a postmortem on every error without asking")
	pf.BoolVar(&opts.monitor, "monitor", false, "save a screenshot before every attempt")
	pf.IntVarP(&opts.retry, "retry", "r", 3, "errored attempts allowed per maneuver before skipping up (-1 for no limit)")
	pf.DurationVarP(&opts.timeout, "timeout", "t", 0, "time budget for all missions together")
	pf.IntVarP(&opts.detailLength, "detail-length", "l", 2048, "longest detail kept in the flight log")
	pf.StringVar(&opts.outputDir, "output", "output", "folder for logs, pages and images")
	pf.StringVar(&opts.logDB, "log-db", "", "also append the flight log to this SQLite database")
	pf.StringVar(&opts.trace, "trace", "", "write attempt spans to this file")
	pf.DurationVar(&opts.promptTimeout, "prompt-timeout", 30*time.Second, "answer prompts with their default after this long")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	flyCmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "fly risky plans without asking")
	flyCmd.Flags().BoolVar(&opts.headful, "headful", false, "show the browser window")
	flyCmd.Flags().StringVar(&opts.browserURL, "browser-url", "", "connect to a running browser's DevTools URL")

	rootCmd.AddCommand(flyCmd, planCmd, logCmd)
}

// settings loads the config and lets flags set on the command line win.
func settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.config)
	if err != nil {
		return config.Config{}, err
	}
	changed := cmd.Flags().Changed
	if changed("interactive") {
		cfg.Interactive = opts.interactive
	}
	if changed("pdb") {
		cfg.BreakOnErrors = opts.pdb
	}
	if changed("monitor") {
		cfg.Monitor = opts.monitor
	}
	if changed("retry") {
		cfg.Retry = opts.retry
	}
	if changed("timeout") {
		cfg.Timeout = opts.timeout
	}
	if changed("detail-length") {
		cfg.DetailLength = opts.detailLength
	}
	if changed("output") {
		cfg.OutputDir = opts.outputDir
	}
	if changed("log-db") {
		cfg.LogDB = opts.logDB
	}
	if changed("trace") {
		cfg.Trace = opts.trace
	}
	if changed("prompt-timeout") {
		cfg.PromptTimeout = opts.promptTimeout
	}
	if changed("headful") {
		cfg.Browser.Headless = !opts.headful
	}
	if changed("browser-url") {
		cfg.Browser.ControlURL = opts.browserURL
	}
	if cfg.Interactive >= 3 {
		cfg.PromptTimeout = 0
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	if err := logger.Init(cfg.LogFile, opts.verbose); err != nil {
		return config.Config{}, fmt.Errorf("could not initialize logger: %w", err)
	}
	return cfg, nil
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
