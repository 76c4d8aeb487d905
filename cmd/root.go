package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agentic-research/faultcat/internal/config"
	"github.com/agentic-research/faultcat/internal/logger"
	"github.com/agentic-research/faultcat/internal/metrics"
)

var (
	configPath  string
	logLevel    string
	logPretty   bool
	changelog   string
	metricsFile string
	verbose     bool
)

// run holds what PersistentPreRunE prepared for the command being executed.
var run struct {
	id      string
	cfg     *config.Config
	changes *logger.ChangeLog
}

// errFailures makes a batch command exit non-zero after it has reported its
// own failures.
var errFailures = errors.New("completed with failures")

var rootCmd = &cobra.Command{
	Use:   "faultcat",
	Short: "Maintain a multilingual AGV fault code catalog",
	Long: `faultcat keeps the French, English and Spanish files of a fault code
catalog aligned: it translates missing descriptions, checks structure across
languages, fixes common spelling mistakes and serves the catalog for editing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		level := cfg.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		if verbose && !cmd.Flags().Changed("log-level") {
			level = "debug"
		}
		logger.Init(level, logPretty)

		run.id = uuid.New().String()
		run.cfg = cfg
		run.changes, err = logger.OpenChangeLog(changelog, run.id)
		if err != nil {
			return err
		}
		log.Logger = log.With().Str("run_id", run.id).Logger()
		log.Debug().Str("command", cmd.Name()).Msg("run started")
		return nil
	},
}

// finish flushes the change log and the metrics textfile, whether or not the
// command succeeded.
func finish() error {
	var errs []error
	if run.changes != nil {
		errs = append(errs, run.changes.Close())
		run.changes = nil
	}
	if err := metrics.WriteTextfile(metricsFile); err != nil {
		errs = append(errs, fmt.Errorf("write metrics: %w", err))
	}
	return errors.Join(errs...)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Project file (default ./"+config.DefaultProjectFile+" when present)")
	pf.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.BoolVar(&logPretty, "log-pretty", false, "Human readable logs on stderr")
	pf.StringVar(&changelog, "changelog", "", "Append every changed description to this JSON lines file")
	pf.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if ferr := finish(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		if !errors.Is(err, errFailures) {
			errorf(os.Stderr, "%v\n", err)
		}
		os.Exit(1)
	}
}
