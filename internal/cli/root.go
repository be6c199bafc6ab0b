// Package cli implements the trustlog command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/trustlog/internal/config"
	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/publisher"
	"github.com/roach88/trustlog/internal/reducer"
	"github.com/roach88/trustlog/internal/store"
)

// RootOptions holds global flags and the loaded configuration.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string

	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the trustlog CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "trustlog",
		Short: "trustlog - operation-sourced trust network",
		Long: `Fold an append-only log of member operations into verification,
trust, flag and balance state, and answer ability checks against it.

Environment:
  TRUSTLOG_DB                               database path (--db overrides)
  TRUSTLOG_VERIFICATIONS_REQUIRED_TO_VERIFY verifiers needed to be verified
  TRUSTLOG_VERIFICATIONS_REQUIRED_TO_FLAG   verifiers needed to flag others
  TRUSTLOG_POLL_INTERVAL                    log polling interval for watch
  TRUSTLOG_LOG_LEVEL                        debug, info, warn or error`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load configuration", err)
			}
			opts.Config = cfg
			if !cmd.Flags().Changed("db") {
				opts.Database = cfg.DBPath
			}

			level := cfg.Level()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), opts.Format, level)
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $TRUSTLOG_DB or trustlog.db)")

	cmd.AddCommand(NewAppendCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewMemberCommand(opts))
	cmd.AddCommand(NewCanCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newLogger writes text logs, or JSON logs when the output format is json.
func newLogger(w io.Writer, format string, level slog.Level) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

// thresholds returns the configured thresholds, or the defaults when no
// valid configuration was loaded.
func (o *RootOptions) thresholds() member.Thresholds {
	t := o.Config.Thresholds()
	if t.Validate() != nil {
		return member.DefaultThresholds()
	}
	return t
}

func (o *RootOptions) newReducer() *reducer.Reducer {
	return reducer.New(
		reducer.WithLogger(o.logger()),
		reducer.WithThresholds(o.thresholds()),
	)
}

func (o *RootOptions) newPublisher(opts ...publisher.Option) *publisher.Publisher {
	base := []publisher.Option{
		publisher.WithReducer(o.newReducer()),
		publisher.WithLogger(o.logger()),
	}
	return publisher.New(append(base, opts...)...)
}

// openStore opens the configured database.
func (o *RootOptions) openStore() (*store.Store, error) {
	if o.Database == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db or TRUSTLOG_DB")
	}
	st, err := store.Open(o.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
