package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ftrac/internal/config"
	"github.com/roach88/ftrac/internal/stats"
	"github.com/roach88/ftrac/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides the configured database when set

	// Resolved by prepare.
	Config config.Config
	Logger *slog.Logger
	ready  bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ftrac CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ftrac",
		Short: "ftrac - filesystem trace reconciliation and statistics",
		Long: `Import the logs of a traced filesystem session into a local database
and query statistics over the reconciled records.

A session directory holds the runtime, syscall and file logs written by
the tracer, plus optional process logs from proc, ptrace and taskstat.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.prepare(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config (default $"+config.EnvVar+")")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")

	// Add subcommands
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewAggregateCommand(opts))
	cmd.AddCommand(NewGroupCommand(opts))
	cmd.AddCommand(NewThroughputCommand(opts))
	cmd.AddCommand(NewCDFCommand(opts))
	cmd.AddCommand(NewSummaryCommand(opts))
	cmd.AddCommand(NewProcsCommand(opts))
	cmd.AddCommand(NewRuntimeCommand(opts))
	cmd.AddCommand(NewSessionsCommand(opts))
	cmd.AddCommand(NewSyscallsCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
// Errors a command has not already reported are printed to stderr.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		// Unknown commands and bad flags
		fmt.Fprintln(stderr, "Error:", err)
		return ExitCommandError
	}
	if !exitErr.reported {
		fmt.Fprintln(stderr, "Error:", err)
	}
	return exitErr.Code
}

// prepare validates global flags, loads configuration and sets up logging.
// It runs once per RootOptions; subcommands call it too so they work when
// executed without the root command.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.ready {
		return nil
	}
	if !isValidFormat(o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", o.Format, ValidFormats))
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	o.Config = cfg
	o.Logger = newLogger(cmd.ErrOrStderr(), cfg, o.Verbose)
	o.ready = true
	return nil
}

// newLogger builds the process logger. --verbose forces DEBUG.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.Level()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// formatter returns an OutputFormatter bound to the command's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Diagnostics go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database.
func (o *RootOptions) openStore() (*store.Store, error) {
	o.Logger.Debug("opening database", "path", o.Config.Database)
	return store.Open(o.Config.Database)
}

// withEngine opens the store, runs fn with a stats engine over it and
// closes the store again.
func (o *RootOptions) withEngine(f *OutputFormatter, fn func(*stats.Engine) error) error {
	st, err := o.openStore()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeDatabase, fmt.Errorf("open database: %w", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			o.Logger.Error("error closing database", "error", closeErr)
		}
	}()
	return fn(stats.New(st, stats.WithLogger(o.Logger)))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
