package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/ftrac/internal/reconcile"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	MetricsFile string

	// IDGenerator allows overriding import ids (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator reconcile.IDGenerator
}

// ImportResult lists the sessions imported by one invocation.
type ImportResult struct {
	Imports []*reconcile.Result `json:"imports"`
}

// RenderText prints one line per session, plus warnings.
func (r ImportResult) RenderText(w io.Writer) error {
	for _, res := range r.Imports {
		fmt.Fprintf(w, "imported session %d from %s: %d syscalls, %d files, %d processes, %d warnings\n",
			res.SessionID, res.Dir, res.Syscalls, res.Files, res.Processes, len(res.Warnings))
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}
	return nil
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <session-dir>...",
		Short: "Reconcile session logs into the database",
		Long: `Reconcile the logs of one or more traced sessions and store them.

Each session directory must contain runtime.log, sysc.log and file.log.
proc.log, ptrace.log and taskstat.log are merged into process records
when present. Re-importing a session replaces its previous records.

Lines that cannot be parsed are skipped and reported as warnings. A
missing mandatory log or an unusable runtime log aborts the import and
leaves the database untouched.

Examples:
  ftrac import ./traces/run-1
  ftrac import --db ./traces.db ./traces/run-*
  ftrac import --metrics-file ./ftrac.prom ./traces/run-1`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			return runImport(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "write import metrics in Prometheus text format to this file")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, dirs []string, cmd *cobra.Command) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := opts.openStore()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, fmt.Errorf("open database: %w", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger.Error("error closing database", "error", closeErr)
		}
	}()

	reg := prometheus.NewRegistry()
	if opts.MetricsFile != "" {
		defer func() {
			if werr := prometheus.WriteToTextfile(opts.MetricsFile, reg); werr != nil && err == nil {
				err = formatter.Fail(ExitFailure, ErrCodeWriteFailed, fmt.Errorf("write metrics: %w", werr))
			}
		}()
	}

	idGen := opts.IDGenerator
	if idGen == nil {
		idGen = reconcile.UUIDv7Generator{}
	}
	rec := reconcile.New(st,
		reconcile.WithLogger(opts.Logger),
		reconcile.WithIDGenerator(idGen),
		reconcile.WithMetrics(reconcile.NewMetrics(reg)),
	)

	result := ImportResult{Imports: []*reconcile.Result{}}
	for _, dir := range dirs {
		formatter.VerboseLog("Importing %s", dir)
		res, err := rec.Reconcile(ctx, dir)
		switch {
		case err == nil:
			result.Imports = append(result.Imports, res)
		case reconcile.IsMissingLog(err):
			return formatter.Fail(ExitCommandError, ErrCodeMissingLog, err)
		case reconcile.IsMalformedLog(err):
			return formatter.Fail(ExitFailure, ErrCodeMalformedLog, err)
		default:
			return formatter.Fail(ExitFailure, ErrCodeGeneric, fmt.Errorf("import %s: %w", dir, err))
		}
	}

	return formatter.Success(result)
}
