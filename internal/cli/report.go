package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/stats"
	"github.com/roach88/ftrac/internal/sysc"
)

// SummaryResult is the output of the summary command.
type SummaryResult struct {
	Syscalls []stats.SyscallSummary `json:"syscalls"`
}

func (r SummaryResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%-10s %8s %12s %12s %12s\n", "syscall", "count", "elapsed", "avg", "stddev")
	for _, s := range r.Syscalls {
		fmt.Fprintf(w, "%-10s %8d %12g %12g %12g\n", s.Name, s.Count, s.ElapsedSum, s.ElapsedAvg, s.ElapsedStddev)
	}
	for _, s := range r.Syscalls {
		if s.IO == nil {
			continue
		}
		fmt.Fprintf(w, "%s: %d bytes, length %g±%g, offset %g±%g\n",
			s.Name, s.IO.Bytes, s.IO.LengthAvg, s.IO.LengthStddev, s.IO.OffsetAvg, s.IO.OffsetStddev)
	}
	return nil
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Per-syscall latency and I/O statistics",
		Long: `Report, for every syscall with matching calls, the call count and the
sum, average and standard deviation of elapsed time. read and write also
report bytes transferred and the average and deviation of request
length and offset.

Examples:
  ftrac summary --where iid=1
  ftrac summary --where pid=42 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			f := opts.formatter(cmd)

			attrs, err := parseWhere(opts.Where)
			if err != nil {
				return invalidInput(f, err)
			}
			return opts.withEngine(f, func(e *stats.Engine) error {
				rows, err := e.Summary(commandContext(cmd), attrs)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(SummaryResult{Syscalls: rows})
			})
		},
	}
	addWhereFlag(cmd, &opts.Where)

	return cmd
}

// ProcsResult is the output of the procs command.
type ProcsResult struct {
	PIDs []int64 `json:"pids"`
}

func (r ProcsResult) RenderText(w io.Writer) error {
	for _, pid := range r.PIDs {
		fmt.Fprintln(w, pid)
	}
	return nil
}

// NewProcsCommand creates the procs command.
func NewProcsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "procs",
		Short: "List pids matching attributes",
		Long: `List the pids matching --where across the syscall and proc tables.

A pid must satisfy every table the attributes constrain. Without
constraints every traced process is listed.

Examples:
  ftrac procs --where sysc=write
  ftrac procs --where iid=1 --where live=false`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			f := opts.formatter(cmd)

			attrs, err := parseWhere(opts.Where)
			if err != nil {
				return invalidInput(f, err)
			}
			return opts.withEngine(f, func(e *stats.Engine) error {
				pids, err := e.Processes(commandContext(cmd), attrs)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(ProcsResult{PIDs: pids})
			})
		},
	}
	addWhereFlag(cmd, &opts.Where)

	return cmd
}

// RuntimeResult is the output of the runtime command.
type RuntimeResult struct {
	Session int64             `json:"iid"`
	Items   record.RuntimeEnv `json:"items"`
}

func (r RuntimeResult) RenderText(w io.Writer) error {
	for _, k := range r.Items.Keys() {
		fmt.Fprintf(w, "%s: %s\n", k, r.Items[k])
	}
	return nil
}

// NewRuntimeCommand creates the runtime command.
func NewRuntimeCommand(rootOpts *RootOptions) *cobra.Command {
	var session int64

	cmd := &cobra.Command{
		Use:   "runtime",
		Short: "Show the runtime environment of a session",
		Long: `Show the runtime items recorded for a session, sorted by name.

Example:
  ftrac runtime --session 1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)

			return rootOpts.withEngine(f, func(e *stats.Engine) error {
				env, err := e.Runtime(commandContext(cmd), session)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(RuntimeResult{Session: session, Items: env})
			})
		},
	}
	cmd.Flags().Int64Var(&session, "session", 0, "session id (required)")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

// SessionsResult is the output of the sessions command.
type SessionsResult struct {
	Sessions []int64 `json:"sessions"`
}

func (r SessionsResult) RenderText(w io.Writer) error {
	if len(r.Sessions) == 0 {
		_, err := fmt.Fprintln(w, "no sessions imported")
		return err
	}
	for _, id := range r.Sessions {
		fmt.Fprintln(w, id)
	}
	return nil
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sessions",
		Short:         "List imported sessions",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)

			return rootOpts.withEngine(f, func(e *stats.Engine) error {
				ids, err := e.Sessions(commandContext(cmd))
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(SessionsResult{Sessions: ids})
			})
		},
	}
}

// SyscallsResult is the output of the syscalls command.
type SyscallsResult struct {
	Syscalls []sysc.Entry `json:"syscalls"`
}

func (r SyscallsResult) RenderText(w io.Writer) error {
	for _, e := range r.Syscalls {
		fmt.Fprintf(w, "%-4d %s\n", e.Code, e.Name)
	}
	return nil
}

// NewSyscallsCommand creates the syscalls command.
func NewSyscallsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "syscalls",
		Short: "List the traced filesystem operations and their codes",
		Long: `List every operation the syscall log may contain, with the code used
in the log and accepted by --where sysc=...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			return rootOpts.formatter(cmd).Success(SyscallsResult{Syscalls: sysc.All()})
		},
	}
}
