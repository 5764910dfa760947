package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/stats"
)

// QueryOptions holds flags shared by the statistics commands.
type QueryOptions struct {
	*RootOptions
	Table  string
	Column string
	Where  []string
}

func (o *QueryOptions) addTableFlags(cmd *cobra.Command, defaultTable string) {
	cmd.Flags().StringVarP(&o.Table, "table", "t", defaultTable, "record table (syscall|file|proc)")
	cmd.Flags().StringVarP(&o.Column, "column", "c", "", "column to aggregate")
	addWhereFlag(cmd, &o.Where)
}

// commandContext returns the command's context, or Background when unset.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// AggregateResult is the output of the aggregate command.
type AggregateResult struct {
	Table  string  `json:"table"`
	Column string  `json:"column,omitempty"`
	Op     string  `json:"op"`
	Value  float64 `json:"value"`
}

func (r AggregateResult) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%g\n", r.Value)
	return err
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	var op string

	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Count, sum, average or stddev a column",
		Long: `Compute one aggregate over a column of the rows matching --where.

stddev is the population standard deviation. Aggregates over an empty
selection are 0.

Examples:
  ftrac aggregate --table syscall --column aux1 --op sum --where sysc=read
  ftrac aggregate --table proc --op count --where live=true
  ftrac aggregate --table syscall --column elapsed --op stddev --where iid=1 --where pid=42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			f := opts.formatter(cmd)

			parsedOp, err := stats.ParseOp(op)
			if err != nil {
				return invalidInput(f, err)
			}
			if opts.Column == "" && parsedOp != stats.OpCount {
				return invalidInput(f, fmt.Errorf("--column is required for %s", parsedOp))
			}
			attrs, err := parseWhere(opts.Where)
			if err != nil {
				return invalidInput(f, err)
			}

			return opts.withEngine(f, func(e *stats.Engine) error {
				v, err := e.Aggregate(commandContext(cmd), queryir.Table(opts.Table), opts.Column, parsedOp, attrs)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(AggregateResult{Table: opts.Table, Column: opts.Column, Op: string(parsedOp), Value: v})
			})
		},
	}

	opts.addTableFlags(cmd, "syscall")
	cmd.Flags().StringVar(&op, "op", "count", "operation (count|sum|average|stddev)")

	return cmd
}

// GroupResult is the output of the group command.
type GroupResult struct {
	Table  string        `json:"table"`
	Column string        `json:"column"`
	By     string        `json:"by"`
	Groups []stats.Group `json:"groups"`
}

func (r GroupResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%-10s %s\n", r.By, r.Column)
	for _, g := range r.Groups {
		fmt.Fprintf(w, "%-10d %g\n", g.Key, g.Value)
	}
	return nil
}

// NewGroupCommand creates the group command.
func NewGroupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	var by string

	cmd := &cobra.Command{
		Use:   "group",
		Short: "Sum a column per pid, fid or syscall",
		Long: `Sum a column for every distinct value of --by, ordered by that value.

Examples:
  ftrac group --column aux1 --by pid --where sysc=read
  ftrac group --column elapsed --by sysc --where iid=1`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			f := opts.formatter(cmd)

			if opts.Column == "" || by == "" {
				return invalidInput(f, fmt.Errorf("--column and --by are required"))
			}
			attrs, err := parseWhere(opts.Where)
			if err != nil {
				return invalidInput(f, err)
			}

			return opts.withEngine(f, func(e *stats.Engine) error {
				groups, err := e.GroupedSum(commandContext(cmd), queryir.Table(opts.Table), opts.Column, by, attrs)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(GroupResult{Table: opts.Table, Column: opts.Column, By: by, Groups: groups})
			})
		},
	}

	opts.addTableFlags(cmd, "syscall")
	cmd.Flags().StringVar(&by, "by", "", "column to group by")

	return cmd
}

// ThroughputResult is the output of the throughput command.
type ThroughputResult struct {
	Syscall string             `json:"syscall"`
	By      string             `json:"by"`
	Rows    []stats.Throughput `json:"rows"`
}

func (r ThroughputResult) RenderText(w io.Writer) error {
	fmt.Fprintf(w, "%-10s %-14s %-12s %s\n", r.By, "work", "elapsed", "rate")
	for _, t := range r.Rows {
		fmt.Fprintf(w, "%-10d %-14g %-12g %g\n", t.Key, t.Work, t.Elapsed, t.Rate)
	}
	return nil
}

// NewThroughputCommand creates the throughput command.
func NewThroughputCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	var syscallName, by string

	cmd := &cobra.Command{
		Use:   "throughput",
		Short: "Service rate of one syscall per pid or fid",
		Long: `Compute the throughput of one syscall for every pid or fid.

For read and write the work is the number of bytes transferred; for any
other operation it is the number of calls. The rate is work divided by
the total elapsed time, 0 when no time elapsed.

Examples:
  ftrac throughput --syscall read --by pid --where iid=1
  ftrac throughput --syscall open --by fid`,
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
				rows, err := e.Throughput(commandContext(cmd), syscallName, by, attrs)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(ThroughputResult{Syscall: syscallName, By: by, Rows: rows})
			})
		},
	}

	cmd.Flags().StringVarP(&syscallName, "syscall", "s", "", "syscall name, e.g. read (required)")
	cmd.Flags().StringVar(&by, "by", "pid", "group key (pid|fid)")
	addWhereFlag(cmd, &opts.Where)
	_ = cmd.MarkFlagRequired("syscall")

	return cmd
}

// CDFResult is the output of the cdf command.
type CDFResult struct {
	Table  string        `json:"table"`
	Column string        `json:"column"`
	Weight string        `json:"weight"`
	Points []stats.Point `json:"points"`
}

func (r CDFResult) RenderText(w io.Writer) error {
	for _, p := range r.Points {
		fmt.Fprintf(w, "%g\t%g\n", p.Value, p.Ratio)
	}
	return nil
}

// NewCDFCommand creates the cdf command.
func NewCDFCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}
	var vth, rth float64
	var weight string

	cmd := &cobra.Command{
		Use:   "cdf",
		Short: "Cumulative distribution of a column",
		Long: `Build the cumulative distribution of a column as (value, ratio) points.

With --weight sum (the default) a point's ratio is the share of the
column total held by values up to it; with --weight count it is the
share of rows. Points whose value and ratio both change by less than
--vthreshold and --rthreshold (relative) are dropped. The first and last
points are always kept. Thresholds default to the config file.

Examples:
  ftrac cdf --table proc --column elapsed
  ftrac cdf --column aux1 --where sysc=read --vthreshold 0.05 --rthreshold 0.01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.prepare(cmd); err != nil {
				return err
			}
			f := opts.formatter(cmd)

			cdfOpts := stats.CDFOptions{
				VThreshold: opts.Config.CDF.VThreshold,
				RThreshold: opts.Config.CDF.RThreshold,
				Weight:     stats.Weight(opts.Config.CDF.Weight),
			}
			if cmd.Flags().Changed("vthreshold") {
				cdfOpts.VThreshold = vth
			}
			if cmd.Flags().Changed("rthreshold") {
				cdfOpts.RThreshold = rth
			}
			if cmd.Flags().Changed("weight") {
				w, err := stats.ParseWeight(weight)
				if err != nil {
					return invalidInput(f, err)
				}
				cdfOpts.Weight = w
			}

			if opts.Column == "" {
				return invalidInput(f, fmt.Errorf("--column is required"))
			}
			attrs, err := parseWhere(opts.Where)
			if err != nil {
				return invalidInput(f, err)
			}

			return opts.withEngine(f, func(e *stats.Engine) error {
				points, err := e.CDF(commandContext(cmd), queryir.Table(opts.Table), opts.Column, cdfOpts, attrs)
				if err != nil {
					return failQuery(f, err)
				}
				return f.Success(CDFResult{Table: opts.Table, Column: opts.Column, Weight: string(cdfOpts.Weight), Points: points})
			})
		},
	}

	opts.addTableFlags(cmd, "proc")
	cmd.Flags().Float64Var(&vth, "vthreshold", 0, "relative value change needed to keep a point")
	cmd.Flags().Float64Var(&rth, "rthreshold", 0, "relative ratio change needed to keep a point")
	cmd.Flags().StringVar(&weight, "weight", "sum", "accumulate values (sum) or rows (count)")

	return cmd
}
