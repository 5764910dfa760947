package stats

import (
	"context"
	"slices"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/sysc"
)

// SyscallSummary describes every matching call of one syscall.
type SyscallSummary struct {
	Sysc          sysc.Code  `json:"sysc"`
	Name          string     `json:"name"`
	Count         int64      `json:"count"`
	ElapsedSum    float64    `json:"elapsed_sum"`
	ElapsedAvg    float64    `json:"elapsed_avg"`
	ElapsedStddev float64    `json:"elapsed_stddev"`
	IO            *IOSummary `json:"io,omitempty"`
}

// IOSummary adds transfer statistics for read and write.
type IOSummary struct {
	Bytes        int64   `json:"bytes"`
	LengthAvg    float64 `json:"length_avg"`
	LengthStddev float64 `json:"length_stddev"`
	OffsetAvg    float64 `json:"offset_avg"`
	OffsetStddev float64 `json:"offset_stddev"`
}

// Summary reports per-syscall statistics of the calls matching attrs,
// ordered by syscall code. Syscalls with no matching call are omitted.
func (e *Engine) Summary(ctx context.Context, attrs queryir.Attrs) ([]SyscallSummary, error) {
	pred, err := e.filter(queryir.TableSyscall, attrs)
	if err != nil {
		return nil, err
	}
	events, err := e.store.Syscalls(ctx, pred)
	if err != nil {
		return nil, err
	}

	byCode := make(map[sysc.Code][]record.SyscallEvent)
	for _, ev := range events {
		byCode[ev.Sysc] = append(byCode[ev.Sysc], ev)
	}

	codes := make([]sysc.Code, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	slices.Sort(codes)

	out := make([]SyscallSummary, 0, len(codes))
	for _, c := range codes {
		out = append(out, summarize(c, byCode[c]))
	}
	return out, nil
}

func summarize(code sysc.Code, events []record.SyscallEvent) SyscallSummary {
	elapsed := make([]float64, len(events))
	for i, ev := range events {
		elapsed[i] = ev.Elapsed
	}

	s := SyscallSummary{
		Sysc:          code,
		Name:          code.String(),
		Count:         int64(len(events)),
		ElapsedAvg:    Mean(elapsed),
		ElapsedStddev: Stddev(elapsed),
	}
	for _, v := range elapsed {
		s.ElapsedSum += v
	}

	if !code.IsIO() {
		return s
	}
	lengths := make([]float64, len(events))
	offsets := make([]float64, len(events))
	io := &IOSummary{}
	for i, ev := range events {
		lengths[i] = float64(ev.Aux1)
		offsets[i] = float64(ev.Aux2)
		io.Bytes += ev.Aux1
	}
	io.LengthAvg, io.LengthStddev = Mean(lengths), Stddev(lengths)
	io.OffsetAvg, io.OffsetStddev = Mean(offsets), Stddev(offsets)
	s.IO = io
	return s
}
