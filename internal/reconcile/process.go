package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/ftrac/internal/record"
)

// Init process normalization. The tracer sees pid 1 through whatever
// reparented it, so its identity fields are fixed.
const (
	initPID     = 1
	initCmdline = "/sbin/init"
)

// partial is what one source line says about a process. Nil fields were
// not supplied by the source.
type partial struct {
	ppid    *int64
	live    *bool
	res     *int64
	birth   *float64 // wall-clock seconds
	elapsed *float64
	utime   *float64
	stime   *float64
	cmdline string
	environ string
}

// merge folds a higher-ranked (or later) partial into p.
//
// Numeric fields supplied by src overwrite p. Strings are only replaced by
// non-empty values. ppid is an identity field: kernel accounting reports
// an orphan as a child of 1, so ppid 1 never replaces a real parent.
func (p *partial) merge(src partial) {
	if src.ppid != nil && (*src.ppid != initPID || p.ppid == nil || *p.ppid <= initPID) {
		p.ppid = src.ppid
	}
	if src.live != nil {
		p.live = src.live
	}
	if src.res != nil {
		p.res = src.res
	}
	if src.birth != nil {
		p.birth = src.birth
	}
	if src.elapsed != nil {
		p.elapsed = src.elapsed
	}
	if src.utime != nil {
		p.utime = src.utime
	}
	if src.stime != nil {
		p.stime = src.stime
	}
	if src.cmdline != "" {
		p.cmdline = src.cmdline
	}
	if src.environ != "" {
		p.environ = src.environ
	}
}

// toRecord converts the folded partial to a ProcessRecord. Birth time is
// made relative to the session start; unsupplied fields stay zero.
func (p *partial) toRecord(iid, pid int64, sessionStart float64) record.ProcessRecord {
	rec := record.ProcessRecord{
		SessionID: iid,
		PID:       pid,
		Cmdline:   p.cmdline,
		Environ:   p.environ,
	}
	if p.ppid != nil {
		rec.PPID = *p.ppid
	}
	if p.live != nil {
		rec.Live = *p.live
	}
	if p.res != nil {
		rec.Res = *p.res
	}
	if p.birth != nil {
		rec.BTime = *p.birth - sessionStart
	}
	if p.elapsed != nil {
		rec.Elapsed = *p.elapsed
	}
	if p.utime != nil {
		rec.UTime = *p.utime
	}
	if p.stime != nil {
		rec.STime = *p.stime
	}

	if pid == initPID {
		rec.PPID = initPID
		rec.Cmdline = initCmdline
		rec.Environ = ""
		rec.Live = true
		rec.Res = 0
	}
	return rec
}

// ticks converts clock-tick values using the session's runtime metadata.
type ticks struct {
	clktck   float64
	sysbtime float64
}

func (t ticks) seconds(v float64) float64 { return v / t.clktck }
func (t ticks) birth(v float64) float64   { return t.sysbtime + v/t.clktck }

// processSource is one process-lifecycle log.
type processSource struct {
	name string
	// tick sources need clktck and sysbtime from the runtime log
	usesTicks bool
	parse     func(line string, t ticks) (int64, partial, error)
}

// processSources in ascending rank. Later sources win on conflict.
var processSources = []processSource{
	{name: ProcLog, usesTicks: true, parse: parseProcLine},
	{name: PtraceLog, usesTicks: true, parse: parsePtraceLine},
	{name: TaskstatLog, parse: parseTaskstatLine},
}

// procLogDelim separates proc.log fields.
const procLogDelim = "|#|"

// procFlagFinal marks the tracer's last poll of an exited process.
const procFlagFinal = 4

// parseProcLine parses
// flag|#|pid|#|ppid|#|start_ticks|#|poll_stamp|#|utime_ticks|#|stime_ticks|#|cmdline|#|environ
func parseProcLine(line string, t ticks) (int64, partial, error) {
	fields := strings.SplitN(line, procLogDelim, 9)
	if len(fields) != 9 {
		return 0, partial{}, fmt.Errorf("want 9 fields, got %d", len(fields))
	}

	p := fieldParser{fields: fields}
	flag := p.int(0, "flag")
	pid := p.int(1, "pid")
	ppid := p.int(2, "ppid")
	start := p.float(3, "start ticks")
	stamp := p.float(4, "poll timestamp")
	utime := p.float(5, "utime ticks")
	stime := p.float(6, "stime ticks")
	if p.err != nil {
		return 0, partial{}, p.err
	}
	if flag < 0 || flag > procFlagFinal {
		return 0, partial{}, fmt.Errorf("bad flag %d", flag)
	}

	birth := t.birth(start)
	return pid, partial{
		ppid:    &ppid,
		live:    ptr(flag != procFlagFinal),
		birth:   &birth,
		elapsed: ptr(stamp - birth),
		utime:   ptr(t.seconds(utime)),
		stime:   ptr(t.seconds(stime)),
		cmdline: p.str(7),
		environ: p.str(8),
	}, nil
}

// parsePtraceLine parses
// pid,ppid,start_ticks,poll_stamp,utime_ticks,stime_ticks,cmdline,environ
func parsePtraceLine(line string, t ticks) (int64, partial, error) {
	fields := strings.SplitN(line, ",", 8)
	if len(fields) != 8 {
		return 0, partial{}, fmt.Errorf("want 8 fields, got %d", len(fields))
	}

	p := fieldParser{fields: fields}
	pid := p.int(0, "pid")
	ppid := p.int(1, "ppid")
	start := p.float(2, "start ticks")
	stamp := p.float(3, "poll timestamp")
	utime := p.float(4, "utime ticks")
	stime := p.float(5, "stime ticks")
	if p.err != nil {
		return 0, partial{}, p.err
	}

	birth := t.birth(start)
	return pid, partial{
		ppid:    &ppid,
		birth:   &birth,
		elapsed: ptr(stamp - birth),
		utime:   ptr(t.seconds(utime)),
		stime:   ptr(t.seconds(stime)),
		cmdline: p.str(6),
		environ: p.str(7),
	}, nil
}

// parseTaskstatLine parses pid,ppid,live,res,btime,elapsed,cmdline[,environ]
// with btime in wall-clock seconds and elapsed in seconds.
func parseTaskstatLine(line string, _ ticks) (int64, partial, error) {
	fields := strings.SplitN(line, ",", 8)
	if len(fields) < 7 {
		return 0, partial{}, fmt.Errorf("want 7 or 8 fields, got %d", len(fields))
	}

	p := fieldParser{fields: fields}
	pid := p.int(0, "pid")
	ppid := p.int(1, "ppid")
	live := p.int(2, "live")
	res := p.int(3, "result")
	birth := p.float(4, "btime")
	elapsed := p.float(5, "elapsed")
	if p.err != nil {
		return 0, partial{}, p.err
	}

	return pid, partial{
		ppid:    &ppid,
		live:    ptr(live != 0),
		res:     &res,
		birth:   &birth,
		elapsed: &elapsed,
		cmdline: p.str(6),
		environ: p.str(7),
	}, nil
}

// processTable accumulates partials per pid.
type processTable map[int64]*partial

func (pt processTable) merge(pid int64, src partial) {
	cur, ok := pt[pid]
	if !ok {
		cur = &partial{}
		pt[pid] = cur
	}
	cur.merge(src)
}

// records returns one ProcessRecord per pid, ascending by pid.
func (pt processTable) records(iid int64, sessionStart float64) []record.ProcessRecord {
	pids := make([]int64, 0, len(pt))
	for pid := range pt {
		pids = append(pids, pid)
	}
	sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })

	recs := make([]record.ProcessRecord, 0, len(pids))
	for _, pid := range pids {
		recs = append(recs, pt[pid].toRecord(iid, pid, sessionStart))
	}
	return recs
}

func ptr[T any](v T) *T { return &v }
