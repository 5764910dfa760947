package reconcile

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/roach88/ftrac/internal/record"
	"github.com/roach88/ftrac/internal/sysc"
)

// syscallFields is the field count of a sysc.log line:
// timestamp,pid,syscall_code,file_id,result,elapsed,aux1,aux2
const syscallFields = 8

// parseRuntimeLine splits a "key:value" line on its first colon.
func parseRuntimeLine(line string) (key, value string, err error) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", fmt.Errorf("no ':' separator")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", "", fmt.Errorf("empty key")
	}
	return key, strings.TrimSpace(value), nil
}

// parseSyscallLine parses one sysc.log line. The returned timestamp is the
// raw wall-clock value; ev.Stamp is left for the caller to normalize.
func parseSyscallLine(line string) (ev record.SyscallEvent, timestamp float64, err error) {
	fields := strings.Split(line, ",")
	if len(fields) != syscallFields {
		return ev, 0, fmt.Errorf("want %d fields, got %d", syscallFields, len(fields))
	}

	p := fieldParser{fields: fields}
	timestamp = p.float(0, "timestamp")
	ev.PID = p.int(1, "pid")
	code := p.int(2, "syscall code")
	ev.FID = p.int(3, "file id")
	ev.Res = p.int(4, "result")
	ev.Elapsed = p.float(5, "elapsed")
	ev.Aux1 = p.int(6, "aux1")
	ev.Aux2 = p.int(7, "aux2")
	if p.err != nil {
		return ev, 0, p.err
	}

	ev.Sysc = sysc.Code(code)
	if !ev.Sysc.Valid() {
		return ev, 0, fmt.Errorf("unknown syscall code %d", code)
	}
	return ev, timestamp, nil
}

// parseFileLine parses a "fid:path" line, splitting on the first colon.
func parseFileLine(line string) (record.FileRecord, error) {
	fid, path, ok := strings.Cut(line, ":")
	if !ok {
		return record.FileRecord{}, fmt.Errorf("no ':' separator")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(fid), 10, 64)
	if err != nil {
		return record.FileRecord{}, fmt.Errorf("bad file id %q", fid)
	}
	return record.FileRecord{FID: id, Path: path}, nil
}

// fieldParser converts positional fields, keeping the first error.
type fieldParser struct {
	fields []string
	err    error
}

func (p *fieldParser) int(i int, name string) int64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseInt(strings.TrimSpace(p.fields[i]), 10, 64)
	if err != nil {
		p.err = fmt.Errorf("bad %s %q", name, p.fields[i])
	}
	return v
}

func (p *fieldParser) float(i int, name string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(p.fields[i]), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		p.err = fmt.Errorf("bad %s %q", name, p.fields[i])
	}
	return v
}

func (p *fieldParser) str(i int) string {
	if i >= len(p.fields) {
		return ""
	}
	return strings.TrimSpace(p.fields[i])
}
