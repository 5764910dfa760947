package record

// Snapshot returns a canonical-JSON-ready view of the session's records.
// Row order is preserved; callers that need a stable snapshot must read
// the records back in a deterministic order.
func (s Session) Snapshot() map[string]any {
	syscalls := make([]any, len(s.Syscalls))
	for i, ev := range s.Syscalls {
		syscalls[i] = map[string]any{
			"stamp":   ev.Stamp,
			"pid":     ev.PID,
			"sysc":    int64(ev.Sysc),
			"fid":     ev.FID,
			"res":     ev.Res,
			"elapsed": ev.Elapsed,
			"aux1":    ev.Aux1,
			"aux2":    ev.Aux2,
		}
	}

	files := make([]any, len(s.Files))
	for i, f := range s.Files {
		files[i] = map[string]any{
			"fid":  f.FID,
			"path": f.Path,
		}
	}

	procs := make([]any, len(s.Processes))
	for i, p := range s.Processes {
		procs[i] = map[string]any{
			"pid":     p.PID,
			"ppid":    p.PPID,
			"live":    p.Live,
			"res":     p.Res,
			"btime":   p.BTime,
			"elapsed": p.Elapsed,
			"utime":   p.UTime,
			"stime":   p.STime,
			"cmdline": p.Cmdline,
			"environ": p.Environ,
		}
	}

	runtime := s.Runtime
	if runtime == nil {
		runtime = RuntimeEnv{}
	}

	return map[string]any{
		"iid":       s.ID,
		"runtime":   runtime,
		"syscalls":  syscalls,
		"files":     files,
		"processes": procs,
	}
}
