package record

import "github.com/roach88/ftrac/internal/sysc"

// SyscallEvent is one intercepted filesystem call.
type SyscallEvent struct {
	SessionID int64     `json:"iid"`
	Stamp     float64   `json:"stamp"` // seconds since session start, >= 0
	PID       int64     `json:"pid"`
	Sysc      sysc.Code `json:"sysc"`
	FID       int64     `json:"fid"`
	Res       int64     `json:"res"`
	Elapsed   float64   `json:"elapsed"`
	Aux1      int64     `json:"aux1"` // read/write: transfer length
	Aux2      int64     `json:"aux2"` // read/write: file offset
}

// FileRecord maps a tracer-assigned file id to its path.
// A path may appear under several ids when a file is recreated.
type FileRecord struct {
	SessionID int64  `json:"iid"`
	FID       int64  `json:"fid"`
	Path      string `json:"path"`
}

// ProcessRecord is the reconciled lifecycle record of one process.
type ProcessRecord struct {
	SessionID int64   `json:"iid"`
	PID       int64   `json:"pid"`
	PPID      int64   `json:"ppid"`
	Live      bool    `json:"live"`
	Res       int64   `json:"res"`
	BTime     float64 `json:"btime"` // birth, seconds relative to session start
	Elapsed   float64 `json:"elapsed"`
	UTime     float64 `json:"utime"`
	STime     float64 `json:"stime"`
	Cmdline   string  `json:"cmdline"`
	Environ   string  `json:"environ"`
}

// Session bundles every record produced by importing one session directory.
type Session struct {
	ID        int64
	Runtime   RuntimeEnv
	Syscalls  []SyscallEvent
	Files     []FileRecord
	Processes []ProcessRecord
}
