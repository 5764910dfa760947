package reconcile

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Log file names written by the tracer.
const (
	RuntimeLog  = "runtime.log"
	SyscallLog  = "sysc.log"
	FileLog     = "file.log"
	TaskstatLog = "taskstat.log"
	PtraceLog   = "ptrace.log"
	ProcLog     = "proc.log"
)

// MandatoryLogs must exist in every session directory.
var MandatoryLogs = []string{RuntimeLog, SyscallLog, FileLog}

// maxLineSize bounds a single log line. Environment blobs can be long.
const maxLineSize = 4 << 20

// checkMandatory returns a *MissingLogError for the first mandatory log
// not present in dir.
func checkMandatory(dir string) error {
	for _, name := range MandatoryLogs {
		info, err := os.Stat(filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) || (err == nil && info.IsDir()) {
			return &MissingLogError{Dir: dir, Name: name}
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", name, err)
		}
	}
	return nil
}

// exists reports whether an optional log is present.
func exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// scanLog verifies that the first line of path is a '#' header, then calls
// fn for every following line that is neither blank nor a comment, with
// its 1-based line number and surrounding whitespace trimmed. Lines longer
// than maxLineSize are passed to skip instead and the scan goes on.
//
// A missing header yields a *MalformedLogError. An error returned by fn
// stops the scan and is returned as is.
func scanLog(path string, skip func(lineNo int, err error), fn func(lineNo int, line string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	lr := &lineReader{r: bufio.NewReaderSize(f, 64*1024)}

	header, _, err := lr.next()
	if errors.Is(err, io.EOF) {
		return &MalformedLogError{Path: path, Line: 1, Reason: "empty log, missing header line"}
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.HasPrefix(header, []byte("#")) {
		return &MalformedLogError{Path: path, Line: 1, Reason: "missing header line"}
	}

	lineNo := 1
	for {
		raw, tooLong, err := lr.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s:%d: %w", path, lineNo+1, err)
		}
		lineNo++
		if tooLong {
			skip(lineNo, fmt.Errorf("line longer than %d bytes", maxLineSize))
			continue
		}
		line := strings.TrimSpace(string(raw))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
}

// lineReader splits its input into lines, keeping at most maxLineSize
// bytes of each.
type lineReader struct {
	r   *bufio.Reader
	buf []byte
}

// next returns the next line without its terminator. tooLong reports that
// the line exceeded maxLineSize; the rest of it has been discarded. next
// returns io.EOF once the input is exhausted.
func (lr *lineReader) next() (line []byte, tooLong bool, err error) {
	lr.buf = lr.buf[:0]
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if !tooLong {
			lr.buf = append(lr.buf, chunk...)
			if len(bytes.TrimRight(lr.buf, "\r\n")) > maxLineSize {
				tooLong = true
				lr.buf = lr.buf[:maxLineSize]
			}
		}
		switch {
		case err == nil:
			return bytes.TrimRight(lr.buf, "\r\n"), tooLong, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(lr.buf) == 0 {
				return nil, false, io.EOF
			}
			return bytes.TrimRight(lr.buf, "\r\n"), tooLong, nil
		default:
			return nil, false, err
		}
	}
}
