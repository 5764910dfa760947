// Package sysc defines the fixed enumeration of filesystem operations
// recorded by the tracer, and translates between operation names and the
// numeric codes stored in syscall logs.
//
// Codes follow the Linux i386 syscall numbers where one exists. Operations
// without a syscall of their own (opendir, closedir, flush) use codes in
// the 200 range assigned by the tracer.
package sysc

import (
	"errors"
	"fmt"
	"sort"
)

// Code is a syscall code as written in the syscall log.
type Code int

// Filesystem operation codes.
const (
	Read     Code = 3
	Write    Code = 4
	Open     Code = 5
	Close    Code = 6
	Creat    Code = 8
	Link     Code = 9
	Unlink   Code = 10
	Mknod    Code = 14
	Chmod    Code = 15
	Chown    Code = 16
	Fstat    Code = 28
	Utime    Code = 30
	Access   Code = 33
	Rename   Code = 38
	Mkdir    Code = 39
	Rmdir    Code = 40
	Symlink  Code = 83
	Lstat    Code = 84
	Readlink Code = 85
	Readdir  Code = 89
	Truncate Code = 92
	Statfs   Code = 99
	Fsync    Code = 118
	Flush    Code = 203
	Opendir  Code = 205
	Closedir Code = 206
)

// ErrUnknownName is returned when an operation name is not in the enumeration.
var ErrUnknownName = errors.New("unknown syscall name")

var byName = map[string]Code{
	"lstat":    Lstat,
	"fstat":    Fstat,
	"access":   Access,
	"readlink": Readlink,
	"opendir":  Opendir,
	"readdir":  Readdir,
	"closedir": Closedir,
	"mknod":    Mknod,
	"mkdir":    Mkdir,
	"symlink":  Symlink,
	"unlink":   Unlink,
	"rmdir":    Rmdir,
	"rename":   Rename,
	"link":     Link,
	"chmod":    Chmod,
	"chown":    Chown,
	"truncate": Truncate,
	"utime":    Utime,
	"creat":    Creat,
	"open":     Open,
	"statfs":   Statfs,
	"flush":    Flush,
	"close":    Close,
	"fsync":    Fsync,
	"read":     Read,
	"write":    Write,
}

var byCode = func() map[Code]string {
	m := make(map[Code]string, len(byName))
	for name, code := range byName {
		m[code] = name
	}
	return m
}()

// Lookup returns the code for an operation name.
func Lookup(name string) (Code, error) {
	code, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return code, nil
}

// Valid reports whether c is part of the enumeration.
func (c Code) Valid() bool {
	_, ok := byCode[c]
	return ok
}

// String returns the operation name, or "sysc(N)" for codes outside the
// enumeration.
func (c Code) String() string {
	if name, ok := byCode[c]; ok {
		return name
	}
	return fmt.Sprintf("sysc(%d)", int(c))
}

// IsIO reports whether the operation transfers data, in which case aux1 is
// the transfer length and aux2 the file offset.
func (c Code) IsIO() bool {
	return c == Read || c == Write
}

// Entry is one row of the enumeration.
type Entry struct {
	Name string `json:"name"`
	Code Code   `json:"code"`
}

// All returns the enumeration ordered by code.
func All() []Entry {
	entries := make([]Entry, 0, len(byName))
	for name, code := range byName {
		entries = append(entries, Entry{Name: name, Code: code})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Code < entries[j].Code
	})
	return entries
}
