package record

import (
	"sort"
	"strconv"
)

// Runtime keys written by the tracer.
const (
	KeySessionID = "iid"
	KeyStart     = "start"
	KeyEnd       = "end"
	KeyClockTick = "clktck"
	KeyBootTime  = "sysbtime"
	KeyHostname  = "hostname"
	KeyUser      = "user"
	KeyMount     = "mountpoint"
	KeyCmdline   = "cmdline"
	KeyVersion   = "version"
)

// keyAliases maps long-form key names onto the tracer's short keys.
var keyAliases = map[string]string{
	"session_id":             KeySessionID,
	"session_start":          KeyStart,
	"session_end":            KeyEnd,
	"clock_ticks_per_second": KeyClockTick,
	"system_boot_time":       KeyBootTime,
}

// CanonicalKey returns the tracer key for name, resolving aliases.
func CanonicalKey(name string) string {
	if k, ok := keyAliases[name]; ok {
		return k
	}
	return name
}

// RuntimeEnv holds a session's runtime metadata as written by the tracer.
type RuntimeEnv map[string]string

// Get returns the value for key, also trying the key's aliases.
func (env RuntimeEnv) Get(key string) (string, bool) {
	key = CanonicalKey(key)
	if v, ok := env[key]; ok {
		return v, true
	}
	for alias, k := range keyAliases {
		if k == key {
			if v, ok := env[alias]; ok {
				return v, true
			}
		}
	}
	return "", false
}

// Float parses the value for key as a float64.
func (env RuntimeEnv) Float(key string) (float64, bool) {
	v, ok := env.Get(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Int parses the value for key as an int64.
func (env RuntimeEnv) Int(key string) (int64, bool) {
	v, ok := env.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Keys returns the keys in sorted order.
func (env RuntimeEnv) Keys() []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
