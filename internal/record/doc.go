// Package record defines the four record kinds produced by importing a
// tracing session (runtime metadata, syscall events, file identities and
// process lifecycle records) and a canonical JSON encoding used to
// snapshot a session for comparison.
package record
