package reconcile

import (
	"errors"
	"fmt"
)

// MissingLogError reports a mandatory log absent from a session directory.
// The import is aborted and the store is left untouched.
type MissingLogError struct {
	Dir  string
	Name string
}

func (e *MissingLogError) Error() string {
	return fmt.Sprintf("missing log %s in %s", e.Name, e.Dir)
}

// MalformedLogError reports a mandatory log that cannot be used at all:
// no header line, or runtime metadata lacking a mandatory key.
// Line is 1-based; 0 means the problem is not tied to one line.
type MalformedLogError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedLogError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed log %s:%d: %s", e.Path, e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed log %s: %s", e.Path, e.Reason)
}

// Warning is a recovered problem: a skipped line, a skipped optional log or
// a clamped value. Line is 1-based, 0 when the warning concerns a whole log.
type Warning struct {
	Log     string `json:"log"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", w.Log, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Log, w.Message)
}

// IsMissingLog returns true if err is or wraps a *MissingLogError.
func IsMissingLog(err error) bool {
	var me *MissingLogError
	return errors.As(err, &me)
}

// IsMalformedLog returns true if err is or wraps a *MalformedLogError.
func IsMalformedLog(err error) bool {
	var me *MalformedLogError
	return errors.As(err, &me)
}
