package harness

import (
	"fmt"

	"github.com/roach88/ftrac/internal/reconcile"
	"github.com/roach88/ftrac/internal/record"
)

// Result contains the outcome of running a scenario.
type Result struct {
	// Pass is true if every assertion passed.
	Pass bool

	// Errors collects assertion failures. Empty when Pass is true.
	Errors []string

	// Imports holds one outcome per scenario session, in order.
	Imports []ImportOutcome

	// Sessions are the imported sessions read back from the store,
	// ascending by session id.
	Sessions []record.Session
}

// ImportOutcome is what importing one session directory produced.
type ImportOutcome struct {
	// Result is nil when the import failed.
	Result *reconcile.Result

	// Err is the import error, nil on success.
	Err error
}

// ErrorKind classifies Err as one of the Error* constants, "" on success.
func (o ImportOutcome) ErrorKind() string {
	switch {
	case o.Err == nil:
		return ""
	case reconcile.IsMissingLog(o.Err):
		return ErrorMissingLog
	case reconcile.IsMalformedLog(o.Err):
		return ErrorMalformedLog
	default:
		return ErrorOther
	}
}

// NewResult creates a passing Result.
func NewResult() *Result {
	return &Result{Pass: true}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(format string, args ...any) {
	r.Pass = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}
