package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/ftrac/internal/queryir"
	"github.com/roach88/ftrac/internal/stats"
	"github.com/roach88/ftrac/internal/store"
	"github.com/roach88/ftrac/internal/sysc"
)

// addWhereFlag registers the repeatable --where flag.
func addWhereFlag(cmd *cobra.Command, where *[]string) {
	cmd.Flags().StringArrayVarP(where, "where", "w", nil, "attribute constraint key=value (repeatable)")
}

// parseWhere turns key=value constraints into query attributes.
//
// Integers become int64, "true"/"false" become booleans and everything
// else stays a string, so "sysc=read" and "sysc=3" both work. A repeated
// key keeps its last value.
func parseWhere(pairs []string) (queryir.Attrs, error) {
	attrs := queryir.Attrs{}
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --where %q: want key=value", pair)
		}
		attrs[key] = whereValue(strings.TrimSpace(raw))
	}
	return attrs, nil
}

func whereValue(raw string) any {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	return raw
}

// failQuery maps a query error to its exit code and reports it.
func failQuery(f *OutputFormatter, err error) error {
	var verr *queryir.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, sysc.ErrUnknownName),
		errors.Is(err, stats.ErrNegativeThreshold):
		return f.Fail(ExitCommandError, ErrCodeInvalidQuery, err)
	case errors.Is(err, store.ErrSessionNotFound):
		return f.Fail(ExitCommandError, ErrCodeNotFound, err)
	default:
		return f.Fail(ExitFailure, ErrCodeDatabase, err)
	}
}

// invalidInput reports a bad flag value.
func invalidInput(f *OutputFormatter, err error) error {
	return f.Fail(ExitCommandError, ErrCodeInvalidQuery, err)
}
