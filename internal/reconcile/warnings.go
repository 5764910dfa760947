package reconcile

import (
	"fmt"
	"log/slog"
)

// warnSink collects recovered problems of one import and logs each one.
type warnSink struct {
	logger  *slog.Logger
	list    []Warning
	skipped map[string]int // skipped lines per log
}

func newWarnSink(logger *slog.Logger) *warnSink {
	return &warnSink{logger: logger, skipped: make(map[string]int)}
}

func (w *warnSink) add(log string, line int, format string, args ...any) {
	warn := Warning{Log: log, Line: line, Message: fmt.Sprintf(format, args...)}
	w.list = append(w.list, warn)
	w.logger.Warn(warn.Message, "log", log, "line", line)
}

// skipLine records a line dropped from log.
func (w *warnSink) skipLine(log string, line int, err error) {
	w.skipped[log]++
	w.add(log, line, "skipped line: %v", err)
}

// skipper binds skipLine to log.
func (w *warnSink) skipper(log string) func(line int, err error) {
	return func(line int, err error) { w.skipLine(log, line, err) }
}
