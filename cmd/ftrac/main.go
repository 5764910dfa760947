// Command ftrac imports traced filesystem sessions and reports statistics
// over them.
//
// Usage:
//
//	ftrac import ./traces/run-1
//	ftrac summary --where iid=1
//	ftrac cdf --table proc --column elapsed --format json
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/ftrac/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
