// Package main implements smera, the command line client. Task writes go to
// the backend when it is reachable and are queued locally when it is not;
// queued writes are replayed by "smera sync" or automatically by "smera
// watch" once the backend answers again.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli{out: os.Stdout, errOut: os.Stderr}
	err := newRootCmd(app).ExecuteContext(ctx)
	if closeErr := app.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describeError(err))
		stop()
		os.Exit(1)
	}
}
