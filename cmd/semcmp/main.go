package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdejongh/semcmp/internal/cli"
)

// set by the release build
var (
	version string
	commit  string
	date    string
)

func main() {
	cli.Version, cli.Commit, cli.BuildDate = version, commit, date

	// The first interrupt cancels the walk, which still reports what it
	// finished. A second one kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()

	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	os.Exit(code)
}
