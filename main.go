package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/datamerge/cmd"
	"github.com/tphakala/datamerge/internal/buildinfo"
	"github.com/tphakala/datamerge/internal/conf"
)

// Set with -ldflags at build time.
var (
	version   string
	buildDate string
)

func main() {
	os.Exit(run())
}

func run() int {
	// Ctrl+C stops a merge between files; the partial run is still recorded.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := conf.NewContext(os.Stdout, os.Stderr)
	defer func() { _ = app.Close() }()

	err := cmd.RootCommand(app, buildinfo.NewContext(version, buildDate)).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return cmd.ExitCode(err)
}
