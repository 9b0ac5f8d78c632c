// Command aqueduct is the driver binary for spec.md §6's CLI surface:
// run, ls, config, del, and artifact ls. It embeds no task definitions of
// its own — downstream projects register their task kinds on the
// cli.Registry built here before calling app.Dispatch, the same way
// original_source expects a project's own Python modules to be imported
// before its CLI entry point runs.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/backend/distributed"
	"github.com/aqueduct-go/aqueduct/internal/cli"
	"github.com/aqueduct-go/aqueduct/internal/logging"
	"github.com/aqueduct-go/aqueduct/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := aqcontext.NewConfig()

	instruments, err := telemetry.NewInstruments()
	if err != nil {
		logging.Base().WithError(err).Warn("telemetry unavailable, continuing without metrics")
		instruments = nil
	}

	app := &cli.App{
		Tasks:        cli.NewRegistry(),
		WireRegistry: distributed.NewRegistry(),
		Config:       cfg,
		Instruments:  instruments,
		Stdout:       os.Stdout,
	}

	result, err := app.Dispatch(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return result.ExitCode
}
