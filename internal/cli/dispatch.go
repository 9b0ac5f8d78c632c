package cli

import (
	"context"
	"io"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/backend/distributed"
	"github.com/aqueduct-go/aqueduct/internal/journal"
	"github.com/aqueduct-go/aqueduct/internal/telemetry"
	"github.com/aqueduct-go/aqueduct/internal/trace"
)

// App wires together everything a subcommand needs: the task-name registry
// a process embedding this CLI populates at startup, the matching
// distributed wire registry, live configuration, and optional ambient
// infrastructure. It is the single object cmd/aqueduct constructs.
type App struct {
	Tasks        *Registry
	WireRegistry *distributed.Registry
	Config       *aqcontext.Config
	Journal      *journal.Store
	Trace        trace.Sink
	Instruments  *telemetry.Instruments
	Stdout       io.Writer
}

// Dispatch parses args[0] as the subcommand name and routes to its parser
// and executor, matching spec.md §6's five subcommands. args excludes the
// program name itself (i.e. it is os.Args[1:]).
func (app *App) Dispatch(ctx context.Context, args []string) (Result, error) {
	if len(args) == 0 {
		err := invalidInvocationf("usage: aqueduct <run|ls|config|del|artifact> ...")
		return Result{ExitCode: ExitCode(err)}, err
	}

	switch args[0] {
	case "run":
		inv, err := ParseRunArgs(args[1:])
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		runApp := &RunApp{
			Tasks:        app.Tasks,
			WireRegistry: app.WireRegistry,
			Config:       app.Config,
			Journal:      app.Journal,
			Trace:        app.Trace,
			Instruments:  app.Instruments,
			Stdout:       app.Stdout,
		}
		return runApp.Run(ctx, inv)

	case "ls":
		inv, err := ParseLsArgs(args[1:])
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		return Ls(app.Tasks, inv, app.Stdout), nil

	case "config":
		inv, err := ParseConfigArgs(args[1:])
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		return ConfigCmd(app.Tasks, app.Config, inv, app.Stdout)

	case "del":
		inv, err := ParseDelArgs(args[1:])
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		return Del(ctx, app.Tasks, app.Config, inv, app.Stdout)

	case "artifact":
		if len(args) < 2 || args[1] != "ls" {
			err := invalidInvocationf("usage: aqueduct artifact ls <task_name> [--max-depth N]")
			return Result{ExitCode: ExitCode(err)}, err
		}
		inv, err := ParseArtifactLsArgs(args[2:])
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		return ArtifactLs(ctx, app.Tasks, app.Config, inv, app.Stdout)

	default:
		err := invalidInvocationf("unrecognized subcommand %q", args[0])
		return Result{ExitCode: ExitCode(err)}, err
	}
}
