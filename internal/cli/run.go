package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
	"github.com/aqueduct-go/aqueduct/internal/backend/distributed"
	"github.com/aqueduct-go/aqueduct/internal/graphmodel"
	"github.com/aqueduct-go/aqueduct/internal/journal"
	"github.com/aqueduct-go/aqueduct/internal/resolver"
	"github.com/aqueduct-go/aqueduct/internal/telemetry"
	"github.com/aqueduct-go/aqueduct/internal/trace"
)

// RunInvocation is the parsed form of `run <task_name> [param=value…]
// [--overrides k=v…] [--force-root] [--force-downstream-of T] [--cfg]
// [--tree] [--concurrent N | --dask-url URL | --dask N | --multiprocessing N]`
// (spec.md §6).
type RunInvocation struct {
	TaskName           string
	Params             map[string]any
	Overrides          map[string]any
	ForceRoot          bool
	ForceDownstreamOf  string
	ShowConfig         bool
	ShowTree           bool
	Backend            BackendFlags
}

// ParseRunArgs parses the arguments following `run` (argv[2:] in a typical
// `aqueduct run ...` invocation).
func ParseRunArgs(args []string) (RunInvocation, error) {
	if len(args) == 0 {
		return RunInvocation{}, invalidInvocationf("run: task_name is required")
	}

	inv := RunInvocation{
		TaskName:  args[0],
		Params:    make(map[string]any),
		Overrides: make(map[string]any),
	}

	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if !isFlagToken(tok) {
			key, value, ok := parseParam(tok)
			if !ok {
				return RunInvocation{}, invalidInvocationf("run: unrecognized argument %q", tok)
			}
			inv.Params[key] = value
			continue
		}

		name, inlineVal, hasInline := strings.Cut(strings.TrimPrefix(tok, "--"), "=")
		next := func() (string, error) {
			if hasInline {
				return inlineVal, nil
			}
			i++
			if i >= len(rest) {
				return "", invalidInvocationf("run: --%s requires a value", name)
			}
			return rest[i], nil
		}

		switch name {
		case "overrides":
			v, err := next()
			if err != nil {
				return RunInvocation{}, err
			}
			key, value, ok := parseParam(v)
			if !ok {
				return RunInvocation{}, invalidInvocationf("run: --overrides expects key=value, got %q", v)
			}
			inv.Overrides[key] = value
		case "force-root":
			inv.ForceRoot = true
		case "force-downstream-of":
			v, err := next()
			if err != nil {
				return RunInvocation{}, err
			}
			inv.ForceDownstreamOf = v
		case "cfg":
			inv.ShowConfig = true
		case "tree":
			inv.ShowTree = true
		case "concurrent":
			v, err := next()
			if err != nil {
				return RunInvocation{}, err
			}
			n, perr := strconv.Atoi(v)
			if perr != nil {
				return RunInvocation{}, invalidInvocationf("run: --concurrent expects an integer, got %q", v)
			}
			inv.Backend.Concurrent = n
		case "multiprocessing":
			v, err := next()
			if err != nil {
				return RunInvocation{}, err
			}
			n, perr := strconv.Atoi(v)
			if perr != nil {
				return RunInvocation{}, invalidInvocationf("run: --multiprocessing expects an integer, got %q", v)
			}
			inv.Backend.Multiprocessing = n
		case "dask":
			v, err := next()
			if err != nil {
				return RunInvocation{}, err
			}
			n, perr := strconv.Atoi(v)
			if perr != nil {
				return RunInvocation{}, invalidInvocationf("run: --dask expects an integer, got %q", v)
			}
			inv.Backend.DaskN = n
		case "dask-url":
			v, err := next()
			if err != nil {
				return RunInvocation{}, err
			}
			inv.Backend.DaskURL = v
		default:
			return RunInvocation{}, invalidInvocationf("run: unrecognized flag --%s", name)
		}
	}

	return inv, nil
}

// RunApp bundles everything a `run` invocation needs beyond its own parsed
// flags: the task-name registry, the distributed wire registry (only
// consulted when a distributed-shaped backend is selected), the live
// config, and optional ambient observability.
type RunApp struct {
	Tasks        *Registry
	WireRegistry *distributed.Registry
	Config       *aqcontext.Config
	Journal      *journal.Store
	Trace        trace.Sink
	Instruments  *telemetry.Instruments
	Stdout       io.Writer
}

// Run executes one `run` invocation end to end, short-circuiting before
// execution for --cfg/--tree (spec.md §6).
func (app *RunApp) Run(ctx context.Context, inv RunInvocation) (Result, error) {
	for k, v := range inv.Overrides {
		app.Config.Set(k, v)
	}

	task, err := app.Tasks.Build(app.Config, inv.TaskName, inv.Params)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	if inv.ShowConfig {
		section := aqueduct.ResolveConfigSection(task)
		out := fmt.Sprintf("%s: %v\n", section, app.Config.Section(section).AllSettings())
		fmt.Fprint(app.Stdout, out)
		return Result{ExitCode: ExitSuccess, Output: out}, nil
	}

	if inv.ShowTree {
		out, err := renderTree(ctx, task)
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		fmt.Fprint(app.Stdout, out)
		return Result{ExitCode: ExitSuccess, Output: out}, nil
	}

	forceTasks, err := resolveForceTasks(ctx, task, inv)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	spec, backend, err := ResolveBackend(ctx, inv.Backend, app.WireRegistry)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	r := resolver.New(app.Config, backend, spec)
	r.Journal = app.Journal
	r.Trace = app.Trace
	r.Instruments = app.Instruments

	_, runErr := r.Run(ctx, task, forceTasks)
	if runErr != nil {
		fmt.Fprint(app.Stdout, describeFailure(runErr))
		return Result{ExitCode: ExitCode(runErr)}, runErr
	}
	return Result{ExitCode: ExitSuccess}, nil
}

// describeFailure renders spec.md §7's required CLI output on task failure:
// "the unique key, the error kind, and the captured traceback (or
// equivalent)".
func describeFailure(err error) string {
	var aqErr *aqueduct.Error
	if errors.As(err, &aqErr) {
		return fmt.Sprintf("task %s failed (%s): %v\n", aqErr.UniqueKey, aqErr.Kind, aqErr.Cause)
	}
	return fmt.Sprintf("run failed: %v\n", err)
}

// resolveForceTasks turns --force-root/--force-downstream-of into the
// ClassName force set resolver.Resolver.Run expects. --force-downstream-of T
// forces T itself plus every class that transitively depends on it, found
// by walking a never-cached render of the graph (a pure structural query,
// so pruning would hide exactly the nodes this flag needs to see).
func resolveForceTasks(ctx context.Context, root aqueduct.Task, inv RunInvocation) ([]string, error) {
	var forced []string
	if inv.ForceRoot {
		forced = append(forced, string(root.ClassName()))
	}
	if inv.ForceDownstreamOf == "" {
		return forced, nil
	}

	graph, err := graphmodel.Build(ctx, root, neverCached)
	if err != nil {
		return nil, err
	}

	var target *graphmodel.Node
	for _, n := range graph.Nodes() {
		if string(n.Task.ClassName()) == inv.ForceDownstreamOf {
			target = n
			break
		}
	}
	if target == nil {
		return nil, invalidInvocationf("run: --force-downstream-of %q matches no task in the requirement tree", inv.ForceDownstreamOf)
	}

	seen := map[aqueduct.UniqueKey]bool{target.Key: true}
	forced = append(forced, string(target.Task.ClassName()))
	queue := []aqueduct.UniqueKey{target.Key}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		for _, dep := range graph.Dependents(key) {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if n, ok := graph.Node(dep); ok {
				forced = append(forced, string(n.Task.ClassName()))
			}
			queue = append(queue, dep)
		}
	}
	return forced, nil
}

func neverCached(ctx context.Context, t aqueduct.Task) (bool, error) { return false, nil }

// renderTree prints the requirement tree rooted at task, one line per node,
// indented by depth, for `--tree`'s short-circuit.
func renderTree(ctx context.Context, task aqueduct.Task) (string, error) {
	var b strings.Builder
	var walk func(t aqueduct.Task, depth int) error
	walk = func(t aqueduct.Task, depth int) error {
		key, err := aqueduct.ComputeUniqueKey(t)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), key)

		reqs, err := t.Requirements(ctx)
		if err != nil {
			return err
		}
		if reqs == nil {
			return nil
		}
		children, err := aqueduct.GatherTasks(reqs)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := walk(c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(task, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}
