package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
)

// ArtifactLsInvocation is the parsed form of
// `artifact ls <task_name> [--max-depth N]` (spec.md §6).
type ArtifactLsInvocation struct {
	TaskName string
	Params   map[string]any
	MaxDepth int
}

func ParseArtifactLsArgs(args []string) (ArtifactLsInvocation, error) {
	if len(args) == 0 {
		return ArtifactLsInvocation{}, invalidInvocationf("artifact ls: task_name is required")
	}
	inv := ArtifactLsInvocation{TaskName: args[0], Params: make(map[string]any)}

	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if !isFlagToken(tok) {
			key, value, ok := parseParam(tok)
			if !ok {
				return ArtifactLsInvocation{}, invalidInvocationf("artifact ls: unrecognized argument %q", tok)
			}
			inv.Params[key] = value
			continue
		}
		name, inlineVal, hasInline := strings.Cut(strings.TrimPrefix(tok, "--"), "=")
		if name != "max-depth" {
			return ArtifactLsInvocation{}, invalidInvocationf("artifact ls: unrecognized flag --%s", name)
		}
		v := inlineVal
		if !hasInline {
			i++
			if i >= len(rest) {
				return ArtifactLsInvocation{}, invalidInvocationf("artifact ls: --max-depth requires a value")
			}
			v = rest[i]
		}
		n, perr := strconv.Atoi(v)
		if perr != nil {
			return ArtifactLsInvocation{}, invalidInvocationf("artifact ls: --max-depth expects an integer, got %q", v)
		}
		inv.MaxDepth = n
	}
	return inv, nil
}

// ArtifactLs prints one line per selected node's artifact: its unique key,
// whether it exists, and its size, mirroring `del`'s selection rules minus
// --below/--re (spec.md §6 gives artifact ls only --max-depth).
func ArtifactLs(ctx context.Context, registry *Registry, cfg *aqcontext.Config, inv ArtifactLsInvocation, out io.Writer) (Result, error) {
	task, err := registry.Build(cfg, inv.TaskName, inv.Params)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	nodes, err := selectNodes(ctx, task, SelectOptions{MaxDepth: inv.MaxDepth})
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	var b strings.Builder
	for _, n := range nodes {
		artifact, err := n.Task.Artifact(ctx)
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		if artifact == nil {
			fmt.Fprintf(&b, "%s\t(no artifact)\n", n.Key)
			continue
		}
		exists, err := artifact.Exists()
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		size, err := artifact.Size()
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		fmt.Fprintf(&b, "%s\texists=%t\tsize=%d\n", n.Key, exists, size)
	}

	fmt.Fprint(out, b.String())
	return Result{ExitCode: ExitSuccess, Output: b.String()}, nil
}
