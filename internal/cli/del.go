package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// DelInvocation is the parsed form of `del <task_name> [--below T]
// [--max-depth N] [--re PATTERN]` (spec.md §6).
type DelInvocation struct {
	TaskName string
	Params   map[string]any
	Select   SelectOptions
}

func ParseDelArgs(args []string) (DelInvocation, error) {
	if len(args) == 0 {
		return DelInvocation{}, invalidInvocationf("del: task_name is required")
	}
	inv := DelInvocation{TaskName: args[0], Params: make(map[string]any)}

	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if !isFlagToken(tok) {
			key, value, ok := parseParam(tok)
			if !ok {
				return DelInvocation{}, invalidInvocationf("del: unrecognized argument %q", tok)
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
				return "", invalidInvocationf("del: --%s requires a value", name)
			}
			return rest[i], nil
		}
		switch name {
		case "below":
			v, err := next()
			if err != nil {
				return DelInvocation{}, err
			}
			inv.Select.Below = v
		case "max-depth":
			v, err := next()
			if err != nil {
				return DelInvocation{}, err
			}
			n, perr := strconv.Atoi(v)
			if perr != nil {
				return DelInvocation{}, invalidInvocationf("del: --max-depth expects an integer, got %q", v)
			}
			inv.Select.MaxDepth = n
		case "re":
			v, err := next()
			if err != nil {
				return DelInvocation{}, err
			}
			inv.Select.Pattern = v
		default:
			return DelInvocation{}, invalidInvocationf("del: unrecognized flag --%s", name)
		}
	}
	return inv, nil
}

// Del removes the on-disk artifacts of every task selectNodes chooses,
// tolerating artifacts that don't exist (spec.md never mandates del be
// loud about no-ops).
func Del(ctx context.Context, registry *Registry, cfg *aqcontext.Config, inv DelInvocation, out io.Writer) (Result, error) {
	task, err := registry.Build(cfg, inv.TaskName, inv.Params)
	if err != nil {
		return Result{ExitCode: ExitCode(err)}, err
	}

	nodes, err := selectNodes(ctx, task, inv.Select)
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
			continue
		}
		if err := removeArtifact(artifact); err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		fmt.Fprintf(&b, "deleted %s\n", n.Key)
	}

	fmt.Fprint(out, b.String())
	return Result{ExitCode: ExitSuccess, Output: b.String()}, nil
}

// removeArtifact deletes whatever underlying files an artifact owns.
// InMemoryArtifact and any other kind with no filesystem footprint is a
// no-op, since there is nothing for del to remove.
func removeArtifact(a aqueduct.Artifact) error {
	switch art := a.(type) {
	case *aqueduct.CompositeArtifact:
		for _, child := range art.Children {
			if err := removeArtifact(child); err != nil {
				return err
			}
		}
		return nil
	case *aqueduct.LocalFilesystemArtifact:
		if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	default:
		return nil
	}
}
