package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// ConfigInvocation is the parsed form of `config [--show] [--sources]
// [--resolve] [--task T] [param=value…]` (spec.md §6).
type ConfigInvocation struct {
	Show    bool
	Sources bool
	Resolve bool
	Task    string
	Params  map[string]any
}

func ParseConfigArgs(args []string) (ConfigInvocation, error) {
	inv := ConfigInvocation{Params: make(map[string]any)}
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if !isFlagToken(tok) {
			key, value, ok := parseParam(tok)
			if !ok {
				return ConfigInvocation{}, invalidInvocationf("config: unrecognized argument %q", tok)
			}
			inv.Params[key] = value
			continue
		}
		name, inlineVal, hasInline := strings.Cut(strings.TrimPrefix(tok, "--"), "=")
		switch name {
		case "show":
			inv.Show = true
		case "sources":
			inv.Sources = true
		case "resolve":
			inv.Resolve = true
		case "task":
			if hasInline {
				inv.Task = inlineVal
				continue
			}
			i++
			if i >= len(args) {
				return ConfigInvocation{}, invalidInvocationf("config: --task requires a value")
			}
			inv.Task = args[i]
		default:
			return ConfigInvocation{}, invalidInvocationf("config: unrecognized flag --%s", name)
		}
	}
	return inv, nil
}

// ConfigCmd runs the `config` subcommand. With none of --show/--sources/
// --resolve given, it behaves as --show.
func ConfigCmd(registry *Registry, cfg *aqcontext.Config, inv ConfigInvocation, out io.Writer) (Result, error) {
	for k, v := range inv.Params {
		cfg.Set(k, v)
	}

	if !inv.Show && !inv.Sources && !inv.Resolve {
		inv.Show = true
	}

	var b strings.Builder
	if inv.Sources {
		for _, s := range cfg.Sources() {
			fmt.Fprintln(&b, s)
		}
	}
	if inv.Show {
		fmt.Fprintf(&b, "%v\n", cfg.AllSettings())
	}
	if inv.Resolve {
		if inv.Task == "" {
			err := invalidInvocationf("config: --resolve requires --task")
			return Result{ExitCode: ExitCode(err)}, err
		}
		task, err := registry.Build(cfg, inv.Task, inv.Params)
		if err != nil {
			return Result{ExitCode: ExitCode(err)}, err
		}
		section := aqueduct.ResolveConfigSection(task)
		fmt.Fprintf(&b, "%s: %v\n", section, cfg.Section(section).AllSettings())
	}

	fmt.Fprint(out, b.String())
	return Result{ExitCode: ExitSuccess, Output: b.String()}, nil
}
