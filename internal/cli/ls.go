package cli

import (
	"fmt"
	"io"
	"strings"
)

// LsInvocation is the parsed form of `ls [--signature]` (spec.md §6): list
// every task name reachable from `run`, optionally with its declared
// parameter names.
type LsInvocation struct {
	Signature bool
}

func ParseLsArgs(args []string) (LsInvocation, error) {
	var inv LsInvocation
	for _, tok := range args {
		switch strings.TrimPrefix(tok, "--") {
		case "signature":
			inv.Signature = true
		default:
			return LsInvocation{}, invalidInvocationf("ls: unrecognized argument %q", tok)
		}
	}
	return inv, nil
}

// Ls prints every registered task name, one per line, optionally followed
// by its declared constructor parameters.
func Ls(registry *Registry, inv LsInvocation, out io.Writer) Result {
	var b strings.Builder
	for _, name := range registry.Names() {
		if inv.Signature {
			reg, _ := registry.Lookup(name)
			fmt.Fprintf(&b, "%s(%s)\n", name, strings.Join(reg.Params, ", "))
			continue
		}
		fmt.Fprintf(&b, "%s\n", name)
	}
	fmt.Fprint(out, b.String())
	return Result{ExitCode: ExitSuccess, Output: b.String()}
}
