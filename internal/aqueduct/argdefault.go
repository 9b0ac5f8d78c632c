package aqueduct

import (
	"github.com/aqueduct-go/aqueduct/internal/aqcontext"
)

// CtorParams describes a task constructor's declared parameter names and
// whatever the caller actually supplied, in the order a Go constructor
// function would normally take them. Names not present in Provided are
// defaulted from configuration.
//
// This is the Go realization of spec.md §4.2's "metaclass-equivalent
// wrapper": since Go has no runtime introspection of named function
// parameters, every task constructor declares its own CtorParams explicitly
// instead of Aqueduct inferring it from a language-level signature, and
// calls ApplyConfigDefaults exactly once before computing its unique key.
//
// Grounded on original_source/src/aqueduct/task/autoresolve.go's Python
// counterpart (fetch_args_from_config / init_wrapper / WrapInitMeta in
// autoresolve.py): "reads the task's declared configuration section, fills
// unspecified constructor params from config, then tokenizes".
type CtorParams struct {
	Names    []string
	Provided map[string]any
}

// ApplyConfigDefaults fills in any parameter in params.Names that the caller
// did not supply, by looking it up in section. It returns a fully-bound
// keyed argument map suitable for Args.Keyed, or an ArgumentBinding error
// naming the first missing parameter (spec.md §7).
func ApplyConfigDefaults(cfg *aqcontext.Config, section string, params CtorParams) (map[string]any, error) {
	sub := cfg.Section(section)
	bound := make(map[string]any, len(params.Names))

	for _, name := range params.Names {
		if v, ok := params.Provided[name]; ok {
			bound[name] = v
			continue
		}
		v, ok := sub.Get(name)
		if !ok {
			return nil, NewError(KindArgumentBinding, "", "missing required parameter %q (section %q has no default)", name, section)
		}
		bound[name] = v
	}

	// Arguments supplied but not declared still participate in identity
	// (e.g. **kwargs-style extras in the original); carry them through
	// unchanged.
	for name, v := range params.Provided {
		if _, declared := bound[name]; !declared {
			bound[name] = v
		}
	}

	return bound, nil
}
