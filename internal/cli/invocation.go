package cli

import (
	"errors"
	"fmt"

	"github.com/aqueduct-go/aqueduct/internal/aqueduct"
)

// Exit codes (spec.md §6: "0 on success; non-zero on any task error or
// parse failure"). Beyond that binary requirement, distinct codes let an
// operator script wrapping this CLI tell a usage mistake from a genuine
// task failure without parsing stderr.
const (
	ExitSuccess           = 0
	ExitTaskFailure       = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// InvocationError is a parse/usage failure, carrying the exit code the
// process should report. Task-execution failures are not InvocationErrors;
// they are reported via the *aqueduct.Error kind mapping in ExitCode.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps any error this package or a Resolver.Run call can return to
// the process exit code spec.md §6 requires.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}

	var aqErr *aqueduct.Error
	if errors.As(err, &aqErr) {
		switch aqErr.Kind {
		case aqueduct.KindConfigResolution:
			return ExitConfigError
		case aqueduct.KindArgumentBinding, aqueduct.KindBackendSpecParse, aqueduct.KindUnsupportedNode, aqueduct.KindCycleDetected:
			return ExitInvalidInvocation
		case aqueduct.KindTaskExecution, aqueduct.KindArtifactMissing:
			return ExitTaskFailure
		}
	}

	return ExitInternalError
}

// Result is what every subcommand entry point returns: the exit code the
// process should use plus whatever the subcommand printed as its structured
// result, for tests that want to assert on it without scraping stdout.
type Result struct {
	ExitCode int
	Output   string
}
