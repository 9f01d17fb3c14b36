package commands

import (
	"errors"

	"go.temporal.io/api/serviceerror"

	"github.com/computor-org/cpsto/internal/cerrors"
)

// exitCodeFor maps a command error to spec.md §6's exit code contract:
// 0 success; 2 invalid configuration; 3 unresolved dependency or cycle;
// 4 provider unreachable; 5 conflicting concurrent workflow.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}

	var unreachable providerUnreachable
	if errors.As(err, &unreachable) {
		return 4
	}

	var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &alreadyStarted) {
		return 5
	}

	if kind, ok := cerrors.KindOf(err); ok {
		switch kind {
		case cerrors.KindValidation:
			return 2
		case cerrors.KindDependencyCycle, cerrors.KindNoMatchingVersion, cerrors.KindUnknownSlug, cerrors.KindUnknownTag:
			return 3
		case cerrors.KindConflict:
			return 5
		case cerrors.KindProviderTransient, cerrors.KindProviderAuth:
			return 4
		}
	}

	return 1
}
