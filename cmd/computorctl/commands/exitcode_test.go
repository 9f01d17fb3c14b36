package commands

import (
	"errors"
	"testing"

	"github.com/computor-org/cpsto/internal/cerrors"
)

func TestExitCodeForSuccess(t *testing.T) {
	if got := exitCodeFor(nil); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestExitCodeForProviderUnreachable(t *testing.T) {
	err := providerUnreachable{cause: errors.New("connection refused")}
	if got := exitCodeFor(err); got != 4 {
		t.Errorf("got %d, want 4", got)
	}
}

func TestExitCodeForValidation(t *testing.T) {
	err := cerrors.New(cerrors.KindValidation, "bad path label")
	if got := exitCodeFor(err); got != 2 {
		t.Errorf("got %d, want 2", got)
	}
}

func TestExitCodeForDependencyCycle(t *testing.T) {
	err := cerrors.New(cerrors.KindDependencyCycle, "cycle detected")
	if got := exitCodeFor(err); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestExitCodeForUnknownSlug(t *testing.T) {
	err := cerrors.New(cerrors.KindUnknownSlug, "unknown slug")
	if got := exitCodeFor(err); got != 3 {
		t.Errorf("got %d, want 3", got)
	}
}

func TestExitCodeForConflict(t *testing.T) {
	err := cerrors.New(cerrors.KindConflict, "duplicate identifier")
	if got := exitCodeFor(err); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
}

func TestExitCodeForProviderAuth(t *testing.T) {
	err := cerrors.New(cerrors.KindProviderAuth, "401")
	if got := exitCodeFor(err); got != 4 {
		t.Errorf("got %d, want 4", got)
	}
}

func TestExitCodeForUnclassifiedError(t *testing.T) {
	if got := exitCodeFor(errors.New("boom")); got != 1 {
		t.Errorf("got %d, want 1", got)
	}
}
