package hierarchy

import (
	"testing"

	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

// Activities' provider calls require a live GitLab client and database, so
// (like internal/gitlabhost's own test file) these tests cover only the
// pure configuration surface: the shared activity retry/timeout policy.
func TestActivityOptionsUsesProviderTimeoutTier(t *testing.T) {
	if activityOptions.StartToCloseTimeout != dwe.TimeoutProviderActivity {
		t.Errorf("StartToCloseTimeout = %v, want %v (provider activity tier)", activityOptions.StartToCloseTimeout, dwe.TimeoutProviderActivity)
	}
}

func TestActivityOptionsRetryPolicyMatchesDefaults(t *testing.T) {
	rp := activityOptions.RetryPolicy
	if rp.MaximumAttempts != 5 {
		t.Errorf("MaximumAttempts = %d, want 5", rp.MaximumAttempts)
	}
	if rp.BackoffCoefficient != 2.0 {
		t.Errorf("BackoffCoefficient = %v, want 2.0", rp.BackoffCoefficient)
	}
}

func TestDeployHierarchyInputZeroValueHasEmptyStanzas(t *testing.T) {
	var in DeployHierarchyInput
	if in.Organization.Path != "" || in.CourseFamily.Path != "" || in.Course.Path != "" {
		t.Error("zero-value DeployHierarchyInput should carry empty paths for every stanza")
	}
}
