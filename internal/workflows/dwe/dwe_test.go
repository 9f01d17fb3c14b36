package dwe

import "testing"

func TestDeployHierarchyWorkflowID(t *testing.T) {
	got := DeployHierarchyWorkflowID("acme-university")
	want := "deploy-hierarchy-acme-university"
	if got != want {
		t.Errorf("DeployHierarchyWorkflowID = %q, want %q", got, want)
	}
}

func TestGenerateAssignmentsWorkflowID(t *testing.T) {
	got := GenerateAssignmentsWorkflowID(42)
	want := "deploy-course-42"
	if got != want {
		t.Errorf("GenerateAssignmentsWorkflowID = %q, want %q", got, want)
	}
}

func TestGenerateStudentTemplateWorkflowID(t *testing.T) {
	got := GenerateStudentTemplateWorkflowID(42)
	want := "generate-template-42"
	if got != want {
		t.Errorf("GenerateStudentTemplateWorkflowID = %q, want %q", got, want)
	}
}

func TestCatalogSyncWorkflowID(t *testing.T) {
	got := CatalogSyncWorkflowID(7, "upload-abc123")
	want := "catalog-sync-7-upload-abc123"
	if got != want {
		t.Errorf("CatalogSyncWorkflowID = %q, want %q", got, want)
	}
}

func TestDefaultRetryPolicyMatchesStatedDefaults(t *testing.T) {
	if DefaultRetryPolicy.BackoffCoefficient != 2.0 {
		t.Errorf("BackoffCoefficient = %v, want 2.0", DefaultRetryPolicy.BackoffCoefficient)
	}
	if DefaultRetryPolicy.MaximumAttempts != 5 {
		t.Errorf("MaximumAttempts = %d, want 5", DefaultRetryPolicy.MaximumAttempts)
	}
}

func TestWorkflowIDsAreDistinctAcrossKinds(t *testing.T) {
	ids := map[string]bool{
		DeployHierarchyWorkflowID("x"):        true,
		GenerateAssignmentsWorkflowID(1):      true,
		GenerateStudentTemplateWorkflowID(1):  true,
		CatalogSyncWorkflowID(1, "x"):         true,
	}
	if len(ids) != 4 {
		t.Errorf("expected 4 distinct workflow ids, got %d", len(ids))
	}
}
