package metayaml

import (
	"testing"
)

const sample = `
title: Vectors
description: Vector math basics
slug: physics.math.vectors
version: v1.0
language: python
license: MIT
authors: [jane]
properties:
  studentSubmissionFiles: [main.py, utils.py]
  studentTemplates: [studentTemplates/main.py]
  testFiles: [test_main.py]
  additionalFiles: [README_extra.md]
testDependencies:
  - alg.base
  - slug: alg.sort
    version: ">=1.1"
`

func TestParseMixedTestDependencies(t *testing.T) {
	m, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(m.TestDependencies) != 2 {
		t.Fatalf("got %d testDependencies, want 2", len(m.TestDependencies))
	}
	if m.TestDependencies[0].Slug != "alg.base" || m.TestDependencies[0].Version != "" {
		t.Errorf("entry 0 = %+v, want bare slug with empty version", m.TestDependencies[0])
	}
	if m.TestDependencies[1].Slug != "alg.sort" || m.TestDependencies[1].Version != ">=1.1" {
		t.Errorf("entry 1 = %+v, want alg.sort >=1.1", m.TestDependencies[1])
	}
}

func TestParseRejectsNonHierarchicalSlug(t *testing.T) {
	bad := `
testDependencies:
  - flatslug
`
	if _, err := Parse([]byte(bad)); err == nil {
		t.Error("expected error for non-hierarchical testDependencies slug")
	}
}

func TestStudentSafeDropsTestFilesAndDeps(t *testing.T) {
	m, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	safe := m.StudentSafe()
	if len(safe.Properties.TestFiles) != 0 {
		t.Errorf("StudentSafe() kept TestFiles: %v", safe.Properties.TestFiles)
	}
	if len(safe.TestDependencies) != 0 {
		t.Errorf("StudentSafe() kept TestDependencies: %v", safe.TestDependencies)
	}
	if len(safe.Properties.StudentSubmissionFiles) != 2 {
		t.Errorf("StudentSafe() dropped StudentSubmissionFiles")
	}
}
