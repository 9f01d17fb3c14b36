package plan

import (
	"context"
	"testing"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/cerrors"
	"github.com/computor-org/cpsto/internal/pathalg"
	"github.com/computor-org/cpsto/internal/storage/postgres"
)

// fakeReader mirrors internal/version's in-test fake so Planner tests run
// without a database.
type fakeReader struct {
	byID   map[int64]*catalog.Example
	bySlug map[string]*catalog.Example
	vers   map[int64][]*catalog.ExampleVersion
	deps   map[int64][]*catalog.ExampleDependency
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		byID:   map[int64]*catalog.Example{},
		bySlug: map[string]*catalog.Example{},
		vers:   map[int64][]*catalog.ExampleVersion{},
		deps:   map[int64][]*catalog.ExampleDependency{},
	}
}

func (f *fakeReader) add(id int64, identifier string) {
	ex := &catalog.Example{ID: id, Identifier: identifier}
	f.byID[id] = ex
	f.bySlug[identifier] = ex
}

func (f *fakeReader) addVersion(exampleID int64, tag string, number int64) {
	f.vers[exampleID] = append(f.vers[exampleID], &catalog.ExampleVersion{ID: number, ExampleID: exampleID, VersionTag: tag, VersionNumber: number})
}

func (f *fakeReader) GetExampleBySlug(_ context.Context, _ int64, identifier string) (*catalog.Example, error) {
	return f.bySlug[identifier], nil
}
func (f *fakeReader) GetExample(_ context.Context, id int64) (*catalog.Example, error) {
	return f.byID[id], nil
}
func (f *fakeReader) ListVersions(_ context.Context, id int64) ([]*catalog.ExampleVersion, error) {
	return f.vers[id], nil
}
func (f *fakeReader) ListDependencies(_ context.Context, id int64) ([]*catalog.ExampleDependency, error) {
	return f.deps[id], nil
}

func TestPlanDirectDeploymentOnly(t *testing.T) {
	r := newFakeReader()
	r.add(1, "physics.math.vectors")
	r.addVersion(1, "v1.0", 1)

	exID := int64(1)
	verID := int64(1)
	contents := []*postgres.CourseContent{
		{ID: 10, Path: pathalg.MustParse("week1.vectors"), Submittable: true, ExampleID: &exID, ExampleVersionID: &verID},
	}

	p := New(r)
	deployments, err := p.Plan(context.Background(), contents)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(deployments) != 1 {
		t.Fatalf("got %d deployments, want 1", len(deployments))
	}
	if deployments[0].TargetPath != "week1/vectors" {
		t.Errorf("TargetPath = %q, want %q", deployments[0].TargetPath, "week1/vectors")
	}
	if deployments[0].Implicit {
		t.Error("direct deployment must not be marked implicit")
	}
}

func TestPlanRejectsNonSubmittable(t *testing.T) {
	p := New(newFakeReader())
	_, err := p.Plan(context.Background(), []*postgres.CourseContent{
		{ID: 1, Path: pathalg.MustParse("week1"), Submittable: false},
	})
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindValidation {
		t.Fatalf("got err=%v, want KindValidation", err)
	}
}

func TestPlanSkipsUnassignedContent(t *testing.T) {
	p := New(newFakeReader())
	deployments, err := p.Plan(context.Background(), []*postgres.CourseContent{
		{ID: 1, Path: pathalg.MustParse("week1"), Submittable: true},
	})
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(deployments) != 0 {
		t.Errorf("got %d deployments, want 0 for an unassigned content", len(deployments))
	}
}

func TestPlanIncludesImplicitDependency(t *testing.T) {
	r := newFakeReader()
	r.add(1, "alg.graphs")
	r.addVersion(1, "v2.0", 1)
	r.add(2, "alg.base")
	r.addVersion(2, "v1.0", 1)
	r.addVersion(2, "v1.1", 2)
	r.deps[1] = []*catalog.ExampleDependency{{ExampleID: 1, DependsID: 2, VersionConstraint: ""}}

	exID := int64(1)
	verID := int64(1)
	contents := []*postgres.CourseContent{
		{ID: 10, Path: pathalg.MustParse("week2.graphs"), Submittable: true, ExampleID: &exID, ExampleVersionID: &verID},
	}

	p := New(r)
	deployments, err := p.Plan(context.Background(), contents)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(deployments) != 2 {
		t.Fatalf("got %d deployments, want 1 direct + 1 implicit", len(deployments))
	}
	implicit := deployments[1]
	if !implicit.Implicit {
		t.Error("dependency deployment must be marked implicit")
	}
	want := "_deps/alg.base/v1.1"
	if implicit.TargetPath != want {
		t.Errorf("implicit TargetPath = %q, want %q (unconstrained dependency resolves to highest version)", implicit.TargetPath, want)
	}
}

func TestPlanFailsOnUnresolvedConstraint(t *testing.T) {
	r := newFakeReader()
	r.add(1, "alg.graphs")
	r.addVersion(1, "v1.0", 1)
	r.add(2, "alg.base")
	r.addVersion(2, "v1.0", 1)
	r.deps[1] = []*catalog.ExampleDependency{{ExampleID: 1, DependsID: 2, VersionConstraint: ">=v9.9"}}

	exID := int64(1)
	verID := int64(1)
	contents := []*postgres.CourseContent{
		{ID: 10, Path: pathalg.MustParse("week2.graphs"), Submittable: true, ExampleID: &exID, ExampleVersionID: &verID},
	}

	_, err := New(r).Plan(context.Background(), contents)
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindUnknownTag {
		t.Fatalf("got err=%v, want KindUnknownTag", err)
	}
}

func TestPlanRejectsDependencyCycle(t *testing.T) {
	r := newFakeReader()
	r.add(1, "alg.graphs")
	r.addVersion(1, "v1.0", 1)
	r.add(2, "alg.base")
	r.addVersion(2, "v1.0", 1)
	// a cycle that slipped past CS's write-time rejection (e.g. a
	// future write path other than catalogsync) must still be caught
	// here at plan time.
	r.deps[1] = []*catalog.ExampleDependency{{ExampleID: 1, DependsID: 2, VersionConstraint: ""}}
	r.deps[2] = []*catalog.ExampleDependency{{ExampleID: 2, DependsID: 1, VersionConstraint: ""}}

	exID := int64(1)
	verID := int64(1)
	contents := []*postgres.CourseContent{
		{ID: 10, Path: pathalg.MustParse("week2.graphs"), Submittable: true, ExampleID: &exID, ExampleVersionID: &verID},
	}

	_, err := New(r).Plan(context.Background(), contents)
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindDependencyCycle {
		t.Fatalf("got err=%v, want KindDependencyCycle", err)
	}
}
