package catalog

import (
	"context"
	"testing"

	"github.com/computor-org/cpsto/internal/cerrors"
)

type fakeDepReader struct {
	deps map[int64][]*ExampleDependency
}

func (f *fakeDepReader) GetExampleBySlug(context.Context, int64, string) (*Example, error) {
	return nil, nil
}
func (f *fakeDepReader) GetExample(context.Context, int64) (*Example, error) { return nil, nil }
func (f *fakeDepReader) ListVersions(context.Context, int64) ([]*ExampleVersion, error) {
	return nil, nil
}
func (f *fakeDepReader) ListDependencies(_ context.Context, id int64) ([]*ExampleDependency, error) {
	return f.deps[id], nil
}

func TestDetectCycleNoCycle(t *testing.T) {
	r := &fakeDepReader{deps: map[int64][]*ExampleDependency{
		1: {{ExampleID: 1, DependsID: 2}},
		2: {{ExampleID: 2, DependsID: 3}},
		3: nil,
	}}
	if err := DetectCycle(context.Background(), r, 1); err != nil {
		t.Errorf("unexpected cycle error: %v", err)
	}
}

func TestDetectCycleFindsCycle(t *testing.T) {
	r := &fakeDepReader{deps: map[int64][]*ExampleDependency{
		1: {{ExampleID: 1, DependsID: 2}},
		2: {{ExampleID: 2, DependsID: 3}},
		3: {{ExampleID: 3, DependsID: 1}},
	}}
	err := DetectCycle(context.Background(), r, 1)
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindDependencyCycle {
		t.Fatalf("got err=%v, want KindDependencyCycle", err)
	}
}

func TestWouldCreateCycle(t *testing.T) {
	r := &fakeDepReader{deps: map[int64][]*ExampleDependency{
		1: {{ExampleID: 1, DependsID: 2}},
		2: nil,
	}}
	// 2 -> 1 would close a cycle since 1 already depends (transitively) on 2...
	// here we ask: would example 2 depending on example 1 create a cycle?
	would, err := WouldCreateCycle(context.Background(), r, 2, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !would {
		t.Error("expected WouldCreateCycle(2, 1) = true since 1 already depends on 2")
	}

	would2, err := WouldCreateCycle(context.Background(), r, 1, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if would2 {
		t.Error("expected WouldCreateCycle(1, 3) = false, no existing path from 3 to 1")
	}
}

func TestWouldCreateCycleSelfDependency(t *testing.T) {
	r := &fakeDepReader{}
	would, err := WouldCreateCycle(context.Background(), r, 5, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !would {
		t.Error("an example depending on itself must be reported as a cycle")
	}
}
