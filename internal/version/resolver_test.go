package version

import (
	"context"
	"testing"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/cerrors"
)

// fakeReader is an in-memory catalog.Reader double keyed by example ID;
// it lets resolver tests exercise version_number ordering without a
// database, matching the teacher's pattern of fake clients under
// pkg/clients/*/fake.
type fakeReader struct {
	examplesBySlug map[string]*catalog.Example
	examplesByID   map[int64]*catalog.Example
	versions       map[int64][]*catalog.ExampleVersion
	deps           map[int64][]*catalog.ExampleDependency
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		examplesBySlug: map[string]*catalog.Example{},
		examplesByID:   map[int64]*catalog.Example{},
		versions:       map[int64][]*catalog.ExampleVersion{},
		deps:           map[int64][]*catalog.ExampleDependency{},
	}
}

func (f *fakeReader) addExample(id int64, identifier string) {
	ex := &catalog.Example{ID: id, Identifier: identifier, RepositoryID: 1}
	f.examplesBySlug[identifier] = ex
	f.examplesByID[id] = ex
}

func (f *fakeReader) addVersion(exampleID int64, tag string, number int64) {
	f.versions[exampleID] = append(f.versions[exampleID], &catalog.ExampleVersion{
		ID: number, ExampleID: exampleID, VersionTag: tag, VersionNumber: number,
	})
}

func (f *fakeReader) GetExampleBySlug(_ context.Context, _ int64, identifier string) (*catalog.Example, error) {
	ex, ok := f.examplesBySlug[identifier]
	if !ok {
		return nil, nil
	}
	return ex, nil
}

func (f *fakeReader) GetExample(_ context.Context, id int64) (*catalog.Example, error) {
	ex, ok := f.examplesByID[id]
	if !ok {
		return nil, nil
	}
	return ex, nil
}

func (f *fakeReader) ListVersions(_ context.Context, exampleID int64) ([]*catalog.ExampleVersion, error) {
	return f.versions[exampleID], nil
}

func (f *fakeReader) ListDependencies(_ context.Context, exampleID int64) ([]*catalog.ExampleDependency, error) {
	return f.deps[exampleID], nil
}

func baseCatalog() *fakeReader {
	r := newFakeReader()
	r.addExample(1, "alg.base")
	r.addVersion(1, "v1.0", 1)
	r.addVersion(1, "v1.1", 2)
	r.addVersion(1, "v1.2", 3)
	return r
}

func TestResolveNoConstraintReturnsHighest(t *testing.T) {
	r := New(baseCatalog())
	v, err := r.Resolve(context.Background(), 1, "alg.base", "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v.VersionTag != "v1.2" {
		t.Errorf("got %q, want v1.2", v.VersionTag)
	}
}

func TestResolveGTEConstraint(t *testing.T) {
	r := New(baseCatalog())
	v, err := r.Resolve(context.Background(), 1, "alg.base", ">=v1.1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v.VersionTag != "v1.1" {
		t.Errorf("got %q, want v1.1 (example 3 from spec.md §8)", v.VersionTag)
	}
}

func TestResolveExactTag(t *testing.T) {
	r := New(baseCatalog())
	v, err := r.Resolve(context.Background(), 1, "alg.base", "v1.0")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v.VersionTag != "v1.0" {
		t.Errorf("got %q, want v1.0", v.VersionTag)
	}
	v2, err := r.Resolve(context.Background(), 1, "alg.base", "==v1.0")
	if err != nil {
		t.Fatalf("Resolve with == returned error: %v", err)
	}
	if v2.VersionTag != "v1.0" {
		t.Errorf("got %q, want v1.0", v2.VersionTag)
	}
}

func TestResolveLTAndLTE(t *testing.T) {
	r := New(baseCatalog())
	v, err := r.Resolve(context.Background(), 1, "alg.base", "<v1.2")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v.VersionTag != "v1.1" {
		t.Errorf("got %q, want v1.1", v.VersionTag)
	}
	v2, err := r.Resolve(context.Background(), 1, "alg.base", "<=v1.1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v2.VersionTag != "v1.1" {
		t.Errorf("got %q, want v1.1", v2.VersionTag)
	}
}

func TestResolveUnknownSlug(t *testing.T) {
	r := New(baseCatalog())
	_, err := r.Resolve(context.Background(), 1, "no.such.example", "")
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindUnknownSlug {
		t.Fatalf("got err=%v, want KindUnknownSlug", err)
	}
}

func TestResolveUnknownTagNoMatchingVersion(t *testing.T) {
	r := New(baseCatalog())
	_, err := r.Resolve(context.Background(), 1, "alg.base", ">=v9.9")
	if kind, ok := cerrors.KindOf(err); !ok || kind != cerrors.KindUnknownTag {
		t.Fatalf("got err=%v, want KindUnknownTag (v9.9 itself is not a known tag)", err)
	}
}

func TestResolveCaretFallsBackWithoutSemver(t *testing.T) {
	r := newFakeReader()
	r.addExample(2, "nonsemver.example")
	r.addVersion(2, "build-100", 1)
	r.addVersion(2, "build-200", 2)
	resolver := New(r)
	v, err := resolver.Resolve(context.Background(), 1, "nonsemver.example", "^build-100")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v.VersionTag != "build-100" {
		t.Errorf("got %q, want build-100 (caret falls back to >=, the smallest version at or above the anchor)", v.VersionTag)
	}
}

func TestResolveCaretSameMajor(t *testing.T) {
	r := newFakeReader()
	r.addExample(3, "semver.example")
	r.addVersion(3, "1.0.0", 1)
	r.addVersion(3, "1.5.0", 2)
	r.addVersion(3, "2.0.0", 3)
	resolver := New(r)
	v, err := resolver.Resolve(context.Background(), 1, "semver.example", "^1.0.0")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if v.VersionTag != "1.5.0" {
		t.Errorf("got %q, want 1.5.0 (highest within major 1)", v.VersionTag)
	}
}

func TestResolverDeterministic(t *testing.T) {
	r := New(baseCatalog())
	v1, err1 := r.Resolve(context.Background(), 1, "alg.base", ">=v1.1")
	v2, err2 := r.Resolve(context.Background(), 1, "alg.base", ">=v1.1")
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v %v", err1, err2)
	}
	if v1.VersionTag != v2.VersionTag {
		t.Errorf("resolver not deterministic: %q vs %q", v1.VersionTag, v2.VersionTag)
	}
}
