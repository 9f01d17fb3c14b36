package pathalg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"org",
		"org.family",
		"org.family.course",
		"week1.vectors",
		"a_b.c1.D2",
	}
	for _, s := range cases {
		p, err := Parse(s)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", s, err)
		}
		if got := p.String(); got != s {
			t.Errorf("round trip mismatch: Parse(%q).String() = %q", s, got)
		}
		if got := FromLabelsString(t, p.Labels()); got != s {
			t.Errorf("FromLabels(labels(%q)).String() = %q, want %q", s, got, s)
		}
	}
}

func FromLabelsString(t *testing.T, labels []string) string {
	t.Helper()
	p, err := FromLabels(labels)
	if err != nil {
		t.Fatalf("FromLabels(%v) returned error: %v", labels, err)
	}
	return p.String()
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := []string{
		"",
		"org..family",
		"org-family",
		"org family",
		".org",
		"org.",
	}
	for _, s := range cases {
		if _, err := Parse(s); err == nil {
			t.Errorf("Parse(%q) expected error, got nil", s)
		}
	}
}

func TestToFilesystemUsesSlashOnly(t *testing.T) {
	p := MustParse("week1.hello_world.main")
	fs := p.ToFilesystem()
	if fs != "week1/hello_world/main" {
		t.Errorf("ToFilesystem() = %q, want %q", fs, "week1/hello_world/main")
	}
	for _, r := range fs {
		if r == '.' {
			t.Errorf("ToFilesystem() result %q contains a label-originated '.'", fs)
		}
	}
}

func TestFromFilesystemInverse(t *testing.T) {
	p := MustParse("week1.hello_world")
	fs := p.ToFilesystem()
	back, err := FromFilesystem(fs)
	if err != nil {
		t.Fatalf("FromFilesystem(%q) returned error: %v", fs, err)
	}
	if !back.Equal(p) {
		t.Errorf("FromFilesystem(ToFilesystem(p)) = %v, want %v", back, p)
	}
}

func TestNLevel(t *testing.T) {
	if n := MustParse("a").NLevel(); n != 1 {
		t.Errorf("NLevel() = %d, want 1", n)
	}
	if n := MustParse("a.b.c").NLevel(); n != 3 {
		t.Errorf("NLevel() = %d, want 3", n)
	}
}

func TestParentRoot(t *testing.T) {
	_, ok := MustParse("org").Parent()
	if ok {
		t.Error("Parent() of a single-label path should report ok=false")
	}
	parent, ok := MustParse("org.family.course").Parent()
	if !ok {
		t.Fatal("Parent() expected ok=true")
	}
	if parent.String() != "org.family" {
		t.Errorf("Parent() = %q, want %q", parent.String(), "org.family")
	}
}

func TestAncestorDescendant(t *testing.T) {
	a := MustParse("org.family")
	d := MustParse("org.family.course")
	if !a.IsAncestor(d) {
		t.Error("expected a to be an ancestor of d")
	}
	if !d.IsDescendant(a) {
		t.Error("expected d to be a descendant of a")
	}
	if a.IsAncestor(a) {
		t.Error("a path must not be its own ancestor")
	}
	other := MustParse("org.other")
	if a.IsAncestor(other) {
		t.Error("sibling paths must not be ancestors of each other")
	}
}

func TestConcat(t *testing.T) {
	a := MustParse("week1")
	b := MustParse("vectors")
	got := a.Concat(b)
	if got.String() != "week1.vectors" {
		t.Errorf("Concat() = %q, want %q", got.String(), "week1.vectors")
	}
}

func TestEqualIgnoresSliceIdentity(t *testing.T) {
	a := MustParse("a.b.c")
	b, _ := FromLabels([]string{"a", "b", "c"})
	if !a.Equal(b) {
		t.Error("paths built from equal label sequences must be Equal")
	}
	if diff := cmp.Diff(a.Labels(), b.Labels()); diff != "" {
		t.Errorf("Labels() mismatch (-a +b):\n%s", diff)
	}
}

func TestLeaf(t *testing.T) {
	if got := MustParse("a.b.c").Leaf(); got != "c" {
		t.Errorf("Leaf() = %q, want %q", got, "c")
	}
}

func TestValueScanRoundTrip(t *testing.T) {
	p := MustParse("week1.vectors")
	v, err := p.Value()
	if err != nil {
		t.Fatalf("Value() returned error: %v", err)
	}
	var got Path
	if err := got.Scan(v); err != nil {
		t.Fatalf("Scan(%v) returned error: %v", v, err)
	}
	if !got.Equal(p) {
		t.Errorf("Scan(Value()) = %q, want %q", got.String(), p.String())
	}
}

func TestScanRejectsInvalidPath(t *testing.T) {
	var p Path
	if err := p.Scan("bad path!"); err == nil {
		t.Error("expected Scan to reject an invalid label path")
	}
}

func TestValueZeroPathIsNil(t *testing.T) {
	var zero Path
	v, err := zero.Value()
	if err != nil {
		t.Fatalf("Value() returned error: %v", err)
	}
	if v != nil {
		t.Errorf("Value() of zero Path = %v, want nil", v)
	}
}
