package template

import (
	"testing"

	"github.com/computor-org/cpsto/internal/objectstore"
)

func TestIndexNameMatchesPlainAndLanguageVariants(t *testing.T) {
	cases := map[string]string{
		"index.md":        "index.md",
		"index_de.md":      "index_de.md",
		"notes.md":         "",
		"index_notes.txt":  "",
	}
	for rel, want := range cases {
		if got := indexName(rel); got != want {
			t.Errorf("indexName(%q) = %q, want %q", rel, got, want)
		}
	}
}

func TestReadmeNameFor(t *testing.T) {
	if got := readmeNameFor("index.md"); got != "README.md" {
		t.Errorf("readmeNameFor(index.md) = %q, want README.md", got)
	}
	if got := readmeNameFor("index_de.md"); got != "README_de.md" {
		t.Errorf("readmeNameFor(index_de.md) = %q, want README_de.md", got)
	}
}

func TestFindByBasename(t *testing.T) {
	entries := []objectstore.ObjectEntry{
		{Key: "repositories/1/2/v1/content/helper.py"},
		{Key: "repositories/1/2/v1/extra/notes.txt"},
	}
	key, ok := findByBasename(entries, "notes.txt")
	if !ok || key != "repositories/1/2/v1/extra/notes.txt" {
		t.Errorf("findByBasename = (%q, %v), want extra/notes.txt", key, ok)
	}
	if _, ok := findByBasename(entries, "missing.txt"); ok {
		t.Error("findByBasename should not match a nonexistent basename")
	}
}

func TestFindStudentTemplateSourcePrefersStudentTemplatePath(t *testing.T) {
	entries := []objectstore.ObjectEntry{
		{Key: "repositories/1/2/v1/solution/main.py"},
		{Key: "repositories/1/2/v1/studentTemplate/main.py"},
	}
	templates := []string{"solution/main.py", "studentTemplate/main.py"}
	key, ok := findStudentTemplateSource(entries, templates, "main.py")
	if !ok {
		t.Fatal("expected a match")
	}
	if key != "repositories/1/2/v1/studentTemplate/main.py" {
		t.Errorf("got %q, want the studentTemplate-path candidate", key)
	}
}

func TestToSetUsesBasename(t *testing.T) {
	s := toSet([]string{"tests/hidden_test.py", "grading.py"})
	if !s["hidden_test.py"] || !s["grading.py"] {
		t.Errorf("toSet should index by basename, got %+v", s)
	}
}
