// Package metayaml parses and normalizes the per-example meta.yaml
// metadata format declared in spec.md §3 ("Meta") and §6
// ("Example metadata (meta.yaml) fields consumed by AD/TG").
package metayaml

import (
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// TestDependency is one normalized entry of the testDependencies list.
// The YAML accepts either a bare hierarchical slug string (constraint
// implied NULL/latest) or an object with an explicit version constraint;
// Parse normalizes both shapes into this type.
type TestDependency struct {
	Slug    string
	Version string // empty means "latest" (NULL constraint)
}

// rawTestDependency backs the two accepted YAML shapes for a single
// testDependencies entry.
type rawTestDependency struct {
	Slug    string `yaml:"slug"`
	Version string `yaml:"version"`
}

// Properties mirrors the meta.yaml "properties" block.
type Properties struct {
	StudentSubmissionFiles []string          `yaml:"studentSubmissionFiles"`
	AdditionalFiles        []string          `yaml:"additionalFiles"`
	TestFiles              []string          `yaml:"testFiles"`
	StudentTemplates       []string          `yaml:"studentTemplates"`
	ExecutionBackend       *ExecutionBackend `yaml:"executionBackend,omitempty"`
}

// ExecutionBackend is the properties.executionBackend block.
type ExecutionBackend struct {
	Slug     string         `yaml:"slug"`
	Version  string         `yaml:"version"`
	Settings map[string]any `yaml:"settings"`
}

// Meta is the parsed meta.yaml document plus normalized dependencies.
type Meta struct {
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Slug            string   `yaml:"slug"`
	Version         string   `yaml:"version"`
	Language        string   `yaml:"language"`
	License         string   `yaml:"license"`
	Authors         []string `yaml:"authors"`
	Properties      Properties `yaml:"properties"`
	TestDependencies []TestDependency `yaml:"-"`

	rawTestDependencies []yaml.Node `yaml:"-"`
}

// document is the wire shape; testDependencies is unmarshalled into raw
// nodes first because it is heterogeneous (bare string or object).
type document struct {
	Title            string      `yaml:"title"`
	Description      string      `yaml:"description"`
	Slug             string      `yaml:"slug"`
	Version          string      `yaml:"version"`
	Language         string      `yaml:"language"`
	License          string      `yaml:"license"`
	Authors          []string    `yaml:"authors"`
	Properties       Properties  `yaml:"properties"`
	TestDependencies []yaml.Node `yaml:"testDependencies,omitempty"`
}

const errHierarchicalSlug = "testDependencies slug %q must contain at least two labels"

// Parse decodes a meta.yaml document and normalizes testDependencies
// entries into TestDependency values (spec.md §4.3).
func Parse(data []byte) (*Meta, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "cannot parse meta.yaml")
	}
	deps := make([]TestDependency, 0, len(doc.TestDependencies))
	for _, node := range doc.TestDependencies {
		dep, err := decodeTestDependency(&node)
		if err != nil {
			return nil, err
		}
		if strings.Count(dep.Slug, ".") < 1 {
			return nil, errors.Errorf(errHierarchicalSlug, dep.Slug)
		}
		deps = append(deps, dep)
	}
	return &Meta{
		Title:            doc.Title,
		Description:      doc.Description,
		Slug:             doc.Slug,
		Version:          doc.Version,
		Language:         doc.Language,
		License:          doc.License,
		Authors:          doc.Authors,
		Properties:       doc.Properties,
		TestDependencies: deps,
	}, nil
}

func decodeTestDependency(node *yaml.Node) (TestDependency, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return TestDependency{}, errors.Wrap(err, "cannot decode testDependencies entry")
		}
		return TestDependency{Slug: s}, nil
	case yaml.MappingNode:
		var raw rawTestDependency
		if err := node.Decode(&raw); err != nil {
			return TestDependency{}, errors.Wrap(err, "cannot decode testDependencies entry")
		}
		return TestDependency{Slug: raw.Slug, Version: raw.Version}, nil
	default:
		return TestDependency{}, errors.New("testDependencies entry must be a string or an object")
	}
}

// StudentSafe returns a derivative of m suitable for writing into the
// student template (spec.md §4.9 step 5): test references and grading
// internals are omitted.
func (m *Meta) StudentSafe() *Meta {
	clone := *m
	clone.Properties = Properties{
		AdditionalFiles:  m.Properties.AdditionalFiles,
		StudentTemplates: m.Properties.StudentTemplates,
		// StudentSubmissionFiles is kept: students need to know what they
		// must hand in. TestFiles and ExecutionBackend are grading
		// internals and are dropped.
		StudentSubmissionFiles: m.Properties.StudentSubmissionFiles,
	}
	clone.TestDependencies = nil
	return &clone
}

// Marshal renders m back to YAML bytes. TestDependencies are not written.
func (m *Meta) Marshal() ([]byte, error) {
	out := document{
		Title:       m.Title,
		Description: m.Description,
		Slug:        m.Slug,
		Version:     m.Version,
		Language:    m.Language,
		License:     m.License,
		Authors:     m.Authors,
		Properties:  m.Properties,
	}
	b, err := yaml.Marshal(out)
	if err != nil {
		return nil, errors.Wrap(err, "cannot marshal meta.yaml")
	}
	return b, nil
}
