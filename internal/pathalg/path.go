// Package pathalg implements the label-path algebra used for both
// CourseContent tree paths (stored as the database's ordered-label-path
// type) and filesystem mappings derived from them.
//
// A Path is an immutable, dot-separated sequence of labels matching
// [A-Za-z0-9_]+. Never compare a Path to a bare string; the database's
// label-path column has its own equality semantics and a raw string
// comparison silently misses rows whose representation differs only in
// whitespace or case folding. Path centralizes that comparison so callers
// can't get it wrong.
package pathalg

import (
	"database/sql/driver"
	"strings"

	"github.com/pkg/errors"
)

const (
	errEmptyPath    = "path must contain at least one label"
	errEmptyLabel   = "label at position %d is empty"
	errInvalidLabel = "label %q contains characters outside [A-Za-z0-9_]"
)

// Path is a validated, canonical sequence of labels. The zero value is not
// a valid Path; construct one with Parse or FromLabels.
type Path struct {
	labels []string
}

// Parse validates and normalizes a dot-separated label path.
func Parse(s string) (Path, error) {
	if s == "" {
		return Path{}, errors.New(errEmptyPath)
	}
	return FromLabels(strings.Split(s, "."))
}

// FromLabels builds a Path from an ordered label sequence, validating each
// label.
func FromLabels(labels []string) (Path, error) {
	if len(labels) == 0 {
		return Path{}, errors.New(errEmptyPath)
	}
	out := make([]string, len(labels))
	for i, l := range labels {
		if l == "" {
			return Path{}, errors.Errorf(errEmptyLabel, i)
		}
		if !isValidLabel(l) {
			return Path{}, errors.Errorf(errInvalidLabel, l)
		}
		out[i] = l
	}
	return Path{labels: out}, nil
}

// MustParse panics on an invalid path. Reserved for compile-time-known
// literals (tests, constants); never call it on user or catalog input.
func MustParse(s string) Path {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func isValidLabel(l string) bool {
	for _, r := range l {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

// String renders the canonical dot-joined form.
func (p Path) String() string {
	return strings.Join(p.labels, ".")
}

// Labels returns a defensive copy of the label sequence.
func (p Path) Labels() []string {
	out := make([]string, len(p.labels))
	copy(out, p.labels)
	return out
}

// NLevel returns the number of labels in the path.
func (p Path) NLevel() int {
	return len(p.labels)
}

// IsZero reports whether p is the zero value (never produced by Parse).
func (p Path) IsZero() bool {
	return len(p.labels) == 0
}

// Concat appends other's labels to p, returning a new Path.
func (p Path) Concat(other Path) Path {
	out := make([]string, 0, len(p.labels)+len(other.labels))
	out = append(out, p.labels...)
	out = append(out, other.labels...)
	return Path{labels: out}
}

// Parent returns the path with its last label removed and ok=false if p
// already has a single label (root paths have no parent).
func (p Path) Parent() (Path, bool) {
	if len(p.labels) <= 1 {
		return Path{}, false
	}
	out := make([]string, len(p.labels)-1)
	copy(out, p.labels[:len(p.labels)-1])
	return Path{labels: out}, true
}

// Leaf returns the final label.
func (p Path) Leaf() string {
	if len(p.labels) == 0 {
		return ""
	}
	return p.labels[len(p.labels)-1]
}

// IsAncestor reports whether p is a strict ancestor of d (p is a proper
// prefix of d's labels).
func (p Path) IsAncestor(d Path) bool {
	if len(p.labels) >= len(d.labels) {
		return false
	}
	for i, l := range p.labels {
		if d.labels[i] != l {
			return false
		}
	}
	return true
}

// IsDescendant reports whether p is a strict descendant of a.
func (p Path) IsDescendant(a Path) bool {
	return a.IsAncestor(p)
}

// Equal reports canonical equality. Always use this (or String()
// equality after Parse) instead of comparing raw input strings.
func (p Path) Equal(other Path) bool {
	if len(p.labels) != len(other.labels) {
		return false
	}
	for i, l := range p.labels {
		if other.labels[i] != l {
			return false
		}
	}
	return true
}

// ToFilesystem renders the path as a "/"-joined relative filesystem path.
// The result contains no "." originating from label content because "."
// is not in the label alphabet.
func (p Path) ToFilesystem() string {
	return strings.Join(p.labels, "/")
}

// FromFilesystem parses a "/"-joined relative path back into a Path, the
// inverse of ToFilesystem.
func FromFilesystem(fsPath string) (Path, error) {
	fsPath = strings.Trim(fsPath, "/")
	if fsPath == "" {
		return Path{}, errors.New(errEmptyPath)
	}
	return FromLabels(strings.Split(fsPath, "/"))
}

// Value implements driver.Valuer so a Path can be written directly to the
// database's ordered-label-path column (spec.md §4.1: "never use string
// equality to a label-path column" — the column type itself, not this
// encoding, is what makes comparisons canonical; this is only the wire
// encoding pgx sends).
func (p Path) Value() (driver.Value, error) {
	if p.IsZero() {
		return nil, nil
	}
	return p.String(), nil
}

// Scan implements sql.Scanner, the inverse of Value.
func (p *Path) Scan(src any) error {
	if src == nil {
		*p = Path{}
		return nil
	}
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return errors.Errorf("cannot scan %T into pathalg.Path", src)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
