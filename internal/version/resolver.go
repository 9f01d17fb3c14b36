// Package version implements the Version Resolver (VR, spec.md §4.3):
// resolves a (slug, constraint) pair to a specific ExampleVersion using
// the catalog's version_number ordering. No tag string is ever parsed
// as semver except by the ^ and ~ operators, which attempt a semver
// parse and fall back to >= when the tags don't parse (spec.md §9).
package version

import (
	"context"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/cerrors"
)

// Resolver resolves constraints against a catalog.Reader. It holds no
// mutable state of its own — resolution is a pure function of the
// catalog's current contents (spec.md §8 "Resolver determinism").
type Resolver struct {
	reader catalog.Reader
}

// New constructs a Resolver over reader.
func New(reader catalog.Reader) *Resolver {
	return &Resolver{reader: reader}
}

// Resolve resolves slug (a repository-scoped hierarchical identifier)
// and an optional constraint string to a single ExampleVersion.
//
// repositoryID scopes the slug lookup (spec.md: "(repository_id,
// identifier) unique").
func (r *Resolver) Resolve(ctx context.Context, repositoryID int64, slug, constraint string) (*catalog.ExampleVersion, error) {
	ex, err := r.reader.GetExampleBySlug(ctx, repositoryID, slug)
	if err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownSlug, "unknown slug %q", slug)
	}
	return r.ResolveExample(ctx, ex.ID, constraint)
}

// ResolveExample resolves a constraint against a known example's
// versions, ordered by ascending version_number.
func (r *Resolver) ResolveExample(ctx context.Context, exampleID int64, constraint string) (*catalog.ExampleVersion, error) {
	versions, err := r.reader.ListVersions(ctx, exampleID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "example %d has no versions", exampleID)
	}
	// Defensive: sort a copy by version_number so every operator below
	// sees ascending order even if a catalog read returns rows out of
	// order.
	sorted := make([]*catalog.ExampleVersion, len(versions))
	copy(sorted, versions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].VersionNumber < sorted[j].VersionNumber })

	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return sorted[len(sorted)-1], nil
	}

	switch {
	case strings.HasPrefix(constraint, "=="):
		return resolveExactTag(sorted, strings.TrimPrefix(constraint, "=="))
	case strings.HasPrefix(constraint, ">="):
		return resolveGTE(sorted, strings.TrimPrefix(constraint, ">="))
	case strings.HasPrefix(constraint, "<="):
		return resolveLTE(sorted, strings.TrimPrefix(constraint, "<="))
	case strings.HasPrefix(constraint, ">"):
		return resolveGT(sorted, strings.TrimPrefix(constraint, ">"))
	case strings.HasPrefix(constraint, "<"):
		return resolveLT(sorted, strings.TrimPrefix(constraint, "<"))
	case strings.HasPrefix(constraint, "^"):
		return resolveCaret(sorted, strings.TrimPrefix(constraint, "^"))
	case strings.HasPrefix(constraint, "~"):
		return resolveTilde(sorted, strings.TrimPrefix(constraint, "~"))
	default:
		// bare "X" means exact tag match per spec.md §4.3's table.
		return resolveExactTag(sorted, constraint)
	}
}

func findTag(sorted []*catalog.ExampleVersion, tag string) *catalog.ExampleVersion {
	for _, v := range sorted {
		if v.VersionTag == tag {
			return v
		}
	}
	return nil
}

func resolveExactTag(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	v := findTag(sorted, tag)
	if v == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	return v, nil
}

func resolveGTE(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	anchor := findTag(sorted, tag)
	if anchor == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	for _, v := range sorted { // ascending: first match is the smallest >= T
		if v.VersionNumber >= anchor.VersionNumber {
			return v, nil
		}
	}
	return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "no version >= %q", tag)
}

func resolveLTE(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	anchor := findTag(sorted, tag)
	if anchor == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	var best *catalog.ExampleVersion
	for _, v := range sorted { // ascending: keep overwriting while <= T to land on the largest
		if v.VersionNumber <= anchor.VersionNumber {
			best = v
		}
	}
	if best == nil {
		return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "no version <= %q", tag)
	}
	return best, nil
}

func resolveGT(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	anchor := findTag(sorted, tag)
	if anchor == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	for _, v := range sorted {
		if v.VersionNumber > anchor.VersionNumber {
			return v, nil
		}
	}
	return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "no version > %q", tag)
}

func resolveLT(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	anchor := findTag(sorted, tag)
	if anchor == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	var best *catalog.ExampleVersion
	for _, v := range sorted {
		if v.VersionNumber < anchor.VersionNumber {
			best = v
		}
	}
	if best == nil {
		return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "no version < %q", tag)
	}
	return best, nil
}

// resolveCaret implements the ^X operator: same major version when tags
// parse as semver, else falls back to >=X (spec.md §4.3/§9).
func resolveCaret(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	anchorSem, err := semver.NewVersion(tag)
	if err != nil {
		return resolveGTE(sorted, tag)
	}
	anchor := findTag(sorted, tag)
	if anchor == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	var best *catalog.ExampleVersion
	for _, v := range sorted {
		if v.VersionNumber < anchor.VersionNumber {
			continue
		}
		sem, err := semver.NewVersion(v.VersionTag)
		if err != nil || sem.Major() != anchorSem.Major() {
			continue
		}
		if best == nil || v.VersionNumber > best.VersionNumber {
			best = v
		}
	}
	if best == nil {
		return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "no version matching ^%s", tag)
	}
	return best, nil
}

// resolveTilde implements the ~X operator: same major.minor when tags
// parse as semver, else falls back to >=X.
func resolveTilde(sorted []*catalog.ExampleVersion, tag string) (*catalog.ExampleVersion, error) {
	anchorSem, err := semver.NewVersion(tag)
	if err != nil {
		return resolveGTE(sorted, tag)
	}
	anchor := findTag(sorted, tag)
	if anchor == nil {
		return nil, cerrors.Newf(cerrors.KindUnknownTag, "unknown version tag %q", tag)
	}
	var best *catalog.ExampleVersion
	for _, v := range sorted {
		if v.VersionNumber < anchor.VersionNumber {
			continue
		}
		sem, err := semver.NewVersion(v.VersionTag)
		if err != nil || sem.Major() != anchorSem.Major() || sem.Minor() != anchorSem.Minor() {
			continue
		}
		if best == nil || v.VersionNumber > best.VersionNumber {
			best = v
		}
	}
	if best == nil {
		return nil, cerrors.Newf(cerrors.KindNoMatchingVersion, "no version matching ~%s", tag)
	}
	return best, nil
}
