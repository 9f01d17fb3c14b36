// Package plan implements the Deployment Planner (DP, spec.md §4.7): given
// a course, produce the ordered set of direct and implicit Deployments the
// Assignment Deployer must materialize.
package plan

import (
	"context"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/cerrors"
	"github.com/computor-org/cpsto/internal/pathalg"
	"github.com/computor-org/cpsto/internal/storage/postgres"
	"github.com/computor-org/cpsto/internal/version"
)

// Deployment is spec.md §4.7's `(course_content_id, example_version_id,
// target_path)` record, extended with a flag marking implicit
// (dependency-only) deployments that have no owning CourseContent.
type Deployment struct {
	CourseContentID int64 // 0 for implicit deployments
	ExampleID       int64
	ExampleVersion  *catalog.ExampleVersion
	TargetPath      string // to_filesystem(content.path), or _deps/<identifier>/<tag> for implicit ones
	Implicit        bool
}

// Planner produces an ordered deployment plan for a course. It reads the
// catalog only through catalog.Reader (internal/storage/postgres supplies
// just the CourseContent input type), so tests exercise it against an
// in-memory fake like the one internal/version's tests use.
type Planner struct {
	catalog  catalog.Reader
	resolver *version.Resolver
}

// New constructs a Planner over a catalog reader; it resolves version
// constraints with its own internal/version.Resolver rather than taking
// one as a parameter, since the two are always used together.
func New(reader catalog.Reader) *Planner {
	return &Planner{catalog: reader, resolver: version.New(reader)}
}

// Plan builds the ordered Deployment list for contents, the submittable
// CourseContent rows of one course (spec.md §4.7). It fails fast on any
// content with Submittable=false appearing in the input, on an
// unresolved dependency constraint, or on a dependency cycle.
func (p *Planner) Plan(ctx context.Context, contents []*postgres.CourseContent) ([]*Deployment, error) {
	var direct []*Deployment
	seenImplicit := map[string]bool{} // dedupe identical (example_id, version_id) implicit deploys across contents

	for _, cc := range contents {
		if !cc.Submittable {
			return nil, cerrors.Newf(cerrors.KindValidation, "course content %d is not submittable and cannot carry a deployment", cc.ID)
		}
		if cc.ExampleVersionID == nil {
			continue // not yet assigned; nothing to plan for this content
		}
		ex, err := p.catalog.GetExample(ctx, *cc.ExampleID)
		if err != nil {
			return nil, err
		}
		if ex == nil {
			return nil, cerrors.Newf(cerrors.KindUnknownSlug, "example %d referenced by course content %d not found", *cc.ExampleID, cc.ID)
		}

		versions, err := p.catalog.ListVersions(ctx, ex.ID)
		if err != nil {
			return nil, err
		}
		ev := findVersion(versions, *cc.ExampleVersionID)
		if ev == nil {
			return nil, cerrors.Newf(cerrors.KindUnknownTag, "example version %d not found for example %d", *cc.ExampleVersionID, ex.ID)
		}

		direct = append(direct, &Deployment{
			CourseContentID: cc.ID,
			ExampleID:       ex.ID,
			ExampleVersion:  ev,
			TargetPath:      cc.Path.ToFilesystem(),
		})

		if err := catalog.DetectCycle(ctx, p.catalog, ex.ID); err != nil {
			return nil, err
		}

		implicit, err := p.resolveImplicit(ctx, ex.ID, seenImplicit)
		if err != nil {
			return nil, err
		}
		direct = append(direct, implicit...)
	}

	return direct, nil
}

// resolveImplicit walks exampleID's direct ExampleDependency rows,
// resolving each via the Version Resolver and recursing into transitive
// dependencies. Plan re-checks the graph is acyclic with
// internal/catalog.DetectCycle before calling this (spec.md §9: "cycles
// must be rejected at write time and re-checked at plan time") — the
// Catalog Synchronizer already rejects cycle-forming writes, but that
// guarantee only covers writes made through it, so this walk cannot
// assume the graph is acyclic on its own. The dedup set additionally
// bounds recursion to avoid rework across contents sharing dependencies.
func (p *Planner) resolveImplicit(ctx context.Context, exampleID int64, seen map[string]bool) ([]*Deployment, error) {
	deps, err := p.catalog.ListDependencies(ctx, exampleID)
	if err != nil {
		return nil, err
	}

	var out []*Deployment
	for _, dep := range deps {
		depExample, err := p.catalog.GetExample(ctx, dep.DependsID)
		if err != nil {
			return nil, err
		}
		if depExample == nil {
			return nil, cerrors.Newf(cerrors.KindUnknownSlug, "dependency example %d not found", dep.DependsID)
		}

		ev, err := p.resolver.ResolveExample(ctx, dep.DependsID, dep.VersionConstraint)
		if err != nil {
			return nil, err
		}

		key := depExample.Identifier + "@" + ev.VersionTag
		if seen[key] {
			continue
		}
		seen[key] = true

		targetPath, err := implicitTargetPath(depExample.Identifier, ev.VersionTag)
		if err != nil {
			return nil, err
		}
		out = append(out, &Deployment{
			ExampleID:      depExample.ID,
			ExampleVersion: ev,
			TargetPath:     targetPath,
			Implicit:       true,
		})

		transitive, err := p.resolveImplicit(ctx, dep.DependsID, seen)
		if err != nil {
			return nil, err
		}
		out = append(out, transitive...)
	}
	return out, nil
}

// implicitTargetPath places an implicit dependency under
// "_deps/<identifier>/<version_tag>/", the fixed placement
// DESIGN.md's Open Question #1 resolution specifies.
func implicitTargetPath(identifier, versionTag string) (string, error) {
	p, err := pathalg.Parse(identifier)
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindValidation, err, "invalid dependency identifier")
	}
	return "_deps/" + p.String() + "/" + versionTag, nil
}

func findVersion(versions []*catalog.ExampleVersion, id int64) *catalog.ExampleVersion {
	for _, v := range versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}
