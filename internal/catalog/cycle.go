package catalog

import (
	"context"

	"github.com/computor-org/cpsto/internal/cerrors"
)

// DetectCycle walks the transitive dependency closure reachable from
// root using DFS in application memory (spec.md §9: "either is
// acceptable" between recursive-closure queries and in-memory DFS). It
// returns a *cerrors.Error{Kind: KindDependencyCycle} if any example is
// reachable from itself.
func DetectCycle(ctx context.Context, reader Reader, root int64) error {
	visiting := map[int64]bool{}
	visited := map[int64]bool{}
	return dfs(ctx, reader, root, visiting, visited)
}

func dfs(ctx context.Context, reader Reader, exampleID int64, visiting, visited map[int64]bool) error {
	if visited[exampleID] {
		return nil
	}
	if visiting[exampleID] {
		return cerrors.Newf(cerrors.KindDependencyCycle, "dependency cycle detected at example %d", exampleID)
	}
	visiting[exampleID] = true
	deps, err := reader.ListDependencies(ctx, exampleID)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := dfs(ctx, reader, dep.DependsID, visiting, visited); err != nil {
			return err
		}
	}
	visiting[exampleID] = false
	visited[exampleID] = true
	return nil
}

// WouldCreateCycle reports whether adding a dependency edge
// exampleID -> dependsID would introduce a cycle, without mutating the
// catalog. Used by the Catalog Synchronizer before persisting a new
// ExampleDependency row (spec.md §4.3: "cycles must be rejected at write
// time").
func WouldCreateCycle(ctx context.Context, reader Reader, exampleID, dependsID int64) (bool, error) {
	if exampleID == dependsID {
		return true, nil
	}
	// A cycle would form iff exampleID is already reachable from
	// dependsID (i.e. dependsID transitively depends on exampleID).
	visiting := map[int64]bool{}
	visited := map[int64]bool{}
	found := false
	var walk func(id int64) error
	walk = func(id int64) error {
		if visited[id] {
			return nil
		}
		if id == exampleID {
			found = true
			return nil
		}
		visiting[id] = true
		deps, err := reader.ListDependencies(ctx, id)
		if err != nil {
			return err
		}
		for _, dep := range deps {
			if err := walk(dep.DependsID); err != nil {
				return err
			}
			if found {
				return nil
			}
		}
		visited[id] = true
		return nil
	}
	if err := walk(dependsID); err != nil {
		return false, err
	}
	return found, nil
}
