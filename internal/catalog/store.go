package catalog

import "context"

// Reader is the read-only surface of the Example Catalog the Version
// Resolver and Deployment Planner depend on. Production code is backed
// by internal/storage/postgres; tests use in-memory fakes (fakeDepReader
// in cycle_test.go, fakeReader in the version and plan tests) so catalog
// logic is exercised without a database.
type Reader interface {
	// GetExampleBySlug resolves a hierarchical identifier to an Example
	// within a repository.
	GetExampleBySlug(ctx context.Context, repositoryID int64, identifier string) (*Example, error)
	// GetExample fetches an Example by its primary key.
	GetExample(ctx context.Context, exampleID int64) (*Example, error)
	// ListVersions returns every ExampleVersion of an example ordered by
	// version_number ascending (spec.md §4.3/§9). The Version Resolver
	// still sorts its own copy by version_number before applying an
	// operator.
	ListVersions(ctx context.Context, exampleID int64) ([]*ExampleVersion, error)
	// ListDependencies returns the direct dependencies declared for an
	// example.
	ListDependencies(ctx context.Context, exampleID int64) ([]*ExampleDependency, error)
}

// Writer is the mutating surface used by the Catalog Synchronizer.
type Writer interface {
	UpsertRepository(ctx context.Context, repo *ExampleRepository) (int64, error)
	UpsertExample(ctx context.Context, ex *Example) (int64, error)
	CreateVersion(ctx context.Context, v *ExampleVersion) (int64, error)
	ReplaceDependencies(ctx context.Context, exampleID int64, deps []*ExampleDependency) error
}

// Store composes Reader and Writer.
type Store interface {
	Reader
	Writer
}
