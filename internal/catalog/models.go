// Package catalog implements the Example Catalog (EC, spec.md §4.3):
// example repositories, examples, versions, and dependencies, plus the
// invariants guarding them (unique identifiers, strictly increasing
// version numbers, acyclic dependencies).
package catalog

import "time"

// SourceType enumerates where an ExampleRepository's bytes originate.
type SourceType string

const (
	SourceGit    SourceType = "git"
	SourceMinio  SourceType = "minio"
	SourceS3     SourceType = "s3"
	SourceGithub SourceType = "github"
	SourceGitlab SourceType = "gitlab"
)

// ExampleRepository is spec.md §3's ExampleRepository entity.
type ExampleRepository struct {
	ID                int64
	SourceType        SourceType
	SourceURL         string
	DefaultBranch     string
	Visibility        string
	AccessCredentials []byte // encrypted at rest; opaque to application code
}

// Example is spec.md §3's Example entity: a reusable, versioned
// assignment template identified hierarchically within its repository.
type Example struct {
	ID           int64
	RepositoryID int64
	Directory    string
	Identifier   string // multi-label, unique per repository
	Title        string
	Description  string
	Subject      string
	Tags         []string
}

// ExampleVersion is spec.md §3's ExampleVersion entity. VersionNumber is
// the sole ordering key the Version Resolver operates on; VersionTag is
// a free-form label never parsed as semver except by the ^ and ~
// constraint operators.
type ExampleVersion struct {
	ID            int64
	ExampleID     int64
	VersionTag    string
	VersionNumber int64
	StoragePath   string // prefix in CSG (objectstore.VersionPrefix)
	MetaYAML      []byte
	ContentHash   string // sha256 over the canonical (sorted) file listing, spec.md §4.3
	CreatedAt     time.Time
}

// ExampleDependency is spec.md §3's ExampleDependency entity:
// `example_id` depends on `depends_id`, optionally constrained.
type ExampleDependency struct {
	ID               int64
	ExampleID        int64
	DependsID        int64
	VersionConstraint string // empty means unconstrained (latest)
}
