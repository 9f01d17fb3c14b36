package postgres

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/cerrors"
)

// CatalogStore implements catalog.Store over the same database the
// hierarchy and deployment tables live in, backing the Example Catalog
// (EC, spec.md §4.3). It embeds *DB so catalog operations share the pool
// and validator every other storage concern uses.
type CatalogStore struct {
	*DB
}

// NewCatalogStore wraps db as a catalog.Store.
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{DB: db}
}

var _ catalog.Store = (*CatalogStore)(nil)

func (s *CatalogStore) GetExampleBySlug(ctx context.Context, repositoryID int64, identifier string) (*catalog.Example, error) {
	q, args, err := psql.Select("id", "repository_id", "directory", "identifier", "title", "description", "subject", "tags").
		From("examples").
		Where(sq.Eq{"repository_id": repositoryID, "identifier": identifier}).
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build get example by slug query")
	}
	var ex catalog.Example
	var tags string
	err = s.pool.QueryRow(ctx, q, args...).Scan(&ex.ID, &ex.RepositoryID, &ex.Directory, &ex.Identifier, &ex.Title, &ex.Description, &ex.Subject, &tags)
	if err == pgx.ErrNoRows {
		return nil, nil // absent example: caller (VR) maps this to KindUnknownSlug
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "get example by slug")
	}
	ex.Tags = splitTags(tags)
	return &ex, nil
}

func (s *CatalogStore) GetExample(ctx context.Context, exampleID int64) (*catalog.Example, error) {
	q, args, err := psql.Select("id", "repository_id", "directory", "identifier", "title", "description", "subject", "tags").
		From("examples").
		Where(sq.Eq{"id": exampleID}).
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build get example query")
	}
	var ex catalog.Example
	var tags string
	err = s.pool.QueryRow(ctx, q, args...).Scan(&ex.ID, &ex.RepositoryID, &ex.Directory, &ex.Identifier, &ex.Title, &ex.Description, &ex.Subject, &tags)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "get example")
	}
	ex.Tags = splitTags(tags)
	return &ex, nil
}

func (s *CatalogStore) ListVersions(ctx context.Context, exampleID int64) ([]*catalog.ExampleVersion, error) {
	q, args, err := psql.Select("id", "example_id", "version_tag", "version_number", "storage_path", "meta", "content_hash", "created_at").
		From("example_versions").
		Where(sq.Eq{"example_id": exampleID}).
		OrderBy("version_number ASC").
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build list versions query")
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "list example versions")
	}
	defer rows.Close()

	var out []*catalog.ExampleVersion
	for rows.Next() {
		var v catalog.ExampleVersion
		if err := rows.Scan(&v.ID, &v.ExampleID, &v.VersionTag, &v.VersionNumber, &v.StoragePath, &v.MetaYAML, &v.ContentHash, &v.CreatedAt); err != nil {
			return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "scan example version row")
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

func (s *CatalogStore) ListDependencies(ctx context.Context, exampleID int64) ([]*catalog.ExampleDependency, error) {
	q, args, err := psql.Select("id", "example_id", "depends_id", "version_constraint").
		From("example_dependencies").
		Where(sq.Eq{"example_id": exampleID}).
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build list dependencies query")
	}
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "list example dependencies")
	}
	defer rows.Close()

	var out []*catalog.ExampleDependency
	for rows.Next() {
		var d catalog.ExampleDependency
		if err := rows.Scan(&d.ID, &d.ExampleID, &d.DependsID, &d.VersionConstraint); err != nil {
			return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "scan example dependency row")
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *CatalogStore) UpsertRepository(ctx context.Context, repo *catalog.ExampleRepository) (int64, error) {
	if repo.ID != 0 {
		q, args, err := psql.Update("example_repositories").
			Set("source_url", repo.SourceURL).
			Set("default_branch", repo.DefaultBranch).
			Set("visibility", repo.Visibility).
			Set("access_credentials", repo.AccessCredentials).
			Where(sq.Eq{"id": repo.ID}).ToSql()
		if err != nil {
			return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build update repository query")
		}
		if _, err := s.pool.Exec(ctx, q, args...); err != nil {
			return 0, cerrors.Wrap(cerrors.KindProviderTransient, err, "update example repository")
		}
		return repo.ID, nil
	}

	q, args, err := psql.Insert("example_repositories").
		Columns("source_type", "source_url", "default_branch", "visibility", "access_credentials").
		Values(repo.SourceType, repo.SourceURL, repo.DefaultBranch, repo.Visibility, repo.AccessCredentials).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build insert repository query")
	}
	var id int64
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert example repository")
	}
	return id, nil
}

func (s *CatalogStore) UpsertExample(ctx context.Context, ex *catalog.Example) (int64, error) {
	tags := strings.Join(ex.Tags, ",")
	if ex.ID != 0 {
		q, args, err := psql.Update("examples").
			Set("title", ex.Title).
			Set("description", ex.Description).
			Set("subject", ex.Subject).
			Set("tags", tags).
			Where(sq.Eq{"id": ex.ID}).ToSql()
		if err != nil {
			return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build update example query")
		}
		if _, err := s.pool.Exec(ctx, q, args...); err != nil {
			return 0, cerrors.Wrap(cerrors.KindProviderTransient, err, "update example")
		}
		return ex.ID, nil
	}

	// (repository_id, identifier) unique (spec.md §4.3): a conflict here
	// surfaces as KindConflict, letting the Catalog Synchronizer decide
	// whether to adopt the existing row instead of failing ingestion.
	q, args, err := psql.Insert("examples").
		Columns("repository_id", "directory", "identifier", "title", "description", "subject", "tags").
		Values(ex.RepositoryID, ex.Directory, ex.Identifier, ex.Title, ex.Description, ex.Subject, tags).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build insert example query")
	}
	var id int64
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert example (identifier must be unique per repository)")
	}
	return id, nil
}

func (s *CatalogStore) CreateVersion(ctx context.Context, v *catalog.ExampleVersion) (int64, error) {
	q, args, err := psql.Insert("example_versions").
		Columns("example_id", "version_tag", "version_number", "storage_path", "meta", "content_hash").
		Values(v.ExampleID, v.VersionTag, v.VersionNumber, v.StoragePath, v.MetaYAML, v.ContentHash).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build create version query")
	}
	var id int64
	if err := s.pool.QueryRow(ctx, q, args...).Scan(&id, &v.CreatedAt); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert example version (version_tag must be unique per example)")
	}
	v.ID = id
	return id, nil
}

// ReplaceDependencies atomically swaps exampleID's dependency rows for
// deps, used by the Catalog Synchronizer when re-ingesting an example
// whose testDependencies changed (spec.md §4.3 "reconcile ExampleDependency
// rows from testDependencies"). Cycle detection happens in the caller
// (internal/catalog.WouldCreateCycle, checked per new edge) before this
// is invoked, so every row
// written here is already known acyclic.
func (s *CatalogStore) ReplaceDependencies(ctx context.Context, exampleID int64, deps []*catalog.ExampleDependency) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "begin replace-dependencies transaction")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	delQ, delArgs, err := psql.Delete("example_dependencies").Where(sq.Eq{"example_id": exampleID}).ToSql()
	if err != nil {
		return cerrors.Wrap(cerrors.KindIntegrity, err, "build delete dependencies query")
	}
	if _, err := tx.Exec(ctx, delQ, delArgs...); err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "delete existing dependencies")
	}

	for _, d := range deps {
		insQ, insArgs, err := psql.Insert("example_dependencies").
			Columns("example_id", "depends_id", "version_constraint").
			Values(exampleID, d.DependsID, d.VersionConstraint).
			ToSql()
		if err != nil {
			return cerrors.Wrap(cerrors.KindIntegrity, err, "build insert dependency query")
		}
		if _, err := tx.Exec(ctx, insQ, insArgs...); err != nil {
			return cerrors.Wrap(cerrors.KindConflict, err, "insert example dependency")
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "commit replace-dependencies transaction")
	}
	return nil
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
