package postgres

import (
	"context"
	"encoding/json"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/computor-org/cpsto/internal/cerrors"
	"github.com/computor-org/cpsto/internal/gitlabhost"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func marshalProps(p *gitlabhost.Properties) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

func unmarshalProps(raw []byte) (*gitlabhost.Properties, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var p gitlabhost.Properties
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertOrganization inserts org if new (ID == 0), or updates its cached
// gitlab_properties and archival state otherwise — HP's CreateOrganization
// activity calls this after EnsureGroup confirms the provider-side group
// (spec.md §4.6).
func (db *DB) UpsertOrganization(ctx context.Context, org *Organization) (int64, error) {
	if err := db.validate.Struct(org); err != nil {
		return 0, cerrors.Wrap(cerrors.KindValidation, err, "validate organization")
	}
	props, err := marshalProps(org.GitlabProperties)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "marshal gitlab properties")
	}

	if org.ID != 0 {
		q, args, err := psql.Update("organizations").
			Set("gitlab_properties", props).
			Set("archived_at", org.ArchivedAt).
			Where(sq.Eq{"id": org.ID}).
			ToSql()
		if err != nil {
			return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build update organization query")
		}
		if _, err := db.pool.Exec(ctx, q, args...); err != nil {
			return 0, cerrors.Wrap(cerrors.KindProviderTransient, err, "update organization")
		}
		return org.ID, nil
	}

	q, args, err := psql.Insert("organizations").
		Columns("path", "gitlab_properties").
		Values(org.Path, props).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build insert organization query")
	}
	var id int64
	if err := db.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert organization")
	}
	return id, nil
}

// GetOrganization loads an Organization by id, or KindNotFound if absent.
func (db *DB) GetOrganization(ctx context.Context, id int64) (*Organization, error) {
	q, args, err := psql.Select("id", "path", "gitlab_properties", "archived_at").
		From("organizations").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build get organization query")
	}
	var org Organization
	var props []byte
	err = db.pool.QueryRow(ctx, q, args...).Scan(&org.ID, &org.Path, &props, &org.ArchivedAt)
	if err == pgx.ErrNoRows {
		return nil, cerrors.Newf(cerrors.KindNotFound, "organization %d not found", id)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "get organization")
	}
	if org.GitlabProperties, err = unmarshalProps(props); err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "unmarshal gitlab properties")
	}
	return &org, nil
}

// UpsertCourseFamily enforces the unique (organization_id, path) invariant
// (spec.md §3) via the database's own unique index; a violation surfaces
// as KindConflict.
func (db *DB) UpsertCourseFamily(ctx context.Context, cf *CourseFamily) (int64, error) {
	if err := db.validate.Struct(cf); err != nil {
		return 0, cerrors.Wrap(cerrors.KindValidation, err, "validate course family")
	}
	props, err := marshalProps(cf.GitlabProperties)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "marshal gitlab properties")
	}

	if cf.ID != 0 {
		q, args, err := psql.Update("course_families").
			Set("gitlab_properties", props).
			Where(sq.Eq{"id": cf.ID}).ToSql()
		if err != nil {
			return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build update course family query")
		}
		if _, err := db.pool.Exec(ctx, q, args...); err != nil {
			return 0, cerrors.Wrap(cerrors.KindProviderTransient, err, "update course family")
		}
		return cf.ID, nil
	}

	q, args, err := psql.Insert("course_families").
		Columns("organization_id", "path", "gitlab_properties").
		Values(cf.OrganizationID, cf.Path, props).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build insert course family query")
	}
	var id int64
	if err := db.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert course family")
	}
	return id, nil
}

// GetCourseFamily loads a CourseFamily by id, or KindNotFound if absent —
// HP's CreateCourse activity uses this to resolve the parent group id the
// course's own GitLab group must nest under (spec.md §4.6).
func (db *DB) GetCourseFamily(ctx context.Context, id int64) (*CourseFamily, error) {
	q, args, err := psql.Select("id", "organization_id", "path", "gitlab_properties").
		From("course_families").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build get course family query")
	}
	var cf CourseFamily
	var props []byte
	err = db.pool.QueryRow(ctx, q, args...).Scan(&cf.ID, &cf.OrganizationID, &cf.Path, &props)
	if err == pgx.ErrNoRows {
		return nil, cerrors.Newf(cerrors.KindNotFound, "course family %d not found", id)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "get course family")
	}
	if cf.GitlabProperties, err = unmarshalProps(props); err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "unmarshal gitlab properties")
	}
	return &cf, nil
}

// UpsertCourse enforces spec.md §3's "unique within its family" invariant
// and records the three per-course project ids plus the two membership
// subgroup ids HP's CreateCourse activity provisions.
func (db *DB) UpsertCourse(ctx context.Context, c *Course) (int64, error) {
	if err := db.validate.Struct(c); err != nil {
		return 0, cerrors.Wrap(cerrors.KindValidation, err, "validate course")
	}
	props, err := marshalProps(c.GitlabProperties)
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "marshal gitlab properties")
	}

	if c.ID != 0 {
		q, args, err := psql.Update("courses").
			Set("gitlab_properties", props).
			Set("assignments_project_id", c.AssignmentsProjectID).
			Set("student_template_project_id", c.StudentTemplateProjectID).
			Set("reference_project_id", c.ReferenceProjectID).
			Set("students_group_id", c.StudentsGroupID).
			Set("tutors_group_id", c.TutorsGroupID).
			Where(sq.Eq{"id": c.ID}).ToSql()
		if err != nil {
			return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build update course query")
		}
		if _, err := db.pool.Exec(ctx, q, args...); err != nil {
			return 0, cerrors.Wrap(cerrors.KindProviderTransient, err, "update course")
		}
		return c.ID, nil
	}

	q, args, err := psql.Insert("courses").
		Columns("course_family_id", "path", "gitlab_properties",
			"assignments_project_id", "student_template_project_id", "reference_project_id",
			"students_group_id", "tutors_group_id").
		Values(c.CourseFamilyID, c.Path, props,
			c.AssignmentsProjectID, c.StudentTemplateProjectID, c.ReferenceProjectID,
			c.StudentsGroupID, c.TutorsGroupID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build insert course query")
	}
	var id int64
	if err := db.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert course")
	}
	return id, nil
}

// UpsertCourseContent inserts or updates a CourseContent row. The
// "parents exist if nlevel(path)>1" invariant (spec.md §3) is enforced by
// a database constraint (a trigger checking the parent path exists), not
// here — this method only shapes the SQL.
func (db *DB) UpsertCourseContent(ctx context.Context, cc *CourseContent) (int64, error) {
	if err := db.validate.Struct(cc); err != nil {
		return 0, cerrors.Wrap(cerrors.KindValidation, err, "validate course content")
	}
	if cc.ID != 0 {
		q, args, err := psql.Update("course_contents").
			Set("kind", cc.Kind).
			Set("submittable", cc.Submittable).
			Set("example_id", cc.ExampleID).
			Set("example_version_id", cc.ExampleVersionID).
			Where(sq.Eq{"id": cc.ID}).ToSql()
		if err != nil {
			return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build update course content query")
		}
		if _, err := db.pool.Exec(ctx, q, args...); err != nil {
			return 0, cerrors.Wrap(cerrors.KindProviderTransient, err, "update course content")
		}
		return cc.ID, nil
	}

	q, args, err := psql.Insert("course_contents").
		Columns("course_id", "path", "kind", "submittable", "example_id", "example_version_id").
		Values(cc.CourseID, cc.Path, cc.Kind, cc.Submittable, cc.ExampleID, cc.ExampleVersionID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build insert course content query")
	}
	var id int64
	if err := db.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert course content")
	}
	return id, nil
}

// ListCourseContents returns every CourseContent under courseID, ordered
// by path so tree-structured callers (DP, TG) can rely on parents
// preceding their descendants.
func (db *DB) ListCourseContents(ctx context.Context, courseID int64) ([]*CourseContent, error) {
	q, args, err := psql.Select("id", "course_id", "path", "kind", "submittable", "example_id", "example_version_id").
		From("course_contents").
		Where(sq.Eq{"course_id": courseID}).
		OrderBy("path").
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build list course contents query")
	}
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "list course contents")
	}
	defer rows.Close()

	var out []*CourseContent
	for rows.Next() {
		var cc CourseContent
		if err := rows.Scan(&cc.ID, &cc.CourseID, &cc.Path, &cc.Kind, &cc.Submittable, &cc.ExampleID, &cc.ExampleVersionID); err != nil {
			return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "scan course content row")
		}
		out = append(out, &cc)
	}
	return out, rows.Err()
}
