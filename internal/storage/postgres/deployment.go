package postgres

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/computor-org/cpsto/internal/cerrors"
)

// GetDeploymentByContent loads the CourseContentDeployment 1:1 with
// courseContentID, or KindNotFound if the content has none (spec.md §3:
// "database-level rule forbids existence for non-submittable content").
func (db *DB) GetDeploymentByContent(ctx context.Context, courseContentID int64) (*CourseContentDeployment, error) {
	q, args, err := psql.Select("id", "course_content_id", "example_version_id", "status",
		"deployed_at", "deployed_path", "workflow_id", "last_deployment_metadata").
		From("course_content_deployments").
		Where(sq.Eq{"course_content_id": courseContentID}).
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build get deployment query")
	}
	var d CourseContentDeployment
	err = db.pool.QueryRow(ctx, q, args...).Scan(&d.ID, &d.CourseContentID, &d.ExampleVersionID, &d.Status,
		&d.DeployedAt, &d.DeployedPath, &d.WorkflowID, &d.LastDeploymentMetadata)
	if err == pgx.ErrNoRows {
		return nil, cerrors.Newf(cerrors.KindNotFound, "no deployment for course content %d", courseContentID)
	}
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "get deployment")
	}
	return &d, nil
}

// AssignDeployment creates the CourseContentDeployment row the first time
// a submittable CourseContent is bound to an ExampleVersion (status
// "assigned"), recording a DeploymentHistory row in the same call so the
// invariant "at least one action per observable state change" (spec.md
// §8) holds regardless of caller.
func (db *DB) AssignDeployment(ctx context.Context, courseContentID, exampleVersionID int64, actor string) (int64, error) {
	q, args, err := psql.Insert("course_content_deployments").
		Columns("course_content_id", "example_version_id", "status").
		Values(courseContentID, exampleVersionID, StatusAssigned).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, cerrors.Wrap(cerrors.KindIntegrity, err, "build assign deployment query")
	}
	var id int64
	if err := db.pool.QueryRow(ctx, q, args...).Scan(&id); err != nil {
		return 0, cerrors.Wrap(cerrors.KindConflict, err, "insert course content deployment")
	}
	if err := db.recordHistory(ctx, id, ActionAssigned, &exampleVersionID, "", actor, nil); err != nil {
		return id, err
	}
	return id, nil
}

// TransitionDeployment moves a deployment to a new status, sets
// workflow-specific fields as provided, and appends the matching
// DeploymentHistory row. AD and the catalog-sync-driven
// RefreshDeploymentStatus change status only through this method
// (AssignDeployment writes its own history row when it creates a
// deployment), so DeploymentHistory never silently skips a transition
// (SPEC_FULL.md SUPPLEMENTED FEATURES).
func (db *DB) TransitionDeployment(ctx context.Context, deploymentID int64, status DeploymentStatus, action HistoryAction,
	exampleVersionID *int64, workflowID, deployedPath string, metadata json.RawMessage, actor string) error {

	upd := psql.Update("course_content_deployments").
		Set("status", status).
		Where(sq.Eq{"id": deploymentID})
	if exampleVersionID != nil {
		upd = upd.Set("example_version_id", *exampleVersionID)
	}
	if workflowID != "" {
		upd = upd.Set("workflow_id", workflowID)
	}
	if deployedPath != "" {
		upd = upd.Set("deployed_path", deployedPath)
	}
	if metadata != nil {
		upd = upd.Set("last_deployment_metadata", metadata)
	}
	if status == StatusDeployed {
		upd = upd.Set("deployed_at", time.Now().UTC())
	}

	q, args, err := upd.ToSql()
	if err != nil {
		return cerrors.Wrap(cerrors.KindIntegrity, err, "build transition deployment query")
	}
	if _, err := db.pool.Exec(ctx, q, args...); err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "transition deployment")
	}
	return db.recordHistory(ctx, deploymentID, action, exampleVersionID, workflowID, actor, metadata)
}

// recordHistory is the shared append-only insert behind AssignDeployment
// and TransitionDeployment, so every status change they make leaves a
// DeploymentHistory row (SPEC_FULL.md SUPPLEMENTED FEATURES).
func (db *DB) recordHistory(ctx context.Context, deploymentID int64, action HistoryAction, exampleVersionID *int64, workflowID, actor string, details json.RawMessage) error {
	q, args, err := psql.Insert("deployment_history").
		Columns("deployment_id", "action", "example_version_id", "workflow_id", "actor", "created_at", "details").
		Values(deploymentID, action, exampleVersionID, workflowID, actor, time.Now().UTC(), details).
		ToSql()
	if err != nil {
		return cerrors.Wrap(cerrors.KindIntegrity, err, "build record history query")
	}
	if _, err := db.pool.Exec(ctx, q, args...); err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "record deployment history")
	}
	return nil
}

// ListHistory returns every DeploymentHistory row for deploymentID in
// creation order, the append-only audit trail spec.md §3 requires.
func (db *DB) ListHistory(ctx context.Context, deploymentID int64) ([]*DeploymentHistory, error) {
	q, args, err := psql.Select("id", "deployment_id", "action", "example_version_id", "workflow_id", "actor", "created_at", "details").
		From("deployment_history").
		Where(sq.Eq{"deployment_id": deploymentID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "build list history query")
	}
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "list deployment history")
	}
	defer rows.Close()

	var out []*DeploymentHistory
	for rows.Next() {
		var h DeploymentHistory
		if err := rows.Scan(&h.ID, &h.DeploymentID, &h.Action, &h.ExampleVersionID, &h.WorkflowID, &h.Actor, &h.CreatedAt, &h.Details); err != nil {
			return nil, cerrors.Wrap(cerrors.KindIntegrity, err, "scan history row")
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

// RefreshDeploymentStatus implements the design decision resolving
// spec.md's catalog-mutation Open Question (DESIGN.md #3): after an
// ExampleVersion insert or delete, mark every "deployed" deployment of
// exampleID bound to a version other than newestVersionID "outdated" (a
// newer version now exists) or, if deletedVersionID is set, mark every
// deployment bound to that version "orphaned" (the bound version was
// removed).
// Actual redeployment remains an explicit GenerateAssignments call.
func (db *DB) RefreshDeploymentStatus(ctx context.Context, exampleID int64, newestVersionID int64, deletedVersionID *int64) error {
	if deletedVersionID != nil {
		q, args, err := psql.Select("id").From("course_content_deployments").
			Where(sq.Eq{"example_version_id": *deletedVersionID}).ToSql()
		if err != nil {
			return cerrors.Wrap(cerrors.KindIntegrity, err, "build orphan-scan query")
		}
		rows, err := db.pool.Query(ctx, q, args...)
		if err != nil {
			return cerrors.Wrap(cerrors.KindProviderTransient, err, "scan for orphaned deployments")
		}
		var ids []int64
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return cerrors.Wrap(cerrors.KindIntegrity, err, "scan orphan candidate row")
			}
			ids = append(ids, id)
		}
		rows.Close()
		for _, id := range ids {
			if err := db.TransitionDeployment(ctx, id, StatusOrphaned, ActionOrphaned, deletedVersionID, "", "", nil, "catalog-sync"); err != nil {
				return err
			}
		}
		return nil
	}

	q, args, err := psql.Select("ccd.id").
		From("course_content_deployments ccd").
		Join("example_versions ev ON ev.id = ccd.example_version_id").
		Where(sq.And{
			sq.Eq{"ev.example_id": exampleID},
			sq.NotEq{"ccd.example_version_id": newestVersionID},
			sq.Eq{"ccd.status": StatusDeployed},
		}).ToSql()
	if err != nil {
		return cerrors.Wrap(cerrors.KindIntegrity, err, "build outdated-scan query")
	}
	rows, err := db.pool.Query(ctx, q, args...)
	if err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "scan for outdated deployments")
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return cerrors.Wrap(cerrors.KindIntegrity, err, "scan outdated candidate row")
		}
		ids = append(ids, id)
	}
	rows.Close()
	for _, id := range ids {
		if err := db.TransitionDeployment(ctx, id, StatusOutdated, ActionOutdated, nil, "", "", nil, "catalog-sync"); err != nil {
			return err
		}
	}
	return nil
}
