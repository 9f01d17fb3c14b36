// Package postgres is the durable store backing spec.md §3's data model:
// the Organization → CourseFamily → Course → CourseContent hierarchy, its
// deployments and history, and a catalog.Store implementation over the
// same database. Rows are read and written with github.com/jackc/pgx/v5
// and built with github.com/Masterminds/squirrel, matching the pack's
// jackc/pgx + squirrel pairing (other_examples/manifests/compozy-compozy).
package postgres

import (
	"encoding/json"
	"time"

	"github.com/computor-org/cpsto/internal/gitlabhost"
	"github.com/computor-org/cpsto/internal/pathalg"
)

// Organization is spec.md §3's Organization entity: the root of the
// Organization → CourseFamily → Course hierarchy.
type Organization struct {
	ID               int64               `db:"id"`
	Path             string              `db:"path" validate:"required,label"`
	GitlabProperties *gitlabhost.Properties `db:"gitlab_properties"`
	ArchivedAt       *time.Time          `db:"archived_at"`
}

// CourseFamily is spec.md §3's CourseFamily entity. Unique (organization_id, path).
type CourseFamily struct {
	ID               int64                  `db:"id"`
	OrganizationID   int64                  `db:"organization_id" validate:"required"`
	Path             string                 `db:"path" validate:"required,label"`
	GitlabProperties *gitlabhost.Properties `db:"gitlab_properties"`
}

// Course is spec.md §3's Course entity. Holds the three provisioned
// project ids (assignments/student-template/reference) and the two
// membership subgroup ids as plain integer columns; GitlabProperties
// holds the course group's own provider record.
type Course struct {
	ID                      int64                  `db:"id"`
	CourseFamilyID          int64                  `db:"course_family_id" validate:"required"`
	Path                    string                 `db:"path" validate:"required,label"`
	GitlabProperties        *gitlabhost.Properties `db:"gitlab_properties"`
	AssignmentsProjectID    int                    `db:"assignments_project_id"`
	StudentTemplateProjectID int                   `db:"student_template_project_id"`
	ReferenceProjectID      int                    `db:"reference_project_id"`
	StudentsGroupID         int                    `db:"students_group_id"`
	TutorsGroupID           int                    `db:"tutors_group_id"`
}

// ContentKind enumerates CourseContent.Kind.
type ContentKind string

const (
	ContentUnit       ContentKind = "unit"
	ContentAssignment ContentKind = "assignment"
)

// CourseContent is spec.md §3's CourseContent entity: forms a tree by
// Path (an ordered-label path, internal/pathalg.Path). Only
// Submittable content may carry a CourseContentDeployment.
type CourseContent struct {
	ID               int64       `db:"id"`
	CourseID         int64       `db:"course_id" validate:"required"`
	Path             pathalg.Path `db:"path"`
	Kind             ContentKind `db:"kind" validate:"required,oneof=unit assignment"`
	Submittable      bool        `db:"submittable"`
	ExampleID        *int64      `db:"example_id"`
	ExampleVersionID *int64      `db:"example_version_id"`
}

// DeploymentStatus enumerates CourseContentDeployment.Status.
type DeploymentStatus string

const (
	StatusPending    DeploymentStatus = "pending"
	StatusAssigned   DeploymentStatus = "assigned"
	StatusDeploying  DeploymentStatus = "deploying"
	StatusDeployed   DeploymentStatus = "deployed"
	StatusFailed     DeploymentStatus = "failed"
	StatusOrphaned   DeploymentStatus = "orphaned"
	StatusOutdated   DeploymentStatus = "outdated"
	StatusUnassigned DeploymentStatus = "unassigned"
)

// CourseContentDeployment is spec.md §3's CourseContentDeployment entity,
// 1:1 with a submittable CourseContent.
type CourseContentDeployment struct {
	ID                      int64            `db:"id"`
	CourseContentID         int64            `db:"course_content_id" validate:"required"`
	ExampleVersionID        *int64           `db:"example_version_id"`
	Status                  DeploymentStatus `db:"status" validate:"required"`
	DeployedAt              *time.Time       `db:"deployed_at"`
	DeployedPath            string           `db:"deployed_path"`
	WorkflowID              string           `db:"workflow_id"`
	LastDeploymentMetadata  json.RawMessage  `db:"last_deployment_metadata"`
}

// HistoryAction enumerates DeploymentHistory.Action.
type HistoryAction string

const (
	ActionAssigned     HistoryAction = "assigned"
	ActionUnassigned   HistoryAction = "unassigned"
	ActionDeployStart  HistoryAction = "deploy_started"
	ActionDeployed     HistoryAction = "deployed"
	ActionFailed       HistoryAction = "failed"
	ActionOutdated     HistoryAction = "outdated"
	ActionOrphaned     HistoryAction = "orphaned"
)

// DeploymentHistory is spec.md §3's append-only DeploymentHistory entity:
// the read model recording "at least one action per observable state
// change" (spec.md §8), regardless of which workflow caused the
// transition (SPEC_FULL.md SUPPLEMENTED FEATURES).
type DeploymentHistory struct {
	ID               int64           `db:"id"`
	DeploymentID     int64           `db:"deployment_id" validate:"required"`
	Action           HistoryAction   `db:"action" validate:"required"`
	ExampleVersionID *int64          `db:"example_version_id"`
	WorkflowID       string          `db:"workflow_id"`
	Actor            string          `db:"actor"`
	CreatedAt        time.Time       `db:"created_at"`
	Details          json.RawMessage `db:"details"`
}
