// Package hierarchy implements the Hierarchy Provisioner (HP, spec.md
// §4.6): the DeployHierarchy workflow and its CreateOrganization,
// CreateCourseFamily, and CreateCourse activities, adapting the
// teacher's Observe/Create reconcile idiom (pkg/controller/groups/group.go)
// into Temporal activities instead of a controller-runtime reconcile loop.
package hierarchy

import (
	"context"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/computor-org/cpsto/internal/gitlabhost"
	"github.com/computor-org/cpsto/internal/storage/postgres"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

// OrganizationConfig is the organization stanza of spec.md §6's
// declarative deployment YAML.
type OrganizationConfig struct {
	Path        string
	Name        string
	Description string
	GitlabURL   string
	GitlabToken string
	ParentGroup int
}

// CourseFamilyConfig is the courseFamily stanza.
type CourseFamilyConfig struct {
	Path        string
	Name        string
	Description string
}

// CourseConfig is the course stanza. A non-empty SourceURL only makes
// CreateCourse create the assignments project without an initial README;
// nothing is imported from SourceURL.
type CourseConfig struct {
	Path         string
	Name         string
	Description  string
	SourceURL    string
}

// DeployHierarchyInput is the parsed form of spec.md §6's single YAML
// input to DeployHierarchy.
type DeployHierarchyInput struct {
	Organization OrganizationConfig
	CourseFamily CourseFamilyConfig
	Course       CourseConfig
}

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: dwe.TimeoutProviderActivity,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    5 * time.Minute,
		MaximumAttempts:    5,
	},
}

// DeployHierarchyWorkflow is spec.md §4.6's parent workflow: it invokes
// CreateOrganization, CreateCourseFamily, and CreateCourse in dependency
// order under a single workflow id for status queries.
func DeployHierarchyWorkflow(ctx workflow.Context, input DeployHierarchyInput) (int64, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	var a *Activities

	var orgID int64
	if err := workflow.ExecuteActivity(ctx, a.CreateOrganization, input.Organization).Get(ctx, &orgID); err != nil {
		return 0, err
	}
	var familyID int64
	if err := workflow.ExecuteActivity(ctx, a.CreateCourseFamily, input.CourseFamily, orgID).Get(ctx, &familyID); err != nil {
		return 0, err
	}
	var courseID int64
	if err := workflow.ExecuteActivity(ctx, a.CreateCourse, input.Course, familyID).Get(ctx, &courseID); err != nil {
		return 0, err
	}
	return courseID, nil
}

// Activities groups the DB handle and GitLab client every HP activity
// needs; Temporal registers its exported methods as activities.
type Activities struct {
	DB  *postgres.DB
	Git *gitlab.Client
}

// CreateOrganization validates cfg.Path, upserts the DB row, ensures the
// provider group exists, and writes back gitlab_properties — spec.md
// §4.6's state machine Planned→DBCreated→ProviderCreated→Ready, collapsed
// into one activity since Temporal already checkpoints each step (a
// retried activity resumes from EnsureGroup's own idempotent lookup, not
// from a separately persisted intermediate state).
func (a *Activities) CreateOrganization(ctx context.Context, cfg OrganizationConfig) (int64, error) {
	orgID, err := a.DB.UpsertOrganization(ctx, &postgres.Organization{Path: cfg.Path})
	if err != nil {
		return 0, err
	}

	props, err := gitlabhost.EnsureGroup(ctx, a.Git, gitlabhost.GroupParams{
		Name:          cfg.Name,
		Path:          cfg.Path,
		ParentGroupID: cfg.ParentGroup,
		Visibility:    gitlab.VisibilityValue("private"),
	})
	if err != nil {
		return 0, err
	}

	if _, err := a.DB.UpsertOrganization(ctx, &postgres.Organization{ID: orgID, Path: cfg.Path, GitlabProperties: props}); err != nil {
		return 0, err
	}
	return orgID, nil
}

// CreateCourseFamily requires org.gitlab_properties.group_id to already
// be present (spec.md §4.6) and creates the corresponding subgroup.
func (a *Activities) CreateCourseFamily(ctx context.Context, cfg CourseFamilyConfig, orgID int64) (int64, error) {
	org, err := a.DB.GetOrganization(ctx, orgID)
	if err != nil {
		return 0, err
	}

	familyID, err := a.DB.UpsertCourseFamily(ctx, &postgres.CourseFamily{OrganizationID: orgID, Path: cfg.Path})
	if err != nil {
		return 0, err
	}

	props, err := gitlabhost.EnsureGroup(ctx, a.Git, gitlabhost.GroupParams{
		Name:          cfg.Name,
		Path:          org.Path + "/" + cfg.Path,
		ParentGroupID: org.GitlabProperties.GroupID,
		Visibility:    gitlab.VisibilityValue("private"),
	})
	if err != nil {
		return 0, err
	}

	return a.DB.UpsertCourseFamily(ctx, &postgres.CourseFamily{ID: familyID, OrganizationID: orgID, Path: cfg.Path, GitlabProperties: props})
}

// CreateCourse provisions the course subgroup, the three per-course
// projects (assignments, student-template, reference), and the students/
// tutors membership subgroups (spec.md §4.6). The subgroups are created
// empty; no access level is granted to them on the course projects.
func (a *Activities) CreateCourse(ctx context.Context, cfg CourseConfig, familyID int64) (int64, error) {
	family, err := a.DB.GetCourseFamily(ctx, familyID)
	if err != nil {
		return 0, err
	}
	org, err := a.DB.GetOrganization(ctx, family.OrganizationID)
	if err != nil {
		return 0, err
	}

	courseID, err := a.DB.UpsertCourse(ctx, &postgres.Course{CourseFamilyID: familyID, Path: cfg.Path})
	if err != nil {
		return 0, err
	}

	courseGroup, err := gitlabhost.EnsureGroup(ctx, a.Git, gitlabhost.GroupParams{
		Name:          cfg.Name,
		Path:          org.Path + "/" + family.Path + "/" + cfg.Path,
		ParentGroupID: family.GitlabProperties.GroupID,
		Visibility:    gitlab.VisibilityValue("private"),
	})
	if err != nil {
		return 0, err
	}

	assignments, err := gitlabhost.EnsureProject(ctx, a.Git, gitlabhost.ProjectParams{
		Kind: gitlabhost.ProjectAssignments, Name: "assignments", Path: "assignments",
		NamespaceID: courseGroup.GroupID, Initialize: cfg.SourceURL == "",
	})
	if err != nil {
		return 0, err
	}
	studentTemplate, err := gitlabhost.EnsureProject(ctx, a.Git, gitlabhost.ProjectParams{
		Kind: gitlabhost.ProjectStudentTemplate, Name: "student-template", Path: "student-template",
		NamespaceID: courseGroup.GroupID, Initialize: true,
	})
	if err != nil {
		return 0, err
	}
	reference, err := gitlabhost.EnsureProject(ctx, a.Git, gitlabhost.ProjectParams{
		Kind: gitlabhost.ProjectReference, Name: "reference", Path: "reference",
		NamespaceID: courseGroup.GroupID, Initialize: true,
	})
	if err != nil {
		return 0, err
	}

	students, err := gitlabhost.EnsureGroup(ctx, a.Git, gitlabhost.GroupParams{
		Name: "students", Path: "students", ParentGroupID: courseGroup.GroupID, Visibility: gitlab.VisibilityValue("private"),
	})
	if err != nil {
		return 0, err
	}
	tutors, err := gitlabhost.EnsureGroup(ctx, a.Git, gitlabhost.GroupParams{
		Name: "tutors", Path: "tutors", ParentGroupID: courseGroup.GroupID, Visibility: gitlab.VisibilityValue("private"),
	})
	if err != nil {
		return 0, err
	}

	return a.DB.UpsertCourse(ctx, &postgres.Course{
		ID:                       courseID,
		CourseFamilyID:           familyID,
		Path:                     cfg.Path,
		GitlabProperties:         courseGroup,
		AssignmentsProjectID:     assignments.ProjectID,
		StudentTemplateProjectID: studentTemplate.ProjectID,
		ReferenceProjectID:       reference.ProjectID,
		StudentsGroupID:          students.GroupID,
		TutorsGroupID:            tutors.GroupID,
	})
}
