package gitlabhost

import (
	"context"
	"strings"
	"time"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/computor-org/cpsto/internal/cerrors"
)

const errProjectNotFound = "404 Project Not Found"

func isProjectNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), errProjectNotFound)
}

// ProjectKind names the three per-course projects spec.md §4.6 requires
// CreateCourse to provision.
type ProjectKind string

const (
	ProjectAssignments    ProjectKind = "assignments"
	ProjectStudentTemplate ProjectKind = "student-template"
	ProjectReference      ProjectKind = "reference"
)

// ProjectParams is the minimal shape EnsureProject needs.
type ProjectParams struct {
	Kind            ProjectKind
	Name            string
	Path            string
	NamespaceID     int
	Initialize      bool // seed with an empty README commit (spec.md §4.6)
	CachedProjectID int
}

// EnsureProject implements the same lookup-by-cached-id-then-path,
// create-or-adopt idempotency EnsureGroup implements for groups, adapted
// from the teacher's pkg/clients/projects.Client/LateInitialize pattern.
func EnsureProject(ctx context.Context, cl *gitlab.Client, p ProjectParams) (*Properties, error) {
	if p.CachedProjectID != 0 {
		proj, _, err := cl.Projects.GetProject(p.CachedProjectID, nil, gitlab.WithContext(ctx))
		if err == nil {
			return projectProperties(proj), nil
		}
		if !isProjectNotFound(err) {
			return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "lookup project by cached id")
		}
	}

	full := p.Path
	proj, _, err := cl.Projects.GetProject(full, nil, gitlab.WithContext(ctx))
	if err == nil {
		return projectProperties(proj), nil
	}
	if !isProjectNotFound(err) {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "lookup project by path")
	}

	initReadme := p.Initialize
	opt := &gitlab.CreateProjectOptions{
		Name:                 &p.Name,
		Path:                 &p.Path,
		NamespaceID:          &p.NamespaceID,
		InitializeWithReadme: &initReadme,
	}
	created, _, err := cl.Projects.CreateProject(opt, gitlab.WithContext(ctx))
	if err != nil {
		if provErr, ok := asProviderAuthError(err); ok {
			return nil, provErr
		}
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "create project "+string(p.Kind))
	}
	return projectProperties(created), nil
}

func projectProperties(proj *gitlab.Project) *Properties {
	return &Properties{
		ProjectID:    proj.ID,
		NamespaceID:  proj.Namespace.ID,
		WebURL:       proj.WebURL,
		FullPath:     proj.PathWithNamespace,
		LastSyncedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
