package gitlabhost

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/computor-org/cpsto/internal/cerrors"
)

const errGroupNotFound = "404 Group Not Found"

// isGroupNotFound mirrors the teacher's groups.IsErrorGroupNotFound: the
// client-go library surfaces a 404 as a plain string inside the error, not
// a typed sentinel.
func isGroupNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), errGroupNotFound)
}

// GroupParams is the minimal shape EnsureGroup needs to create or adopt a
// GitLab group for an Organization, CourseFamily, or Course subgroup.
type GroupParams struct {
	Name           string
	Path           string
	ParentGroupID  int // 0 means top-level
	Visibility     gitlab.VisibilityValue
	CachedGroupID  int // from entity.gitlab_properties.group_id, 0 if unset
}

// EnsureGroup implements the idempotent half of spec.md §4.4: "creation
// first attempts a lookup by cached provider id, then by path; collisions
// adopt the existing resource and update cached metadata."
func EnsureGroup(ctx context.Context, cl *gitlab.Client, p GroupParams) (*Properties, error) {
	if p.CachedGroupID != 0 {
		grp, _, err := cl.Groups.GetGroup(p.CachedGroupID, nil, gitlab.WithContext(ctx))
		if err == nil {
			return groupProperties(grp), nil
		}
		if !isGroupNotFound(err) {
			return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "lookup group by cached id")
		}
		// cached id stale (group deleted out-of-band): fall through to
		// path lookup / create.
	}

	fullPath := p.Path
	grp, _, err := cl.Groups.GetGroup(fullPath, nil, gitlab.WithContext(ctx))
	if err == nil {
		return groupProperties(grp), nil
	}
	if !isGroupNotFound(err) {
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "lookup group by path")
	}

	// p.Path is the full lookup path; the new group's own path is its
	// last segment, nested under ParentGroupID.
	slug := p.Path
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	opt := &gitlab.CreateGroupOptions{
		Name:       &p.Name,
		Path:       &slug,
		Visibility: &p.Visibility,
	}
	if p.ParentGroupID != 0 {
		opt.ParentID = &p.ParentGroupID
	}
	created, _, err := cl.Groups.CreateGroup(opt, gitlab.WithContext(ctx))
	if err != nil {
		if provErr, ok := asProviderAuthError(err); ok {
			return nil, provErr
		}
		return nil, cerrors.Wrap(cerrors.KindProviderTransient, err, "create group")
	}
	return groupProperties(created), nil
}

func groupProperties(grp *gitlab.Group) *Properties {
	return &Properties{
		GroupID:      grp.ID,
		NamespaceID:  grp.ParentID,
		WebURL:       grp.WebURL,
		FullPath:     grp.FullPath,
		LastSyncedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// asProviderAuthError classifies a 401/403 response from the provider as
// cerrors.KindProviderAuth (non-retryable), matching spec.md §7's split
// between transient provider errors and authentication failures.
func asProviderAuthError(err error) (error, bool) {
	var gerr *gitlab.ErrorResponse
	if !errors.As(err, &gerr) {
		return nil, false
	}
	if gerr.Response == nil {
		return nil, false
	}
	switch gerr.Response.StatusCode {
	case 401, 403:
		return cerrors.Wrap(cerrors.KindProviderAuth, err, "gitlab provider rejected credentials"), true
	default:
		return nil, false
	}
}
