package gitlabhost

import (
	"context"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/computor-org/cpsto/internal/cerrors"
)

const errMemberNotFound = "404 Group Member Not Found"

func isMemberNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), errMemberNotFound)
}

// Role is the CPSTO-level access role; spec.md §4.4 maps it onto GitLab's
// access levels as {reporter=read, developer=read-write, maintainer=admin}.
type Role string

const (
	RoleReadOnly  Role = "read_only"
	RoleReadWrite Role = "read_write"
	RoleAdmin     Role = "admin"
)

func (r Role) accessLevel() gitlab.AccessLevelValue {
	switch r {
	case RoleReadOnly:
		return gitlab.ReporterPermissions
	case RoleReadWrite:
		return gitlab.DeveloperPermissions
	case RoleAdmin:
		return gitlab.MaintainerPermissions
	default:
		return gitlab.ReporterPermissions
	}
}

// SetMemberAccess adds userID to the group gid at role, or edits its
// existing membership if one is already present, matching the teacher's
// GenerateAddGroupMemberOptions/GenerateEditGroupMemberOptions split in
// pkg/clients/groups/groupmember.go but collapsed into one idempotent call.
func SetMemberAccess(ctx context.Context, cl *gitlab.Client, gid interface{}, userID int, role Role) error {
	level := role.accessLevel()

	_, _, err := cl.GroupMembers.GetGroupMember(gid, userID, nil, gitlab.WithContext(ctx))
	switch {
	case err == nil:
		_, _, err = cl.GroupMembers.EditGroupMember(gid, userID, &gitlab.EditGroupMemberOptions{
			AccessLevel: &level,
		}, gitlab.WithContext(ctx))
		if err != nil {
			return cerrors.Wrap(cerrors.KindProviderTransient, err, "edit group member access")
		}
		return nil
	case isMemberNotFound(err):
		_, _, err = cl.GroupMembers.AddGroupMember(gid, &gitlab.AddGroupMemberOptions{
			UserID:      &userID,
			AccessLevel: &level,
		}, gitlab.WithContext(ctx))
		if err != nil {
			if provErr, ok := asProviderAuthError(err); ok {
				return provErr
			}
			return cerrors.Wrap(cerrors.KindProviderTransient, err, "add group member")
		}
		return nil
	default:
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "lookup group member")
	}
}

// RemoveMember revokes userID's access to gid entirely; a membership that
// is already absent is not an error.
func RemoveMember(ctx context.Context, cl *gitlab.Client, gid interface{}, userID int) error {
	_, err := cl.GroupMembers.RemoveGroupMember(gid, userID, nil, gitlab.WithContext(ctx))
	if err != nil && !isMemberNotFound(err) {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, "remove group member")
	}
	return nil
}
