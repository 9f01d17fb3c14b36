package objectstore

import (
	"fmt"
	"strconv"

	"github.com/computor-org/cpsto/internal/pathalg"
)

// ObjectKey computes the addressing-convention key for a file belonging
// to a specific example version (spec.md §4.2/§6):
// repositories/{repository_id}/{example_id}/{version_tag}/{path-within-example}
func ObjectKey(repositoryID, exampleID int64, versionTag string, relPath string) string {
	return fmt.Sprintf("repositories/%s/%s/%s/%s",
		strconv.FormatInt(repositoryID, 10),
		strconv.FormatInt(exampleID, 10),
		versionTag,
		relPath,
	)
}

// VersionPrefix computes the key prefix for every file of one example
// version, used by ListObjects when deploying a whole version's tree.
func VersionPrefix(repositoryID, exampleID int64, versionTag string) string {
	return fmt.Sprintf("repositories/%s/%s/%s/",
		strconv.FormatInt(repositoryID, 10),
		strconv.FormatInt(exampleID, 10),
		versionTag,
	)
}

// DeployTargetPath computes the filesystem path a deployed example's
// files land under, relative to the assignments repository root:
// to_filesystem(course_content.path).
func DeployTargetPath(contentPath pathalg.Path) string {
	return contentPath.ToFilesystem()
}

// ImplicitDepPath computes the filesystem path implicit dependencies are
// deployed under (spec.md §4.8 step 3, Open Question #1 resolved in
// DESIGN.md): _deps/<example_identifier>/<version_tag>/.
func ImplicitDepPath(exampleIdentifier, versionTag string) string {
	return fmt.Sprintf("_deps/%s/%s", exampleIdentifier, versionTag)
}
