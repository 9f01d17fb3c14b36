// Package catalogsync implements the Catalog Synchronizer (CS, spec.md
// §4.10): ingestion of a multi-file upload grouped by top-level example
// directory into new Example/ExampleVersion/ExampleDependency rows and
// their backing objects in the Content Store Gateway.
package catalogsync

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/cerrors"
	"github.com/computor-org/cpsto/internal/metayaml"
	"github.com/computor-org/cpsto/internal/objectstore"
	"github.com/computor-org/cpsto/internal/pathalg"
	"github.com/computor-org/cpsto/internal/storage/postgres"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

// UploadFile is one file of the multi-file upload, already staged in the
// object store under a scratch key by the HTTP surface before this
// workflow runs (spec.md §6: the upload endpoint accepts the archive;
// ingestion itself is this workflow's job).
type UploadFile struct {
	Directory  string // top-level example directory this file belongs to
	RelPath    string // path within Directory
	Bucket     string
	ScratchKey string
	Size       int64
}

// Input is CatalogSync's argument: every file of one upload, grouped
// implicitly by UploadFile.Directory.
type Input struct {
	RepositoryID int64
	Files        []UploadFile
}

// DirectoryResult reports one directory's ingestion outcome, so a
// partial failure across many example directories in one upload is
// visible without aborting the others (mirroring AD's per-item
// isolation, spec.md §4.8, applied here to per-directory ingestion —
// spec.md §4.10 is silent on whether one bad directory should abort the
// whole upload, and aborting an entire multi-example upload over one
// malformed directory would be a harsh reading of "reject on any cycle
// or unknown slug", so each directory is isolated).
type DirectoryResult struct {
	Directory  string
	ExampleID  int64
	VersionID  int64
	VersionTag string
	Error      string
}

var activityOptions = workflow.ActivityOptions{
	StartToCloseTimeout: dwe.TimeoutRepositoryOp,
	HeartbeatTimeout:    dwe.HeartbeatInterval,
	RetryPolicy: &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    5 * time.Minute,
		MaximumAttempts:    5,
	},
}

// CatalogSyncWorkflow ingests every example directory of one upload.
func CatalogSyncWorkflow(ctx workflow.Context, input Input) ([]DirectoryResult, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	var a *Activities

	var results []DirectoryResult
	if err := workflow.ExecuteActivity(ctx, a.Ingest, input).Get(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Activities groups CS's dependencies.
type Activities struct {
	Catalog *postgres.CatalogStore
	Objects *objectstore.Client
	Bucket  string
}

// Ingest groups files by top-level directory, then ingests each
// directory that contains a meta.yaml in turn (spec.md §4.10).
func (a *Activities) Ingest(ctx context.Context, input Input) ([]DirectoryResult, error) {
	byDir, order := groupByDirectory(input.Files)

	var results []DirectoryResult
	for _, dir := range order {
		activity.RecordHeartbeat(ctx, dir)
		files := byDir[dir]
		if !hasMetaYAML(files) {
			continue // directories without meta.yaml are not examples (spec.md §4.10)
		}
		res := a.ingestDirectory(ctx, input.RepositoryID, dir, files)
		results = append(results, res)
	}
	return results, nil
}

// groupByDirectory groups files by UploadFile.Directory and returns the
// directories in first-seen order.
func groupByDirectory(files []UploadFile) (map[string][]UploadFile, []string) {
	byDir := map[string][]UploadFile{}
	var order []string
	for _, f := range files {
		if _, ok := byDir[f.Directory]; !ok {
			order = append(order, f.Directory)
		}
		byDir[f.Directory] = append(byDir[f.Directory], f)
	}
	return byDir, order
}

// contentHash computes a sha256 digest over files' canonical (relPath,
// size)-sorted listing, so two uploads of the same directory contents
// produce the same hash regardless of upload order (spec.md §4.3: CS
// "compute[s] a content hash over the canonical file listing" to decide
// whether a new ExampleVersion is actually needed).
func contentHash(files []UploadFile) string {
	sorted := make([]UploadFile, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].RelPath < sorted[j].RelPath })

	h := sha256.New()
	for _, f := range sorted {
		fmt.Fprintf(h, "%s:%d\n", f.RelPath, f.Size)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hasMetaYAML(files []UploadFile) bool {
	for _, f := range files {
		if f.RelPath == "meta.yaml" {
			return true
		}
	}
	return false
}

// ingestDirectory validates the directory name, parses its meta.yaml,
// computes the identifier and storage prefix, creates or reuses the
// Example, creates the new ExampleVersion, uploads every file to CSG,
// and normalizes testDependencies into ExampleDependency rows —
// rejecting cycles and unknown slugs before the new version, its
// dependencies or its files are persisted (a new Example row is created
// before those checks run).
func (a *Activities) ingestDirectory(ctx context.Context, repositoryID int64, dir string, files []UploadFile) DirectoryResult {
	result := DirectoryResult{Directory: dir}

	dirPath, err := pathalg.FromFilesystem(dir)
	if err != nil {
		result.Error = errors.Wrap(err, "directory name is not a filesystem-safe label").Error()
		return result
	}

	metaBytes, err := a.readFile(ctx, files, "meta.yaml")
	if err != nil {
		result.Error = err.Error()
		return result
	}
	meta, err := metayaml.Parse(metaBytes)
	if err != nil {
		result.Error = errors.Wrap(err, "parse meta.yaml").Error()
		return result
	}

	identifier := meta.Slug
	if identifier == "" {
		identifier = dirPath.String()
	}

	ex, err := a.Catalog.GetExampleBySlug(ctx, repositoryID, identifier)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if ex == nil {
		exampleID, err := a.Catalog.UpsertExample(ctx, &catalog.Example{
			RepositoryID: repositoryID,
			Directory:    dir,
			Identifier:   identifier,
			Title:        meta.Title,
			Description:  meta.Description,
		})
		if err != nil {
			result.Error = err.Error()
			return result
		}
		ex = &catalog.Example{ID: exampleID, RepositoryID: repositoryID, Directory: dir, Identifier: identifier}
	}
	result.ExampleID = ex.ID

	versionTag := meta.Version
	if versionTag == "" {
		result.Error = "meta.yaml is missing a version tag"
		return result
	}
	versions, err := a.Catalog.ListVersions(ctx, ex.ID)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	var nextNumber int64 = 1
	for _, v := range versions {
		if v.VersionNumber >= nextNumber {
			nextNumber = v.VersionNumber + 1
		}
	}

	hash := contentHash(files)
	for _, v := range versions {
		if v.ContentHash != "" && v.ContentHash == hash {
			// spec.md §4.3: "create a new ExampleVersion if unchanged
			// versions do not already exist" — this upload's canonical
			// file listing matches an existing version byte-for-byte, so
			// re-ingesting it must not create a duplicate version history
			// entry or a new version_tag bound to identical content.
			result.VersionID = v.ID
			result.VersionTag = v.VersionTag
			return result
		}
	}

	storagePath := objectstore.VersionPrefix(repositoryID, ex.ID, versionTag)

	deps := make([]*catalog.ExampleDependency, 0, len(meta.TestDependencies))
	for _, td := range meta.TestDependencies {
		depEx, err := a.Catalog.GetExampleBySlug(ctx, repositoryID, td.Slug)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		if depEx == nil {
			result.Error = cerrors.Newf(cerrors.KindUnknownSlug, "testDependencies slug %q not found in repository %d", td.Slug, repositoryID).Error()
			return result
		}
		would, err := catalog.WouldCreateCycle(ctx, a.Catalog, ex.ID, depEx.ID)
		if err != nil {
			result.Error = err.Error()
			return result
		}
		if would {
			result.Error = cerrors.Newf(cerrors.KindDependencyCycle, "dependency on %q would create a cycle", td.Slug).Error()
			return result
		}
		deps = append(deps, &catalog.ExampleDependency{ExampleID: ex.ID, DependsID: depEx.ID, VersionConstraint: td.Version})
	}

	versionID, err := a.Catalog.CreateVersion(ctx, &catalog.ExampleVersion{
		ExampleID:     ex.ID,
		VersionTag:    versionTag,
		VersionNumber: nextNumber,
		StoragePath:   storagePath,
		MetaYAML:      metaBytes,
		ContentHash:   hash,
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}
	if err := a.Catalog.ReplaceDependencies(ctx, ex.ID, deps); err != nil {
		result.Error = err.Error()
		return result
	}

	for _, f := range files {
		key := objectstore.ObjectKey(repositoryID, ex.ID, versionTag, f.RelPath)
		if err := a.Objects.CopyObject(ctx, f.Bucket, f.ScratchKey, a.Bucket, key); err != nil {
			result.Error = err.Error()
			return result
		}
	}

	// A new version exists for ex.ID: every CourseContentDeployment still
	// bound to an older version of this example is now outdated (spec.md
	// §9 Open Question resolution: "after any ExampleVersion insert,
	// mark bound deployments outdated").
	if err := a.Catalog.RefreshDeploymentStatus(ctx, ex.ID, versionID, nil); err != nil {
		result.Error = err.Error()
		return result
	}

	result.VersionID = versionID
	result.VersionTag = versionTag
	return result
}

func (a *Activities) readFile(ctx context.Context, files []UploadFile, relPath string) ([]byte, error) {
	for _, f := range files {
		if f.RelPath != relPath {
			continue
		}
		data, _, err := a.Objects.GetObject(ctx, f.Bucket, f.ScratchKey)
		if err != nil {
			return nil, err
		}
		return data, nil
	}
	return nil, errors.Errorf("%s not found in upload", relPath)
}
