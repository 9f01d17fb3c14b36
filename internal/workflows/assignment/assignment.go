// Package assignment implements the Assignment Deployer (AD, spec.md
// §4.8): the GenerateAssignments workflow that materializes a course's
// planned deployments into the assignments repository, one commit per
// run, tolerating per-item failures without aborting the whole course.
package assignment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
	"golang.org/x/sync/errgroup"

	"github.com/computor-org/cpsto/internal/cerrors"
	"github.com/computor-org/cpsto/internal/gitlabhost"
	"github.com/computor-org/cpsto/internal/objectstore"
	"github.com/computor-org/cpsto/internal/plan"
	"github.com/computor-org/cpsto/internal/storage/postgres"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

// Input is the GenerateAssignments workflow's argument: the course to
// deploy and the remote it pushes to.
type Input struct {
	CourseID       int64
	RepositoryID   int64
	RemoteURL      string
	Branch         string
	Actor          string
	Bucket         string
	CommitterName  string
	CommitterEmail string
}

// Manifest is the per-deployed-item ".deployment.json" file AD writes
// alongside the materialized tree: which example version produced the
// directory and which files it wrote there.
type Manifest struct {
	ExampleID      int64    `json:"example_id"`
	ExampleVersion string   `json:"example_version"`
	Implicit       bool     `json:"implicit"`
	DeployedAt     string   `json:"deployed_at"`
	Files          []string `json:"files"`
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

// Result reports which deployments succeeded and which failed, so a
// partial failure is visible to the caller without the workflow itself
// returning an error (spec.md §4.8: "errors in one item must not abort
// deployment of the others").
type Result struct {
	Committed []int64 // course_content_id of every successfully deployed item
	Failed    map[int64]string // course_content_id -> error message
}

// GenerateAssignmentsWorkflow runs AD's single Deploy activity, which
// plans the course's deployments, materializes up to four items at a time
// into one working tree, commits and pushes once (the single-commit-per-run
// contract spec.md §4.8 describes), then records the deployed status of
// each direct item that materialized without error.
func GenerateAssignmentsWorkflow(ctx workflow.Context, input Input) (*Result, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	var a *Activities

	var result Result
	if err := workflow.ExecuteActivity(ctx, a.Deploy, input).Get(ctx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Activities groups AD's dependencies: the catalog reader DP resolves
// against, the database recording status transitions, the object store
// holding example bytes, and GitLab credentials for the push.
type Activities struct {
	DB      *postgres.DB
	Catalog *postgres.CatalogStore
	Objects *objectstore.Client
	Creds   gitlabhost.Credentials
	WorkDir string // scratch directory for repository clones
}

// Deploy is AD's single activity: clone the assignments repository,
// materialize every planned deployment, commit, and push. Heartbeats
// once per item so a long-running deployment is distinguishable from a
// hung one (spec.md §5: "archive downloads heartbeat every ≤30s").
func (a *Activities) Deploy(ctx context.Context, input Input) (*Result, error) {
	contents, err := a.DB.ListCourseContents(ctx, input.CourseID)
	if err != nil {
		return nil, err
	}

	planner := plan.New(a.Catalog)
	deployments, err := planner.Plan(ctx, contents)
	if err != nil {
		return nil, err
	}

	base := filepath.Join(a.WorkDir, "assignments")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, errors.Wrap(err, "create assignments scratch directory")
	}
	dir, err := os.MkdirTemp(base, "course-*")
	if err != nil {
		return nil, errors.Wrap(err, "create deployment scratch directory")
	}
	defer os.RemoveAll(dir)

	repo, err := gitlabhost.Clone(ctx, gitlabhost.CloneOptions{
		RemoteURL: input.RemoteURL,
		Branch:    input.Branch,
		Dir:       dir,
		Creds:     a.Creds,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Failed: map[int64]string{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, dep := range deployments {
		dep := dep
		g.Go(func() error {
			activity.RecordHeartbeat(gctx, dep.TargetPath)
			mErr := a.materialize(gctx, dir, input, dep)
			mu.Lock()
			defer mu.Unlock()
			if mErr != nil {
				result.Failed[dep.CourseContentID] = mErr.Error()
				return nil // isolate: one item's failure doesn't cancel siblings
			}
			if !dep.Implicit {
				result.Committed = append(result.Committed, dep.CourseContentID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if len(result.Committed) == 0 {
		return result, nil
	}

	_, err = gitlabhost.CommitAndPush(ctx, repo, input.Branch,
		"cpsto: deploy assignments", input.CommitterName, input.CommitterEmail, time.Now(), a.Creds)
	if err != nil {
		return nil, err
	}

	for _, dep := range deployments {
		if dep.Implicit {
			continue
		}
		if _, failed := result.Failed[dep.CourseContentID]; failed {
			continue // not materialized: its status is not advanced to deployed
		}
		d, err := a.DB.GetDeploymentByContent(ctx, dep.CourseContentID)
		if err != nil {
			if kind, ok := cerrors.KindOf(err); ok && kind == cerrors.KindNotFound {
				if _, err := a.DB.AssignDeployment(ctx, dep.CourseContentID, dep.ExampleVersion.ID, input.Actor); err != nil {
					return nil, err
				}
				d, err = a.DB.GetDeploymentByContent(ctx, dep.CourseContentID)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		verID := dep.ExampleVersion.ID
		if err := a.DB.TransitionDeployment(ctx, d.ID, postgres.StatusDeployed, postgres.ActionDeployed,
			&verID, "", dep.TargetPath, nil, input.Actor); err != nil {
			return nil, err
		}
	}

	return result, nil
}

const manifestName = ".deployment.json"

// materialize downloads one deployment's files from the object store
// into dir/deployment.TargetPath, removes any file the previous
// deployment left behind that the new version no longer has (spec.md
// §4.8 step 2's overwrite policy, tracked via the per-content
// .deployment.json manifest), and writes the new manifest.
func (a *Activities) materialize(ctx context.Context, dir string, input Input, dep *plan.Deployment) error {
	prefix := objectstore.VersionPrefix(input.RepositoryID, dep.ExampleID, dep.ExampleVersion.VersionTag)
	entries, err := a.Objects.ListObjects(ctx, input.Bucket, prefix)
	if err != nil {
		return err
	}

	target := filepath.Join(dir, filepath.FromSlash(dep.TargetPath))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.Wrap(err, "create deployment directory")
	}

	previous, err := readManifest(target)
	if err != nil {
		return err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		data, _, err := a.Objects.GetObject(ctx, input.Bucket, entry.Key)
		if err != nil {
			return err
		}
		rel := entry.Key[len(prefix):]
		dest := filepath.Join(target, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return errors.Wrap(err, "create file parent directory")
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return errors.Wrap(err, "write deployed file")
		}
		files = append(files, rel)
	}

	if previous != nil {
		kept := make(map[string]bool, len(files))
		for _, rel := range files {
			kept[rel] = true
		}
		for _, rel := range previous.Files {
			if kept[rel] {
				continue
			}
			if err := os.Remove(filepath.Join(target, filepath.FromSlash(rel))); err != nil && !os.IsNotExist(err) {
				return errors.Wrapf(err, "remove orphaned deployment file %s", rel)
			}
		}
	}

	manifest := Manifest{
		ExampleID:      dep.ExampleID,
		ExampleVersion: dep.ExampleVersion.VersionTag,
		Implicit:       dep.Implicit,
		DeployedAt:     time.Now().UTC().Format(time.RFC3339),
		Files:          files,
	}
	raw, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal deployment manifest")
	}
	return os.WriteFile(filepath.Join(target, manifestName), raw, 0o644)
}

// readManifest loads target's previous .deployment.json, or returns a nil
// Manifest if this is the target's first deployment.
func readManifest(target string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(target, manifestName))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "read previous deployment manifest")
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "parse previous deployment manifest")
	}
	return &m, nil
}
