// Package template implements the Template Generator (TG, spec.md
// §4.9): the GenerateStudentTemplate workflow that re-derives the
// student-facing tree from each CourseContent's pinned ExampleVersion —
// never by copying the assignments repository — and pushes it to the
// course's student-template project with the same pull-rebase-retry
// strategy Assignment Deployer uses.
package template

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/computor-org/cpsto/internal/catalog"
	"github.com/computor-org/cpsto/internal/gitlabhost"
	"github.com/computor-org/cpsto/internal/metayaml"
	"github.com/computor-org/cpsto/internal/objectstore"
	"github.com/computor-org/cpsto/internal/storage/postgres"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

// Input is GenerateStudentTemplate's argument.
type Input struct {
	CourseID       int64
	RepositoryID   int64
	RemoteURL      string
	Branch         string
	Bucket         string
	CommitterName  string
	CommitterEmail string
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

// GenerateStudentTemplateWorkflow builds and pushes the student template
// in a single activity, matching AD's reasoning for collapsing per-run
// work into one Temporal checkpoint (spec.md §4.9: "idempotent:
// re-running with the same bindings yields an identical tree modulo
// commit metadata").
func GenerateStudentTemplateWorkflow(ctx workflow.Context, input Input) (string, error) {
	ctx = workflow.WithActivityOptions(ctx, activityOptions)
	var a *Activities

	var commit string
	if err := workflow.ExecuteActivity(ctx, a.Generate, input).Get(ctx, &commit); err != nil {
		return "", err
	}
	return commit, nil
}

// Activities groups TG's dependencies.
type Activities struct {
	DB      *postgres.DB
	Objects *objectstore.Client
	Creds   gitlabhost.Credentials
	WorkDir string
}

// Generate clones the student-template project, re-derives every
// submittable-with-deployed-version CourseContent's target directory
// from its pinned ExampleVersion, and commits+pushes the result.
func (a *Activities) Generate(ctx context.Context, input Input) (string, error) {
	contents, err := a.DB.ListCourseContents(ctx, input.CourseID)
	if err != nil {
		return "", err
	}

	base := filepath.Join(a.WorkDir, "student-template")
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", errors.Wrap(err, "create student-template scratch directory")
	}
	dir, err := os.MkdirTemp(base, "course-*")
	if err != nil {
		return "", errors.Wrap(err, "create deployment scratch directory")
	}
	defer os.RemoveAll(dir)

	repo, err := gitlabhost.Clone(ctx, gitlabhost.CloneOptions{
		RemoteURL: input.RemoteURL,
		Branch:    input.Branch,
		Dir:       dir,
		Creds:     a.Creds,
	})
	if err != nil {
		return "", err
	}

	for _, cc := range contents {
		if !cc.Submittable || cc.ExampleVersionID == nil || cc.ExampleID == nil {
			continue
		}
		activity.RecordHeartbeat(ctx, cc.Path.String())

		deployment, err := a.DB.GetDeploymentByContent(ctx, cc.ID)
		if err != nil {
			continue // not yet deployed: nothing to derive a template from
		}
		if deployment.Status != postgres.StatusDeployed {
			continue
		}

		if err := a.renderContent(ctx, dir, input, *cc.ExampleID, *cc.ExampleVersionID, cc.Path.ToFilesystem()); err != nil {
			return "", err
		}
	}

	commit, err := gitlabhost.CommitAndPush(ctx, repo, input.Branch,
		"cpsto: generate student template", input.CommitterName, input.CommitterEmail, time.Now(), a.Creds)
	if err != nil {
		return "", err
	}
	return commit, nil
}

// renderContent applies spec.md §4.9's five deterministic rules, in
// order, for one CourseContent's target directory.
func (a *Activities) renderContent(ctx context.Context, dir string, input Input, exampleID, versionID int64, targetRel string) error {
	version, err := a.versionByID(ctx, exampleID, versionID)
	if err != nil {
		return err
	}
	meta, err := metayaml.Parse(version.MetaYAML)
	if err != nil {
		return errors.Wrapf(err, "parse meta.yaml for example %d version %d", exampleID, versionID)
	}

	prefix := objectstore.VersionPrefix(input.RepositoryID, exampleID, version.VersionTag)
	entries, err := a.Objects.ListObjects(ctx, input.Bucket, prefix)
	if err != nil {
		return err
	}

	target := filepath.Join(dir, filepath.FromSlash(targetRel))
	if err := os.MkdirAll(target, 0o755); err != nil {
		return errors.Wrap(err, "create template target directory")
	}

	excluded := toSet(meta.Properties.TestFiles)

	// Rule 1: content area, index[_LANG].md -> README[_LANG].md at target root.
	const contentPrefix = "content/"
	for _, entry := range entries {
		rel := entry.Key[len(prefix):]
		if !strings.HasPrefix(rel, contentPrefix) {
			continue
		}
		rel = strings.TrimPrefix(rel, contentPrefix)
		base := filepath.Base(rel)
		if base == indexName(rel) {
			rel = filepath.Join(filepath.Dir(rel), readmeNameFor(base))
		}
		if err := a.copyObject(ctx, input.Bucket, entry.Key, filepath.Join(target, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}

	// Rule 2: additional files, copied by basename to the target root.
	for _, af := range meta.Properties.AdditionalFiles {
		key, ok := findByBasename(entries, af)
		if !ok {
			continue
		}
		if err := a.copyObject(ctx, input.Bucket, key, filepath.Join(target, filepath.Base(af))); err != nil {
			return err
		}
	}

	// Rule 3: student submission files, guaranteed to exist.
	for _, sf := range meta.Properties.StudentSubmissionFiles {
		dest := filepath.Join(target, filepath.Base(sf))
		if _, err := os.Stat(dest); err == nil {
			continue // rule 1/2 already materialized it
		}
		if key, ok := findStudentTemplateSource(entries, meta.Properties.StudentTemplates, sf); ok {
			if err := a.copyObject(ctx, input.Bucket, key, dest); err != nil {
				return err
			}
			continue
		}
		if err := os.WriteFile(dest, nil, 0o644); err != nil {
			return errors.Wrap(err, "create empty student submission file")
		}
	}

	// Rule 4: exclusions. Rules 1-3 do not filter by name, so sweep target
	// and remove every file whose basename is listed in testFiles. No
	// other file is recognised as a reference solution file or removed here.
	if err := removeExcluded(target, excluded); err != nil {
		return err
	}

	// Rule 5: student-safe meta.yaml derivative.
	safeRaw, err := meta.StudentSafe().Marshal()
	if err != nil {
		return errors.Wrap(err, "marshal student-safe meta.yaml")
	}
	return os.WriteFile(filepath.Join(target, "meta.yaml"), safeRaw, 0o644)
}

func (a *Activities) copyObject(ctx context.Context, bucket, key, dest string) error {
	data, _, err := a.Objects.GetObject(ctx, bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errors.Wrap(err, "create template file parent directory")
	}
	return os.WriteFile(dest, data, 0o644)
}

// versionByID finds exampleID's ExampleVersion with the given id. TG
// depends only on the object store addressing convention plus a direct
// version lookup, so it reads through a.DB's CatalogStore rather than
// needing its own Reader abstraction (unlike DP, it never resolves a
// constraint — the version is already pinned by CourseContent).
func (a *Activities) versionByID(ctx context.Context, exampleID, versionID int64) (*catalog.ExampleVersion, error) {
	store := postgres.NewCatalogStore(a.DB)
	versions, err := store.ListVersions(ctx, exampleID)
	if err != nil {
		return nil, err
	}
	for _, v := range versions {
		if v.ID == versionID {
			return v, nil
		}
	}
	return nil, errors.Errorf("example version %d not found for example %d", versionID, exampleID)
}

func toSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[filepath.Base(s)] = true
	}
	return m
}

func indexName(rel string) string {
	base := filepath.Base(rel)
	if base == "index.md" {
		return base
	}
	if strings.HasPrefix(base, "index_") && strings.HasSuffix(base, ".md") {
		return base
	}
	return ""
}

func readmeNameFor(indexBase string) string {
	if indexBase == "index.md" {
		return "README.md"
	}
	lang := strings.TrimSuffix(strings.TrimPrefix(indexBase, "index_"), ".md")
	return "README_" + lang + ".md"
}

func findByBasename(entries []objectstore.ObjectEntry, name string) (string, bool) {
	want := filepath.Base(name)
	for _, e := range entries {
		if filepath.Base(e.Key) == want {
			return e.Key, true
		}
	}
	return "", false
}

// findStudentTemplateSource implements rule 3(a): prefer a
// studentTemplates entry whose path contains the literal component
// "studentTemplate" when more than one candidate shares submissionFile's
// basename. Each studentTemplates entry is located by its full relative
// path first, and by basename only when no key ends with that path.
func findStudentTemplateSource(entries []objectstore.ObjectEntry, templates []string, submissionFile string) (string, bool) {
	want := filepath.Base(submissionFile)
	var fallback string
	var found bool
	for _, tmpl := range templates {
		if filepath.Base(tmpl) != want {
			continue
		}
		key, ok := "", false
		for _, e := range entries {
			if strings.HasSuffix(e.Key, "/"+tmpl) {
				key, ok = e.Key, true
				break
			}
		}
		if !ok {
			key, ok = findByBasename(entries, tmpl)
		}
		if !ok {
			continue
		}
		found = true
		if strings.Contains(key, "studentTemplate") {
			return key, true
		}
		if fallback == "" {
			fallback = key
		}
	}
	return fallback, found
}

func removeExcluded(target string, excluded map[string]bool) error {
	if len(excluded) == 0 {
		return nil
	}
	return filepath.Walk(target, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if excluded[filepath.Base(path)] {
			return os.Remove(path)
		}
		return nil
	})
}
