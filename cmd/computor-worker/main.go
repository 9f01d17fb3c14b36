// Command computor-worker runs the long-lived Temporal worker process that
// executes every CPSTO workflow and activity (spec.md §4.5/§5): Hierarchy
// Provisioner, Assignment Deployer, Template Generator, and Catalog
// Synchronizer, all on the single task queue internal/workflows/dwe names.
package main

import (
	"context"
	"os"

	"go.temporal.io/sdk/worker"

	"github.com/computor-org/cpsto/internal/config"
	"github.com/computor-org/cpsto/internal/gitlabhost"
	"github.com/computor-org/cpsto/internal/objectstore"
	"github.com/computor-org/cpsto/internal/storage/postgres"
	"github.com/computor-org/cpsto/internal/telemetry"
	"github.com/computor-org/cpsto/internal/workflows/assignment"
	"github.com/computor-org/cpsto/internal/workflows/catalogsync"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
	"github.com/computor-org/cpsto/internal/workflows/hierarchy"
	"github.com/computor-org/cpsto/internal/workflows/template"
)

func main() {
	log, err := telemetry.New(telemetry.Config{Level: os.Getenv("COMPUTOR_LOG_LEVEL")})
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := config.FromEnvironment()
	if err != nil {
		log.Fatalw("load process configuration", "error", err)
	}

	ctx := context.Background()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalw("open postgres", "error", err)
	}
	defer db.Close()

	objects, err := objectstore.NewClient(objectstore.Config{
		Endpoint:  cfg.ObjectStoreEndpoint,
		AccessKey: cfg.ObjectStoreAccessKey,
		SecretKey: cfg.ObjectStoreSecretKey,
		UseTLS:    cfg.ObjectStoreUseTLS,
	})
	if err != nil {
		log.Fatalw("construct object store client", "error", err)
	}

	git, err := gitlabhost.NewClient(gitlabhost.Config{
		Token:   cfg.GitlabToken,
		BaseURL: cfg.GitlabBaseURL,
	})
	if err != nil {
		log.Fatalw("construct gitlab client", "error", err)
	}

	adapter, err := dwe.Dial(cfg.TemporalHostPort, "default")
	if err != nil {
		log.Fatalw("dial temporal", "error", err)
	}
	defer adapter.Close()

	creds := gitlabhost.Credentials{
		Username: "oauth2",
		Source:   gitlabhost.StaticToken(cfg.GitlabToken),
	}
	workDir := envOrDefault("COMPUTOR_WORKER_SCRATCH_DIR", os.TempDir())

	hierarchyActivities := &hierarchy.Activities{DB: db, Git: git}
	assignmentActivities := &assignment.Activities{
		DB:      db,
		Catalog: postgres.NewCatalogStore(db),
		Objects: objects,
		Creds:   creds,
		WorkDir: workDir,
	}
	templateActivities := &template.Activities{
		DB:      db,
		Objects: objects,
		Creds:   creds,
		WorkDir: workDir,
	}
	catalogsyncActivities := &catalogsync.Activities{
		Catalog: postgres.NewCatalogStore(db),
		Objects: objects,
		Bucket:  cfg.ObjectStoreBucket,
	}

	w := adapter.NewWorker()
	w.RegisterWorkflow(hierarchy.DeployHierarchyWorkflow)
	w.RegisterActivity(hierarchyActivities)
	w.RegisterWorkflow(assignment.GenerateAssignmentsWorkflow)
	w.RegisterActivity(assignmentActivities)
	w.RegisterWorkflow(template.GenerateStudentTemplateWorkflow)
	w.RegisterActivity(templateActivities)
	w.RegisterWorkflow(catalogsync.CatalogSyncWorkflow)
	w.RegisterActivity(catalogsyncActivities)

	log.Infow("starting computor-worker", "task_queue", dwe.TaskQueue, "temporal_host", cfg.TemporalHostPort)

	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalw("worker stopped", "error", err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
