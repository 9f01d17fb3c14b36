package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computor-org/cpsto/internal/config"
	"github.com/computor-org/cpsto/internal/storage/postgres"
)

var (
	assignCourseContentID  int64
	assignExampleVersionID int64
	assignActor            string
)

var assignExampleCmd = &cobra.Command{
	Use:   "assign-example",
	Short: "Bind a CourseContent to an ExampleVersion, recording a DeploymentHistory(assigned) entry",
	RunE:  runAssignExample,
}

func init() {
	rootCmd.AddCommand(assignExampleCmd)
	f := assignExampleCmd.Flags()
	f.Int64Var(&assignCourseContentID, "course-content-id", 0, "course content id (required)")
	f.Int64Var(&assignExampleVersionID, "example-version-id", 0, "example version id to pin (required)")
	f.StringVar(&assignActor, "actor", "", "operator identity recorded on the history entry (required)")
	for _, name := range []string{"course-content-id", "example-version-id", "actor"} {
		assignExampleCmd.MarkFlagRequired(name) //nolint:errcheck
	}
}

// runAssignExample writes directly through internal/storage/postgres
// rather than submitting a workflow: spec.md §6 describes assign-example
// as a synchronous `CourseContentDeployment` write, not a durable run.
func runAssignExample(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromEnvironment()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		return providerUnreachable{cause: err}
	}
	defer db.Close()

	deploymentID, err := db.AssignDeployment(ctx, assignCourseContentID, assignExampleVersionID, assignActor)
	if err != nil {
		return err
	}
	fmt.Printf("assigned course_content_id=%d example_version_id=%d deployment_id=%d\n", assignCourseContentID, assignExampleVersionID, deploymentID)
	return nil
}
