package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computor-org/cpsto/internal/workflows/assignment"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
)

var generateAssignmentsCmd = &cobra.Command{
	Use:   "generate-assignments",
	Short: "Submit a GenerateAssignments run for one course",
	RunE:  runGenerateAssignments,
}

var gaInput assignment.Input

func init() {
	rootCmd.AddCommand(generateAssignmentsCmd)
	f := generateAssignmentsCmd.Flags()
	f.Int64Var(&gaInput.CourseID, "course-id", 0, "course id (required)")
	f.Int64Var(&gaInput.RepositoryID, "repository-id", 0, "example repository id (required)")
	f.StringVar(&gaInput.RemoteURL, "remote-url", "", "assignments project clone URL (required)")
	f.StringVar(&gaInput.Branch, "branch", "main", "branch to push to")
	f.StringVar(&gaInput.Actor, "actor", "", "operator identity recorded on DeploymentHistory entries")
	f.StringVar(&gaInput.Bucket, "bucket", "", "object store bucket backing the example catalog (required)")
	f.StringVar(&gaInput.CommitterName, "committer-name", "computor-cpsto", "git commit author name")
	f.StringVar(&gaInput.CommitterEmail, "committer-email", "cpsto@localhost", "git commit author email")
	for _, name := range []string{"course-id", "repository-id", "remote-url", "bucket"} {
		generateAssignmentsCmd.MarkFlagRequired(name) //nolint:errcheck
	}
}

func runGenerateAssignments(cmd *cobra.Command, args []string) error {
	adapter, err := dial()
	if err != nil {
		return err
	}
	defer adapter.Close()

	workflowID := dwe.GenerateAssignmentsWorkflowID(gaInput.CourseID)
	ctx := context.Background()
	run, err := adapter.Submit(ctx, workflowID, assignment.GenerateAssignmentsWorkflow, gaInput)
	if err != nil {
		return err
	}

	var result assignment.Result
	if err := run.Get(ctx, &result); err != nil {
		return err
	}
	fmt.Printf("deployed %d item(s), %d failure(s), workflow_id=%s\n", len(result.Committed), len(result.Failed), workflowID)
	for contentID, reason := range result.Failed {
		fmt.Printf("  course content %d: %s\n", contentID, reason)
	}
	return nil
}
