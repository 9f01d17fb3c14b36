package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computor-org/cpsto/internal/workflows/dwe"
	"github.com/computor-org/cpsto/internal/workflows/template"
)

var generateStudentTemplateCmd = &cobra.Command{
	Use:   "generate-student-template",
	Short: "Submit a GenerateStudentTemplate run for one course",
	RunE:  runGenerateStudentTemplate,
}

var gstInput template.Input

func init() {
	rootCmd.AddCommand(generateStudentTemplateCmd)
	f := generateStudentTemplateCmd.Flags()
	f.Int64Var(&gstInput.CourseID, "course-id", 0, "course id (required)")
	f.Int64Var(&gstInput.RepositoryID, "repository-id", 0, "example repository id (required)")
	f.StringVar(&gstInput.RemoteURL, "remote-url", "", "student-template project clone URL (required)")
	f.StringVar(&gstInput.Branch, "branch", "main", "branch to push to")
	f.StringVar(&gstInput.Bucket, "bucket", "", "object store bucket backing the example catalog (required)")
	f.StringVar(&gstInput.CommitterName, "committer-name", "computor-cpsto", "git commit author name")
	f.StringVar(&gstInput.CommitterEmail, "committer-email", "cpsto@localhost", "git commit author email")
	for _, name := range []string{"course-id", "repository-id", "remote-url", "bucket"} {
		generateStudentTemplateCmd.MarkFlagRequired(name) //nolint:errcheck
	}
}

func runGenerateStudentTemplate(cmd *cobra.Command, args []string) error {
	adapter, err := dial()
	if err != nil {
		return err
	}
	defer adapter.Close()

	workflowID := dwe.GenerateStudentTemplateWorkflowID(gstInput.CourseID)
	ctx := context.Background()
	run, err := adapter.Submit(ctx, workflowID, template.GenerateStudentTemplateWorkflow, gstInput)
	if err != nil {
		return err
	}

	var commit string
	if err := run.Get(ctx, &commit); err != nil {
		return err
	}
	fmt.Printf("generated student template: commit=%s workflow_id=%s\n", commit, workflowID)
	return nil
}
