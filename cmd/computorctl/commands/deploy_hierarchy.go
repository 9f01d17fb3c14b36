package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computor-org/cpsto/internal/cerrors"
	"github.com/computor-org/cpsto/internal/config"
	"github.com/computor-org/cpsto/internal/workflows/dwe"
	"github.com/computor-org/cpsto/internal/workflows/hierarchy"
)

var deployHierarchyCmd = &cobra.Command{
	Use:   "deploy-hierarchy [config.yaml]",
	Short: "Submit a DeployHierarchy run from a declarative deployment YAML",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeployHierarchy,
}

func init() {
	rootCmd.AddCommand(deployHierarchyCmd)
}

func runDeployHierarchy(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadDeploymentConfig(args[0])
	if err != nil {
		return cerrors.Wrap(cerrors.KindValidation, err, "invalid deployment configuration")
	}

	adapter, err := dial()
	if err != nil {
		return err
	}
	defer adapter.Close()

	input := hierarchy.DeployHierarchyInput{
		Organization: hierarchy.OrganizationConfig{
			Path:        cfg.Organization.Path,
			Name:        cfg.Organization.Name,
			Description: cfg.Organization.Description,
			GitlabURL:   cfg.Organization.Gitlab.URL,
			GitlabToken: cfg.Organization.Gitlab.Token,
		},
		CourseFamily: hierarchy.CourseFamilyConfig{
			Path:        cfg.CourseFamily.Path,
			Name:        cfg.CourseFamily.Name,
			Description: cfg.CourseFamily.Description,
		},
		Course: hierarchy.CourseConfig{
			Path:        cfg.Course.Path,
			Name:        cfg.Course.Name,
			Description: cfg.Course.Description,
			SourceURL:   cfg.Course.Settings.Source.URL,
		},
	}
	if cfg.Organization.Gitlab.Parent != nil {
		input.Organization.ParentGroup = *cfg.Organization.Gitlab.Parent
	}

	workflowID := dwe.DeployHierarchyWorkflowID(cfg.Organization.Path)
	ctx := context.Background()
	run, err := adapter.Submit(ctx, workflowID, hierarchy.DeployHierarchyWorkflow, input)
	if err != nil {
		return err
	}

	var courseID int64
	if err := run.Get(ctx, &courseID); err != nil {
		return err
	}
	fmt.Printf("deployed hierarchy %s: course_id=%d workflow_id=%s\n", cfg.Organization.Path, courseID, workflowID)
	return nil
}
