package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <workflow-id>",
	Short: "Query a workflow run's status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	adapter, err := dial()
	if err != nil {
		return err
	}
	defer adapter.Close()

	status, err := adapter.Status(context.Background(), args[0])
	if err != nil {
		return err
	}
	fmt.Println(status)
	return nil
}
