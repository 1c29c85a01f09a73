package commands

import (
	"github.com/forgeci/forge/internal/adapters/provider"
	"github.com/forgeci/forge/internal/app"
	"github.com/spf13/cobra"
)

func (c *CLI) newCleanupCmd() *cobra.Command {
	var (
		opts       provider.Options
		workflowID string
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Reclaim access-grant entries and instances left by other workflows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Cleanup(cmd.Context(), app.CleanupParams{
				Provider:   opts,
				WorkflowID: workflowID,
			})
		},
	}

	cmd.Flags().StringVar(&opts.AccessKey, "access-key", "", "Provider access key")
	cmd.Flags().StringVar(&opts.SecretKey, "secret-key", "", "Provider secret key")
	cmd.Flags().StringVar(&opts.PrefixListID, "prefix-list-id", "", "Identifier of the access-grant list")
	cmd.Flags().StringVar(&opts.Region, "region", "", "Provider region")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Workflow id whose resources must be kept")
	_ = cmd.MarkFlagRequired("workflow-id")

	return cmd
}
