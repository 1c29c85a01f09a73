// Package commands implements the CLI commands for the forge build tool.
package commands

import (
	"context"
	"io"

	"github.com/forgeci/forge/internal/app"
	"github.com/spf13/cobra"
)

// CLI represents the command line interface for forge.
type CLI struct {
	app     *app.App
	rootCmd *cobra.Command
}

// New creates a new CLI instance with the given app. Every builder in the
// catalog becomes its own command tree; the builder id is the stable
// contract consumed by the CI workflow definitions.
func New(a *app.App, builderIDs []string) *CLI {
	rootCmd := &cobra.Command{
		Use:           "forge",
		Short:         "Cached-step build and test tool for agent packages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}

	for _, id := range builderIDs {
		rootCmd.AddCommand(c.newBuilderCmd(id))
	}
	rootCmd.AddCommand(c.newCleanupCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// newBuilderCmd assembles the per-builder command tree.
func (c *CLI) newBuilderCmd(builderID string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   builderID,
		Short: "Operations for the " + builderID + " builder",
	}

	cmd.AddCommand(c.newBuildCmd(builderID))
	cmd.AddCommand(c.newFindLastRepoPackageCmd(builderID))
	cmd.AddCommand(c.newDownloadPackageCmd(builderID))
	cmd.AddCommand(c.newPublishCmd(builderID))
	cmd.AddCommand(c.newTestCmd(builderID))

	return cmd
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects command output streams.
func (c *CLI) SetOutput(stdout, stderr io.Writer) {
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)
}
