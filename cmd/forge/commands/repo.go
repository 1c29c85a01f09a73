package commands

import (
	"fmt"

	"github.com/forgeci/forge/internal/core/ports"
	"github.com/spf13/cobra"
)

// repoQueryFlags registers the repository coordinate flags shared by the
// package subcommands.
func repoQueryFlags(cmd *cobra.Command, q *ports.RepoQuery) {
	cmd.Flags().StringVar(&q.UserName, "user-name", "", "Repository user name")
	cmd.Flags().StringVar(&q.RepoName, "repo-name", "", "Repository name")
	cmd.Flags().StringVar(&q.Token, "token", "", "Repository API token")
	_ = cmd.MarkFlagRequired("user-name")
	_ = cmd.MarkFlagRequired("repo-name")
	_ = cmd.MarkFlagRequired("token")
}

func (c *CLI) newFindLastRepoPackageCmd(builderID string) *cobra.Command {
	var q ports.RepoQuery
	var packageName string

	cmd := &cobra.Command{
		Use:   "find_last_repo_package",
		Short: "Print the filename of the newest repository package matching name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info, err := c.app.FindLastRepoPackage(cmd.Context(), q, packageName)
			if err != nil {
				return err
			}
			if info == nil {
				// No package is a valid answer; CI treats empty output as
				// "build from scratch".
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.Filename)
			return nil
		},
	}

	repoQueryFlags(cmd, &q)
	cmd.Flags().StringVar(&packageName, "package-name", "", "Package name to search for")
	_ = cmd.MarkFlagRequired("package-name")

	return cmd
}

func (c *CLI) newDownloadPackageCmd(builderID string) *cobra.Command {
	var q ports.RepoQuery
	var packageFilename, outputDir string

	cmd := &cobra.Command{
		Use:   "download_package",
		Short: "Download a repository package file into a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := c.app.DownloadPackage(cmd.Context(), q, packageFilename, outputDir)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}

	repoQueryFlags(cmd, &q)
	cmd.Flags().StringVar(&packageFilename, "package-filename", "", "Exact package filename to download")
	cmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory receiving the package file")
	_ = cmd.MarkFlagRequired("package-filename")

	return cmd
}

func (c *CLI) newPublishCmd(builderID string) *cobra.Command {
	var q ports.RepoQuery
	var packagesDir string

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the package files under a directory to the repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Publish(cmd.Context(), q, packagesDir)
		},
	}

	repoQueryFlags(cmd, &q)
	cmd.Flags().StringVar(&packagesDir, "packages-dir", ".", "Directory with the package files to publish")

	return cmd
}
