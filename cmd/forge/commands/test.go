package commands

import (
	"fmt"
	"time"

	"github.com/forgeci/forge/internal/adapters/manifest"
	"github.com/forgeci/forge/internal/app"
	"github.com/forgeci/forge/internal/core/domain"
	"github.com/spf13/cobra"
	"go.trai.ch/zerr"
)

func (c *CLI) newTestCmd(builderID string) *cobra.Command {
	var (
		distros       []string
		workflowID    string
		suiteManifest string
		suiteName     string
		suiteArchive  string
		suiteCommand  string
		suiteTimeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run the test suite against ephemeral environments, one per distribution",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var suite domain.TestSuite
			switch {
			case suiteManifest != "":
				name := suiteName
				if name == "" {
					name = builderID
				}
				var err error
				suite, err = manifest.Find(suiteManifest, name)
				if err != nil {
					return err
				}
			case suiteCommand != "":
				suite = domain.TestSuite{
					Name:        builderID,
					ArchivePath: suiteArchive,
					Command:     suiteCommand,
					Timeout:     suiteTimeout,
				}
			default:
				return zerr.New("either --suite-manifest or --suite-command is required")
			}

			reports, err := c.app.Test(cmd.Context(), app.TestParams{
				Distros:    distros,
				WorkflowID: workflowID,
				Suite:      suite,
			})
			for _, report := range reports {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: passed=%d failed=%d timed_out=%t duration=%s\n",
					report.Distro, report.Passed, report.Failed, report.TimedOut, report.Duration.Round(time.Second))
			}
			return err
		},
	}

	cmd.Flags().StringArrayVar(&distros, "distro", nil, "Matrix cell as type:name, e.g. ec2:ubuntu2204 (repeatable)")
	cmd.Flags().StringVar(&workflowID, "workflow-id", "", "Identifier of the owning CI workflow run")
	cmd.Flags().StringVar(&suiteManifest, "suite-manifest", "", "YAML file with suite definitions")
	cmd.Flags().StringVar(&suiteName, "suite-name", "", "Suite to pick from the manifest (defaults to the builder id)")
	cmd.Flags().StringVar(&suiteArchive, "suite-archive", "", "Local tarball with the test suite files")
	cmd.Flags().StringVar(&suiteCommand, "suite-command", "", "Command executed on the resource")
	cmd.Flags().DurationVar(&suiteTimeout, "suite-timeout", 0, "Per-resource suite timeout (default from configuration)")
	_ = cmd.MarkFlagRequired("distro")
	_ = cmd.MarkFlagRequired("workflow-id")

	return cmd
}
