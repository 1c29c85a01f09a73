package commands

import (
	"github.com/forgeci/forge/internal/builders"
	"github.com/forgeci/forge/internal/engine/orchestrator"
	"github.com/spf13/cobra"
)

// reusableDependencies maps the flag infix of --last-repo-<dep>-package-file
// onto the repository package it stands in for.
var reusableDependencies = map[string]string{
	"python":     builders.PythonDependencyPackage,
	"agent-libs": builders.AgentLibsPackage,
}

func (c *CLI) newBuildCmd(builderID string) *cobra.Command {
	var (
		outputRegistryDir string
		cacheOnly         bool
	)
	suppliedFiles := make(map[string]*string, len(reusableDependencies))

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Run the builder and place its artifact in the output directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cacheOnly {
				_, err := c.app.BuildCached(cmd.Context(), builderID)
				return err
			}

			opts := orchestrator.BuildOptions{
				OutputDir:      outputRegistryDir,
				ReusedPackages: make(map[string]string),
			}
			for packageName, path := range suppliedFiles {
				if *path != "" {
					opts.ReusedPackages[packageName] = *path
				}
			}

			_, err := c.app.Build(cmd.Context(), builderID, opts)
			return err
		},
	}

	cmd.Flags().StringVar(&outputRegistryDir, "output-registry-dir", "", "Directory receiving the build artifact")
	cmd.Flags().BoolVar(&cacheOnly, "cache-only", false, "Pre-build only the steps that require emulation and exit")
	for infix, packageName := range reusableDependencies {
		path := new(string)
		suppliedFiles[packageName] = path
		cmd.Flags().StringVar(path, "last-repo-"+infix+"-package-file", "",
			"Previously published "+packageName+" package file to reuse instead of rebuilding")
	}

	return cmd
}
