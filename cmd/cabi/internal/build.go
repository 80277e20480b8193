package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var buildOpts commonOpts

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Produce the C-ABI distribution artifacts",
	Long: `Build names the expected artifacts for the target platform, runs the
external build command, and regenerates the pkg-config, header and Windows
def/import-library files when their fingerprint changed.`,
	RunE: runBuild,
}

func init() {
	buildOpts.register(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	res, _, _, _, err := buildOpts.runPipeline(context.Background())
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", buildOpts.name, err)
	}

	if res.Targets.StaticLib != "" {
		fmt.Println(res.Targets.StaticLib)
	}
	if res.Targets.SharedLib != "" {
		fmt.Println(res.Targets.SharedLib)
	}
	fmt.Println(res.Targets.PkgConfig)
	return nil
}
