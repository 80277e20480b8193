package internal

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cabikit/cabi/internal/install"
)

var installOpts commonOpts

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Build and install the C-ABI distribution",
	Long: `Install runs the build pipeline and then copies every produced artifact
into the configured layout, creating the canonical and sover symlinks on
Unix-family targets.`,
	RunE: runInstall,
}

func init() {
	installOpts.register(installCmd)
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	res, cfg, paths, printer, err := installOpts.runPipeline(context.Background())
	if err != nil {
		return fmt.Errorf("failed to build %s: %w", installOpts.name, err)
	}

	installer := install.New(printer)
	if err := installer.Install(res.Targets, cfg, paths); err != nil {
		return fmt.Errorf("failed to install %s: %w", installOpts.name, err)
	}
	return nil
}
