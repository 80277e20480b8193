package internal

import (
	"log"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cabi",
	Short: "cabi turns compiled native libraries into installable C-ABI distributions",
	Long: `cabi takes already-compiled static and shared libraries and produces a
complete, installable C-ABI distribution: platform-correct file names,
pkg-config documents, and a correctly symlinked install tree.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal(err)
	}
}
