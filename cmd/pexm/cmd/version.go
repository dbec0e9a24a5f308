package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mensylisir/pexm/pkg/util"
)

// Version will be set by the build process
var Version = "dev"
var Commit = "none"
var Date = "unknown"

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of pexm",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), util.Banner("pexm", ""))
		fmt.Fprintf(cmd.OutOrStdout(), "pexm version: %s\n", Version)
		fmt.Fprintf(cmd.OutOrStdout(), "Git Commit: %s\n", Commit)
		fmt.Fprintf(cmd.OutOrStdout(), "Build Date: %s\n", Date)
	},
}
