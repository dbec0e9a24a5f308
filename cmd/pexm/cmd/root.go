package cmd

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mensylisir/pexm/pkg/common"
	"github.com/mensylisir/pexm/pkg/logger"
)

var (
	verboseFlag bool
	logFileFlag string
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "pexm",
	Short: "pexm installs Puppet Enterprise clusters over SSH.",
	Long: `pexm reads a plan describing which hosts play which Puppet Enterprise
role and installs the whole cluster from the operator's machine: master,
external PuppetDB databases, replicas and compilers.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logOpts := logger.DefaultOptions()
		logOpts.ColorConsole = !noColorFlag
		if verboseFlag {
			logOpts.ConsoleLevel = logger.DebugLevel
		}
		if logFileFlag != "" {
			logOpts.FileOutput = true
			logOpts.LogFilePath = logFileFlag
		}
		logger.Init(logOpts)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.SyncGlobal()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored console output")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", filepath.Join(common.PexmRootDirName, common.DefaultLogFileName), "Write a JSON log to this file; empty disables it")
}
