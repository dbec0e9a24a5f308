package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mensylisir/pexm/pkg/executor"
	"github.com/mensylisir/pexm/pkg/logger"
	"github.com/mensylisir/pexm/pkg/pipeline"
)

type InstallOptions struct {
	ConfigFile string
	DryRun     bool
}

var installOptions = &InstallOptions{}

func init() {
	rootCmd.AddCommand(installCmd)
	installCmd.Flags().StringVarP(&installOptions.ConfigFile, "config", "f", "", "Path to the install plan (YAML or TOML, required)")
	installCmd.Flags().BoolVar(&installOptions.DryRun, "dry-run", false, "Print the stages that would run without touching any host")
	if err := installCmd.MarkFlagRequired("config"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mark 'config' flag as required: %v\n", err)
	}
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install Puppet Enterprise on every host of a plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Get()
		sess, err := loadSession(installOptions.ConfigFile)
		if err != nil {
			return err
		}

		if installOptions.DryRun {
			stages, err := pipeline.Preview(sess.inputs(""))
			if err != nil {
				return err
			}
			renderStages(cmd.OutOrStdout(), stages)
			return nil
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		resolve, err := sess.plan.Resolver()
		if err != nil {
			return err
		}
		fleet := executor.NewFleet(resolve, executor.WithConcurrency(sess.plan.Concurrency))
		defer func() {
			if err := fleet.Close(); err != nil {
				log.Warnf("Failed to close connections: %v", err)
			}
		}()

		platform, err := detectPlatform(ctx, sess, fleet)
		if err != nil {
			return err
		}

		report := newStageReport()
		seq, err := pipeline.New(fleet, sess.inputs(platform), pipeline.WithObserver(report))
		if err != nil {
			return err
		}
		log.Infof("Starting install run %s of Puppet Enterprise %s on %d host(s)", seq.RunID(), sess.plan.Version, len(sess.topo.AllHosts()))

		msg, runErr := seq.Run(ctx)
		report.Render(cmd.OutOrStdout())
		if runErr != nil {
			log.Errorf("Install failed: %v", runErr)
			return runErr
		}
		fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen, color.Bold).Sprint(msg))
		return nil
	},
}

// detectPlatform asks the master for its OS when the plan names neither a
// platform nor an installer URL.
func detectPlatform(ctx context.Context, sess *session, fleet *executor.Fleet) (string, error) {
	if !sess.needsPlatform() {
		return "", nil
	}
	master := sess.topo.Master()
	facts, err := fleet.Facts(ctx, master)
	if err != nil {
		return "", errors.Wrap(err, "failed to detect the installer platform")
	}
	if facts.Platform == "" {
		return "", errors.Errorf("unsupported operating system on %s; set platform in the plan", master)
	}
	logger.Get().With("host", master).Infof("Detected platform %s", facts.Platform)
	return facts.Platform, nil
}
