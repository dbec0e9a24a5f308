package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mensylisir/pexm/pkg/config"
	"github.com/mensylisir/pexm/pkg/peconf"
)

type PlanOptions struct {
	ConfigFile string
	ShowConf   bool
	Output     string
}

var planOptions = &PlanOptions{}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVarP(&planOptions.ConfigFile, "config", "f", "", "Path to the install plan (YAML or TOML, required)")
	planCmd.Flags().BoolVar(&planOptions.ShowConf, "show-conf", false, "Also print the pe.conf generated for each role")
	planCmd.Flags().StringVarP(&planOptions.Output, "output", "o", "", "Print the effective plan with defaults applied: yaml or toml")
	if err := planCmd.MarkFlagRequired("config"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mark 'config' flag as required: %v\n", err)
	}
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the roles each host will play",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := loadSession(planOptions.ConfigFile)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		if planOptions.Output != "" {
			format := config.Format(planOptions.Output)
			data, err := config.Marshal(sess.plan, format)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		}

		table := tablewriter.NewWriter(out)
		table.SetHeader([]string{"HOST", "ROLE", "CLUSTER"})
		for _, r := range sess.topo.Roles() {
			table.Append([]string{r.Host, r.Role, r.Cluster})
		}
		table.Render()
		fmt.Fprintf(out, "HA: %t  external database: %t\n", sess.topo.HA(), sess.topo.HasExternalDatabase())

		if !planOptions.ShowConf {
			return nil
		}
		roles := make([]string, 0, len(sess.bundles))
		for role := range sess.bundles {
			roles = append(roles, string(role))
		}
		sort.Strings(roles)
		for _, role := range roles {
			data, err := sess.bundles[peconf.Role(role)].Render()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n# pe.conf (%s)\n%s", role, data)
		}
		return nil
	},
}
