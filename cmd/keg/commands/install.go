package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/keg/internal/app"
)

func (c *CLI) newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <package>",
		Short: "Install a package and its dependencies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetString("version")
			policy, _ := cmd.Flags().GetString("policy")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			noWait, _ := cmd.Flags().GetBool("no-wait")

			return c.app.Install(cmd.Context(), args[0], app.InstallOptions{
				Constraint: version,
				Policy:     policy,
				DryRun:     dryRun,
				NoWait:     noWait,
			})
		},
	}

	cmd.Flags().StringP("version", "v", "", "Version constraint, e.g. \">=1.2, <2.0\"")
	addPolicyFlag(cmd)
	addTransactionFlags(cmd)

	return cmd
}

func (c *CLI) newRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "remove <package>...",
		Aliases: []string{"uninstall", "rm"},
		Short:   "Remove installed packages",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			autoremove, _ := cmd.Flags().GetBool("autoremove")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			noWait, _ := cmd.Flags().GetBool("no-wait")

			return c.app.Remove(cmd.Context(), args, app.RemoveOptions{
				Force:      force,
				Autoremove: autoremove,
				DryRun:     dryRun,
				NoWait:     noWait,
			})
		},
	}

	cmd.Flags().BoolP("force", "f", false, "Remove even if other packages depend on it")
	cmd.Flags().Bool("autoremove", false, "Also remove dependencies nothing else needs")
	addTransactionFlags(cmd)

	return cmd
}

func (c *CLI) newUpgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [package]...",
		Short: "Upgrade installed packages to newer versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if len(args) == 0 && !all {
				return cmd.Help()
			}
			policy, _ := cmd.Flags().GetString("policy")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			noWait, _ := cmd.Flags().GetBool("no-wait")

			return c.app.Upgrade(cmd.Context(), args, app.UpgradeOptions{
				All:    all,
				Policy: policy,
				DryRun: dryRun,
				NoWait: noWait,
			})
		},
	}

	cmd.Flags().BoolP("all", "a", false, "Upgrade every installed package")
	addPolicyFlag(cmd)
	addTransactionFlags(cmd)

	return cmd
}

func addPolicyFlag(cmd *cobra.Command) {
	cmd.Flags().String("policy", "", "Resolution policy: minimal-churn or latest (defaults to the configured policy)")
}

func addTransactionFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("dry-run", "n", false, "Print the plan without applying it")
	cmd.Flags().Bool("no-wait", false, "Fail instead of waiting when another keg process holds the store")
}
