package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/keg/internal/app"
)

func (c *CLI) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List installed packages",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.List(cmd.Context())
		},
	}
}

func (c *CLI) newWhyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "why <package>",
		Short: "Show why a package is installed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Why(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <package>",
		Short: "Show the available versions and dependencies of a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.app.Info(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check installed payloads and dependencies for damage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.app.Verify(cmd.Context())
		},
	}
}

func (c *CLI) newCleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove staging leftovers and unreferenced payloads and downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noWait, _ := cmd.Flags().GetBool("no-wait")
			return c.app.Cleanup(cmd.Context(), app.CleanupOptions{NoWait: noWait})
		},
	}

	cmd.Flags().Bool("no-wait", false, "Fail instead of waiting when another keg process holds the store")

	return cmd
}
