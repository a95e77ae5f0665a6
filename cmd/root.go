package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ovoau",
		Short:         "OVO Energy Australia solar monitor",
		Long:          "ovoau logs into the myovo portal, polls hourly solar generation, grid import and export data, and reports energy and cost insights from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newAccountsCmd(app),
		newRunCmd(app),
		newStatusCmd(app),
		newPlanCmd(app),
	)

	return rootCmd
}
