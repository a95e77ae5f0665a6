package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAccountsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage stored accounts",
	}

	cmd.AddCommand(newAccountsListCmd(app))

	return cmd
}

func newAccountsListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, err := app.repo.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list accounts: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(accounts) == 0 {
				_, err := fmt.Fprintln(out, "No accounts configured. Run 'ovoau login' to add one.")
				return err
			}

			for _, account := range accounts {
				line := string(account.ID)
				if account.Email != "" {
					line += "\t" + account.Email
				}
				if account.SecretRef != "" {
					line += "\t" + account.SecretRef
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}

			return nil
		},
	}
}
