package cmd

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newPlanCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Fetch and show the current supply agreement",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.resolveAccount(cmd.Context(), accountID)
			if err != nil {
				return err
			}

			session := app.newSession(cmd.Context(), account)
			coordinator := app.newCoordinator(session, account)

			err = runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching supply agreement...", coordinator.RefreshPlan)
			if err != nil {
				return err
			}

			plan := coordinator.Plan()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Plan: %s\n", plan.Name)
			if plan.NMI != "" {
				fmt.Fprintf(out, "NMI:  %s\n", plan.NMI)
			}
			if !plan.AgreementFrom.IsZero() {
				fmt.Fprintf(out, "Agreement: %s", plan.AgreementFrom.Format("2006-01-02"))
				if !plan.AgreementTo.IsZero() {
					fmt.Fprintf(out, " to %s", plan.AgreementTo.Format("2006-01-02"))
				}
				fmt.Fprintln(out)
			}

			labels := make([]string, 0, len(plan.Rates))
			for label := range plan.Rates {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				fmt.Fprintf(out, "  %-10s $%.4f/kWh\n", label, plan.Rates[label])
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (defaults to the configured or sole account)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the plan as JSON")

	return cmd
}
