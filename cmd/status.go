package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	statusadapter "github.com/kgrahame/ovoau/internal/adapters/render/status"
	"github.com/kgrahame/ovoau/internal/application"
	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/kgrahame/ovoau/internal/sensors"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Fetch energy data and show every sensor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.resolveAccount(cmd.Context(), accountID)
			if err != nil {
				return err
			}

			session := app.newSession(cmd.Context(), account)
			coordinator := app.newCoordinator(session, account)

			err = runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching energy data...", coordinator.Refresh)
			if err != nil {
				var reauth *domain.ReauthRequiredError
				if errors.As(err, &reauth) {
					return fmt.Errorf("session expired; run 'ovoau login password --account %s' to re-authenticate: %w", account.ID, err)
				}
				return err
			}

			readings := sensors.Evaluate(sensors.Inputs{
				Snapshot:    coordinator.Snapshot(),
				Plan:        coordinator.Plan(),
				Now:         app.now(),
				LastSuccess: coordinator.LastSuccess(),
				Stale:       coordinator.Stale(application.DefaultStaleThreshold),
			})

			return writeReadingsOutput(cmd, app, readings, coordinator, asJSON)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (defaults to the configured or sole account)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit raw sensor readings as JSON")

	return cmd
}

func writeReadingsOutput(cmd *cobra.Command, app *app, readings []sensors.Reading, coordinator *application.Coordinator, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(readings)
	}

	rendered, err := app.statusRenderer(readings, statusadapter.RenderOptions{
		Now:         app.now(),
		LastSuccess: coordinator.LastSuccess(),
		Stale:       coordinator.Stale(application.DefaultStaleThreshold),
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
