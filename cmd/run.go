package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kgrahame/ovoau/internal/application"
	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/spf13/cobra"
)

func newRunCmd(app *app) *cobra.Command {
	var accountID string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll energy data continuously",
		Long:  "Keep the session alive and poll hourly energy data on a fixed interval until interrupted. Intended to run under a process supervisor.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := app.resolveAccount(cmd.Context(), accountID)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session := app.newSession(ctx, account)
			session.Start(ctx)
			coordinator := app.newCoordinator(session, account)
			interval := app.pollInterval()

			app.logger.Info("polling started",
				"account", account.ID,
				"interval", interval,
			)

			runPoll(ctx, app, coordinator, string(account.ID))

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					app.logger.Info("polling stopped", "account", account.ID)
					return nil
				case <-ticker.C:
					runPoll(ctx, app, coordinator, string(account.ID))
				}
			}
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (defaults to the configured or sole account)")

	return cmd
}

// runPoll performs one refresh cycle. Failures are logged, never fatal: the
// cache keeps serving the last good data and the next tick tries again.
func runPoll(ctx context.Context, app *app, coordinator *application.Coordinator, accountID string) {
	if err := coordinator.Refresh(ctx); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		var reauth *domain.ReauthRequiredError
		if errors.As(err, &reauth) {
			app.logger.Error("re-authentication required",
				"account", accountID,
				"hint", fmt.Sprintf("run 'ovoau login password --account %s'", accountID),
			)
			return
		}
		app.logger.Warn("poll failed", "account", accountID, "error", err)
		return
	}

	app.logger.Info("poll complete",
		"account", accountID,
		"last_success", coordinator.LastSuccess(),
	)
}
