package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	authadapter "github.com/kgrahame/ovoau/internal/adapters/auth"
	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the myovo portal",
	}

	cmd.AddCommand(newLoginPasswordCmd(app), newLoginTokensCmd(app), newLoginOAuthJSONCmd(app))

	return cmd
}

func newLoginPasswordCmd(app *app) *cobra.Command {
	var accountID string
	var email string
	var password string

	cmd := &cobra.Command{
		Use:   "password",
		Short: "Log in with myovo email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = app.cfg.GetString("auth.password")
			}
			if password == "" {
				return errors.New("no password given; pass --password or set OVOAU_AUTH_PASSWORD")
			}

			tokens, err := app.idp.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}

			return saveLogin(cmd, app, accountID, email, tokens)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (defaults to the id token's account claim)")
	cmd.Flags().StringVar(&email, "email", "", "myovo login email")
	cmd.Flags().StringVar(&password, "password", "", "myovo password (OVOAU_AUTH_PASSWORD also works)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLoginTokensCmd(app *app) *cobra.Command {
	var accountID string
	var accessToken string
	var idToken string
	var refreshToken string

	cmd := &cobra.Command{
		Use:   "tokens",
		Short: "Seed the session from manually captured tokens",
		Long:  "Seed the session from an access, id and refresh token captured in browser dev tools. All three are required; without the refresh token the session dies when the five-minute access token does.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tokens := oauthTokens{
				AccessToken:  accessToken,
				IDToken:      idToken,
				RefreshToken: refreshToken,
			}
			if strings.TrimSpace(tokens.AccessToken) == "" ||
				strings.TrimSpace(tokens.IDToken) == "" ||
				strings.TrimSpace(tokens.RefreshToken) == "" {
				return errors.New("all of --access, --id and --refresh are required")
			}

			return saveLogin(cmd, app, accountID, "", tokens.toTokenSet(app.now()))
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (defaults to the id token's account claim)")
	cmd.Flags().StringVar(&accessToken, "access", "", "Access token (a leading 'Bearer ' is stripped)")
	cmd.Flags().StringVar(&idToken, "id", "", "ID token")
	cmd.Flags().StringVar(&refreshToken, "refresh", "", "Refresh token")

	return cmd
}

func newLoginOAuthJSONCmd(app *app) *cobra.Command {
	var accountID string
	var file string

	cmd := &cobra.Command{
		Use:   "oauth-json",
		Short: "Seed the session from a pasted /oauth/token response",
		Long:  "Read an Auth0 /oauth/token JSON response from stdin (or --file) and seed the session from it. The response must carry access_token, id_token and refresh_token.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var payload []byte
			var err error
			if file != "" {
				payload, err = os.ReadFile(file)
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read oauth token response: %w", err)
			}

			tokens, err := decodeOAuthTokens(string(payload))
			if err != nil {
				return err
			}

			return saveLogin(cmd, app, accountID, "", tokens.toTokenSet(app.now()))
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Account ID (defaults to the id token's account claim)")
	cmd.Flags().StringVar(&file, "file", "", "Read the response from a file instead of stdin")

	return cmd
}

// saveLogin persists the outcome of any login flow: the account record in the
// repository and the refresh token in the credential store. Access and id
// tokens are never written to disk; they expire in five minutes anyway.
func saveLogin(cmd *cobra.Command, app *app, accountID, email string, tokens domain.TokenSet) error {
	ctx := cmd.Context()

	if accountID == "" {
		claimed, err := authadapter.AccountIDFromIDToken(tokens.IDToken)
		if err != nil {
			return fmt.Errorf("determine account id from id token (pass --account to override): %w", err)
		}
		accountID = claimed
	}

	secretRef := app.secretRefFor(domain.AccountID(accountID))

	account, err := app.repo.GetByID(ctx, domain.AccountID(accountID))
	if err != nil {
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return fmt.Errorf("load account %s: %w", accountID, err)
		}
		account = domain.Account{ID: domain.AccountID(accountID)}
	}
	if email != "" {
		account.Email = email
	}
	account.SecretRef = secretRef

	if err := app.repo.Save(ctx, account); err != nil {
		return fmt.Errorf("save account %s: %w", accountID, err)
	}
	if err := app.store.Put(ctx, secretRef, tokens.RefreshToken); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Logged in account %s\n", accountID)
	return err
}
