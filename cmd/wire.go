package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	// The default Australia/Sydney zone must resolve even on hosts without
	// an IANA database.
	_ "time/tzdata"

	authadapter "github.com/kgrahame/ovoau/internal/adapters/auth"
	ovoadapter "github.com/kgrahame/ovoau/internal/adapters/ovo"
	statusadapter "github.com/kgrahame/ovoau/internal/adapters/render/status"
	tomlrepo "github.com/kgrahame/ovoau/internal/adapters/repo/toml"
	filestore "github.com/kgrahame/ovoau/internal/adapters/secrets/file"
	"github.com/kgrahame/ovoau/internal/application"
	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/kgrahame/ovoau/internal/ports"
	"github.com/kgrahame/ovoau/internal/sensors"
	"github.com/spf13/viper"
)

const configDirName = ".ovoau"

type app struct {
	cfg            *viper.Viper
	logger         *slog.Logger
	repo           ports.AccountRepository
	store          ports.CredentialStore
	idp            ports.IdentityProvider
	api            ports.UsageAPI
	clock          ports.Clock
	statusRenderer func([]sensors.Reading, statusadapter.RenderOptions) (string, error)
	now            func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, configDirName))
	cfg.SetEnvPrefix("OVOAU")
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()
	if err := cfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	logger := newLogger(cfg.GetString("log.level"))

	// OVO supply points live in Australian Eastern time; "today" and every
	// other calendar window must follow the account's zone, not the host's.
	tz := cfg.GetString("timezone")
	if tz == "" {
		tz = "Australia/Sydney"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	repo, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire account repository: %w", err)
	}

	secretsDir := cfg.GetString("secrets.path")
	if secretsDir == "" {
		secretsDir = filepath.Join(homeDir, configDirName, "secrets")
	}

	clock := ports.NewZoneClock(loc)

	idp := authadapter.NewProvider(authadapter.Config{
		Domain:     cfg.GetString("auth.domain"),
		ClientID:   cfg.GetString("auth.client_id"),
		Realm:      cfg.GetString("auth.realm"),
		Connection: cfg.GetString("auth.connection"),
	}, http.DefaultClient, logger, clock)

	api := ovoadapter.NewClient(cfg.GetString("api.endpoint"), http.DefaultClient, logger)

	return &app{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		store:          filestore.NewStore(secretsDir),
		idp:            idp,
		api:            api,
		clock:          clock,
		statusRenderer: statusadapter.Render,
		now:            clock.Now,
	}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil || level == "" {
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveAccount picks the account a command operates on: the --account flag,
// then the configured default, then the sole stored account.
func (a *app) resolveAccount(ctx context.Context, accountID string) (domain.Account, error) {
	if accountID == "" {
		accountID = a.cfg.GetString("account_id")
	}
	if accountID != "" {
		account, err := a.repo.GetByID(ctx, domain.AccountID(accountID))
		if err != nil {
			return domain.Account{}, fmt.Errorf("load account %s: %w", accountID, err)
		}
		return account, nil
	}

	accounts, err := a.repo.List(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("list accounts: %w", err)
	}
	switch len(accounts) {
	case 0:
		return domain.Account{}, errors.New("no accounts configured; run 'ovoau login' first")
	case 1:
		return accounts[0], nil
	default:
		return domain.Account{}, errors.New("multiple accounts configured; pass --account")
	}
}

// newSession builds the token session for one account: the stored refresh
// token seeds it, and configured credentials arm the password-login fallback.
func (a *app) newSession(ctx context.Context, account domain.Account) *application.SessionManager {
	session := application.NewSessionManager(a.idp, a.store, a.clock, a.logger, application.SessionConfig{
		SecretRef: account.SecretRef,
	})

	if account.SecretRef != "" {
		if refreshToken, err := a.store.Get(ctx, account.SecretRef); err == nil {
			session.SeedRefreshToken(refreshToken)
		}
	}

	email := a.cfg.GetString("auth.email")
	if email == "" {
		email = account.Email
	}
	if password := a.cfg.GetString("auth.password"); password != "" && email != "" {
		session.SetCredentials(email, password)
	}

	return session
}

func (a *app) newCoordinator(session *application.SessionManager, account domain.Account) *application.Coordinator {
	lookbackDays := a.cfg.GetInt("poll.lookback_days")
	overrides := account.RateOverrides
	if configured := a.cfg.GetStringMap("rates"); len(configured) > 0 {
		merged := make(map[string]float64, len(overrides)+len(configured))
		for label, rate := range overrides {
			merged[label] = rate
		}
		for label := range configured {
			merged[strings.ToLower(label)] = a.cfg.GetFloat64("rates." + label)
		}
		overrides = merged
	}

	return application.NewCoordinator(session, a.api, a.clock, a.logger, application.CoordinatorConfig{
		AccountID:     string(account.ID),
		LookbackDays:  lookbackDays,
		RateOverrides: overrides,
	})
}

func (a *app) pollInterval() time.Duration {
	if interval := a.cfg.GetDuration("poll.interval"); interval > 0 {
		return interval
	}
	return application.DefaultPollInterval
}

func (a *app) secretRefFor(accountID domain.AccountID) string {
	return "ovo://" + string(accountID) + "/refresh_token"
}
