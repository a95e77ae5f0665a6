package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/kgrahame/ovoau/internal/ports"
)

// SessionState is the auth session's lifecycle position.
type SessionState string

const (
	StateUnauthenticated SessionState = "unauthenticated"
	StateAuthenticating  SessionState = "authenticating"
	StateAuthenticated   SessionState = "authenticated"
	StateRefreshing      SessionState = "refreshing"
	StateReauthRequired  SessionState = "reauth_required"
)

// DefaultRefreshInterval proactively refreshes at ~80% of the 5-minute token
// lifetime so on-demand callers almost never pay the refresh latency.
const DefaultRefreshInterval = 4 * time.Minute

type SessionConfig struct {
	// Margin is subtracted from token expiry when judging validity.
	Margin time.Duration
	// RefreshInterval drives the background refresh ticker.
	RefreshInterval time.Duration
	// SecretRef is the credential-store key rotated refresh tokens are
	// persisted under. Empty disables persistence.
	SecretRef string
}

// SessionManager owns the login/refresh state machine and is the only
// component that talks to the identity provider. The TokenSet is replaced
// wholesale under a single-writer discipline: concurrent readers during a
// refresh join the in-flight attempt instead of starting their own.
type SessionManager struct {
	idp    ports.IdentityProvider
	store  ports.CredentialStore
	clock  ports.Clock
	logger *slog.Logger
	cfg    SessionConfig

	group singleflight.Group

	mu       sync.RWMutex
	state    SessionState
	tokens   domain.TokenSet
	email    string
	password string
}

func NewSessionManager(idp ports.IdentityProvider, store ports.CredentialStore, clock ports.Clock, logger *slog.Logger, cfg SessionConfig) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Margin <= 0 {
		cfg.Margin = domain.DefaultValidityMargin
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	return &SessionManager{
		idp:    idp,
		store:  store,
		clock:  clock,
		logger: logger,
		cfg:    cfg,
		state:  StateUnauthenticated,
	}
}

// SetCredentials configures the password-login fallback. Supplying fresh
// credentials clears a reauth-required state.
func (m *SessionManager) SetCredentials(email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.email = email
	m.password = password
	if m.state == StateReauthRequired {
		m.state = StateUnauthenticated
	}
}

// SetTokens seeds the session from an externally obtained token set (manual
// entry or a pasted oauth response) and persists the refresh token.
func (m *SessionManager) SetTokens(ctx context.Context, tokens domain.TokenSet) {
	tokens.AccessToken = domain.NormalizeAccessToken(tokens.AccessToken)
	m.install(ctx, tokens)
}

// SeedRefreshToken arms the session with a refresh token restored from the
// credential store. The first GetValidTokens call exchanges it.
func (m *SessionManager) SeedRefreshToken(refreshToken string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = domain.TokenSet{RefreshToken: refreshToken}
	m.state = StateUnauthenticated
}

// State reports the current lifecycle position.
func (m *SessionManager) State() SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// GetValidTokens returns a usable TokenSet, refreshing or logging in as
// needed. The valid-token fast path takes no network call and is safe to hit
// every few seconds from many readers.
func (m *SessionManager) GetValidTokens(ctx context.Context) (domain.TokenSet, error) {
	m.mu.RLock()
	tokens, state := m.tokens, m.state
	m.mu.RUnlock()

	if state == StateAuthenticated && tokens.Valid(m.clock.Now(), m.cfg.Margin) {
		return tokens, nil
	}
	if state == StateReauthRequired {
		return domain.TokenSet{}, &domain.ReauthRequiredError{Reason: "session requires credential re-entry"}
	}

	return m.refresh(ctx, false)
}

// ForceRefresh discards the current token set and establishes a new one.
// Used when the API rejected tokens the session still believed valid.
func (m *SessionManager) ForceRefresh(ctx context.Context) (domain.TokenSet, error) {
	return m.refresh(ctx, true)
}

// Start runs the background refresh ticker until ctx is cancelled.
func (m *SessionManager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.cfg.RefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if m.State() == StateReauthRequired {
					continue
				}
				if _, err := m.refresh(ctx, true); err != nil {
					m.logger.Warn("background token refresh failed", "error", err)
				}
			}
		}
	}()
}

// refresh funnels every (re)authentication through a single flight so N
// concurrent callers produce exactly one identity-provider call and all
// receive the same resulting TokenSet.
func (m *SessionManager) refresh(ctx context.Context, force bool) (domain.TokenSet, error) {
	result, err, _ := m.group.Do("refresh", func() (any, error) {
		return m.establish(ctx, force)
	})
	if err != nil {
		return domain.TokenSet{}, err
	}
	return result.(domain.TokenSet), nil
}

func (m *SessionManager) establish(ctx context.Context, force bool) (domain.TokenSet, error) {
	m.mu.Lock()
	// A caller that queued behind a completed refresh sees fresh tokens here.
	if !force && m.state == StateAuthenticated && m.tokens.Valid(m.clock.Now(), m.cfg.Margin) {
		tokens := m.tokens
		m.mu.Unlock()
		return tokens, nil
	}
	refreshToken := m.tokens.RefreshToken
	email, password := m.email, m.password
	if refreshToken != "" {
		m.state = StateRefreshing
	} else {
		m.state = StateAuthenticating
	}
	m.mu.Unlock()

	if refreshToken != "" {
		tokens, err := m.idp.Refresh(ctx, refreshToken)
		if err == nil {
			m.install(ctx, tokens)
			return tokens, nil
		}

		var reauth *domain.ReauthRequiredError
		if !errors.As(err, &reauth) {
			// Transient failure; keep state recoverable for the next attempt.
			m.setState(StateUnauthenticated)
			return domain.TokenSet{}, err
		}

		m.logger.Warn("refresh token rejected", "error", err)
		if email == "" {
			m.setState(StateReauthRequired)
			return domain.TokenSet{}, err
		}
		// Fall through to a full login with the stored credentials.
	}

	if email == "" {
		m.setState(StateReauthRequired)
		return domain.TokenSet{}, &domain.AuthenticationError{Reason: "no credentials configured"}
	}

	tokens, err := m.idp.Login(ctx, email, password)
	if err != nil {
		var authErr *domain.AuthenticationError
		if errors.As(err, &authErr) {
			m.setState(StateReauthRequired)
		} else {
			m.setState(StateUnauthenticated)
		}
		return domain.TokenSet{}, err
	}

	m.install(ctx, tokens)
	return tokens, nil
}

func (m *SessionManager) install(ctx context.Context, tokens domain.TokenSet) {
	m.mu.Lock()
	m.tokens = tokens
	m.state = StateAuthenticated
	m.mu.Unlock()

	if m.store == nil || m.cfg.SecretRef == "" || tokens.RefreshToken == "" {
		return
	}
	if err := m.store.Put(ctx, m.cfg.SecretRef, tokens.RefreshToken); err != nil {
		m.logger.Warn("persisting refresh token failed", "error", err)
	}
}

func (m *SessionManager) setState(state SessionState) {
	m.mu.Lock()
	m.state = state
	m.mu.Unlock()
}
