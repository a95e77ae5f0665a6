package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
	"github.com/kgrahame/ovoau/internal/ports"
)

const maxOAuthResponseBytes = 1 << 20

const (
	// DefaultDomain is OVO Australia's Auth0 tenant.
	DefaultDomain = "https://login.ovoenergy.com.au"
	// DefaultClientID is the public client id the myovo web app uses.
	DefaultClientID = "5JHnPn71qgV3LmF3I3xX0KvfRBdROVhR"
	// DefaultConnection is the Auth0 database connection for the
	// database-connection grant strategy.
	DefaultConnection = "Username-Password-Authentication"

	passwordRealmGrantType = "http://auth0.com/oauth/grant-type/password-realm"
	tokenScope             = "openid profile email offline_access"
)

// Config carries the tenant parameters. Zero fields fall back to the OVO
// defaults; Realm and Connection are overridable because the tenant's grant
// configuration is not guaranteed to be stable across accounts.
type Config struct {
	Domain         string
	ClientID       string
	Realm          string
	Connection     string
	RequestTimeout time.Duration
}

// Provider implements ports.IdentityProvider against an Auth0 /oauth/token
// endpoint.
type Provider struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	clock      ports.Clock
}

var _ ports.IdentityProvider = (*Provider)(nil)

func NewProvider(cfg Config, httpClient *http.Client, logger *slog.Logger, clock ports.Clock) *Provider {
	if cfg.Domain == "" {
		cfg.Domain = DefaultDomain
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.Connection == "" {
		cfg.Connection = DefaultConnection
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Provider{cfg: cfg, httpClient: httpClient, logger: logger, clock: clock}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

type oauthErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type grantStrategy struct {
	name string
	form func(p *Provider, email, password string) url.Values
}

// grantStrategies is the ordered fallback of authentication strategies. The
// tenant's grant configuration varies by account, so each is tried in turn
// until one returns a complete token triple.
var grantStrategies = []grantStrategy{
	{
		name: "password",
		form: func(p *Provider, email, password string) url.Values {
			v := url.Values{}
			v.Set("grant_type", "password")
			v.Set("client_id", p.cfg.ClientID)
			v.Set("username", email)
			v.Set("password", password)
			v.Set("scope", tokenScope)
			return v
		},
	},
	{
		name: "password-realm",
		form: func(p *Provider, email, password string) url.Values {
			v := url.Values{}
			v.Set("grant_type", passwordRealmGrantType)
			v.Set("client_id", p.cfg.ClientID)
			v.Set("username", email)
			v.Set("password", password)
			v.Set("realm", p.realm())
			v.Set("scope", tokenScope)
			return v
		},
	},
	{
		name: "database-connection",
		form: func(p *Provider, email, password string) url.Values {
			v := url.Values{}
			v.Set("grant_type", "password")
			v.Set("client_id", p.cfg.ClientID)
			v.Set("username", email)
			v.Set("password", password)
			v.Set("connection", p.cfg.Connection)
			v.Set("scope", tokenScope)
			return v
		},
	},
}

// Login tries each grant strategy in order and returns the first complete
// TokenSet. When every strategy fails the last provider rejection is wrapped
// in a domain.AuthenticationError.
func (p *Provider) Login(ctx context.Context, email, password string) (domain.TokenSet, error) {
	if email == "" || password == "" {
		return domain.TokenSet{}, &domain.AuthenticationError{Reason: "email and password are required"}
	}

	var lastErr error
	for _, strategy := range grantStrategies {
		tokens, err := p.requestToken(ctx, strategy.form(p, email, password))
		if err == nil && tokens.RefreshToken == "" {
			err = errors.New("strategy returned an incomplete token triple")
		}
		if err == nil {
			p.logger.Info("authenticated with identity provider", "strategy", strategy.name)
			return tokens, nil
		}

		// Transport failures abort the fallback; trying the next grant
		// against an unreachable tenant only adds latency.
		var transport *domain.TransportError
		if errors.As(err, &transport) {
			return domain.TokenSet{}, err
		}

		p.logger.Debug("grant strategy rejected", "strategy", strategy.name, "error", err)
		lastErr = err
	}

	return domain.TokenSet{}, &domain.AuthenticationError{Reason: "all grant strategies rejected", Err: lastErr}
}

// Refresh exchanges a refresh token for a new TokenSet. A provider rejection
// means the refresh token is dead and interactive re-entry is needed.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	if refreshToken == "" {
		return domain.TokenSet{}, &domain.ReauthRequiredError{Reason: "no refresh token held"}
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", p.cfg.ClientID)
	form.Set("refresh_token", refreshToken)

	tokens, err := p.requestToken(ctx, form)
	if err != nil {
		var transport *domain.TransportError
		if errors.As(err, &transport) {
			return domain.TokenSet{}, err
		}
		return domain.TokenSet{}, &domain.ReauthRequiredError{Reason: fmt.Sprintf("refresh token rejected: %v", err)}
	}

	// Auth0 may or may not rotate the refresh token; keep the old one when
	// none is issued so the session stays recoverable.
	if tokens.RefreshToken == "" {
		tokens.RefreshToken = refreshToken
	}

	return tokens, nil
}

func (p *Provider) requestToken(ctx context.Context, form url.Values) (domain.TokenSet, error) {
	endpoint := strings.TrimSuffix(p.cfg.Domain, "/") + "/oauth/token"

	requestCtx, cancel := p.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.TokenSet{}, &domain.TransportError{Op: "oauth token request", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return domain.TokenSet{}, &domain.ServiceUnavailableError{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return domain.TokenSet{}, fmt.Errorf("request token: %s", decodeOAuthError(resp))
	}

	var payload tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOAuthResponseBytes)).Decode(&payload); err != nil {
		return domain.TokenSet{}, fmt.Errorf("decode token response: %w", err)
	}

	if payload.AccessToken == "" || payload.IDToken == "" {
		return domain.TokenSet{}, errors.New("token response missing access or id token")
	}

	return p.newTokenSet(payload), nil
}

func (p *Provider) newTokenSet(payload tokenResponse) domain.TokenSet {
	now := p.clock.Now()
	set := domain.TokenSet{
		AccessToken:  domain.NormalizeAccessToken(payload.AccessToken),
		IDToken:      payload.IDToken,
		RefreshToken: payload.RefreshToken,
		IssuedAt:     now,
		ExpiresAt:    TokenExpiry(payload.AccessToken, now, payload.ExpiresIn),
	}
	return set
}

func (p *Provider) realm() string {
	if p.cfg.Realm != "" {
		return p.cfg.Realm
	}
	return p.cfg.Connection
}

func (p *Provider) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, p.cfg.RequestTimeout)
}

func decodeOAuthError(resp *http.Response) string {
	var oauthErr oauthErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOAuthResponseBytes)).Decode(&oauthErr); err != nil {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if oauthErr.Error == "" {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	if oauthErr.ErrorDescription != "" {
		return oauthErr.Error + ": " + oauthErr.ErrorDescription
	}
	return oauthErr.Error
}
