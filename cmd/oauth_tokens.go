package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	authadapter "github.com/kgrahame/ovoau/internal/adapters/auth"
	"github.com/kgrahame/ovoau/internal/domain"
)

// oauthTokens mirrors the Auth0 /oauth/token response shape, which is also
// what browser dev tools show when capturing a myovo login.
type oauthTokens struct {
	AccessToken  string `json:"access_token"`
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// decodeOAuthTokens parses a pasted token response. Seeding a session by hand
// needs the complete triple; a partial paste cannot sustain the refresh loop.
func decodeOAuthTokens(payload string) (oauthTokens, error) {
	var tokens oauthTokens
	if err := json.Unmarshal([]byte(payload), &tokens); err != nil {
		return oauthTokens{}, fmt.Errorf("decode oauth tokens: %w", err)
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return oauthTokens{}, fmt.Errorf("oauth tokens missing access_token")
	}
	if strings.TrimSpace(tokens.IDToken) == "" {
		return oauthTokens{}, fmt.Errorf("oauth tokens missing id_token")
	}
	if strings.TrimSpace(tokens.RefreshToken) == "" {
		return oauthTokens{}, fmt.Errorf("oauth tokens missing refresh_token")
	}
	return tokens, nil
}

func (o oauthTokens) toTokenSet(now time.Time) domain.TokenSet {
	access := domain.NormalizeAccessToken(o.AccessToken)
	return domain.TokenSet{
		AccessToken:  access,
		IDToken:      strings.TrimSpace(o.IDToken),
		RefreshToken: strings.TrimSpace(o.RefreshToken),
		IssuedAt:     now,
		ExpiresAt:    authadapter.TokenExpiry(access, now, o.ExpiresIn),
	}
}
