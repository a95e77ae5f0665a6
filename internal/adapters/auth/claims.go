package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kgrahame/ovoau/internal/domain"
)

// accountIDClaim is the Auth0 namespaced claim the myovo ID token carries the
// billing account id under.
const accountIDClaim = "https://my.ovoenergy.com.au/accountId"

// claimParser decodes without verifying: expiry bookkeeping needs the claims,
// not a trust decision, and the tenant's JWKS is not published for this
// client.
var claimParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// TokenExpiry derives the expiry for an access token, preferring the token's
// own exp claim, then now+expires_in, then the documented 5-minute lifetime.
func TokenExpiry(accessToken string, now time.Time, expiresIn int64) time.Time {
	raw := domain.NormalizeAccessToken(accessToken)

	claims := jwt.MapClaims{}
	if _, _, err := claimParser.ParseUnverified(raw, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil && !exp.IsZero() {
			return exp.Time
		}
	}

	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}

	return now.Add(domain.DefaultTokenLifetime)
}

// AccountIDFromIDToken extracts the OVO account id claim so login flows can
// fill it in when the user did not supply one.
func AccountIDFromIDToken(idToken string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := claimParser.ParseUnverified(idToken, claims); err != nil {
		return "", err
	}

	id, ok := claims[accountIDClaim].(string)
	if !ok || id == "" {
		return "", errors.New("id token carries no account id claim")
	}
	return id, nil
}
