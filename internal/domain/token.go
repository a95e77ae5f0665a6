package domain

import (
	"strings"
	"time"
)

const (
	// DefaultTokenLifetime is assumed when the provider response carries no
	// usable expiry. OVO access tokens live for five minutes.
	DefaultTokenLifetime = 5 * time.Minute

	// DefaultValidityMargin is subtracted from the expiry when deciding
	// whether a TokenSet is still usable.
	DefaultValidityMargin = time.Minute
)

// TokenSet is the dual-token session state for the OVO API: the access token
// goes into the authorization header, the ID token into myovo-id-token.
// A TokenSet is always replaced wholesale, never mutated field by field.
type TokenSet struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Valid reports whether the set can still be used at now, leaving margin
// before the real expiry so in-flight requests don't race the cutoff.
// A non-positive margin falls back to DefaultValidityMargin.
func (t TokenSet) Valid(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" || t.IDToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	if margin <= 0 {
		margin = DefaultValidityMargin
	}
	return now.Before(t.ExpiresAt.Add(-margin))
}

// IsZero reports whether the set carries no tokens at all.
func (t TokenSet) IsZero() bool {
	return t.AccessToken == "" && t.IDToken == "" && t.RefreshToken == ""
}

// NormalizeAccessToken strips an optional "Bearer " prefix. Tokens pasted out
// of browser dev tools usually carry one; the query client adds its own.
func NormalizeAccessToken(token string) string {
	return strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
}
