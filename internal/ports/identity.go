package ports

import (
	"context"

	"github.com/kgrahame/ovoau/internal/domain"
)

// IdentityProvider is the only component that talks to the OAuth tenant.
// Login runs the full strategy fallback; Refresh exchanges a refresh token
// for a fresh TokenSet.
type IdentityProvider interface {
	Login(ctx context.Context, email, password string) (domain.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error)
}
