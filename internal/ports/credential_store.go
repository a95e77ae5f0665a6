package ports

import "context"

// CredentialStore persists secrets the session manager must survive a
// restart with, currently just the rotating refresh token.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
