package ports

import (
	"context"
	"time"

	"github.com/kgrahame/ovoau/internal/domain"
)

// UsageAPI executes GraphQL requests against the energy-data endpoint.
// Implementations map transport and protocol failures onto the domain error
// taxonomy; they never retry on their own.
type UsageAPI interface {
	FetchHourly(ctx context.Context, tokens domain.TokenSet, accountID string, start, end time.Time) (map[domain.Stream][]domain.HourlyReading, error)
	FetchPlan(ctx context.Context, tokens domain.TokenSet, accountID string) (domain.Plan, error)
}

// AccountRepository stores per-account configuration between restarts.
type AccountRepository interface {
	GetByID(ctx context.Context, id domain.AccountID) (domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	Save(ctx context.Context, account domain.Account) error
}
