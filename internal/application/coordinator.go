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

const (
	// DefaultPollInterval matches the myovo portal's own refresh cadence.
	DefaultPollInterval = 5 * time.Minute

	// DefaultStaleThreshold is two missed poll cycles: one transient provider
	// hiccup must not flip every sensor to unavailable.
	DefaultStaleThreshold = 2 * DefaultPollInterval

	// DefaultLookbackDays covers the widest rolling-window consumer
	// (30-day rankings and the hourly heatmap).
	DefaultLookbackDays = 30
)

type CoordinatorConfig struct {
	AccountID     string
	LookbackDays  int
	MaxAttempts   int
	BackoffBase   time.Duration
	RateOverrides map[string]float64
}

// Coordinator orchestrates periodic fetches: valid tokens from the session
// manager, hourly data from the query client, merged into the series cache.
// It is purely reactive; the caller owns the polling schedule.
type Coordinator struct {
	session *SessionManager
	api     ports.UsageAPI
	clock   ports.Clock
	logger  *slog.Logger
	cfg     CoordinatorConfig

	group singleflight.Group

	mu          sync.RWMutex
	cache       *domain.SeriesCache
	plan        domain.Plan
	planFetched bool
	lastSuccess time.Time
}

func NewCoordinator(session *SessionManager, api ports.UsageAPI, clock ports.Clock, logger *slog.Logger, cfg CoordinatorConfig) *Coordinator {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}

	return &Coordinator{
		session: session,
		api:     api,
		clock:   clock,
		logger:  logger,
		cfg:     cfg,
		cache:   domain.NewSeriesCache(),
	}
}

// Refresh fetches the current lookback window and merges it into the cache.
// Refreshes never overlap: a trigger arriving while one is in flight joins it
// and shares its outcome. On failure the previous cache stays intact.
func (c *Coordinator) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.doRefresh(ctx)
	})
	return err
}

func (c *Coordinator) doRefresh(ctx context.Context) error {
	now := c.clock.Now()
	rng := domain.DateRange{
		Start: now.AddDate(0, 0, -c.cfg.LookbackDays),
		End:   now,
	}

	tokens, err := c.session.GetValidTokens(ctx)
	if err != nil {
		return err
	}

	batch, err := c.fetchWithRetry(ctx, tokens, rng)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.cache.Merge(rng, batch)
	c.lastSuccess = now
	c.mu.Unlock()

	c.logger.Debug("refresh complete",
		"start", rng.Start.Format("2006-01-02"),
		"end", rng.End.Format("2006-01-02"),
		"solar_points", len(batch[domain.StreamSolar]),
	)

	c.ensurePlan(ctx, tokens)
	return nil
}

func (c *Coordinator) fetchWithRetry(ctx context.Context, tokens domain.TokenSet, rng domain.DateRange) (map[domain.Stream][]domain.HourlyReading, error) {
	reauthed := false
	backoff := c.cfg.BackoffBase

	for attempt := 1; ; attempt++ {
		batch, err := c.api.FetchHourly(ctx, tokens, c.cfg.AccountID, rng.Start, rng.End)
		if err == nil {
			return batch, nil
		}

		var expired *domain.TokenExpiredError
		if errors.As(err, &expired) && !reauthed {
			// Tokens died between validity check and use. Re-auth and retry
			// the fetch exactly once.
			reauthed = true
			tokens, err = c.session.ForceRefresh(ctx)
			if err != nil {
				return nil, err
			}
			continue
		}

		if !domain.IsRetryable(err) || attempt >= c.cfg.MaxAttempts {
			return nil, err
		}

		c.logger.Warn("fetch failed, backing off", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

// ensurePlan fetches plan information once per process lifetime. Failures are
// logged and retried on the next cycle; plan data is not worth failing a
// refresh over.
func (c *Coordinator) ensurePlan(ctx context.Context, tokens domain.TokenSet) {
	c.mu.RLock()
	fetched := c.planFetched
	c.mu.RUnlock()
	if fetched {
		return
	}

	if err := c.fetchPlan(ctx, tokens); err != nil {
		c.logger.Warn("plan fetch failed", "error", err)
	}
}

// RefreshPlan bypasses the once-per-process cache on explicit user request.
func (c *Coordinator) RefreshPlan(ctx context.Context) error {
	tokens, err := c.session.GetValidTokens(ctx)
	if err != nil {
		return err
	}
	return c.fetchPlan(ctx, tokens)
}

func (c *Coordinator) fetchPlan(ctx context.Context, tokens domain.TokenSet) error {
	plan, err := c.api.FetchPlan(ctx, tokens, c.cfg.AccountID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.plan = plan.WithOverrides(c.cfg.RateOverrides)
	c.planFetched = true
	c.mu.Unlock()
	return nil
}

// Series returns the cached readings for one stream. Never blocks on a
// fetch; possibly stale or empty.
func (c *Coordinator) Series(stream domain.Stream) []domain.HourlyReading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Series(stream)
}

// Snapshot returns an independent copy of all cached streams.
func (c *Coordinator) Snapshot() map[domain.Stream][]domain.HourlyReading {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cache.Snapshot()
}

// Plan returns the cached plan with rate overrides applied. The zero Plan is
// returned before the first successful plan fetch.
func (c *Coordinator) Plan() domain.Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.planFetched {
		return domain.Plan{}.WithOverrides(c.cfg.RateOverrides)
	}
	return c.plan
}

// LastSuccess reports when the cache was last refreshed successfully.
func (c *Coordinator) LastSuccess() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastSuccess
}

// Stale reports whether the cache has outlived the given threshold. True
// until the first successful refresh.
func (c *Coordinator) Stale(threshold time.Duration) bool {
	if threshold <= 0 {
		threshold = DefaultStaleThreshold
	}
	last := c.LastSuccess()
	if last.IsZero() {
		return true
	}
	return c.clock.Now().Sub(last) > threshold
}
