package marketdata

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
	"github.com/nikhilsi/trading-recommendations-app/internal/utils"
)

// SnapshotSource fetches normalized quote sets from an ordered list of
// providers. The priority order is explicit construction-time configuration.
// A failed, timed-out or rate-limited provider is retried once with backoff
// and then skipped in favor of the next provider; when every provider fails
// the call fails with DataUnavailable and no partial data is returned.
type SnapshotSource struct {
	providers []Provider
	timeout   time.Duration
	logger    *logrus.Logger
}

// NewSnapshotSource creates a snapshot source over providers in priority
// order. timeout bounds each individual provider attempt.
func NewSnapshotSource(providers []Provider, timeout time.Duration, logger *logrus.Logger) *SnapshotSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SnapshotSource{providers: providers, timeout: timeout, logger: logger}
}

// FetchUniverse returns the snapshot map for the serving provider's full
// universe. When the primary provider is down the universe degrades to the
// fallback provider's bounded subset; the degradation is visible through
// Snapshot.Provider.
func (s *SnapshotSource) FetchUniverse(ctx context.Context) (map[string]models.Snapshot, error) {
	return s.fetch(ctx, func(ctx context.Context, p Provider) ([]models.Snapshot, error) {
		return p.FetchUniverse(ctx)
	})
}

// FetchQuotes returns the snapshot map for the requested symbols.
func (s *SnapshotSource) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Snapshot, error) {
	return s.fetch(ctx, func(ctx context.Context, p Provider) ([]models.Snapshot, error) {
		return p.FetchQuotes(ctx, symbols)
	})
}

// FetchHistory returns a daily price series for one symbol, oldest first,
// from the first provider able to serve it.
func (s *SnapshotSource) FetchHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error) {
	var attempts []string
	var lastErr error

	for _, provider := range s.providers {
		attempts = append(attempts, provider.Name())

		var bars []models.PriceBar
		err := s.withRetry(ctx, func(attemptCtx context.Context) error {
			var err error
			bars, err = provider.FetchHistory(attemptCtx, symbol, days)
			return err
		})
		if err != nil {
			lastErr = err
			s.logger.WithFields(logrus.Fields{
				"provider": provider.Name(),
				"symbol":   symbol,
			}).WithError(err).Warn("provider history fetch failed, trying next")
			continue
		}
		return bars, nil
	}
	return nil, utils.NewDataUnavailableError(attempts, lastErr)
}

// fetch walks the provider priority list, normalizing the first successful
// response into a symbol-keyed map stamped with the serving provider.
func (s *SnapshotSource) fetch(ctx context.Context, call func(context.Context, Provider) ([]models.Snapshot, error)) (map[string]models.Snapshot, error) {
	var attempts []string
	var lastErr error

	for _, provider := range s.providers {
		attempts = append(attempts, provider.Name())

		var snapshots []models.Snapshot
		err := s.withRetry(ctx, func(attemptCtx context.Context) error {
			var err error
			snapshots, err = call(attemptCtx, provider)
			return err
		})
		if err != nil {
			lastErr = err
			s.logger.WithFields(logrus.Fields{
				"provider": provider.Name(),
			}).WithError(err).Warn("provider fetch failed, trying next")
			continue
		}

		result := make(map[string]models.Snapshot, len(snapshots))
		for _, snapshot := range snapshots {
			if !snapshot.Valid() {
				continue
			}
			snapshot.Provider = provider.Name()
			result[snapshot.Symbol] = snapshot
		}
		if len(result) == 0 {
			lastErr = utils.NewDataUnavailableError([]string{provider.Name()}, nil)
			continue
		}
		return result, nil
	}
	return nil, utils.NewDataUnavailableError(attempts, lastErr)
}

// withRetry runs one provider attempt with a per-attempt timeout and a
// single backoff retry. Providers are never retried indefinitely; after the
// retry budget the caller moves on to the next provider.
func (s *SnapshotSource) withRetry(ctx context.Context, attempt func(context.Context) error) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 1), ctx)
	return backoff.Retry(func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return attempt(attemptCtx)
	}, policy)
}
