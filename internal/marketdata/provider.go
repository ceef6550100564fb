// Package marketdata fetches point-in-time quote sets and historical price
// series from an ordered list of providers, normalizing heterogeneous
// provider payloads into the models.Snapshot schema.
package marketdata

import (
	"context"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// Provider is a single market-data source. The primary provider serves the
// entire market universe in one batched call; fallback providers serve a
// bounded, pre-selected subset.
type Provider interface {
	// Name identifies the provider in Snapshot.Provider / data_source fields.
	Name() string
	// FetchUniverse returns snapshots for the provider's full symbol universe.
	FetchUniverse(ctx context.Context) ([]models.Snapshot, error)
	// FetchQuotes returns snapshots for the requested symbols. Symbols the
	// provider cannot serve are omitted, not fabricated.
	FetchQuotes(ctx context.Context, symbols []string) ([]models.Snapshot, error)
	// FetchHistory returns up to days daily bars for one symbol, oldest first.
	FetchHistory(ctx context.Context, symbol string, days int) ([]models.PriceBar, error)
}
