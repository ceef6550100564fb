package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nikhilsi/trading-recommendations-app/internal/models"
)

// PgxQuerier is the subset of pgxpool.Pool the repositories use. pgxmock
// satisfies it in tests.
type PgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ErrSymbolNotFound is returned when a watchlist operation targets a symbol
// that is not on the list.
var ErrSymbolNotFound = errors.New("symbol not on watchlist")

// WatchlistRepository persists the tracked symbols.
type WatchlistRepository struct {
	db PgxQuerier
}

// NewWatchlistRepository creates a watchlist repository over the given pool.
func NewWatchlistRepository(db PgxQuerier) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// GetWatchlist returns the tracked symbols, alphabetically.
func (r *WatchlistRepository) GetWatchlist(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT symbol FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		symbols = append(symbols, symbol)
	}
	return symbols, rows.Err()
}

// ListEntries returns the full watchlist entries, alphabetically by symbol.
func (r *WatchlistRepository) ListEntries(ctx context.Context) ([]models.WatchlistEntry, error) {
	rows, err := r.db.Query(ctx, `SELECT id, symbol, notes, added_at FROM watchlist ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchlistEntry
	for rows.Next() {
		var entry models.WatchlistEntry
		if err := rows.Scan(&entry.ID, &entry.Symbol, &entry.Notes, &entry.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist row: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AddSymbol adds a symbol to the watchlist, upserting so a duplicate add is
// idempotent. The symbol is stored uppercase.
func (r *WatchlistRepository) AddSymbol(ctx context.Context, symbol string, notes *string) (*models.WatchlistEntry, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, errors.New("symbol must not be empty")
	}

	query := `
		INSERT INTO watchlist (id, symbol, notes, added_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (symbol) DO UPDATE SET notes = COALESCE(EXCLUDED.notes, watchlist.notes)
		RETURNING id, symbol, notes, added_at
	`

	var entry models.WatchlistEntry
	err := r.db.QueryRow(ctx, query, uuid.New(), symbol, notes).
		Scan(&entry.ID, &entry.Symbol, &entry.Notes, &entry.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add %s to watchlist: %w", symbol, err)
	}
	return &entry, nil
}

// RemoveSymbol removes a symbol from the watchlist.
func (r *WatchlistRepository) RemoveSymbol(ctx context.Context, symbol string) error {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	tag, err := r.db.Exec(ctx, `DELETE FROM watchlist WHERE symbol = $1`, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSymbolNotFound
	}
	return nil
}
