package models

import (
	"time"

	"github.com/google/uuid"
)

// WatchlistEntry is a symbol tracked for recommendation analysis.
type WatchlistEntry struct {
	ID      uuid.UUID `json:"id"`
	Symbol  string    `json:"symbol"`
	Notes   *string   `json:"notes,omitempty"`
	AddedAt time.Time `json:"added_at"`
}
