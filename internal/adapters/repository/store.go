// Package repository defines the draft board store interface and errors.
package repository

import (
	"context"

	"github.com/gavelhq/gavel/internal/domain/model"
)

// Entry represents a draft board row: a still-available player ranked by
// projected value.
type Entry struct {
	Rank           int
	PlayerID       string
	ProjectedValue float64
	Tier           model.ValueTier
}

// Store provides read/write access to the draft state: the projection
// pool, the purchase log, and the board of still-available players.
type Store interface {
	// ReplaceProjections swaps in a new projection pool. Players already
	// purchased in the active draft stay off the board.
	ReplaceProjections(ctx context.Context, entries []model.ProjectionEntry) error

	// RecordPurchase appends a completed purchase and takes the player off
	// the board. Returns true if the player was on the board, false if the
	// purchase referenced an unknown or already purchased player.
	RecordPurchase(ctx context.Context, p model.DraftedPurchase) (bool, error)

	// ConfigureDraft resets the draft accounting and restores all pooled
	// players to the board. Returns ErrInvalidDraft when budget or slots
	// are not positive.
	ConfigureDraft(ctx context.Context, draftID string, totalBudget float64, totalSlots int) error

	// Projections returns a copy of the loaded projection pool.
	Projections(ctx context.Context) []model.ProjectionEntry

	// Purchases returns a copy of the purchase log in arrival order.
	Purchases(ctx context.Context) []model.DraftedPurchase

	// DraftState returns the current draft accounting.
	DraftState(ctx context.Context) model.DraftState

	// TopAvailable returns the best n still-available players ordered by
	// projected value desc.
	TopAvailable(ctx context.Context, n int) ([]Entry, error)

	// Rank returns the board position for a still-available player.
	// Returns ErrNotFound if the player is unknown or already purchased.
	Rank(ctx context.Context, playerID string) (Entry, error)

	// Count returns the number of players still on the board.
	Count(ctx context.Context) int
}
