// Package repository defines the durable rating store interface and errors.
package repository

import (
	"context"

	"github.com/tkarami/elorank/internal/domain/model"
)

// Store provides durable access to competitor ratings and the match log.
type Store interface {
	// Get returns the competitor with the given id.
	// Returns ErrNotFound when the id is unknown.
	Get(ctx context.Context, id string) (model.Competitor, error)

	// Create inserts a new competitor with the given initial rating.
	// Returns ErrAlreadyExists when the id is taken.
	Create(ctx context.Context, id string, initialRating int) (model.Competitor, error)

	// CommitMatch reads both pre-match ratings, computes both next
	// ratings, and persists the two updates plus one match record as a
	// single atomic unit. Returns ErrNotFound when either id is absent,
	// in which case nothing is mutated.
	CommitMatch(ctx context.Context, winnerID, loserID string, isDraw bool) (model.MatchResult, error)

	// List returns all competitors ordered by rating descending.
	List(ctx context.Context) ([]model.Competitor, error)

	// DefaultInitialRating returns the rounded mean of all current
	// ratings, or the configured fallback when the store is empty.
	DefaultInitialRating(ctx context.Context) (int, error)

	// Matches returns the most recent match records, newest first.
	Matches(ctx context.Context, limit int) ([]model.MatchRecord, error)

	// Count returns the number of competitors tracked in the store.
	Count(ctx context.Context) int

	// Close releases the underlying database handle.
	Close() error
}
