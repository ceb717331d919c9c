// Package store persists the best-score-per-player table behind a common
// interface, with sqlite, postgres, mongo and in-memory implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/Otar989/bugman-bot/internal/models"
)

// ErrNotFound is returned by Get when no row exists for the player.
var ErrNotFound = errors.New("store: player not found")

// Submission carries one authenticated score claim into the store.
type Submission struct {
	ID          string
	Username    string
	DisplayName string
	Score       int
	At          time.Time
}

// PlayerStore is the persistence interface for Player rows.
//
// Upsert applies conditional best-score semantics atomically per player:
// the score is written only when the player has no row yet or the claim is
// strictly greater than the stored best; username and display_name are
// refreshed either way. It returns the authoritative row and whether the
// best advanced. Concurrent submissions for one id never let a lower score
// clobber a higher one.
type PlayerStore interface {
	Upsert(ctx context.Context, sub Submission) (models.Player, bool, error)
	Get(ctx context.Context, id string) (models.Player, error)
	List(ctx context.Context, limit, offset int) ([]models.Player, error)
}
