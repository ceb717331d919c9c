// Package game implements the score-submission pipeline and the
// leaderboard read path.
package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Otar989/bugman-bot/internal/initdata"
	"github.com/Otar989/bugman-bot/internal/models"
	"github.com/Otar989/bugman-bot/internal/ratelimit"
	"github.com/Otar989/bugman-bot/internal/store"
)

const defaultLeaderboardLimit = 100

// SubmitStatus tags the outcome of an authenticated submission.
type SubmitStatus int

const (
	// StatusAccepted means the claim advanced the stored best.
	StatusAccepted SubmitStatus = iota
	// StatusUnchanged means the claim did not beat the stored best.
	StatusUnchanged
	// StatusRateLimited means the claim arrived inside the resubmission
	// window and was not applied.
	StatusRateLimited
)

func (s SubmitStatus) String() string {
	switch s {
	case StatusAccepted:
		return "accepted"
	case StatusUnchanged:
		return "unchanged"
	case StatusRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// SubmitResult is the outcome of Submit: the status plus the authoritative
// player row, whose best_score is current on every path.
type SubmitResult struct {
	Status SubmitStatus
	Player models.Player
}

// Service wires the verifier, the rate limiter and the player store.
type Service struct {
	verifier *initdata.Verifier
	limiter  ratelimit.Limiter
	players  store.PlayerStore
	log      *slog.Logger
	maxLimit int
	now      func() time.Time
}

func NewService(verifier *initdata.Verifier, limiter ratelimit.Limiter, players store.PlayerStore, maxLimit int, log *slog.Logger) *Service {
	return &Service{
		verifier: verifier,
		limiter:  limiter,
		players:  players,
		log:      log,
		maxLimit: maxLimit,
		now:      time.Now,
	}
}

// Submit authenticates the blob, applies rate limiting and conditionally
// upserts the score. Authentication failures surface as the initdata
// sentinel errors; anything else is a storage failure.
func (s *Service) Submit(ctx context.Context, rawInitData string, score int) (*SubmitResult, error) {
	identity, tokenIdx, err := s.verifier.Verify(rawInitData)
	if err != nil {
		return nil, err
	}
	s.log.Debug("initdata verified", "player_id", identity.ID, "token_index", tokenIdx)

	allowed, err := s.limiter.Allow(ctx, identity.ID)
	if err != nil {
		// A broken limiter backend must not block correct submissions.
		s.log.Warn("rate limiter unavailable, allowing", "player_id", identity.ID, "error", err)
		allowed = true
	}
	if !allowed {
		p, err := s.players.Get(ctx, identity.ID)
		if errors.Is(err, store.ErrNotFound) {
			p = models.Player{
				ID:          identity.ID,
				Username:    identity.Username,
				DisplayName: identity.DisplayName(),
			}
		} else if err != nil {
			return nil, fmt.Errorf("load current best: %w", err)
		}
		return &SubmitResult{Status: StatusRateLimited, Player: p}, nil
	}

	p, accepted, err := s.players.Upsert(ctx, store.Submission{
		ID:          identity.ID,
		Username:    identity.Username,
		DisplayName: identity.DisplayName(),
		Score:       score,
		At:          s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	status := StatusUnchanged
	if accepted {
		status = StatusAccepted
	}
	return &SubmitResult{Status: status, Player: p}, nil
}

// Leaderboard returns players ordered by best score descending. The limit
// is clamped to [1, max] silently; zero or negative limits fall back to
// the default page size.
func (s *Service) Leaderboard(ctx context.Context, limit, offset int) ([]models.Player, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.players.List(ctx, limit, offset)
}
