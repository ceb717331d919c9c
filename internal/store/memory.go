package store

import (
	"context"
	"sort"
	"sync"

	"github.com/Otar989/bugman-bot/internal/models"
)

// MemoryStore keeps Player rows in a mutex-guarded map. Used in tests and
// for STORE_BACKEND=memory development runs; nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	players map[string]models.Player
	order   []string // insertion order, the natural tie-break for List
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{players: make(map[string]models.Player)}
}

var _ PlayerStore = (*MemoryStore)(nil)

func (s *MemoryStore) Upsert(_ context.Context, sub Submission) (models.Player, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.players[sub.ID]
	if !found {
		p = models.Player{ID: sub.ID}
		s.order = append(s.order, sub.ID)
	}
	p.Username = sub.Username
	p.DisplayName = sub.DisplayName

	accepted := !found || sub.Score > p.BestScore
	if accepted {
		p.BestScore = sub.Score
		p.UpdatedAt = sub.At
	}
	s.players[sub.ID] = p
	return p, accepted, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[id]
	if !ok {
		return models.Player{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) List(_ context.Context, limit, offset int) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranked := make([]models.Player, 0, len(s.order))
	for _, id := range s.order {
		ranked = append(ranked, s.players[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].BestScore > ranked[j].BestScore
	})

	if offset >= len(ranked) {
		return []models.Player{}, nil
	}
	ranked = ranked[offset:]
	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
