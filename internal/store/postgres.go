package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Otar989/bugman-bot/internal/models"
)

// PostgresStore persists Player rows in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var _ PlayerStore = (*PostgresStore)(nil)

// Migrate creates the players table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id           TEXT PRIMARY KEY,
			username     TEXT,
			display_name TEXT NOT NULL,
			best_score   BIGINT NOT NULL DEFAULT 0,
			updated_at   TIMESTAMPTZ NOT NULL
		)
	`)
	return err
}

// Upsert runs as a single statement, so the read-compare-write for one id
// is serialized by the row lock the upsert takes. GREATEST keeps best_score
// monotonic even if two first submissions for the same id race past the
// conflict check.
func (s *PostgresStore) Upsert(ctx context.Context, sub Submission) (models.Player, bool, error) {
	// Postgres keeps microseconds; truncate so the RETURNING comparison
	// sees exactly the stored value.
	at := sub.At.UTC().Truncate(time.Microsecond)

	var p models.Player
	var accepted bool
	err := s.pool.QueryRow(ctx, `
		INSERT INTO players (id, username, display_name, best_score, updated_at)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username     = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			best_score   = GREATEST(players.best_score, EXCLUDED.best_score),
			updated_at   = CASE WHEN EXCLUDED.best_score > players.best_score
			               THEN EXCLUDED.updated_at ELSE players.updated_at END
		RETURNING id, COALESCE(username, ''), display_name, best_score, updated_at,
		          updated_at = $5
	`, sub.ID, sub.Username, sub.DisplayName, sub.Score, at).
		Scan(&p.ID, &p.Username, &p.DisplayName, &p.BestScore, &p.UpdatedAt, &accepted)
	if err != nil {
		return models.Player{}, false, fmt.Errorf("upsert player: %w", err)
	}
	return p, accepted, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (models.Player, error) {
	var p models.Player
	err := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(username, ''), display_name, best_score, updated_at
		FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &p.DisplayName, &p.BestScore, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Player{}, ErrNotFound
		}
		return models.Player{}, fmt.Errorf("get player: %w", err)
	}
	return p, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]models.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(username, ''), display_name, best_score, updated_at
		FROM players
		ORDER BY best_score DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.BestScore, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}
