package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Otar989/bugman-bot/internal/models"
)

// SqliteStore persists Player rows in a local SQLite file, the default
// backend for single-process deployments.
type SqliteStore struct {
	db *sql.DB
}

// NewSqliteStore wraps an open database handle. SQLite serializes writers
// globally, so the handle is capped to one connection to fail fast on
// lock contention instead of returning SQLITE_BUSY.
func NewSqliteStore(db *sql.DB) *SqliteStore {
	db.SetMaxOpenConns(1)
	return &SqliteStore{db: db}
}

var _ PlayerStore = (*SqliteStore)(nil)

// Migrate creates the players table if it doesn't exist.
func (s *SqliteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id           TEXT PRIMARY KEY,
			username     TEXT,
			display_name TEXT NOT NULL,
			best_score   INTEGER NOT NULL DEFAULT 0,
			updated_at   TEXT NOT NULL
		)
	`)
	return err
}

func (s *SqliteStore) Upsert(ctx context.Context, sub Submission) (models.Player, bool, error) {
	at := sub.At.UTC().Format(time.RFC3339Nano)

	var p models.Player
	var updatedAt string
	var accepted bool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO players (id, username, display_name, best_score, updated_at)
		VALUES (?1, NULLIF(?2, ''), ?3, ?4, ?5)
		ON CONFLICT (id) DO UPDATE SET
			username     = excluded.username,
			display_name = excluded.display_name,
			best_score   = MAX(players.best_score, excluded.best_score),
			updated_at   = CASE WHEN excluded.best_score > players.best_score
			               THEN excluded.updated_at ELSE players.updated_at END
		RETURNING id, COALESCE(username, ''), display_name, best_score, updated_at,
		          updated_at = ?5
	`, sub.ID, sub.Username, sub.DisplayName, sub.Score, at).
		Scan(&p.ID, &p.Username, &p.DisplayName, &p.BestScore, &updatedAt, &accepted)
	if err != nil {
		return models.Player{}, false, fmt.Errorf("upsert player: %w", err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return p, accepted, nil
}

func (s *SqliteStore) Get(ctx context.Context, id string) (models.Player, error) {
	var p models.Player
	var updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(username, ''), display_name, best_score, updated_at
		FROM players WHERE id = ?1
	`, id).Scan(&p.ID, &p.Username, &p.DisplayName, &p.BestScore, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Player{}, ErrNotFound
		}
		return models.Player{}, fmt.Errorf("get player: %w", err)
	}
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return p, nil
}

func (s *SqliteStore) List(ctx context.Context, limit, offset int) ([]models.Player, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(username, ''), display_name, best_score, updated_at
		FROM players
		ORDER BY best_score DESC
		LIMIT ?1 OFFSET ?2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()

	players := []models.Player{}
	for rows.Next() {
		var p models.Player
		var updatedAt string
		if err := rows.Scan(&p.ID, &p.Username, &p.DisplayName, &p.BestScore, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		players = append(players, p)
	}
	return players, rows.Err()
}
