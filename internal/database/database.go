// Package database persists finished-game results to Postgres. In-play
// state is never stored; the engine is the only authority while a game
// runs.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// GameResult is one finished game. The loser is the last player still
// holding cards.
type GameResult struct {
	RoomID     string
	LoserID    string
	Players    int
	FinishedAt time.Time
}

// Store wraps the pgx pool. A nil Store drops writes silently so the
// server can run without Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// EnsureSchema creates the results table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_results (
			id           BIGSERIAL PRIMARY KEY,
			room_id      TEXT        NOT NULL,
			loser_id     TEXT        NOT NULL,
			players      INT         NOT NULL,
			finished_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure game_results: %w", err)
	}
	return nil
}

// RecordResult inserts one finished game.
func (s *Store) RecordResult(ctx context.Context, res GameResult) error {
	if s == nil || s.pool == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO game_results (room_id, loser_id, players, finished_at) VALUES ($1, $2, $3, $4)`,
		res.RoomID, res.LoserID, res.Players, res.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
