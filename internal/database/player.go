// internal/database/player.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ft-transcendence/pong-service/internal/models"
)

// ErrPlayerNotFound is returned when a nickname has no leaderboard row.
var ErrPlayerNotFound = errors.New("player not found")

// InitSchema creates the leaderboard table. Safe to run on every startup.
func InitSchema(ctx context.Context) error {
	q := `
		CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY,
			wins INT NOT NULL DEFAULT 0,
			games_played INT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := DB.Exec(ctx, q); err != nil {
		return fmt.Errorf("create players table: %w", err)
	}
	return nil
}

// RecordResult folds one finished match into the player's aggregate row. The
// row is created on first sight of the nickname.
func RecordResult(ctx context.Context, result models.MatchResult) error {
	won := 0
	if result.Winner {
		won = 1
	}
	q := `
		INSERT INTO players (name, wins, games_played, updated_at)
		VALUES ($1, $2, 1, now())
		ON CONFLICT (name) DO UPDATE
		SET wins = players.wins + $2,
		    games_played = players.games_played + 1,
		    updated_at = now()
	`
	if _, err := DB.Exec(ctx, q, result.Nickname, won); err != nil {
		return fmt.Errorf("record result for %s: %w", result.Nickname, err)
	}
	return nil
}

// TopPlayers returns the leaderboard, best record first.
func TopPlayers(ctx context.Context, limit int) ([]models.PlayerStats, error) {
	q := `
		SELECT name, wins, games_played
		FROM players
		ORDER BY wins DESC, games_played ASC, name ASC
		LIMIT $1
	`
	rows, err := DB.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var out []models.PlayerStats
	for rows.Next() {
		var p models.PlayerStats
		if err := rows.Scan(&p.Name, &p.Wins, &p.GamesPlayed); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetPlayer returns a single player's record.
func GetPlayer(ctx context.Context, name string) (models.PlayerStats, error) {
	var p models.PlayerStats
	q := `SELECT name, wins, games_played FROM players WHERE name = $1`
	err := DB.QueryRow(ctx, q, name).Scan(&p.Name, &p.Wins, &p.GamesPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PlayerStats{}, ErrPlayerNotFound
	}
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("get player %s: %w", name, err)
	}
	return p, nil
}

// PlayerExists reports whether a nickname has a leaderboard row.
func PlayerExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	q := `SELECT EXISTS (SELECT 1 FROM players WHERE name = $1)`
	if err := DB.QueryRow(ctx, q, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("check player %s: %w", name, err)
	}
	return exists, nil
}

// DeletePlayer removes a player's record. Returns false if nothing matched.
func DeletePlayer(ctx context.Context, name string) (bool, error) {
	tag, err := DB.Exec(ctx, `DELETE FROM players WHERE name = $1`, name)
	if err != nil {
		return false, fmt.Errorf("delete player %s: %w", name, err)
	}
	return tag.RowsAffected() > 0, nil
}
