// internal/models/player.go
package models

// PlayerStats is a persisted leaderboard row keyed by nickname.
type PlayerStats struct {
	Name        string `json:"name"`
	Wins        int    `json:"wins"`
	GamesPlayed int    `json:"games_played"`
}

// MatchResult is one player's outcome of a finished match, queued for the
// stats worker and accepted by POST /end_game. Winner is true when the named
// player won.
type MatchResult struct {
	Nickname    string `json:"nickname"`
	Winner      bool   `json:"winner"`
	TotalRounds int    `json:"total_rounds"`
}
