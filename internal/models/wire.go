// internal/models/wire.go
package models

// Outbound frame types. Every frame sent to a client carries a "type" field
// drawn from this closed set.
const (
	FrameWaitingList           = "waiting_list"
	FrameTournamentList        = "tournament_list"
	FrameQueueUpdate           = "queue_update"
	FrameStartGame             = "start_game"
	FrameGameStateUpdate       = "game_state_update"
	FrameGameOver              = "game_over"
	FrameOpponentLeft          = "opponent_left"
	FrameTournamentCreated     = "tournament_created"
	FrameTournamentJoined      = "tournament_joined"
	FrameTournamentUpdate      = "tournament_update"
	FrameTournamentLeft        = "tournament_left"
	FrameTournamentMatchReady  = "tournament_match_ready"
	FrameTournamentMatchResult = "tournament_match_result"
	FrameTournamentEliminated  = "tournament_eliminated"
	FrameTournamentVictory     = "tournament_victory"
	FrameTournamentComplete    = "tournament_complete"
	FrameTournamentError       = "tournament_error"
)

// WaitingEntry is one row of the lobby waiting list broadcast.
type WaitingEntry struct {
	Nickname string `json:"nickname"`
	Rounds   int    `json:"rounds"`
}

// WaitingListFrame carries the full waiting list to every lobby subscriber.
type WaitingListFrame struct {
	Type        string         `json:"type"`
	WaitingList []WaitingEntry `json:"waiting_list"`
}

// TournamentSummary is one row of the lobby tournament list broadcast.
type TournamentSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Players int    `json:"players"`
	Size    int    `json:"size"`
	Started bool   `json:"started"`
}

// TournamentListFrame carries the joinable/active tournaments.
type TournamentListFrame struct {
	Type        string              `json:"type"`
	Tournaments []TournamentSummary `json:"tournaments"`
}

// MessageFrame is the shape shared by queue_update, opponent_left,
// tournament_left and tournament_error replies.
type MessageFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// StartGameFrame tells both players a match room is ready.
type StartGameFrame struct {
	Type         string `json:"type"`
	Message      string `json:"message"`
	Room         string `json:"room"`
	Rounds       int    `json:"rounds"`
	IsTournament bool   `json:"is_tournament,omitempty"`
	PlayerSide   string `json:"player_side"`
}

// GameOverFrame announces the final result of a match to both players.
// Winner is the winning side, "left" or "right".
type GameOverFrame struct {
	Type           string `json:"type"`
	Score          int    `json:"score"`
	Winner         string `json:"winner"`
	WinnerNickname string `json:"winner_nickname,omitempty"`
}

// TournamentCreatedFrame acknowledges create_tournament to the creator.
type TournamentCreatedFrame struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournament_id"`
	Name         string `json:"name"`
}

// TournamentJoinedFrame acknowledges join_tournament to the joiner.
type TournamentJoinedFrame struct {
	Type         string `json:"type"`
	TournamentID string `json:"tournament_id"`
	Name         string `json:"name"`
}

// BracketMatch is one bracket node in a tournament_update frame.
type BracketMatch struct {
	Round    int    `json:"round"`
	Position int    `json:"position"`
	Player1  string `json:"player1"`
	Player2  string `json:"player2"`
	Winner   string `json:"winner"`
}

// CurrentMatch names the two players of the currently active bracket node.
type CurrentMatch struct {
	Player1 string `json:"player1"`
	Player2 string `json:"player2"`
}

// TournamentState is the full tournament view carried by tournament_update.
type TournamentState struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Size         int            `json:"size"`
	Players      []string       `json:"players"`
	Started      bool           `json:"started"`
	CurrentMatch *CurrentMatch  `json:"current_match"`
	Matches      []BracketMatch `json:"matches"`
	Winner       string         `json:"winner"`
}

// TournamentUpdateFrame broadcasts the full tournament state to entrants.
type TournamentUpdateFrame struct {
	Type       string          `json:"type"`
	Tournament TournamentState `json:"tournament"`
}

// TournamentMatchResultFrame tells a participant how their match ended.
type TournamentMatchResultFrame struct {
	Type               string `json:"type"`
	Won                bool   `json:"won"`
	Opponent           string `json:"opponent"`
	TournamentComplete bool   `json:"tournament_complete"`
}

// TournamentEliminatedFrame is sent to a player knocked out of the bracket.
type TournamentEliminatedFrame struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
}

// TournamentCompleteFrame is sent to every non-winning entrant at the end.
type TournamentCompleteFrame struct {
	Type   string `json:"type"`
	Winner string `json:"winner"`
}

// TournamentVictoryFrame is sent to the tournament winner only.
type TournamentVictoryFrame struct {
	Type string `json:"type"`
}
