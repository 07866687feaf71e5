// internal/models/inbound.go
package models

// Inbound message types accepted over the websocket.
const (
	MsgJoin             = "join"
	MsgLeaveQueue       = "leave_queue"
	MsgGameUpdate       = "game_update"
	MsgGameOver         = "game_over"
	MsgCreateTournament = "create_tournament"
	MsgJoinTournament   = "join_tournament"
	MsgStartTournament  = "start_tournament"
	MsgLeaveTournament  = "leave_tournament"
	MsgGetTournaments   = "get_tournaments"
	MsgGetState         = "get_state"
)

// Inbound is the superset of all client message payloads. Fields irrelevant
// to a given type are left at their zero value by the JSON decoder.
type Inbound struct {
	Type string `json:"type"`

	// join / create_tournament / join_tournament
	Nickname string `json:"nickname,omitempty"`
	Token    string `json:"token,omitempty"`
	Rounds   int    `json:"rounds,omitempty"`

	// game_update
	PaddleY *float64 `json:"paddleY,omitempty"`

	// game_over (client-side tournament signal; score is advisory only)
	Score int `json:"score,omitempty"`

	// tournament actions
	Name         string `json:"name,omitempty"`
	Size         int    `json:"size,omitempty"`
	TournamentID string `json:"tournament_id,omitempty"`
}
