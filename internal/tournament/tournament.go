// internal/tournament/tournament.go
package tournament

import (
	"time"

	"github.com/google/uuid"

	"github.com/ft-transcendence/pong-service/internal/models"
)

// Status is the lifecycle of a bracket node.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Allowed tournament sizes.
var validSizes = map[int]bool{4: true, 6: true, 8: true}

// Slot holds one bracket participant. ConnID goes to uuid.Nil when the
// player disconnects; their next match is then a walkover.
type Slot struct {
	ConnID   uuid.UUID
	Nickname string
}

// NextRef points a node at the downstream slot its winner advances into.
type NextRef struct {
	Round    int
	Position int
	Slot     int
}

// NodeKey addresses a bracket node by (round, position).
type NodeKey struct {
	Round    int
	Position int
}

// Node is one match of the bracket tree. The root node has a nil Next.
type Node struct {
	Round    int
	Position int
	Slots    [2]*Slot
	Winner   *Slot
	Next     *NextRef
	Status   Status
}

// ready reports whether the node can be played: both slots seated, no winner.
func (n *Node) ready() bool {
	return n.Winner == nil && n.Slots[0] != nil && n.Slots[1] != nil
}

// Tournament is one single-elimination bracket and its registration list.
type Tournament struct {
	ID        string
	Name      string
	CreatorID uuid.UUID
	Size      int
	Rounds    int

	Players []*Slot
	Started bool
	Winner  string

	Nodes      map[NodeKey]*Node
	FinalRound int

	activeKey    *NodeKey
	activeRoom   string
	advanceTimer *time.Timer
	disposed     bool
}

// playerSlot returns the registration slot for a connection, if present.
func (t *Tournament) playerSlot(connID uuid.UUID) *Slot {
	for _, s := range t.Players {
		if s.ConnID == connID {
			return s
		}
	}
	return nil
}

// hasNickname reports whether a nickname is already registered.
func (t *Tournament) hasNickname(nick string) bool {
	for _, s := range t.Players {
		if s.Nickname == nick {
			return true
		}
	}
	return false
}

// activeNode returns the node currently being played, if any.
func (t *Tournament) activeNode() *Node {
	if t.activeKey == nil {
		return nil
	}
	return t.Nodes[*t.activeKey]
}

// summary is the lobby-list row for this tournament.
func (t *Tournament) summary() models.TournamentSummary {
	return models.TournamentSummary{
		ID:      t.ID,
		Name:    t.Name,
		Players: len(t.Players),
		Size:    t.Size,
		Started: t.Started,
	}
}

// state builds the full tournament_update view.
func (t *Tournament) state() models.TournamentState {
	players := make([]string, 0, len(t.Players))
	for _, s := range t.Players {
		players = append(players, s.Nickname)
	}

	var current *models.CurrentMatch
	if n := t.activeNode(); n != nil {
		current = &models.CurrentMatch{
			Player1: slotNickname(n.Slots[0]),
			Player2: slotNickname(n.Slots[1]),
		}
	}

	matches := make([]models.BracketMatch, 0, len(t.Nodes))
	for round := 1; round <= t.FinalRound; round++ {
		for pos := 0; ; pos++ {
			n, ok := t.Nodes[NodeKey{Round: round, Position: pos}]
			if !ok {
				break
			}
			matches = append(matches, models.BracketMatch{
				Round:    n.Round,
				Position: n.Position,
				Player1:  slotNickname(n.Slots[0]),
				Player2:  slotNickname(n.Slots[1]),
				Winner:   slotNickname(n.Winner),
			})
		}
	}

	return models.TournamentState{
		ID:           t.ID,
		Name:         t.Name,
		Size:         t.Size,
		Players:      players,
		Started:      t.Started,
		CurrentMatch: current,
		Matches:      matches,
		Winner:       t.Winner,
	}
}

func slotNickname(s *Slot) string {
	if s == nil {
		return ""
	}
	return s.Nickname
}
