// internal/lobby/connection.go
package lobby

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ft-transcendence/pong-service/internal/models"
)

// ConnState tracks where a connection currently lives in the lobby flow.
type ConnState int

const (
	StateIdle ConnState = iota
	StateQueued
	StateInMatch
	StateInTournamentLobby
	StateInTournamentMatch
)

func (s ConnState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateInMatch:
		return "in_match"
	case StateInTournamentLobby:
		return "in_tournament_lobby"
	case StateInTournamentMatch:
		return "in_tournament_match"
	}
	return "idle"
}

// Queue capacities. Control frames get headroom; state snapshots are
// latest-wins, so a small buffer suffices.
const (
	controlChanSize = 32
	stateChanSize   = 8
)

// Connection is one client's presence on the server. The write pump drains
// ctrl and state; everything else goes through Write/WriteState so a slow
// client can never block the caller.
type Connection struct {
	ID uuid.UUID

	mu           sync.Mutex
	nickname     string
	state        ConnState
	room         string
	tournamentID string
	slow         bool

	ctrl  chan interface{}
	snaps chan interface{}

	// Cancel tears down the connection's read/write pumps. Set by the
	// websocket handler before the connection is registered.
	Cancel func()
}

// NewConnection builds a connection in the idle state.
func NewConnection(id uuid.UUID) *Connection {
	return &Connection{
		ID:    id,
		ctrl:  make(chan interface{}, controlChanSize),
		snaps: make(chan interface{}, stateChanSize),
	}
}

// Write enqueues a control frame (start_game, game_over, queue/tournament
// events). Control frames are never dropped: a full queue means the client
// has stopped consuming, and the connection is reported dead instead.
func (c *Connection) Write(frame interface{}) bool {
	select {
	case c.ctrl <- frame:
		return true
	default:
		log.Printf("connection %s: control queue full, dropping client", c.ID)
		c.mu.Lock()
		c.slow = true
		c.mu.Unlock()
		return false
	}
}

// Slow reports whether the connection was flagged for not consuming frames.
func (c *Connection) Slow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slow
}

// WriteState enqueues a state snapshot. When the buffer is full the oldest
// queued snapshot is discarded so the client converges on fresh state.
func (c *Connection) WriteState(frame interface{}) {
	for {
		select {
		case c.snaps <- frame:
			return
		default:
		}
		select {
		case <-c.snaps:
		default:
		}
	}
}

// WriteError sends a one-off message frame of the given type.
func (c *Connection) WriteError(frameType, msg string) bool {
	return c.Write(models.MessageFrame{Type: frameType, Message: msg})
}

// Control returns the control frame channel for the write pump.
func (c *Connection) Control() <-chan interface{} { return c.ctrl }

// States returns the snapshot channel for the write pump.
func (c *Connection) States() <-chan interface{} { return c.snaps }

// SetNickname records the identity supplied by join or a tournament action.
func (c *Connection) SetNickname(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nickname = nick
}

// Nickname returns the identity supplied so far ("" before any join).
func (c *Connection) Nickname() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nickname
}

// SetState moves the connection between lobby states.
func (c *Connection) SetState(s ConnState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
}

// State reports the current lobby state.
func (c *Connection) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetRoom records the match room the connection is seated in ("" to clear).
func (c *Connection) SetRoom(room string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.room = room
}

// Room returns the current match room, if any.
func (c *Connection) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// SetTournament records tournament membership ("" to clear).
func (c *Connection) SetTournament(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tournamentID = id
}

// Tournament returns the tournament the connection belongs to, if any.
func (c *Connection) Tournament() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tournamentID
}

// Close cancels the connection's pumps. Idempotent via the handler's cancel.
func (c *Connection) Close() {
	if c.Cancel != nil {
		c.Cancel()
	}
}
