// internal/pong/manager.go
package pong

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDisposeGrace is how long a finished match lingers so a late state
// request can still be served before the room is reclaimed.
const DefaultDisposeGrace = 5 * time.Second

// Manager owns every live match, keyed by room id, plus the reverse map from
// connection to room. It is the only component that creates or disposes
// Game instances.
type Manager struct {
	mu          sync.Mutex
	games       map[string]*Game
	playerRooms map[uuid.UUID]string
	grace       time.Duration

	// BroadcastState delivers a snapshot to both seated players. Set once at
	// wiring time, before any game is created.
	BroadcastState func(roomID string, left, right uuid.UUID, s State)

	// OnGameOver receives the finished game before disposal is scheduled.
	OnGameOver func(g *Game)
}

// NewManager builds an empty match registry.
func NewManager(grace time.Duration) *Manager {
	if grace <= 0 {
		grace = DefaultDisposeGrace
	}
	return &Manager{
		games:       make(map[string]*Game),
		playerRooms: make(map[uuid.UUID]string),
		grace:       grace,
	}
}

// Create returns the game for the room, building it if absent. Idempotent on
// room id so a duplicate pairing message cannot double-create.
func (m *Manager) Create(roomID string, targetRounds int) *Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.games[roomID]; ok {
		return g
	}
	g := NewGame(roomID, targetRounds)
	g.BroadcastState = func(s State) {
		left, right := g.Players()
		if m.BroadcastState != nil {
			m.BroadcastState(roomID, left, right, s)
		}
	}
	g.OnGameOver = m.handleGameOver
	m.games[roomID] = g
	return g
}

// Attach seats a connection in the room on the requested side (SideNone for
// first-free). Returns the assigned side, or SideNone when the room is
// unknown or full.
func (m *Manager) Attach(roomID string, connID uuid.UUID, side Side) Side {
	m.mu.Lock()
	g, ok := m.games[roomID]
	m.mu.Unlock()
	if !ok {
		return SideNone
	}
	assigned := g.AddPlayer(connID, side)
	if assigned != SideNone {
		m.mu.Lock()
		m.playerRooms[connID] = roomID
		m.mu.Unlock()
	}
	return assigned
}

// Detach removes a connection from its match. It returns the room, the
// opponent still seated (uuid.Nil if none) and whether the simulation was
// running at the time. An emptied room is stopped and disposed immediately.
func (m *Manager) Detach(connID uuid.UUID) (roomID string, opponent uuid.UUID, wasRunning bool, ok bool) {
	m.mu.Lock()
	roomID, ok = m.playerRooms[connID]
	if !ok {
		m.mu.Unlock()
		return "", uuid.Nil, false, false
	}
	delete(m.playerRooms, connID)
	g := m.games[roomID]
	m.mu.Unlock()

	if g == nil {
		return roomID, uuid.Nil, false, true
	}

	wasRunning = g.Running()
	g.RemovePlayer(connID)
	left, right := g.Players()
	switch {
	case left != uuid.Nil:
		opponent = left
	case right != uuid.Nil:
		opponent = right
	}

	if left == uuid.Nil && right == uuid.Nil {
		g.Stop()
		m.mu.Lock()
		delete(m.games, roomID)
		m.mu.Unlock()
		log.Printf("room %s empty, disposed", roomID)
	}
	return roomID, opponent, wasRunning, true
}

// SetPaddle forwards a paddle target to the engine owning the connection.
func (m *Manager) SetPaddle(connID uuid.UUID, y float64) bool {
	g := m.GameFor(connID)
	if g == nil {
		return false
	}
	g.UpdatePaddle(connID, y)
	return true
}

// Start launches the room's simulation. Both slots must be seated.
func (m *Manager) Start(roomID string) bool {
	m.mu.Lock()
	g, ok := m.games[roomID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	return g.Start()
}

// Get returns the game for a room id.
func (m *Manager) Get(roomID string) (*Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[roomID]
	return g, ok
}

// RoomFor returns the room a connection is seated in.
func (m *Manager) RoomFor(connID uuid.UUID) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.playerRooms[connID]
	return roomID, ok
}

// GameFor returns the game a connection is seated in.
func (m *Manager) GameFor(connID uuid.UUID) *Game {
	m.mu.Lock()
	defer m.mu.Unlock()
	roomID, ok := m.playerRooms[connID]
	if !ok {
		return nil
	}
	return m.games[roomID]
}

// handleGameOver runs on the engine's loop goroutine after the winning point.
// It hands the result to the wiring layer, then keeps the room around for the
// grace period so a final snapshot can still be read.
func (m *Manager) handleGameOver(g *Game) {
	log.Printf("game over: room=%s winner=%s", g.RoomID, g.Winner())
	if m.OnGameOver != nil {
		m.OnGameOver(g)
	}
	time.AfterFunc(m.grace, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if cur, ok := m.games[g.RoomID]; ok && cur == g {
			delete(m.games, g.RoomID)
			left, right := g.Players()
			for _, id := range []uuid.UUID{left, right} {
				if id != uuid.Nil && m.playerRooms[id] == g.RoomID {
					delete(m.playerRooms, id)
				}
			}
		}
	})
}
