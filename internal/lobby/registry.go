// internal/lobby/registry.go
package lobby

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/ft-transcendence/pong-service/internal/metrics"
	"github.com/ft-transcendence/pong-service/internal/models"
)

// Registry tracks every connected client and fans lobby snapshots out to all
// of them. It does not own the waiting list or tournament list; providers
// are plugged in at wiring time so the registry stays dependency-free.
type Registry struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*Connection

	// WaitingListFn supplies the current waiting list for broadcasts.
	WaitingListFn func() []models.WaitingEntry
	// TournamentListFn supplies the joinable/active tournaments.
	TournamentListFn func() []models.TournamentSummary
}

// NewRegistry builds an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[uuid.UUID]*Connection),
	}
}

// Add registers a connection with the lobby broadcast group.
func (r *Registry) Add(c *Connection) {
	r.mu.Lock()
	r.conns[c.ID] = c
	n := len(r.conns)
	r.mu.Unlock()
	metrics.Connections.Set(float64(n))
	log.Printf("lobby: connection %s registered (%d online)", c.ID, n)
}

// Remove drops a connection from the broadcast group.
func (r *Registry) Remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.conns, id)
	n := len(r.conns)
	r.mu.Unlock()
	metrics.Connections.Set(float64(n))
	log.Printf("lobby: connection %s removed (%d online)", id, n)
}

// Get returns a registered connection.
func (r *Registry) Get(id uuid.UUID) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.conns[id]
	return c, ok
}

// Len returns the number of connected clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// WaitingListFrame builds the current waiting_list frame.
func (r *Registry) WaitingListFrame() models.WaitingListFrame {
	entries := []models.WaitingEntry{}
	if r.WaitingListFn != nil {
		entries = r.WaitingListFn()
	}
	return models.WaitingListFrame{Type: models.FrameWaitingList, WaitingList: entries}
}

// TournamentListFrame builds the current tournament_list frame.
func (r *Registry) TournamentListFrame() models.TournamentListFrame {
	list := []models.TournamentSummary{}
	if r.TournamentListFn != nil {
		list = r.TournamentListFn()
	}
	return models.TournamentListFrame{Type: models.FrameTournamentList, Tournaments: list}
}

// SendSnapshot delivers the current lobby view (waiting list + tournament
// list) to a single connection, as on connect or get_state.
func (r *Registry) SendSnapshot(c *Connection) {
	if !c.Write(r.WaitingListFrame()) || !c.Write(r.TournamentListFrame()) {
		c.Close()
	}
}

// BroadcastWaitingList fans the waiting list out to every subscriber.
// Best-effort: a subscriber whose queue is jammed gets closed.
func (r *Registry) BroadcastWaitingList() {
	r.broadcast(r.WaitingListFrame())
}

// BroadcastTournamentList fans the tournament list out to every subscriber.
func (r *Registry) BroadcastTournamentList() {
	r.broadcast(r.TournamentListFrame())
}

func (r *Registry) broadcast(frame interface{}) {
	r.mu.Lock()
	targets := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	for _, c := range targets {
		if !c.Write(frame) {
			c.Close()
		}
	}
}
