// internal/lobby/queue.go
package lobby

import (
	"sync"

	"github.com/google/uuid"

	"github.com/ft-transcendence/pong-service/internal/metrics"
	"github.com/ft-transcendence/pong-service/internal/models"
)

// QueueEntry is one waiting player. Entries sharing a rounds value form a
// bucket; pairing is FIFO within a bucket.
type QueueEntry struct {
	ConnID   uuid.UUID
	Nickname string
	Rounds   int
}

// Queue is the matchmaking queue. A connection holds at most one entry; a
// repeated join re-buckets the player under the new rounds value.
type Queue struct {
	mu      sync.Mutex
	waiting []*QueueEntry
}

// NewQueue builds an empty matchmaking queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Join looks for the oldest waiting entry with the same rounds value. On a
// hit that entry is removed and returned as the opponent; otherwise the
// caller is appended and (nil, false) is returned.
func (q *Queue) Join(connID uuid.UUID, nickname string, rounds int) (opponent *QueueEntry, matched bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(connID)

	for i, e := range q.waiting {
		if e.Rounds == rounds {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			metrics.WaitingPlayers.Set(float64(len(q.waiting)))
			return e, true
		}
	}

	q.waiting = append(q.waiting, &QueueEntry{ConnID: connID, Nickname: nickname, Rounds: rounds})
	metrics.WaitingPlayers.Set(float64(len(q.waiting)))
	return nil, false
}

// Leave removes the connection's entry. Returns false if it was not queued.
func (q *Queue) Leave(connID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	removed := q.removeLocked(connID)
	metrics.WaitingPlayers.Set(float64(len(q.waiting)))
	return removed
}

func (q *Queue) removeLocked(connID uuid.UUID) bool {
	for i, e := range q.waiting {
		if e.ConnID == connID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Contains reports whether the connection has a queue entry.
func (q *Queue) Contains(connID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, e := range q.waiting {
		if e.ConnID == connID {
			return true
		}
	}
	return false
}

// List returns the waiting list in arrival order for lobby broadcasts.
func (q *Queue) List() []models.WaitingEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.WaitingEntry, 0, len(q.waiting))
	for _, e := range q.waiting {
		out = append(out, models.WaitingEntry{Nickname: e.Nickname, Rounds: e.Rounds})
	}
	return out
}

// Len returns the number of waiting players across all buckets.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}
