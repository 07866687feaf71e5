// internal/tournament/director.go
package tournament

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ft-transcendence/pong-service/internal/metrics"
	"github.com/ft-transcendence/pong-service/internal/models"
	"github.com/ft-transcendence/pong-service/internal/pong"
)

// DefaultAdvanceDelay is the pause between a match result and the next
// match launch, giving clients time to render the updated bracket.
const DefaultAdvanceDelay = 3 * time.Second

const defaultTargetRounds = 3

// Notifier is how the director reaches live connections. The wiring layer
// implements it on top of the connection registry so the director never
// touches websockets directly.
type Notifier interface {
	// Send queues a control frame. False means the connection is gone.
	Send(connID uuid.UUID, frame interface{}) bool
	// EnterMatch seats the connection in a tournament match room.
	EnterMatch(connID uuid.UUID, room string)
	// LeaveMatch returns the connection to the tournament lobby.
	LeaveMatch(connID uuid.UUID)
	// Release frees the connection from tournament scope entirely.
	Release(connID uuid.UUID)
}

// Director owns every tournament: registration, bracket progression, match
// launches through the game manager, and result propagation. One match per
// tournament runs at a time.
type Director struct {
	mu          sync.Mutex
	tournaments map[string]*Tournament
	playerTours map[uuid.UUID]string
	roomTours   map[string]string

	manager  *pong.Manager
	notifier Notifier
	delay    time.Duration
	rng      *rand.Rand

	// OnChange fires after any mutation that alters the lobby-visible
	// tournament list. Set at wiring time.
	OnChange func()
}

// NewDirector builds a director on top of the given match manager.
func NewDirector(manager *pong.Manager, notifier Notifier, delay time.Duration) *Director {
	if delay <= 0 {
		delay = DefaultAdvanceDelay
	}
	return &Director{
		tournaments: make(map[string]*Tournament),
		playerTours: make(map[uuid.UUID]string),
		roomTours:   make(map[string]string),
		manager:     manager,
		notifier:    notifier,
		delay:       delay,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Create registers a new tournament with the caller as its first player.
func (d *Director) Create(connID uuid.UUID, nickname, name string, size, rounds int) (*Tournament, error) {
	if nickname == "" {
		return nil, fmt.Errorf("nickname required")
	}
	if !validSizes[size] {
		return nil, fmt.Errorf("invalid tournament size %d", size)
	}
	if rounds <= 0 {
		rounds = defaultTargetRounds
	}
	if name == "" {
		name = nickname + "'s tournament"
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if cur, ok := d.playerTours[connID]; ok {
		return nil, fmt.Errorf("already in tournament %s", cur)
	}

	t := &Tournament{
		ID:        uuid.NewString(),
		Name:      name,
		CreatorID: connID,
		Size:      size,
		Rounds:    rounds,
		Players:   []*Slot{{ConnID: connID, Nickname: nickname}},
	}
	d.tournaments[t.ID] = t
	d.playerTours[connID] = t.ID
	metrics.TournamentsCreated.Inc()
	log.Printf("tournament %s created by %s (size=%d rounds=%d)", t.ID, nickname, size, rounds)

	d.notifier.Send(connID, models.TournamentCreatedFrame{
		Type:         models.FrameTournamentCreated,
		TournamentID: t.ID,
		Name:         t.Name,
	})
	d.broadcastUpdateLocked(t)
	d.changed()
	return t, nil
}

// Join adds the caller to a pending tournament.
func (d *Director) Join(connID uuid.UUID, nickname, tournamentID string) (*Tournament, error) {
	if nickname == "" {
		return nil, fmt.Errorf("nickname required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tournaments[tournamentID]
	if !ok {
		return nil, fmt.Errorf("tournament not found")
	}
	if t.Started {
		return nil, fmt.Errorf("tournament already started")
	}
	if len(t.Players) >= t.Size {
		return nil, fmt.Errorf("tournament is full")
	}
	if t.playerSlot(connID) != nil {
		return nil, fmt.Errorf("already joined")
	}
	if cur, ok := d.playerTours[connID]; ok && cur != tournamentID {
		return nil, fmt.Errorf("already in another tournament")
	}
	if t.hasNickname(nickname) {
		return nil, fmt.Errorf("nickname already taken")
	}

	t.Players = append(t.Players, &Slot{ConnID: connID, Nickname: nickname})
	d.playerTours[connID] = t.ID
	log.Printf("tournament %s: %s joined (%d/%d)", t.ID, nickname, len(t.Players), t.Size)

	d.notifier.Send(connID, models.TournamentJoinedFrame{
		Type:         models.FrameTournamentJoined,
		TournamentID: t.ID,
		Name:         t.Name,
	})
	d.broadcastUpdateLocked(t)
	d.changed()
	return t, nil
}

// Start seeds the bracket and schedules the first match. Creator only, and
// the tournament must be exactly full.
func (d *Director) Start(connID uuid.UUID, tournamentID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.tournaments[tournamentID]
	if !ok {
		return fmt.Errorf("tournament not found")
	}
	if t.CreatorID != connID {
		return fmt.Errorf("only the creator can start the tournament")
	}
	if t.Started {
		return fmt.Errorf("tournament already started")
	}
	if len(t.Players) != t.Size {
		return fmt.Errorf("need %d players, have %d", t.Size, len(t.Players))
	}

	d.rng.Shuffle(len(t.Players), func(i, j int) {
		t.Players[i], t.Players[j] = t.Players[j], t.Players[i]
	})
	nodes, finalRound, err := buildBracket(t.Players, t.Size)
	if err != nil {
		return err
	}
	t.Nodes = nodes
	t.FinalRound = finalRound
	t.Started = true
	metrics.TournamentPlayers.Observe(float64(t.Size))
	log.Printf("tournament %s started with %d players", t.ID, t.Size)

	d.broadcastUpdateLocked(t)
	d.changed()
	d.scheduleAdvanceLocked(t)
	return nil
}

// Leave removes the caller from their tournament. Before the start this is
// plain deregistration (the creator leaving cancels the whole tournament);
// after the start it is a forfeit.
func (d *Director) Leave(connID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tid, ok := d.playerTours[connID]
	if !ok {
		return
	}
	t, ok := d.tournaments[tid]
	if !ok {
		delete(d.playerTours, connID)
		return
	}

	if !t.Started {
		d.leavePendingLocked(t, connID)
		return
	}
	d.forfeitLocked(t, connID)
}

func (d *Director) leavePendingLocked(t *Tournament, connID uuid.UUID) {
	for i, s := range t.Players {
		if s.ConnID == connID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			break
		}
	}
	delete(d.playerTours, connID)
	d.notifier.Send(connID, models.MessageFrame{
		Type:    models.FrameTournamentLeft,
		Message: "You left the tournament",
	})
	d.notifier.Release(connID)

	if connID == t.CreatorID {
		log.Printf("tournament %s cancelled: creator left before start", t.ID)
		for _, s := range t.Players {
			d.notifier.Send(s.ConnID, models.MessageFrame{
				Type:    models.FrameTournamentLeft,
				Message: "Tournament was cancelled by the creator",
			})
		}
		d.disposeLocked(t)
		d.changed()
		return
	}
	if len(t.Players) == 0 {
		d.disposeLocked(t)
		d.changed()
		return
	}
	d.broadcastUpdateLocked(t)
	d.changed()
}

// forfeitLocked handles a departure from a running tournament. The slot is
// voided so future matches against it resolve as walkovers; a match in
// flight ends immediately in the opponent's favor.
func (d *Director) forfeitLocked(t *Tournament, connID uuid.UUID) {
	slot := t.playerSlot(connID)
	delete(d.playerTours, connID)
	d.notifier.Release(connID)
	if slot == nil {
		return
	}
	slot.ConnID = uuid.Nil
	log.Printf("tournament %s: %s forfeited", t.ID, slot.Nickname)

	if node := t.activeNode(); node != nil && (node.Slots[0] == slot || node.Slots[1] == slot) {
		winnerIdx := 0
		if node.Slots[0] == slot {
			winnerIdx = 1
		}
		opponent := node.Slots[winnerIdx].ConnID
		// Stop the simulation and reclaim the room before recording.
		d.manager.Detach(connID)
		if opponent != uuid.Nil {
			d.manager.Detach(opponent)
		}
		d.recordLocked(t, node, winnerIdx)
		if t.disposed {
			return
		}
		d.scheduleAdvanceLocked(t)
		d.broadcastUpdateLocked(t)
		return
	}

	if d.liveEntrantsLocked(t) == 0 {
		log.Printf("tournament %s: all players gone, disposing", t.ID)
		d.disposeLocked(t)
		d.changed()
		return
	}
	d.broadcastUpdateLocked(t)
}

// HandleGameOver records the outcome of a tournament match once its engine
// has finished. Returns false when the room belongs to no tournament.
func (d *Director) HandleGameOver(roomID string, winnerConnID uuid.UUID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	tid, ok := d.roomTours[roomID]
	if !ok {
		return false
	}
	t, ok := d.tournaments[tid]
	if !ok || t.activeRoom != roomID {
		delete(d.roomTours, roomID)
		return false
	}
	node := t.activeNode()
	if node == nil {
		log.Printf("tournament %s: result for room %s but no active match", t.ID, roomID)
		delete(d.roomTours, roomID)
		return true
	}

	winnerIdx := -1
	for i, s := range node.Slots {
		if s != nil && s.ConnID == winnerConnID {
			winnerIdx = i
		}
	}
	if winnerIdx < 0 {
		log.Printf("tournament %s: winner %s not seated in active match", t.ID, winnerConnID)
		winnerIdx = 0
	}

	d.recordLocked(t, node, winnerIdx)
	if !t.disposed {
		d.scheduleAdvanceLocked(t)
		d.broadcastUpdateLocked(t)
	}
	return true
}

// RoomTournament maps a match room to its tournament id.
func (d *Director) RoomTournament(roomID string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tid, ok := d.roomTours[roomID]
	return tid, ok
}

// MemberOf returns the tournament a connection belongs to.
func (d *Director) MemberOf(connID uuid.UUID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tid, ok := d.playerTours[connID]
	return tid, ok
}

// List returns lobby summaries for tournaments that are still joinable or
// still being played.
func (d *Director) List() []models.TournamentSummary {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]models.TournamentSummary, 0, len(d.tournaments))
	for _, t := range d.tournaments {
		if !t.Started || t.Winner == "" {
			out = append(out, t.summary())
		}
	}
	return out
}

// StateOf returns the full bracket view for get_state requests.
func (d *Director) StateOf(tournamentID string) (models.TournamentState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.tournaments[tournamentID]
	if !ok {
		return models.TournamentState{}, false
	}
	return t.state(), true
}

// recordLocked settles a node: winner set, result frames sent, winner pushed
// into the next node, and the final node completes the tournament.
func (d *Director) recordLocked(t *Tournament, node *Node, winnerIdx int) {
	winner := node.Slots[winnerIdx]
	loser := node.Slots[1-winnerIdx]
	node.Winner = winner
	node.Status = StatusCompleted

	key := NodeKey{Round: node.Round, Position: node.Position}
	if t.activeKey != nil && *t.activeKey == key {
		t.activeKey = nil
		delete(d.roomTours, t.activeRoom)
		t.activeRoom = ""
	}

	final := node.Next == nil
	log.Printf("tournament %s: round %d match %d won by %s", t.ID, node.Round, node.Position, winner.Nickname)

	if loser != nil && loser.ConnID != uuid.Nil {
		d.notifier.Send(loser.ConnID, models.TournamentMatchResultFrame{
			Type:               models.FrameTournamentMatchResult,
			Won:                false,
			Opponent:           winner.Nickname,
			TournamentComplete: final,
		})
		d.notifier.Send(loser.ConnID, models.TournamentEliminatedFrame{
			Type:   models.FrameTournamentEliminated,
			Winner: winner.Nickname,
		})
		d.notifier.LeaveMatch(loser.ConnID)
	}
	if winner.ConnID != uuid.Nil {
		d.notifier.Send(winner.ConnID, models.TournamentMatchResultFrame{
			Type:               models.FrameTournamentMatchResult,
			Won:                true,
			Opponent:           slotNickname(loser),
			TournamentComplete: final,
		})
		d.notifier.LeaveMatch(winner.ConnID)
	}

	if final {
		d.completeLocked(t, winner)
		return
	}

	next := t.Nodes[NodeKey{Round: node.Next.Round, Position: node.Next.Position}]
	if next == nil {
		log.Printf("tournament %s: next node (%d,%d) missing", t.ID, node.Next.Round, node.Next.Position)
		return
	}
	idx := node.Next.Slot
	if next.Slots[idx] != nil {
		idx = 1 - idx
	}
	if next.Slots[idx] != nil {
		log.Printf("tournament %s: node (%d,%d) already full, dropping advancement", t.ID, next.Round, next.Position)
		return
	}
	next.Slots[idx] = winner
}

// completeLocked crowns the champion and tears the tournament down.
func (d *Director) completeLocked(t *Tournament, winner *Slot) {
	t.Winner = winner.Nickname
	log.Printf("tournament %s complete: winner %s", t.ID, winner.Nickname)

	if winner.ConnID != uuid.Nil {
		d.notifier.Send(winner.ConnID, models.TournamentVictoryFrame{
			Type: models.FrameTournamentVictory,
		})
	}
	for _, s := range t.Players {
		if s.ConnID == uuid.Nil || s == winner {
			continue
		}
		d.notifier.Send(s.ConnID, models.TournamentCompleteFrame{
			Type:   models.FrameTournamentComplete,
			Winner: winner.Nickname,
		})
	}
	d.broadcastUpdateLocked(t)
	d.disposeLocked(t)
	d.changed()
}

// advanceLocked picks the next playable node. Walkovers resolve inline so a
// string of departed players cannot stall the bracket.
func (d *Director) advanceLocked(t *Tournament) {
	for {
		if t.disposed || t.Winner != "" || t.activeKey != nil {
			return
		}
		node := nextPlayable(t.Nodes, t.FinalRound)
		if node == nil {
			root := t.Nodes[NodeKey{Round: t.FinalRound, Position: 0}]
			if root != nil && root.Winner != nil {
				return
			}
			log.Printf("tournament %s: no playable match and no champion, disposing", t.ID)
			d.disposeLocked(t)
			d.changed()
			return
		}

		if node.Slots[0].ConnID == uuid.Nil || node.Slots[1].ConnID == uuid.Nil {
			winnerIdx := 1
			if node.Slots[1].ConnID == uuid.Nil && node.Slots[0].ConnID != uuid.Nil {
				winnerIdx = 0
			}
			log.Printf("tournament %s: round %d match %d is a walkover for %s",
				t.ID, node.Round, node.Position, node.Slots[winnerIdx].Nickname)
			d.recordLocked(t, node, winnerIdx)
			if !t.disposed {
				d.broadcastUpdateLocked(t)
			}
			continue
		}

		d.launchLocked(t, node)
		return
	}
}

// launchLocked spins up the engine for a node and seats both players.
func (d *Director) launchLocked(t *Tournament, node *Node) {
	room := "game_" + uuid.NewString()
	d.manager.Create(room, t.Rounds)
	d.manager.Attach(room, node.Slots[0].ConnID, pong.SideLeft)
	d.manager.Attach(room, node.Slots[1].ConnID, pong.SideRight)

	key := NodeKey{Round: node.Round, Position: node.Position}
	node.Status = StatusActive
	t.activeKey = &key
	t.activeRoom = room
	d.roomTours[room] = t.ID
	log.Printf("tournament %s: round %d match %d -> room %s (%s vs %s)",
		t.ID, node.Round, node.Position, room, node.Slots[0].Nickname, node.Slots[1].Nickname)

	sides := [2]pong.Side{pong.SideLeft, pong.SideRight}
	for i, s := range node.Slots {
		d.notifier.EnterMatch(s.ConnID, room)
		d.notifier.Send(s.ConnID, models.MessageFrame{
			Type:    models.FrameTournamentMatchReady,
			Message: fmt.Sprintf("Your match against %s is starting", node.Slots[1-i].Nickname),
		})
		d.notifier.Send(s.ConnID, models.StartGameFrame{
			Type:         models.FrameStartGame,
			Message:      "Tournament match is starting",
			Room:         room,
			Rounds:       t.Rounds,
			IsTournament: true,
			PlayerSide:   string(sides[i]),
		})
	}

	d.broadcastUpdateLocked(t)
	if d.manager.Start(room) {
		metrics.GamesStarted.WithLabelValues(metrics.ModeTournament).Inc()
	} else {
		log.Printf("tournament %s: room %s failed to start", t.ID, room)
	}
}

func (d *Director) scheduleAdvanceLocked(t *Tournament) {
	if t.advanceTimer != nil {
		t.advanceTimer.Stop()
	}
	t.advanceTimer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if t.disposed {
			return
		}
		d.advanceLocked(t)
	})
}

func (d *Director) broadcastUpdateLocked(t *Tournament) {
	frame := models.TournamentUpdateFrame{
		Type:       models.FrameTournamentUpdate,
		Tournament: t.state(),
	}
	for _, s := range t.Players {
		if s.ConnID != uuid.Nil {
			d.notifier.Send(s.ConnID, frame)
		}
	}
}

func (d *Director) liveEntrantsLocked(t *Tournament) int {
	n := 0
	for _, s := range t.Players {
		if s.ConnID != uuid.Nil {
			n++
		}
	}
	return n
}

// disposeLocked drops all bookkeeping for a tournament and frees its
// remaining members.
func (d *Director) disposeLocked(t *Tournament) {
	if t.disposed {
		return
	}
	t.disposed = true
	if t.advanceTimer != nil {
		t.advanceTimer.Stop()
	}
	if t.activeRoom != "" {
		delete(d.roomTours, t.activeRoom)
	}
	for _, s := range t.Players {
		if s.ConnID == uuid.Nil {
			continue
		}
		if d.playerTours[s.ConnID] == t.ID {
			delete(d.playerTours, s.ConnID)
		}
		d.notifier.Release(s.ConnID)
	}
	delete(d.tournaments, t.ID)
}

func (d *Director) changed() {
	if d.OnChange != nil {
		d.OnChange()
	}
}
