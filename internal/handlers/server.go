// internal/handlers/server.go
package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ft-transcendence/pong-service/internal/lobby"
	"github.com/ft-transcendence/pong-service/internal/metrics"
	"github.com/ft-transcendence/pong-service/internal/models"
	"github.com/ft-transcendence/pong-service/internal/pong"
	"github.com/ft-transcendence/pong-service/internal/tournament"
)

// ResultRecorder persists finished match results. The stats sink implements
// it; tests swap in a recorder of their own.
type ResultRecorder interface {
	RecordResult(result models.MatchResult)
}

// AppServer wires the lobby registry, the matchmaking queue, the match
// manager and the tournament director together, and owns the callbacks that
// cross between them.
type AppServer struct {
	Logger   *logrus.Logger
	Registry *lobby.Registry
	Queue    *lobby.Queue
	Manager  *pong.Manager
	Director *tournament.Director
	Recorder ResultRecorder
}

// gameStateFrame wraps an engine snapshot for the wire.
type gameStateFrame struct {
	Type  string     `json:"type"`
	State pong.State `json:"state"`
}

// NewAppServer builds the fully wired server core.
func NewAppServer(logger *logrus.Logger, recorder ResultRecorder) *AppServer {
	s := &AppServer{
		Logger:   logger,
		Registry: lobby.NewRegistry(),
		Queue:    lobby.NewQueue(),
		Manager:  pong.NewManager(0),
		Recorder: recorder,
	}
	s.Director = tournament.NewDirector(s.Manager, s, 0)
	s.Director.OnChange = s.Registry.BroadcastTournamentList

	s.Registry.WaitingListFn = s.Queue.List
	s.Registry.TournamentListFn = s.Director.List

	s.Manager.BroadcastState = s.broadcastGameState
	s.Manager.OnGameOver = s.handleGameOver
	return s
}

// Send implements tournament.Notifier.
func (s *AppServer) Send(connID uuid.UUID, frame interface{}) bool {
	c, ok := s.Registry.Get(connID)
	if !ok {
		return false
	}
	if !c.Write(frame) {
		c.Close()
		return false
	}
	return true
}

// EnterMatch implements tournament.Notifier.
func (s *AppServer) EnterMatch(connID uuid.UUID, room string) {
	if c, ok := s.Registry.Get(connID); ok {
		s.seat(c, room, lobby.StateInTournamentMatch)
	}
}

// LeaveMatch implements tournament.Notifier.
func (s *AppServer) LeaveMatch(connID uuid.UUID) {
	if c, ok := s.Registry.Get(connID); ok {
		s.unseat(c, lobby.StateInTournamentLobby)
	}
}

// Release implements tournament.Notifier.
func (s *AppServer) Release(connID uuid.UUID) {
	if c, ok := s.Registry.Get(connID); ok {
		c.SetTournament("")
		s.unseat(c, lobby.StateIdle)
	}
}

// seat marks a connection as playing in a room, keeping the active-player
// gauge in step.
func (s *AppServer) seat(c *lobby.Connection, room string, st lobby.ConnState) {
	if c.Room() == "" {
		metrics.ActivePlayers.Inc()
	}
	c.SetRoom(room)
	c.SetState(st)
}

// unseat clears a connection's room, if any, and moves it to the given state.
func (s *AppServer) unseat(c *lobby.Connection, st lobby.ConnState) {
	if c.Room() != "" {
		metrics.ActivePlayers.Dec()
	}
	c.SetRoom("")
	c.SetState(st)
}

// broadcastGameState pushes an engine snapshot to both seated players. Runs
// on the engine's loop goroutine at tick rate, so delivery goes through the
// drop-oldest snapshot queues.
func (s *AppServer) broadcastGameState(roomID string, left, right uuid.UUID, snap pong.State) {
	frame := gameStateFrame{Type: models.FrameGameStateUpdate, State: snap}
	for _, id := range []uuid.UUID{left, right} {
		if id == uuid.Nil {
			continue
		}
		if c, ok := s.Registry.Get(id); ok {
			c.WriteState(frame)
		}
	}
}

// handleGameOver runs when an engine finishes with a winner. It notifies
// both players, records stats, and hands tournament matches to the director.
func (s *AppServer) handleGameOver(g *pong.Game) {
	left, right := g.Players()
	winnerSide := pong.SideLeft
	winnerID, loserID := left, right
	if g.Winner() == pong.SideRight {
		winnerSide = pong.SideRight
		winnerID, loserID = right, left
	}
	leftScore, rightScore := g.Scores()
	winnerScore := leftScore
	if winnerSide == pong.SideRight {
		winnerScore = rightScore
	}

	_, isTournament := s.Director.RoomTournament(g.RoomID)
	mode := metrics.ModeClassic
	if isTournament {
		mode = metrics.ModeTournament
	}
	metrics.GamesCompleted.WithLabelValues(mode).Inc()
	if started := g.StartedAt(); !started.IsZero() {
		metrics.GameDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	}

	winnerNick := s.nicknameOf(winnerID)
	frame := models.GameOverFrame{
		Type:           models.FrameGameOver,
		Score:          winnerScore,
		Winner:         string(winnerSide),
		WinnerNickname: winnerNick,
	}
	for _, id := range []uuid.UUID{winnerID, loserID} {
		if c, ok := s.Registry.Get(id); ok {
			c.Write(frame)
			if s.Recorder != nil && c.Nickname() != "" {
				s.Recorder.RecordResult(models.MatchResult{
					Nickname:    c.Nickname(),
					Winner:      id == winnerID,
					TotalRounds: g.TargetRounds,
				})
			}
		}
	}
	s.Logger.Infof("game over: room=%s winner=%s score=%d", g.RoomID, winnerNick, winnerScore)

	if isTournament {
		s.Director.HandleGameOver(g.RoomID, winnerID)
		return
	}
	for _, id := range []uuid.UUID{winnerID, loserID} {
		if c, ok := s.Registry.Get(id); ok {
			s.unseat(c, lobby.StateIdle)
		}
	}
}

func (s *AppServer) nicknameOf(connID uuid.UUID) string {
	if c, ok := s.Registry.Get(connID); ok {
		return c.Nickname()
	}
	return ""
}

// Cleanup tears down everything a departing connection holds: queue entry,
// match seat and tournament membership, in that order.
func (s *AppServer) Cleanup(c *lobby.Connection) {
	if s.Queue.Leave(c.ID) {
		s.Registry.BroadcastWaitingList()
	}

	inTournament := c.Tournament() != ""

	room, opponent, wasRunning, seated := s.Manager.Detach(c.ID)
	if seated && opponent != uuid.Nil {
		if wasRunning {
			if oc, ok := s.Registry.Get(opponent); ok {
				oc.Write(models.MessageFrame{
					Type:    models.FrameOpponentLeft,
					Message: "Your opponent has left the game",
				})
			}
			s.Logger.Infof("connection %s abandoned room %s", c.ID, room)
		}
		// The tournament director detaches the survivor when the forfeit is
		// recorded; a classic match is over the moment a player leaves.
		if !inTournament {
			s.Manager.Detach(opponent)
			if oc, ok := s.Registry.Get(opponent); ok {
				s.unseat(oc, lobby.StateIdle)
			}
		}
	}

	if inTournament {
		s.Director.Leave(c.ID)
	}

	if c.Room() != "" {
		metrics.ActivePlayers.Dec()
		c.SetRoom("")
	}
	s.Registry.Remove(c.ID)
}
