// internal/handlers/router.go
package handlers

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/ft-transcendence/pong-service/internal/auth"
	"github.com/ft-transcendence/pong-service/internal/lobby"
	"github.com/ft-transcendence/pong-service/internal/metrics"
	"github.com/ft-transcendence/pong-service/internal/models"
	"github.com/ft-transcendence/pong-service/internal/pong"
)

const defaultTargetRounds = 3

// Route decodes one inbound message and dispatches it. Malformed JSON and
// unknown types are logged and dropped; the connection stays up.
func (s *AppServer) Route(c *lobby.Connection, raw []byte) {
	var msg models.Inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.Logger.Warnf("connection %s: invalid json: %v", c.ID, err)
		return
	}
	metrics.Messages.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case models.MsgJoin:
		s.handleJoin(c, msg)
	case models.MsgLeaveQueue:
		s.handleLeaveQueue(c)
	case models.MsgGameUpdate:
		s.handleGameUpdate(c, msg)
	case models.MsgGameOver:
		// The simulation is authoritative; a client-declared result is noted
		// and otherwise ignored.
		s.Logger.Debugf("connection %s: client game_over (score=%d) ignored", c.ID, msg.Score)
	case models.MsgCreateTournament:
		s.handleCreateTournament(c, msg)
	case models.MsgJoinTournament:
		s.handleJoinTournament(c, msg)
	case models.MsgStartTournament:
		s.handleStartTournament(c, msg)
	case models.MsgLeaveTournament:
		s.Director.Leave(c.ID)
	case models.MsgGetTournaments:
		if !c.Write(s.Registry.TournamentListFrame()) {
			c.Close()
		}
	case models.MsgGetState:
		s.handleGetState(c)
	default:
		s.Logger.Warnf("connection %s: unknown message type %q", c.ID, msg.Type)
	}
}

// handleJoin puts the caller in the matchmaking queue, pairing immediately
// when another player is waiting on the same rounds value. The earlier
// waiter takes the left side.
func (s *AppServer) handleJoin(c *lobby.Connection, msg models.Inbound) {
	if msg.Nickname == "" {
		c.WriteError(models.FrameQueueUpdate, "Nickname is required")
		return
	}
	if c.Tournament() != "" {
		c.WriteError(models.FrameTournamentError, "Leave your tournament before joining the queue")
		return
	}
	if c.Room() != "" {
		s.Logger.Warnf("connection %s: join while in a match, ignored", c.ID)
		return
	}

	if msg.Token != "" {
		if sub, err := auth.AuthenticateJWT(msg.Token); err != nil || sub != msg.Nickname {
			// Token verification is best-effort; the queue accepts the join.
			s.Logger.Warnf("connection %s: join token did not verify for %q", c.ID, msg.Nickname)
		}
	}

	rounds := msg.Rounds
	if rounds <= 0 {
		rounds = defaultTargetRounds
	}
	c.SetNickname(msg.Nickname)

	for {
		opponent, matched := s.Queue.Join(c.ID, msg.Nickname, rounds)
		if !matched {
			c.SetState(lobby.StateQueued)
			c.WriteError(models.FrameQueueUpdate, "Waiting for an opponent...")
			s.Registry.BroadcastWaitingList()
			return
		}
		oc, ok := s.Registry.Get(opponent.ConnID)
		if !ok {
			s.Logger.Warnf("queue entry %s has no live connection, skipping", opponent.ConnID)
			continue
		}
		s.startMatch(oc, c, rounds)
		s.Registry.BroadcastWaitingList()
		return
	}
}

// startMatch creates a room for a fresh pairing and launches the engine.
func (s *AppServer) startMatch(leftConn, rightConn *lobby.Connection, rounds int) {
	room := "game_" + uuid.NewString()
	s.Manager.Create(room, rounds)
	s.Manager.Attach(room, leftConn.ID, pong.SideLeft)
	s.Manager.Attach(room, rightConn.ID, pong.SideRight)
	s.seat(leftConn, room, lobby.StateInMatch)
	s.seat(rightConn, room, lobby.StateInMatch)

	start := models.StartGameFrame{
		Type:    models.FrameStartGame,
		Message: "Opponent found! Game starting...",
		Room:    room,
		Rounds:  rounds,
	}
	start.PlayerSide = string(pong.SideLeft)
	leftConn.Write(start)
	start.PlayerSide = string(pong.SideRight)
	rightConn.Write(start)

	if s.Manager.Start(room) {
		metrics.GamesStarted.WithLabelValues(metrics.ModeClassic).Inc()
		s.Logger.Infof("match started: room=%s left=%s right=%s rounds=%d",
			room, leftConn.Nickname(), rightConn.Nickname(), rounds)
	} else {
		s.Logger.Errorf("match failed to start: room=%s", room)
	}
}

func (s *AppServer) handleLeaveQueue(c *lobby.Connection) {
	if s.Queue.Leave(c.ID) {
		c.SetState(lobby.StateIdle)
		c.WriteError(models.FrameQueueUpdate, "You have left the waiting list")
		s.Registry.BroadcastWaitingList()
	}
}

func (s *AppServer) handleGameUpdate(c *lobby.Connection, msg models.Inbound) {
	if msg.PaddleY == nil {
		return
	}
	s.Manager.SetPaddle(c.ID, *msg.PaddleY)
}

func (s *AppServer) handleCreateTournament(c *lobby.Connection, msg models.Inbound) {
	nickname := msg.Nickname
	if nickname == "" {
		nickname = c.Nickname()
	}
	if s.Queue.Leave(c.ID) {
		s.Registry.BroadcastWaitingList()
	}
	t, err := s.Director.Create(c.ID, nickname, msg.Name, msg.Size, msg.Rounds)
	if err != nil {
		c.WriteError(models.FrameTournamentError, err.Error())
		return
	}
	c.SetNickname(nickname)
	c.SetTournament(t.ID)
	c.SetState(lobby.StateInTournamentLobby)
}

func (s *AppServer) handleJoinTournament(c *lobby.Connection, msg models.Inbound) {
	nickname := msg.Nickname
	if nickname == "" {
		nickname = c.Nickname()
	}
	if s.Queue.Leave(c.ID) {
		s.Registry.BroadcastWaitingList()
	}
	t, err := s.Director.Join(c.ID, nickname, msg.TournamentID)
	if err != nil {
		c.WriteError(models.FrameTournamentError, err.Error())
		return
	}
	c.SetNickname(nickname)
	c.SetTournament(t.ID)
	c.SetState(lobby.StateInTournamentLobby)
}

func (s *AppServer) handleStartTournament(c *lobby.Connection, msg models.Inbound) {
	tid := msg.TournamentID
	if tid == "" {
		tid = c.Tournament()
	}
	if err := s.Director.Start(c.ID, tid); err != nil {
		c.WriteError(models.FrameTournamentError, err.Error())
	}
}

// handleGetState replays the view matching the connection's current state:
// an engine snapshot in a match, the bracket in a tournament, the lobby
// snapshot otherwise.
func (s *AppServer) handleGetState(c *lobby.Connection) {
	if g := s.Manager.GameFor(c.ID); g != nil {
		c.WriteState(gameStateFrame{Type: models.FrameGameStateUpdate, State: g.Snapshot()})
		return
	}
	if tid := c.Tournament(); tid != "" {
		if state, ok := s.Director.StateOf(tid); ok {
			c.Write(models.TournamentUpdateFrame{Type: models.FrameTournamentUpdate, Tournament: state})
			return
		}
	}
	s.Registry.SendSnapshot(c)
}
