// internal/handlers/router_test.go
package handlers

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ft-transcendence/pong-service/internal/lobby"
	"github.com/ft-transcendence/pong-service/internal/models"
)

// recordSink collects match results instead of queuing them in Redis.
type recordSink struct {
	mu      sync.Mutex
	results []models.MatchResult
}

func (r *recordSink) RecordResult(result models.MatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordSink) all() []models.MatchResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MatchResult(nil), r.results...)
}

func newTestApp(recorder ResultRecorder) *AppServer {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewAppServer(logger, recorder)
}

func addConn(app *AppServer) *lobby.Connection {
	c := lobby.NewConnection(uuid.New())
	c.Cancel = func() {}
	app.Registry.Add(c)
	return c
}

func drainCtrl(c *lobby.Connection) []interface{} {
	var out []interface{}
	for {
		select {
		case f := <-c.Control():
			out = append(out, f)
		default:
			return out
		}
	}
}

func drainStates(c *lobby.Connection) {
	for {
		select {
		case <-c.States():
		default:
			return
		}
	}
}

func hasFrame(frames []interface{}, match func(interface{}) bool) bool {
	for _, f := range frames {
		if match(f) {
			return true
		}
	}
	return false
}

func findStartGame(frames []interface{}) (models.StartGameFrame, bool) {
	for _, f := range frames {
		if sg, ok := f.(models.StartGameFrame); ok {
			return sg, true
		}
	}
	return models.StartGameFrame{}, false
}

func TestJoinQueuesPlayer(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{"type":"join","nickname":"alice","rounds":3}`))

	frames := drainCtrl(c)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		mf, ok := f.(models.MessageFrame)
		return ok && mf.Type == models.FrameQueueUpdate
	}), "queued player gets a queue_update")
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		wl, ok := f.(models.WaitingListFrame)
		return ok && len(wl.WaitingList) == 1
	}), "waiting list broadcast includes the new entry")
	assert.Equal(t, lobby.StateQueued, c.State())
	assert.Equal(t, 1, app.Queue.Len())
}

func TestJoinRequiresNickname(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{"type":"join"}`))

	assert.Equal(t, 0, app.Queue.Len())
	assert.Equal(t, lobby.StateIdle, c.State())
}

func TestJoinPairsTwoPlayers(t *testing.T) {
	app := newTestApp(nil)
	c1 := addConn(app)
	c2 := addConn(app)

	app.Route(c1, []byte(`{"type":"join","nickname":"alice","rounds":3}`))
	drainCtrl(c1)
	app.Route(c2, []byte(`{"type":"join","nickname":"bob","rounds":3}`))

	sg1, ok := findStartGame(drainCtrl(c1))
	require.True(t, ok, "waiter gets start_game")
	sg2, ok := findStartGame(drainCtrl(c2))
	require.True(t, ok, "caller gets start_game")

	assert.Equal(t, "left", sg1.PlayerSide, "earlier waiter takes the left side")
	assert.Equal(t, "right", sg2.PlayerSide)
	assert.Equal(t, sg1.Room, sg2.Room)
	assert.False(t, sg1.IsTournament)

	assert.Equal(t, lobby.StateInMatch, c1.State())
	assert.Equal(t, lobby.StateInMatch, c2.State())
	assert.Equal(t, 0, app.Queue.Len())

	g, ok := app.Manager.Get(sg1.Room)
	require.True(t, ok)
	assert.True(t, g.Running())
	g.Stop()
}

func TestJoinDifferentRoundsDoesNotPair(t *testing.T) {
	app := newTestApp(nil)
	c1 := addConn(app)
	c2 := addConn(app)

	app.Route(c1, []byte(`{"type":"join","nickname":"alice","rounds":3}`))
	app.Route(c2, []byte(`{"type":"join","nickname":"bob","rounds":7}`))

	assert.Equal(t, 2, app.Queue.Len())
	assert.Equal(t, lobby.StateQueued, c1.State())
	assert.Equal(t, lobby.StateQueued, c2.State())
}

func TestLeaveQueue(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{"type":"join","nickname":"alice"}`))
	drainCtrl(c)
	app.Route(c, []byte(`{"type":"leave_queue"}`))

	assert.Equal(t, 0, app.Queue.Len())
	assert.Equal(t, lobby.StateIdle, c.State())
	frames := drainCtrl(c)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		mf, ok := f.(models.MessageFrame)
		return ok && mf.Type == models.FrameQueueUpdate
	}))
}

func TestGameUpdateMovesOwnPaddle(t *testing.T) {
	app := newTestApp(nil)
	c1 := addConn(app)
	c2 := addConn(app)
	app.Route(c1, []byte(`{"type":"join","nickname":"alice"}`))
	app.Route(c2, []byte(`{"type":"join","nickname":"bob"}`))

	app.Route(c1, []byte(`{"type":"game_update","paddleY":200}`))

	g := app.Manager.GameFor(c1.ID)
	require.NotNil(t, g)
	assert.Equal(t, 200.0, g.Snapshot().Paddles.Left.Y)
	g.Stop()
}

func TestMalformedJSONIsDropped(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{not json`))
	app.Route(c, []byte(`{"type":"no_such_message"}`))

	assert.Empty(t, drainCtrl(c))
	_, ok := app.Registry.Get(c.ID)
	assert.True(t, ok, "bad input must not kill the connection")
}

func TestDisconnectNotifiesOpponent(t *testing.T) {
	app := newTestApp(nil)
	c1 := addConn(app)
	c2 := addConn(app)
	app.Route(c1, []byte(`{"type":"join","nickname":"alice"}`))
	app.Route(c2, []byte(`{"type":"join","nickname":"bob"}`))
	drainCtrl(c1)
	drainCtrl(c2)

	app.Cleanup(c1)

	frames := drainCtrl(c2)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		mf, ok := f.(models.MessageFrame)
		return ok && mf.Type == models.FrameOpponentLeft
	}), "surviving player learns the opponent left")
	assert.Equal(t, lobby.StateIdle, c2.State())

	_, ok := app.Registry.Get(c1.ID)
	assert.False(t, ok)
}

func TestDisconnectFreesSurvivorSeat(t *testing.T) {
	app := newTestApp(nil)
	c1 := addConn(app)
	c2 := addConn(app)
	app.Route(c1, []byte(`{"type":"join","nickname":"alice"}`))
	app.Route(c2, []byte(`{"type":"join","nickname":"bob"}`))
	sg, ok := findStartGame(drainCtrl(c2))
	require.True(t, ok)
	drainCtrl(c1)

	app.Cleanup(c1)

	assert.Nil(t, app.Manager.GameFor(c2.ID), "survivor no longer seated")
	_, seated := app.Manager.RoomFor(c2.ID)
	assert.False(t, seated)
	_, alive := app.Manager.Get(sg.Room)
	assert.False(t, alive, "abandoned room is disposed")

	drainCtrl(c2)
	drainStates(c2)
	app.Route(c2, []byte(`{"type":"get_state"}`))

	select {
	case f := <-c2.States():
		t.Fatalf("got stale %T instead of the lobby snapshot", f)
	default:
	}
	frames := drainCtrl(c2)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		_, ok := f.(models.WaitingListFrame)
		return ok
	}), "idle survivor gets the lobby snapshot")
}

func TestGameOverNotifiesAndRecords(t *testing.T) {
	sink := &recordSink{}
	app := newTestApp(sink)
	c1 := addConn(app)
	c2 := addConn(app)
	app.Route(c1, []byte(`{"type":"join","nickname":"alice"}`))
	app.Route(c2, []byte(`{"type":"join","nickname":"bob"}`))
	drainCtrl(c1)
	drainCtrl(c2)

	g := app.Manager.GameFor(c1.ID)
	require.NotNil(t, g)
	g.Stop()
	app.handleGameOver(g)

	for _, c := range []*lobby.Connection{c1, c2} {
		frames := drainCtrl(c)
		assert.True(t, hasFrame(frames, func(f interface{}) bool {
			gf, ok := f.(models.GameOverFrame)
			return ok && (gf.Winner == "left" || gf.Winner == "right")
		}), "game_over winner carries a side, not a name")
		assert.Equal(t, lobby.StateIdle, c.State())
		assert.Empty(t, c.Room())
	}

	results := sink.all()
	require.Len(t, results, 2, "one result per seated player")
	wins := 0
	for _, r := range results {
		if r.Winner {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one player is recorded as the winner")
}

func TestCreateTournamentViaRouter(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{"type":"create_tournament","nickname":"alice","name":"cup","size":4,"rounds":3}`))

	frames := drainCtrl(c)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		tc, ok := f.(models.TournamentCreatedFrame)
		return ok && tc.Name == "cup"
	}))
	assert.Equal(t, lobby.StateInTournamentLobby, c.State())
	assert.NotEmpty(t, c.Tournament())
	assert.Len(t, app.Director.List(), 1)
}

func TestCreateTournamentInvalidSize(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{"type":"create_tournament","nickname":"alice","size":5}`))

	frames := drainCtrl(c)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		mf, ok := f.(models.MessageFrame)
		return ok && mf.Type == models.FrameTournamentError
	}))
	assert.Equal(t, lobby.StateIdle, c.State())
	assert.Empty(t, c.Tournament())
}

func TestJoinWhileInTournamentRejected(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)
	app.Route(c, []byte(`{"type":"create_tournament","nickname":"alice","size":4}`))
	drainCtrl(c)

	app.Route(c, []byte(`{"type":"join","nickname":"alice"}`))

	assert.Equal(t, 0, app.Queue.Len())
	frames := drainCtrl(c)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		mf, ok := f.(models.MessageFrame)
		return ok && mf.Type == models.FrameTournamentError
	}))
}

func TestGetStateIdleSendsLobbySnapshot(t *testing.T) {
	app := newTestApp(nil)
	c := addConn(app)

	app.Route(c, []byte(`{"type":"get_state"}`))

	frames := drainCtrl(c)
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		_, ok := f.(models.WaitingListFrame)
		return ok
	}))
	assert.True(t, hasFrame(frames, func(f interface{}) bool {
		_, ok := f.(models.TournamentListFrame)
		return ok
	}))
}
