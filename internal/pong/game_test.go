// internal/pong/game_test.go
package pong

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinningScore(t *testing.T) {
	cases := []struct {
		rounds int
		want   int
	}{
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{5, 3},
		{10, 5},
	}
	for _, tc := range cases {
		g := NewGame("room", tc.rounds)
		assert.Equal(t, tc.want, g.WinningScore(), "rounds=%d", tc.rounds)
	}
}

func TestAddPlayerAssignsSides(t *testing.T) {
	g := NewGame("room", 3)
	p1, p2, p3 := uuid.New(), uuid.New(), uuid.New()

	assert.Equal(t, SideLeft, g.AddPlayer(p1, SideNone))
	assert.Equal(t, SideRight, g.AddPlayer(p2, SideNone))
	assert.Equal(t, SideNone, g.AddPlayer(p3, SideNone), "full game must refuse a third player")

	assert.Equal(t, SideLeft, g.SideOf(p1))
	assert.Equal(t, SideRight, g.SideOf(p2))
	assert.Equal(t, SideNone, g.SideOf(p3))
}

func TestAddPlayerHonorsRequestedSide(t *testing.T) {
	g := NewGame("room", 3)
	p1, p2 := uuid.New(), uuid.New()

	assert.Equal(t, SideRight, g.AddPlayer(p1, SideRight))
	assert.Equal(t, SideLeft, g.AddPlayer(p2, SideLeft))
}

func TestUpdatePaddleClamps(t *testing.T) {
	g := NewGame("room", 3)
	p1, p2 := uuid.New(), uuid.New()
	g.AddPlayer(p1, SideLeft)
	g.AddPlayer(p2, SideRight)

	g.UpdatePaddle(p1, -500)
	g.UpdatePaddle(p2, 10000)

	snap := g.Snapshot()
	assert.Equal(t, 0.0, snap.Paddles.Left.Y)
	assert.Equal(t, ArenaHeight-PaddleHeight, snap.Paddles.Right.Y)
}

func TestUpdatePaddleIgnoresStrangers(t *testing.T) {
	g := NewGame("room", 3)
	g.AddPlayer(uuid.New(), SideLeft)
	g.AddPlayer(uuid.New(), SideRight)
	before := g.Snapshot()

	g.UpdatePaddle(uuid.New(), 42)

	assert.Equal(t, before.Paddles, g.Snapshot().Paddles)
}

func TestStartRequiresBothPlayers(t *testing.T) {
	g := NewGame("room", 3)
	assert.False(t, g.Start(), "empty game must not start")

	g.AddPlayer(uuid.New(), SideLeft)
	assert.False(t, g.Start(), "half-seated game must not start")

	g.AddPlayer(uuid.New(), SideRight)
	require.True(t, g.Start())
	assert.False(t, g.Start(), "running game must not start twice")
	g.Stop()
}

func TestRemovePlayerStopsSimulation(t *testing.T) {
	g := NewGame("room", 3)
	p1, p2 := uuid.New(), uuid.New()
	g.AddPlayer(p1, SideLeft)
	g.AddPlayer(p2, SideRight)
	require.True(t, g.Start())
	defer g.Stop()

	require.True(t, g.RemovePlayer(p1))
	assert.False(t, g.Running())
	assert.Equal(t, SideNone, g.Winner(), "a walkout is not a won game")
}

func TestStopIsIdempotent(t *testing.T) {
	g := NewGame("room", 3)
	g.Stop()
	g.Stop()
}

func TestWallBounceReflectsAndClamps(t *testing.T) {
	g := NewGame("room", 3)
	g.running = true
	g.ballX = ArenaWidth / 2
	g.ballY = BallRadius + 1
	g.ballVX = 0
	g.ballVY = -5

	_, _, snap := g.step(frameDuration)

	assert.Equal(t, BallRadius, snap.Ball.Y, "ball clamps to the wall")
	assert.Greater(t, g.ballVY, 0.0, "vertical velocity reflects")
}

func TestScoringServesTowardConceder(t *testing.T) {
	g := NewGame("room", 5)
	g.running = true
	// Park the left paddle away from center so it cannot catch the ball.
	g.leftPaddleY = 0
	g.ballX = 5
	g.ballY = ArenaHeight / 2
	g.ballVX = -5
	g.ballVY = 0

	alive, won, snap := g.step(frameDuration)

	require.True(t, alive)
	assert.False(t, won)
	assert.Equal(t, 1, snap.Score.Right)
	assert.Equal(t, 0, snap.Score.Left)
	assert.Equal(t, ArenaWidth/2, snap.Ball.X, "ball recenters after a point")
	assert.Less(t, g.ballVX, 0.0, "serve heads back toward the conceding side")
}

func TestPaddleHitSpeedsUpAndTeleportsClear(t *testing.T) {
	g := NewGame("room", 3)
	g.running = true
	// Dead-center hit on the left paddle: angle 0, pure horizontal return.
	g.ballX = PaddleWidth + BallRadius
	g.ballY = g.leftPaddleY + PaddleHeight/2
	g.ballVX = -1
	g.ballVY = 0

	g.step(frameDuration)

	assert.InDelta(t, InitialBallSpeed+SpeedIncrement, g.ballSpeed, 1e-9)
	assert.InDelta(t, InitialBallSpeed+SpeedIncrement, g.ballVX, 1e-9, "center hit returns flat")
	assert.InDelta(t, 0, g.ballVY, 1e-9)
	assert.Equal(t, PaddleWidth+BallRadius, g.ballX, "ball sits one radius past the face")
}

func TestEdgeHitSteepensAngle(t *testing.T) {
	g := NewGame("room", 3)
	g.running = true
	// Near the bottom edge of the paddle: hit approaches +1.
	g.ballX = PaddleWidth + BallRadius
	g.ballY = g.leftPaddleY + PaddleHeight - 1
	g.ballVX = -1
	g.ballVY = 0

	g.step(frameDuration)

	assert.Greater(t, g.ballVY, 0.0, "bottom-edge hit deflects downward")
	assert.Greater(t, g.ballVX, 0.0)
}

func TestSingleRoundGameEndsOnFirstPoint(t *testing.T) {
	g := NewGame("room", 1)
	g.running = true
	g.rightPaddleY = 0
	g.ballX = ArenaWidth - 5
	g.ballY = ArenaHeight / 2
	g.ballVX = 5
	g.ballVY = 0

	alive, won, snap := g.step(frameDuration)

	assert.False(t, alive)
	assert.True(t, won)
	assert.Equal(t, 1, snap.Score.Left)
	assert.Equal(t, SideLeft, g.Winner())
}

func TestEvenRoundsWinAtHalf(t *testing.T) {
	// target_rounds=4 ends at 2 points, not 3.
	g := NewGame("room", 4)
	g.running = true
	g.leftScore = 1
	g.rightPaddleY = 0
	g.ballX = ArenaWidth - 5
	g.ballY = ArenaHeight / 2
	g.ballVX = 5
	g.ballVY = 0

	_, won, _ := g.step(frameDuration)

	assert.True(t, won)
	assert.Equal(t, SideLeft, g.Winner())
}

func TestDeltaScalingMovesProportionally(t *testing.T) {
	g := NewGame("room", 3)
	g.running = true
	g.ballX = ArenaWidth / 2
	g.ballY = ArenaHeight / 2
	g.ballVX = 5
	g.ballVY = 0

	// A tick that took twice the nominal frame moves the ball twice as far.
	g.step(2 * frameDuration)
	assert.InDelta(t, ArenaWidth/2+10, g.ballX, 1e-9)
}

func TestLoopFiresGameOverOnce(t *testing.T) {
	g := NewGame("room", 1)
	p1, p2 := uuid.New(), uuid.New()
	g.AddPlayer(p1, SideLeft)
	g.AddPlayer(p2, SideRight)

	over := make(chan *Game, 2)
	g.OnGameOver = func(g *Game) { over <- g }

	require.True(t, g.Start())
	// Put the ball on top of the right edge so the next tick scores.
	g.mu.Lock()
	g.rightPaddleY = 0
	g.ballX = ArenaWidth - 5
	g.ballY = ArenaHeight / 2
	g.ballVX = 5
	g.ballVY = 0
	g.mu.Unlock()

	select {
	case won := <-over:
		assert.Equal(t, SideLeft, won.Winner())
	case <-time.After(2 * time.Second):
		t.Fatal("game over callback never fired")
	}

	select {
	case <-over:
		t.Fatal("game over fired twice")
	case <-time.After(100 * time.Millisecond):
	}
}
