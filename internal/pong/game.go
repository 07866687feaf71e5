// internal/pong/game.go
package pong

import (
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Arena and simulation constants. The arena matches the canvas the reference
// client renders at: 800x450 with 15x100 paddles and a radius-10 ball.
const (
	ArenaWidth   = 800.0
	ArenaHeight  = 450.0
	PaddleWidth  = 15.0
	PaddleHeight = 100.0
	BallRadius   = 10.0

	TickRate         = 60
	InitialBallSpeed = 5.0
	SpeedIncrement   = 0.2
	MaxBounceAngle   = math.Pi / 4
)

// frameDuration is the nominal tick length; per-tick movement is scaled by
// elapsed/frameDuration so simulation speed is robust to scheduler jitter.
const frameDuration = time.Second / TickRate

// Side identifies a paddle slot.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
	SideNone  Side = ""
)

// Ball is the ball portion of a state snapshot.
type Ball struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Paddle is one paddle in a state snapshot.
type Paddle struct {
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Paddles groups both paddles.
type Paddles struct {
	Left  Paddle `json:"left"`
	Right Paddle `json:"right"`
}

// Score holds both sides' points.
type Score struct {
	Left  int `json:"left"`
	Right int `json:"right"`
}

// Dimensions echoes the arena size so clients can scale their canvas.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// State is the authoritative snapshot emitted to both players each tick.
type State struct {
	Ball       Ball       `json:"ball"`
	Paddles    Paddles    `json:"paddles"`
	Score      Score      `json:"score"`
	Dimensions Dimensions `json:"dimensions"`
}

// Game is one authoritative Pong simulation. All mutable fields are guarded
// by mu; the loop goroutine and external callers both take it.
type Game struct {
	RoomID       string
	TargetRounds int

	mu      sync.Mutex
	running bool
	winner  Side
	started time.Time

	ballX, ballY     float64
	ballVX, ballVY   float64
	ballSpeed        float64
	leftPaddleY      float64
	rightPaddleY     float64
	leftScore        int
	rightScore       int
	leftPlayer       uuid.UUID
	rightPlayer      uuid.UUID

	stop chan struct{}
	rng  *rand.Rand

	// BroadcastState is invoked from the loop goroutine once per tick with a
	// fresh snapshot. It must not block on slow clients.
	BroadcastState func(s State)

	// OnGameOver fires exactly once, after the winning point, from the loop
	// goroutine. The game is already stopped when it runs.
	OnGameOver func(g *Game)
}

// NewGame builds a stopped game for the given room. The ball starts at center
// with a random horizontal direction, like a coin-toss serve.
func NewGame(roomID string, targetRounds int) *Game {
	if targetRounds < 1 {
		targetRounds = 1
	}
	g := &Game{
		RoomID:       roomID,
		TargetRounds: targetRounds,
		ballX:        ArenaWidth / 2,
		ballY:        ArenaHeight / 2,
		ballSpeed:    InitialBallSpeed,
		leftPaddleY:  (ArenaHeight - PaddleHeight) / 2,
		rightPaddleY: (ArenaHeight - PaddleHeight) / 2,
		stop:         make(chan struct{}),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if g.rng.Float64() > 0.5 {
		g.ballVX = g.ballSpeed
	} else {
		g.ballVX = -g.ballSpeed
	}
	g.ballVY = g.ballSpeed * (g.rng.Float64() - 0.5)
	log.Printf("game created: room=%s rounds=%d", roomID, targetRounds)
	return g
}

// WinningScore is the number of points that ends the game: ceil(rounds/2).
func (g *Game) WinningScore() int {
	return (g.TargetRounds + 1) / 2
}

// AddPlayer seats a connection on the requested side, or the first free side
// when none is requested. Returns the assigned side, or SideNone if full.
func (g *Game) AddPlayer(connID uuid.UUID, side Side) Side {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case side == SideLeft && g.leftPlayer == uuid.Nil,
		side == SideNone && g.leftPlayer == uuid.Nil:
		g.leftPlayer = connID
		return SideLeft
	case side == SideRight && g.rightPlayer == uuid.Nil,
		side == SideNone && g.rightPlayer == uuid.Nil:
		g.rightPlayer = connID
		return SideRight
	}
	return SideNone
}

// RemovePlayer vacates the connection's slot. A running game with an empty
// slot stops on the next tick without declaring a winner.
func (g *Game) RemovePlayer(connID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch connID {
	case g.leftPlayer:
		g.leftPlayer = uuid.Nil
	case g.rightPlayer:
		g.rightPlayer = uuid.Nil
	default:
		return false
	}
	if g.running {
		g.running = false
	}
	return true
}

// Players returns the current slot occupants (uuid.Nil for an empty slot).
func (g *Game) Players() (left, right uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leftPlayer, g.rightPlayer
}

// SideOf reports which slot the connection occupies.
func (g *Game) SideOf(connID uuid.UUID) Side {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch connID {
	case g.leftPlayer:
		return SideLeft
	case g.rightPlayer:
		return SideRight
	}
	return SideNone
}

// UpdatePaddle sets the absolute paddle position for the given player,
// clamped to the arena. Input from a connection that owns no slot is ignored.
func (g *Game) UpdatePaddle(connID uuid.UUID, y float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	y = math.Max(0, math.Min(ArenaHeight-PaddleHeight, y))
	switch connID {
	case g.leftPlayer:
		g.leftPaddleY = y
	case g.rightPlayer:
		g.rightPaddleY = y
	}
}

// Start launches the simulation loop. It refuses to run twice, after a win,
// or with an empty slot.
func (g *Game) Start() bool {
	g.mu.Lock()
	if g.running || g.winner != SideNone || g.leftPlayer == uuid.Nil || g.rightPlayer == uuid.Nil {
		g.mu.Unlock()
		return false
	}
	g.running = true
	g.started = time.Now()
	g.mu.Unlock()

	go g.loop()
	log.Printf("game started: room=%s", g.RoomID)
	return true
}

// Stop halts the loop without declaring a winner. Safe to call repeatedly.
func (g *Game) Stop() {
	g.mu.Lock()
	g.running = false
	select {
	case <-g.stop:
	default:
		close(g.stop)
	}
	g.mu.Unlock()
	log.Printf("game stopped: room=%s", g.RoomID)
}

// Running reports whether the simulation loop is live.
func (g *Game) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Winner returns the winning side, or SideNone while undecided.
func (g *Game) Winner() Side {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.winner
}

// Scores returns the current point totals.
func (g *Game) Scores() (left, right int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leftScore, g.rightScore
}

// StartedAt returns the wall-clock start time of the match.
func (g *Game) StartedAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.started
}

// Snapshot returns the current state in the wire shape.
func (g *Game) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() State {
	return State{
		Ball: Ball{X: g.ballX, Y: g.ballY, Radius: BallRadius},
		Paddles: Paddles{
			Left:  Paddle{Y: g.leftPaddleY, Width: PaddleWidth, Height: PaddleHeight},
			Right: Paddle{Y: g.rightPaddleY, Width: PaddleWidth, Height: PaddleHeight},
		},
		Score:      Score{Left: g.leftScore, Right: g.rightScore},
		Dimensions: Dimensions{Width: ArenaWidth, Height: ArenaHeight},
	}
}

// loop drives the simulation at the tick rate, scaling each step by the real
// elapsed time so a delayed tick moves the ball proportionally further.
func (g *Game) loop() {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-g.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now

			alive, won, snap := g.step(dt)
			if g.BroadcastState != nil {
				g.BroadcastState(snap)
			}
			if won {
				if g.OnGameOver != nil {
					g.OnGameOver(g)
				}
				return
			}
			if !alive {
				return
			}
		}
	}
}

// step advances one frame. It returns whether the loop should keep running,
// whether the winning point just landed, and the post-step snapshot.
func (g *Game) step(dt time.Duration) (alive, won bool, snap State) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.running {
		return false, false, g.snapshotLocked()
	}

	f := dt.Seconds() / frameDuration.Seconds()

	g.ballX += g.ballVX * f
	g.ballY += g.ballVY * f

	// Top/bottom walls: reflect and clamp back into the arena.
	if g.ballY-BallRadius < 0 {
		g.ballVY = -g.ballVY
		g.ballY = BallRadius
	} else if g.ballY+BallRadius > ArenaHeight {
		g.ballVY = -g.ballVY
		g.ballY = ArenaHeight - BallRadius
	}

	// Scoring edges. The serve after a point heads toward the conceding side.
	if g.ballX-BallRadius < 0 {
		g.rightScore++
		g.checkGameOverLocked()
		g.resetBallLocked(SideLeft)
	} else if g.ballX+BallRadius > ArenaWidth {
		g.leftScore++
		g.checkGameOverLocked()
		g.resetBallLocked(SideRight)
	}

	g.checkPaddleCollisionsLocked()

	won = g.winner != SideNone
	return g.running, won, g.snapshotLocked()
}

// resetBallLocked recenters the ball with a random angle in [-π/4, π/4],
// serving toward the given side.
func (g *Game) resetBallLocked(toward Side) {
	g.ballX = ArenaWidth / 2
	g.ballY = ArenaHeight / 2
	angle := (g.rng.Float64()*2 - 1) * MaxBounceAngle
	direction := 1.0
	if toward == SideLeft {
		direction = -1.0
	}
	g.ballVX = g.ballSpeed * math.Cos(angle) * direction
	g.ballVY = g.ballSpeed * math.Sin(angle)
}

// checkPaddleCollisionsLocked reflects the ball off a paddle, steepening the
// angle toward the paddle's edges and speeding the ball up on every hit.
func (g *Game) checkPaddleCollisionsLocked() {
	if g.ballX-BallRadius < PaddleWidth &&
		g.ballY > g.leftPaddleY && g.ballY < g.leftPaddleY+PaddleHeight {

		hit := (g.ballY - (g.leftPaddleY + PaddleHeight/2)) / (PaddleHeight / 2)
		angle := hit * MaxBounceAngle
		g.ballSpeed += SpeedIncrement
		g.ballVX = math.Abs(g.ballSpeed * math.Cos(angle))
		g.ballVY = g.ballSpeed * math.Sin(angle)
		// One radius past the face, so the next tick cannot re-collide.
		g.ballX = PaddleWidth + BallRadius
		return
	}

	if g.ballX+BallRadius > ArenaWidth-PaddleWidth &&
		g.ballY > g.rightPaddleY && g.ballY < g.rightPaddleY+PaddleHeight {

		hit := (g.ballY - (g.rightPaddleY + PaddleHeight/2)) / (PaddleHeight / 2)
		angle := hit * MaxBounceAngle
		g.ballSpeed += SpeedIncrement
		g.ballVX = -math.Abs(g.ballSpeed * math.Cos(angle))
		g.ballVY = g.ballSpeed * math.Sin(angle)
		g.ballX = ArenaWidth - PaddleWidth - BallRadius
	}
}

func (g *Game) checkGameOverLocked() {
	target := g.WinningScore()
	if g.leftScore >= target {
		g.winner = SideLeft
		g.running = false
	} else if g.rightScore >= target {
		g.winner = SideRight
		g.running = false
	}
}
