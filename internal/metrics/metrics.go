// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Game mode label values.
const (
	ModeClassic    = "classic"
	ModeTournament = "tournament"
)

var (
	// GamesStarted counts matches whose simulation loop was launched.
	GamesStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_game_started_total",
		Help: "Number of Pong games started",
	}, []string{"mode"})

	// GamesCompleted counts matches that ended with a winner.
	GamesCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_game_completed_total",
		Help: "Number of Pong games completed",
	}, []string{"mode"})

	// GameDuration observes wall-clock match length.
	GameDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pong_game_duration_seconds",
		Help:    "Duration of Pong games in seconds",
		Buckets: []float64{30, 60, 120, 300, 600, 1800},
	}, []string{"mode"})

	// TournamentsCreated counts create_tournament operations that succeeded.
	TournamentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pong_tournament_created_total",
		Help: "Number of tournaments created",
	})

	// TournamentPlayers observes the declared size of started tournaments.
	TournamentPlayers = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pong_tournament_players",
		Help:    "Number of players per tournament",
		Buckets: []float64{2, 3, 4, 8, 16, 32},
	})

	// ActivePlayers tracks connections currently inside a match.
	ActivePlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_active_players",
		Help: "Number of players currently active",
	})

	// WaitingPlayers tracks the matchmaking queue depth.
	WaitingPlayers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_waiting_players",
		Help: "Number of players currently waiting for a game",
	})

	// Connections tracks open websocket connections.
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pong_websocket_connections",
		Help: "Number of active WebSocket connections",
	})

	// Messages counts routed inbound messages per type.
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pong_websocket_messages_total",
		Help: "Number of WebSocket messages processed",
	}, []string{"message_type"})
)
