// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/ft-transcendence/pong-service/internal/api"
	"github.com/ft-transcendence/pong-service/internal/auth"
	"github.com/ft-transcendence/pong-service/internal/cache"
	"github.com/ft-transcendence/pong-service/internal/database"
	"github.com/ft-transcendence/pong-service/internal/handlers"
	"github.com/ft-transcendence/pong-service/internal/middleware"
	"github.com/ft-transcendence/pong-service/internal/stats"
)

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if priv, pub := os.Getenv("JWT_PRIVATE_KEY_PATH"), os.Getenv("JWT_PUBLIC_KEY_PATH"); priv != "" && pub != "" {
		if err := auth.InitFromPath(priv, pub); err != nil {
			log.Fatalf("failed to load jwt keys: %v", err)
		}
	} else {
		auth.Init()
	}

	database.ConnectDB()
	if err := database.InitSchema(context.Background()); err != nil {
		log.Fatalf("failed to init schema: %v", err)
	}

	if err := cache.ConnectRedis(); err != nil {
		// The sink degrades to direct database writes without Redis.
		logger.Warnf("redis unavailable: %v", err)
		cache.Rdb = nil
	}

	sink := stats.NewSink(logger)
	app := handlers.NewAppServer(logger, sink)

	if cache.Rdb != nil {
		worker := stats.NewWorker(logger)
		go worker.Run(context.Background())
	}

	httpAPI := api.New(logger, sink)
	logMW := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()

	// game websocket
	mux.Handle("/ws", handlers.WSHandler(logger, app))

	// leaderboard + player endpoints
	mux.Handle("/entries", logMW(http.HandlerFunc(httpAPI.EntriesHandler)))
	mux.Handle("/player/", logMW(http.HandlerFunc(httpAPI.PlayerHandler)))
	mux.Handle("/end_game", logMW(http.HandlerFunc(httpAPI.EndGameHandler)))
	mux.Handle("/check_player", logMW(http.HandlerFunc(httpAPI.CheckPlayerHandler)))
	mux.Handle("/delete_player", logMW(http.HandlerFunc(httpAPI.DeletePlayerHandler)))
	mux.Handle("/token", logMW(http.HandlerFunc(httpAPI.TokenHandler)))

	mux.Handle("/metrics", promhttp.Handler())

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	cert, key := os.Getenv("SSL_CERT_PATH"), os.Getenv("SSL_KEY_PATH")
	if cert != "" && key != "" {
		logger.Infof("Running with TLS on %s", addr)
		if err := http.ListenAndServeTLS(addr, cert, key, mux); err != nil {
			log.Fatalf("server exited: %v", err)
		}
		return
	}

	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
