// internal/api/handlers.go
package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ft-transcendence/pong-service/internal/auth"
	"github.com/ft-transcendence/pong-service/internal/cache"
	"github.com/ft-transcendence/pong-service/internal/database"
	"github.com/ft-transcendence/pong-service/internal/models"
)

const (
	leaderboardLimit = 50
	leaderboardTTL   = 30 * time.Second
	requestTimeout   = 5 * time.Second
)

// Recorder queues finished match results for persistence.
type Recorder interface {
	RecordResult(result models.MatchResult)
}

// API serves the HTTP side channel: leaderboard reads, result submission and
// player administration.
type API struct {
	Logger   *logrus.Logger
	Recorder Recorder
}

// New builds the HTTP API.
func New(logger *logrus.Logger, recorder Recorder) *API {
	return &API{Logger: logger, Recorder: recorder}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// EntriesHandler serves GET /entries: the leaderboard sorted by wins. The
// serialized response is cached in Redis for a short TTL.
func (a *API) EntriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if cache.Rdb != nil {
		if payload, ok := cache.CachedLeaderboard(ctx); ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write(payload)
			return
		}
	}

	players, err := database.TopPlayers(ctx, leaderboardLimit)
	if err != nil {
		a.Logger.Errorf("entries: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
		return
	}
	if players == nil {
		players = []models.PlayerStats{}
	}

	payload, err := json.Marshal(map[string]interface{}{"entries": players})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode leaderboard")
		return
	}
	if cache.Rdb != nil {
		if err := cache.CacheLeaderboard(ctx, payload, leaderboardTTL); err != nil {
			a.Logger.Warnf("entries: cache write failed: %v", err)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(payload)
}

// PlayerHandler serves GET /player/{name}: one player's record.
func (a *API) PlayerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/player/")
	if name == "" || strings.Contains(name, "/") {
		writeError(w, http.StatusBadRequest, "missing player name")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	player, err := database.GetPlayer(ctx, name)
	if errors.Is(err, database.ErrPlayerNotFound) {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if err != nil {
		a.Logger.Errorf("player %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "failed to load player")
		return
	}
	writeJSON(w, http.StatusOK, player)
}

// EndGameHandler serves POST /end_game: a result submission from a trusted
// client, authenticated by the token issued at /token. The token subject must
// match the submitted nickname.
func (a *API) EndGameHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req struct {
		Nickname    string `json:"nickname"`
		Token       string `json:"token"`
		Winner      bool   `json:"winner"`
		TotalRounds int    `json:"total_rounds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Nickname == "" || req.Token == "" {
		writeError(w, http.StatusBadRequest, "nickname and token are required")
		return
	}

	subject, err := auth.AuthenticateJWT(req.Token)
	if err != nil || subject != req.Nickname {
		writeError(w, http.StatusForbidden, "invalid token")
		return
	}

	a.Recorder.RecordResult(models.MatchResult{
		Nickname:    req.Nickname,
		Winner:      req.Winner,
		TotalRounds: req.TotalRounds,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Result recorded"})
}

// CheckPlayerHandler serves GET /check_player?name=: nickname availability.
func (a *API) CheckPlayerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET only")
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	exists, err := database.PlayerExists(ctx, name)
	if err != nil {
		a.Logger.Errorf("check_player %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// DeletePlayerHandler serves POST /delete_player {name, code}: removes a
// player's record. The code is the hour-scoped deletion code for the name;
// codes from the current and previous hour are accepted.
func (a *API) DeletePlayerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var req struct {
		Name string `json:"name"`
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Name == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "name and code are required")
		return
	}
	if !verifyDeletionCode(req.Name, req.Code, time.Now()) {
		writeError(w, http.StatusForbidden, "invalid deletion code")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	deleted, err := database.DeletePlayer(ctx, req.Name)
	if err != nil {
		a.Logger.Errorf("delete_player %s: %v", req.Name, err)
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "player not found")
		return
	}
	if cache.Rdb != nil {
		cache.InvalidateLeaderboard(ctx)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Player deleted"})
}

// TokenHandler serves /token: issues the JWT used by /end_game submissions.
// Accepts GET with ?nickname= or POST with a JSON body.
func (a *API) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var nickname string
	switch r.Method {
	case http.MethodGet:
		nickname = r.URL.Query().Get("nickname")
	case http.MethodPost:
		var req struct {
			Nickname string `json:"nickname"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		nickname = req.Nickname
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST only")
		return
	}
	if nickname == "" {
		writeError(w, http.StatusBadRequest, "nickname is required")
		return
	}
	token, err := auth.CreateJWT(nickname)
	if err != nil {
		a.Logger.Errorf("token for %s: %v", nickname, err)
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// deletionCode derives the hour-scoped code for a name: the first 8 hex
// characters of SHA-256 over "name:YYYYMMDDHH" in UTC.
func deletionCode(name string, at time.Time) string {
	bucket := at.UTC().Format("2006010215")
	sum := sha256.Sum256([]byte(name + ":" + bucket))
	return hex.EncodeToString(sum[:])[:8]
}

func verifyDeletionCode(name, code string, now time.Time) bool {
	if code == deletionCode(name, now) {
		return true
	}
	return code == deletionCode(name, now.Add(-time.Hour))
}
